package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/experiment"
)

func TestCandidates(t *testing.T) {
	g := NewGridSearch([]string{"kr", "cr"}, [][]float64{{1, 2}, {0.5, 1, 1.5}}, 1)
	grid := g.Candidates()

	if len(grid) != 6 {
		t.Fatalf("expected 6 candidates, got %d", len(grid))
	}
	if grid[0]["kr"] != 1 || grid[0]["cr"] != 0.5 {
		t.Errorf("first candidate %v", grid[0])
	}
	if grid[5]["kr"] != 2 || grid[5]["cr"] != 1.5 {
		t.Errorf("last candidate %v", grid[5])
	}
}

func TestSearchRanksRingGains(t *testing.T) {
	registry := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := config.GetPreset("star-ring", "kept")
		cfg.Duration = 4
		cfg.Params["n"] = 4
		cfg.Params["jitter"] = 0.1
		cfg.ControllerParams = params
		return registry.Build(cfg)
	}

	g := NewGridSearch([]string{"kr", "cr"}, [][]float64{{0, 8}, {-1, 4}}, 2)
	candidates, err := g.Search(context.Background(), build, "ring_error")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(candidates))
	}

	best := candidates[0]
	if best.Params["kr"] != 8 || best.Params["cr"] != 4 {
		t.Errorf("expected kr=8 cr=4 to win, got %v (score %v)", best.Params, best.Score)
	}

	invalid := 0
	for _, c := range candidates {
		if c.Err != nil {
			invalid++
			if !math.IsInf(c.Score, 1) {
				t.Errorf("unbuildable candidate scored %v", c.Score)
			}
		}
	}
	if invalid != 2 {
		t.Errorf("expected 2 unbuildable candidates, got %d", invalid)
	}
}

func TestSearchMismatchedRanges(t *testing.T) {
	g := NewGridSearch([]string{"kr"}, nil, 1)
	_, err := g.Search(context.Background(), func(map[string]float64) (*experiment.Experiment, error) {
		return nil, errors.New("unused")
	}, "ring_error")
	if err == nil {
		t.Error("expected error")
	}
}
