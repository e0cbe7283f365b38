package optim

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/sim"
)

// GridSearch evaluates every combination of parameter values on independent
// engines and ranks them by a run metric, lower first.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64, workers int) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: workers}
}

type Candidate struct {
	Params   map[string]float64
	Score    float64
	Diverged bool
	// Err is set when the candidate could not be built.
	Err error
}

// Candidates enumerates the full grid in lexical order of the value lists.
func (g *GridSearch) Candidates() []map[string]float64 {
	var out []map[string]float64
	g.enumerate(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.enumerate(depth+1, newParams, out)
	}
}

// Search builds one experiment per grid point and runs them in parallel.
// Candidates that fail to build, diverge, or lack the metric score +Inf.
// The result is sorted by score.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) ([]Candidate, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, errors.New("optim: parameter names and ranges differ in length")
	}

	grid := g.Candidates()
	candidates := make([]Candidate, len(grid))
	var jobs []sim.Job
	var slots []int

	for i, params := range grid {
		candidates[i] = Candidate{Params: params, Score: math.Inf(1)}
		exp, err := buildExperiment(params)
		if err != nil {
			candidates[i].Err = err
			continue
		}
		jobs = append(jobs, func() (*sim.Engine, sim.RunConfig, error) {
			return exp.Engine(), exp.RunConfig(), nil
		})
		slots = append(slots, i)
	}

	results, err := sim.NewEnsemble(g.workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	for k, res := range results {
		c := &candidates[slots[k]]
		c.Diverged = res.Diverged
		if v, ok := res.Metrics[metricName]; ok && !res.Diverged && !math.IsNaN(v) {
			c.Score = v
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score < candidates[j].Score
	})
	return candidates, nil
}
