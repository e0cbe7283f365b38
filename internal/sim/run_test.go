package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/metrics"
	"gonum.org/v1/gonum/spatial/r3"
)

func testBinary() dynamo.State {
	return dynamo.State{
		{Name: "a", Mass: 1, Position: r3.Vec{X: 1}, Velocity: r3.Vec{Y: 0.5}},
		{Name: "b", Mass: 1, Position: r3.Vec{X: -1}, Velocity: r3.Vec{Y: -0.5}},
	}
}

func newTestEngine(t *testing.T, law dynamo.AccelerationLaw) *Engine {
	t.Helper()
	cfg := dynamo.DefaultConfig()
	cfg.Controller = law
	e, err := New(testBinary(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

type nanLaw struct{}

func (nanLaw) Accelerations(x dynamo.State, t float64) []r3.Vec {
	u := make([]r3.Vec, len(x))
	if t > 0.05 {
		u[0].X = math.NaN()
	}
	return u
}

type countingMetric struct {
	count int
}

func (c *countingMetric) Name() string                           { return "count" }
func (c *countingMetric) Observe(dynamo.State, []r3.Vec, float64) { c.count++ }
func (c *countingMetric) Value() float64                         { return float64(c.count) }
func (c *countingMetric) Reset()                                 { c.count = 0 }

func TestRun(t *testing.T) {
	e := newTestEngine(t, nil)
	m := &countingMetric{count: 7}

	result, err := Run(context.Background(), e, RunConfig{
		Duration:    1.0,
		Dt:          0.1,
		Substeps:    4,
		SampleEvery: 2,
		Metrics:     []dynamo.Metric{m},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 40 {
		t.Errorf("expected 40 steps, got %d", result.StepsTaken)
	}
	if len(result.Samples) != 6 {
		t.Errorf("expected 6 samples, got %d", len(result.Samples))
	}
	if got := result.Samples[0].Time; got != 0 {
		t.Errorf("first sample at t=%v, want 0", got)
	}
	if got := result.Samples[len(result.Samples)-1].Time; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("last sample at t=%v, want 1", got)
	}
	if result.Metrics["count"] != 40 {
		t.Errorf("metric observed %v times, want 40", result.Metrics["count"])
	}
	if result.EnergyDrift > 0.01 {
		t.Errorf("energy drift %v too large", result.EnergyDrift)
	}
	if e.Steps() != 40 {
		t.Errorf("engine reports %d steps, want 40", e.Steps())
	}
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{"zero dt", RunConfig{Dt: 0, Duration: 1.0}},
		{"negative dt", RunConfig{Dt: -0.1, Duration: 1.0}},
		{"zero duration", RunConfig{Dt: 0.1, Duration: 0}},
		{"negative duration", RunConfig{Dt: 0.1, Duration: -1.0}},
		{"negative substeps", RunConfig{Dt: 0.1, Duration: 1.0, Substeps: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), newTestEngine(t, nil), tt.cfg)
			if !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, newTestEngine(t, nil), RunConfig{Duration: 1, Dt: 0.01})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected no steps after cancel, got %d", result.StepsTaken)
	}
}

func TestRunDiverged(t *testing.T) {
	result, err := Run(context.Background(), newTestEngine(t, nanLaw{}), RunConfig{Duration: 1, Dt: 0.01})
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	var se *dynamo.SimulationError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if se.Step <= 0 || se.Step >= 100 {
		t.Errorf("unexpected failing step %d", se.Step)
	}
	if !result.Diverged {
		t.Error("expected Diverged result")
	}
}

func TestDefaultMetrics(t *testing.T) {
	e := newTestEngine(t, nil)
	result, err := Run(context.Background(), e, RunConfig{
		Duration: 0.5,
		Dt:       0.01,
		Metrics:  DefaultMetrics(e, 10),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"energy_drift", "control_effort", "bounded"} {
		if _, ok := result.Metrics[name]; !ok {
			t.Errorf("metric %q missing", name)
		}
	}
	if result.Metrics["bounded"] != 1 {
		t.Errorf("binary left radius 10: bounded=%v", result.Metrics["bounded"])
	}
	if result.Metrics["control_effort"] != 0 {
		t.Errorf("expected no control effort, got %v", result.Metrics["control_effort"])
	}
}

func TestEnsemble(t *testing.T) {
	model := metrics.NewEnergyModel(1, 0.01, nil)
	jobs := make([]Job, 4)
	for i := range jobs {
		law := dynamo.AccelerationLaw(nil)
		if i == 3 {
			law = nanLaw{}
		}
		jobs[i] = func() (*Engine, RunConfig, error) {
			cfg := dynamo.DefaultConfig()
			cfg.Controller = law
			e, err := New(testBinary(), cfg)
			if err != nil {
				return nil, RunConfig{}, err
			}
			return e, RunConfig{
				Duration: 0.2,
				Dt:       0.01,
				Metrics:  []dynamo.Metric{metrics.NewEnergyDrift(model)},
			}, nil
		}
	}

	results, err := NewEnsemble(2).Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i := 0; i < 3; i++ {
		if results[i].Diverged || results[i].StepsTaken != 20 {
			t.Errorf("job %d: diverged=%v steps=%d", i, results[i].Diverged, results[i].StepsTaken)
		}
	}
	if !results[3].Diverged {
		t.Error("expected job 3 to diverge")
	}
}

func TestEnsembleBuildError(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job{func() (*Engine, RunConfig, error) { return nil, RunConfig{}, boom }}

	if _, err := NewEnsemble(0).Run(context.Background(), jobs); !errors.Is(err, boom) {
		t.Errorf("expected build error, got %v", err)
	}
}
