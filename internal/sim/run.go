package sim

import (
	"context"
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/metrics"
)

// RunConfig describes one driven run. Each tick issues Substeps calls of
// Step(Dt/Substeps).
type RunConfig struct {
	Duration    float64
	Dt          float64
	Substeps    int
	SampleEvery int
	Metrics     []dynamo.Metric
	Observers   []dynamo.Observer
}

type Sample struct {
	Time  float64            `json:"time"`
	Stats dynamo.EnergyStats `json:"stats"`
}

type Result struct {
	Samples     []Sample           `json:"samples"`
	EnergyDrift float64            `json:"energy_drift"`
	StepsTaken  int                `json:"steps_taken"`
	Diverged    bool               `json:"diverged"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (c RunConfig) validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return dynamo.Invalid("dt", "must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return dynamo.Invalid("duration", "must be positive, got %g", c.Duration)
	}
	if c.Substeps < 0 {
		return dynamo.Invalid("substeps", "must not be negative, got %d", c.Substeps)
	}
	if c.SampleEvery < 0 {
		return dynamo.Invalid("sample_every", "must not be negative, got %d", c.SampleEvery)
	}
	return nil
}

// Run drives e for cfg.Duration of simulated time. The context is checked
// between ticks. A state that turns NaN/Inf stops the run with a
// *dynamo.SimulationError wrapping dynamo.ErrInvalidState; the partial result
// is returned alongside it.
func Run(ctx context.Context, e *Engine, cfg RunConfig) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	substeps := max(cfg.Substeps, 1)
	every := max(cfg.SampleEvery, 1)
	h := cfg.Dt / float64(substeps)
	ticks := int(math.Round(cfg.Duration / cfg.Dt))

	result := &Result{
		Samples: make([]Sample, 0, ticks/every+2),
		Metrics: make(map[string]float64),
	}

	for _, m := range cfg.Metrics {
		m.Reset()
	}

	initial := e.Stats()
	result.Samples = append(result.Samples, Sample{Time: e.Time(), Stats: initial})

	var runErr error
loop:
	for tick := 1; tick <= ticks; tick++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		default:
		}

		for s := 0; s < substeps; s++ {
			if err := e.Step(h); err != nil {
				runErr = err
				break loop
			}
			result.StepsTaken++

			if len(cfg.Metrics) > 0 || len(cfg.Observers) > 0 {
				x, u := e.state, e.Control()
				for _, m := range cfg.Metrics {
					m.Observe(x, u, e.t)
				}
				for _, o := range cfg.Observers {
					o.OnStep(x, u, e.t)
				}
			}

			if !e.state.IsValid() {
				result.Diverged = true
				runErr = &dynamo.SimulationError{Step: e.Steps(), Time: e.Time(), Wrapped: dynamo.ErrInvalidState}
				break loop
			}
		}

		if tick%every == 0 || tick == ticks {
			result.Samples = append(result.Samples, Sample{Time: e.Time(), Stats: e.Stats()})
		}
	}

	if !result.Diverged && initial.Total != 0 {
		final := e.Stats()
		result.EnergyDrift = math.Abs(final.Total-initial.Total) / math.Abs(initial.Total)
	}
	for _, m := range cfg.Metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}

// DefaultMetrics returns the metrics every run records: energy drift against
// e's own field, control effort and boundedness within radius.
func DefaultMetrics(e *Engine, radius float64) []dynamo.Metric {
	model := metrics.NewEnergyModel(e.cfg.G, e.cfg.Softening, e.cfg.Habitability)
	return []dynamo.Metric{
		metrics.NewEnergyDrift(model),
		metrics.NewControlEffort(),
		metrics.NewBounded(radius),
	}
}
