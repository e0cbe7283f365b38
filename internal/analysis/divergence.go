package analysis

import (
	"errors"
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

type DivergenceOptions struct {
	// Body whose X position is perturbed.
	Body int
	// Perturbation is the initial displacement; 1e-6 when zero.
	Perturbation float64
	Dt           float64
	Duration     float64
	// Saturation stops sampling once the separation exceeds it; 1 when zero.
	Saturation float64
}

// DivergenceRate runs two engines from x0 and from x0 with one body displaced,
// and fits the slope of ln(separation) against time. Separation is the
// Euclidean norm over all position differences.
func DivergenceRate(build func(dynamo.State) (*sim.Engine, error), x0 dynamo.State, opts DivergenceOptions) (float64, error) {
	if opts.Body < 0 || opts.Body >= len(x0) {
		return 0, dynamo.Invalid("body", "index %d outside %d bodies", opts.Body, len(x0))
	}
	if !(opts.Dt > 0) || !(opts.Duration > opts.Dt) {
		return 0, dynamo.Invalid("dt", "need 0 < dt < duration, got dt=%g duration=%g", opts.Dt, opts.Duration)
	}
	if opts.Perturbation == 0 {
		opts.Perturbation = 1e-6
	}
	if opts.Saturation == 0 {
		opts.Saturation = 1
	}

	xp := x0.Clone()
	xp[opts.Body].Position.X += opts.Perturbation

	a, err := build(x0)
	if err != nil {
		return 0, err
	}
	b, err := build(xp)
	if err != nil {
		return 0, err
	}

	steps := int(math.Round(opts.Duration / opts.Dt))
	times := make([]float64, 0, steps)
	logs := make([]float64, 0, steps)

	for i := 0; i < steps; i++ {
		if err := a.Step(opts.Dt); err != nil {
			return 0, err
		}
		if err := b.Step(opts.Dt); err != nil {
			return 0, err
		}

		sep := separation(a.Bodies(), b.Bodies())
		if math.IsNaN(sep) || sep > opts.Saturation {
			break
		}
		if sep > 0 {
			times = append(times, a.Time())
			logs = append(logs, math.Log(sep))
		}
	}

	if len(times) < 2 {
		return 0, errors.New("analysis: separation saturated before two samples")
	}
	_, slope := stat.LinearRegression(times, logs, nil, false)
	return slope, nil
}

func separation(x, y dynamo.State) float64 {
	s := 0.0
	for i := range x {
		s += r3.Norm2(r3.Sub(x[i].Position, y[i].Position))
	}
	return math.Sqrt(s)
}
