package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/integrators"
	"github.com/san-kum/orbitsim/internal/metrics"
	"github.com/san-kum/orbitsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// Engine owns an N-body state and advances it with softened gravity plus an
// optional corrective law. It is not safe for concurrent use.
type Engine struct {
	cfg        dynamo.Config
	state      dynamo.State
	gravity    *physics.Gravity
	integrator *integrators.Euler
	energy     *metrics.EnergyModel

	acc     []r3.Vec
	control []r3.Vec

	t       float64
	steps   int
	onStats func(dynamo.EnergyStats)
}

// New validates cfg and initial, then deep-copies initial into a fresh engine.
func New(initial dynamo.State, cfg dynamo.Config) (*Engine, error) {
	if err := validate(initial, cfg); err != nil {
		return nil, err
	}
	if cfg.Habitability == nil {
		cfg.Habitability = metrics.Bound
	}

	n := len(initial)
	return &Engine{
		cfg:        cfg,
		state:      initial.Clone(),
		gravity:    physics.NewGravity(cfg.G, cfg.Softening),
		integrator: integrators.NewEuler(),
		energy:     metrics.NewEnergyModel(cfg.G, cfg.Softening, cfg.Habitability),
		acc:        make([]r3.Vec, n),
		control:    make([]r3.Vec, n),
	}, nil
}

func validate(initial dynamo.State, cfg dynamo.Config) error {
	if len(initial) == 0 {
		return dynamo.Invalid("bodies", "must not be empty")
	}
	for i, b := range initial {
		if !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
			return dynamo.Invalid(fmt.Sprintf("bodies[%d].mass", i), "must be positive and finite, got %g", b.Mass)
		}
	}
	if !initial.IsValid() {
		return dynamo.Invalid("bodies", "position or velocity is not finite")
	}
	if !(cfg.G > 0) || math.IsInf(cfg.G, 0) {
		return dynamo.Invalid("g", "must be positive, got %g", cfg.G)
	}
	if !(cfg.TimeStep > 0) || math.IsInf(cfg.TimeStep, 0) {
		return dynamo.Invalid("time_step", "must be positive, got %g", cfg.TimeStep)
	}
	if !(cfg.Softening >= 0) || math.IsInf(cfg.Softening, 0) {
		return dynamo.Invalid("softening", "must be non-negative, got %g", cfg.Softening)
	}
	if cfg.EnergySampleInterval < 1 {
		return dynamo.Invalid("energy_sample_interval", "must be at least 1, got %d", cfg.EnergySampleInterval)
	}
	return nil
}

// Step advances the state by dt. Accelerations come from the pre-step
// positions; the controller, if any, is evaluated once against the pre-step
// state at the current elapsed time.
func (e *Engine) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: got %g", dynamo.ErrInvalidStep, dt)
	}

	e.gravity.Accelerations(e.state, e.acc)
	e.applyControl()
	e.integrator.Step(e.state, e.acc, dt)

	e.t += dt
	e.steps++

	if e.onStats != nil && e.steps%e.cfg.EnergySampleInterval == 0 {
		e.onStats(e.Stats())
	}
	return nil
}

// applyControl adds the law's corrections onto e.acc. Missing entries count
// as zero and extra entries are dropped.
func (e *Engine) applyControl() {
	for i := range e.control {
		e.control[i] = r3.Vec{}
	}
	if e.cfg.Controller == nil {
		return
	}

	u := e.cfg.Controller.Accelerations(e.state, e.t)
	n := min(len(u), len(e.acc))
	for i := 0; i < n; i++ {
		e.control[i] = u[i]
		e.acc[i] = r3.Add(e.acc[i], u[i])
	}
}

// Stats computes energy diagnostics for the current state.
func (e *Engine) Stats() dynamo.EnergyStats {
	return e.energy.Compute(e.state)
}

// SetStatsCallback registers fn to receive Stats every EnergySampleInterval
// steps, synchronously inside Step. A later call replaces fn; nil clears it.
func (e *Engine) SetStatsCallback(fn func(dynamo.EnergyStats)) {
	e.onStats = fn
}

// Bodies returns a copy of the current state.
func (e *Engine) Bodies() dynamo.State {
	return e.state.Clone()
}

func (e *Engine) Body(i int) (dynamo.Body, bool) {
	if i < 0 || i >= len(e.state) {
		return dynamo.Body{}, false
	}
	return e.state[i], true
}

// Control returns a copy of the corrections applied during the last step.
func (e *Engine) Control() []r3.Vec {
	out := make([]r3.Vec, len(e.control))
	copy(out, e.control)
	return out
}

func (e *Engine) Len() int              { return len(e.state) }
func (e *Engine) Time() float64         { return e.t }
func (e *Engine) Steps() int            { return e.steps }
func (e *Engine) Config() dynamo.Config { return e.cfg }
