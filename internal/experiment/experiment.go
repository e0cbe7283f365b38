package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/control"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/metrics"
	"github.com/san-kum/orbitsim/internal/scenario"
	"github.com/san-kum/orbitsim/internal/sim"
)

// FileScenario names the scenario that reads bodies from Config.BodiesFile.
const FileScenario = "file"

// Experiment is one configured engine plus the run that drives it.
type Experiment struct {
	cfg     *config.Config
	engine  *sim.Engine
	law     dynamo.AccelerationLaw
	initial dynamo.State
}

// Build resolves cfg's scenario and controller through r and constructs the
// engine.
func (r *Registry) Build(cfg *config.Config) (*Experiment, error) {
	initial, err := r.initialState(cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Scenario, err)
	}

	name := cfg.Controller
	if name == "" {
		name = "none"
	}
	factory, err := r.GetController(name)
	if err != nil {
		return nil, err
	}
	law, err := factory(initial, cfg.ControllerParams)
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", name, err)
	}

	e := metrics.NewEnergyModel(cfg.Physics.G, cfg.Physics.Softening, metrics.Always)
	hab, err := metrics.Habitability(cfg.Habitability.Policy, cfg.Habitability.Tolerance, e.Compute(initial).Total)
	if err != nil {
		return nil, err
	}

	active := law
	if _, ok := law.(*control.None); ok {
		active = nil
	}

	engine, err := sim.New(initial, dynamo.Config{
		G:                    cfg.Physics.G,
		Softening:            cfg.Physics.Softening,
		TimeStep:             cfg.TimeStep(),
		EnergySampleInterval: cfg.Physics.EnergySampleInterval,
		Controller:           active,
		Habitability:         hab,
	})
	if err != nil {
		return nil, err
	}

	return &Experiment{cfg: cfg, engine: engine, law: law, initial: initial}, nil
}

func (r *Registry) initialState(cfg *config.Config) (dynamo.State, error) {
	if cfg.Scenario == FileScenario {
		if cfg.BodiesFile == "" {
			return nil, dynamo.Invalid("bodies_file", "required for the file scenario")
		}
		return scenario.LoadFile(cfg.BodiesFile)
	}
	fn, err := r.GetScenario(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	return fn(cfg.Params)
}

// Metrics returns the run metrics for this experiment: the engine defaults
// plus ring error when the law tracks a radius.
func (x *Experiment) Metrics() []dynamo.Metric {
	ms := sim.DefaultMetrics(x.engine, x.cfg.BoundRadius)
	if rk, ok := x.law.(metrics.RadiusTracker); ok {
		ms = append(ms, metrics.NewRingError(rk, x.cfg.Duration/2))
	}
	return ms
}

// RunConfig derives the driver configuration from the experiment config.
func (x *Experiment) RunConfig() sim.RunConfig {
	return sim.RunConfig{
		Duration:    x.cfg.Duration,
		Dt:          x.cfg.Dt,
		Substeps:    x.cfg.Substeps,
		SampleEvery: x.cfg.SampleEvery,
		Metrics:     x.Metrics(),
	}
}

func (x *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return sim.Run(ctx, x.engine, x.RunConfig())
}

func (x *Experiment) Engine() *sim.Engine         { return x.engine }
func (x *Experiment) Law() dynamo.AccelerationLaw { return x.law }
func (x *Experiment) Config() *config.Config      { return x.cfg }
func (x *Experiment) Initial() dynamo.State       { return x.initial.Clone() }

// Describe summarises the law.
func (x *Experiment) Describe() string {
	if s, ok := x.law.(fmt.Stringer); ok {
		return s.String()
	}
	if _, ok := x.law.(*control.None); ok {
		return "none"
	}
	return fmt.Sprintf("%T", x.law)
}
