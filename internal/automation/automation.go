package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/sim"
	"github.com/san-kum/orbitsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Script is a scripted sequence of runs.
type Script struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Steps       []ScriptStep `yaml:"steps"`
}

// ScriptStep starts from a preset ("scenario/preset") or the defaults and
// overlays the keys present in Config.
type ScriptStep struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset,omitempty"`
	Config yaml.Node `yaml:"config,omitempty"`
	Save   bool      `yaml:"save,omitempty"`
}

// StepResult records one executed step.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
	RunID  string
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, dynamo.Invalid("steps", "script has no steps")
	}
	return &s, nil
}

// Resolve builds the step's config.
func (s ScriptStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		sc, p, ok := strings.Cut(s.Preset, "/")
		if !ok {
			return nil, dynamo.Invalid("preset", "want scenario/preset, got %q", s.Preset)
		}
		if cfg = config.GetPreset(sc, p); cfg == nil {
			return nil, dynamo.Invalid("preset", "unknown preset %q", s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	return cfg, nil
}

// RunScript executes every step in order. Steps marked Save are written to
// store when it is non-nil. Progress lines go to progress when it is non-nil.
// A diverged step is kept and the script continues.
func RunScript(ctx context.Context, script *Script, reg *experiment.Registry, store *storage.Store, progress io.Writer) ([]StepResult, error) {
	if progress == nil {
		progress = io.Discard
	}
	results := make([]StepResult, 0, len(script.Steps))

	for i, step := range script.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		fmt.Fprintf(progress, "running step %d/%d: %s\n", i+1, len(script.Steps), name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		exp, err := reg.Build(cfg)
		if err != nil {
			return results, fmt.Errorf("%s setup: %w", name, err)
		}
		res, err := exp.Run(ctx)
		if err != nil && !errors.Is(err, dynamo.ErrInvalidState) {
			return results, fmt.Errorf("%s run: %w", name, err)
		}

		sr := StepResult{Name: name, Config: cfg, Result: res}
		if step.Save && store != nil {
			sr.RunID, err = store.Save(Metadata(exp), res)
			if err != nil {
				return results, fmt.Errorf("%s save: %w", name, err)
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

// Metadata fills a run record from an experiment's config.
func Metadata(exp *experiment.Experiment) storage.RunMetadata {
	cfg := exp.Config()
	return storage.RunMetadata{
		Scenario:         cfg.Scenario,
		Controller:       cfg.Controller,
		Law:              exp.Describe(),
		Dt:               cfg.Dt,
		Duration:         cfg.Duration,
		Substeps:         cfg.Substeps,
		G:                cfg.Physics.G,
		Softening:        cfg.Physics.Softening,
		Bodies:           exp.Engine().Len(),
		Params:           cfg.Params,
		ControllerParams: cfg.ControllerParams,
	}
}

// ParameterSweep varies one scenario parameter, or one controller parameter
// when Controller is set, evenly across [Min, Max].
type ParameterSweep struct {
	Base       *config.Config
	Param      string
	Controller bool
	Min, Max   float64
	Steps      int
	Workers    int
}

type SweepResult struct {
	Value       float64
	EnergyDrift float64
	Diverged    bool
	Metrics     map[string]float64
	Err         error
}

func (s *ParameterSweep) values() []float64 {
	if s.Steps == 1 {
		return []float64{s.Min}
	}
	out := make([]float64, s.Steps)
	step := (s.Max - s.Min) / float64(s.Steps-1)
	for i := range out {
		out[i] = s.Min + float64(i)*step
	}
	return out
}

// RunSweep runs every sweep point in parallel. Points whose config fails to
// build carry Err and no metrics.
func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *experiment.Registry) ([]SweepResult, error) {
	if sweep.Steps < 1 {
		return nil, dynamo.Invalid("steps", "must be at least 1, got %d", sweep.Steps)
	}
	if sweep.Param == "" {
		return nil, dynamo.Invalid("param", "required")
	}

	values := sweep.values()
	out := make([]SweepResult, len(values))
	cfgs := make([]*config.Config, len(values))
	for i, v := range values {
		cfg := sweep.Base.Clone()
		target := &cfg.Params
		if sweep.Controller {
			target = &cfg.ControllerParams
		}
		if *target == nil {
			*target = make(map[string]float64)
		}
		(*target)[sweep.Param] = v
		cfgs[i] = cfg
		out[i].Value = v
	}

	results, err := runAll(ctx, reg, cfgs, sweep.Workers, func(i int, err error) { out[i].Err = err })
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		out[i].EnergyDrift, out[i].Diverged, out[i].Metrics = res.EnergyDrift, res.Diverged, res.Metrics
	}
	return out, nil
}

// MonteCarloConfig perturbs the base scenario through its jitter and seed
// parameters, one seed per trial.
type MonteCarloConfig struct {
	Base    *config.Config
	Jitter  float64
	Trials  int
	Seed    int
	Workers int
}

type MonteCarloResult struct {
	TrialID     int
	Seed        int
	EnergyDrift float64
	// Stable is set when the run neither diverged nor let a body leave the
	// bound radius.
	Stable  bool
	Metrics map[string]float64
	Err     error
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, reg *experiment.Registry) ([]MonteCarloResult, error) {
	if cfg.Trials < 1 {
		return nil, dynamo.Invalid("trials", "must be at least 1, got %d", cfg.Trials)
	}

	out := make([]MonteCarloResult, cfg.Trials)
	cfgs := make([]*config.Config, cfg.Trials)
	for i := range cfgs {
		c := cfg.Base.Clone()
		if c.Params == nil {
			c.Params = make(map[string]float64)
		}
		seed := cfg.Seed + i
		c.Params["seed"] = float64(seed)
		if cfg.Jitter > 0 {
			c.Params["jitter"] = cfg.Jitter
		}
		cfgs[i] = c
		out[i].TrialID, out[i].Seed = i, seed
	}

	results, err := runAll(ctx, reg, cfgs, cfg.Workers, func(i int, err error) { out[i].Err = err })
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		out[i].EnergyDrift, out[i].Metrics = res.EnergyDrift, res.Metrics
		out[i].Stable = !res.Diverged && res.Metrics["bounded"] == 1
	}
	return out, nil
}

// MonteCarloStats counts stable and unstable trials. Trials that failed to
// build are in neither.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		switch {
		case r.Err != nil:
		case r.Stable:
			stableCount++
		default:
			unstableCount++
		}
	}
	return
}

// runAll builds one experiment per config and runs them through an ensemble.
// Build failures are reported through failed and leave a nil result.
func runAll(ctx context.Context, reg *experiment.Registry, cfgs []*config.Config, workers int, failed func(int, error)) ([]*sim.Result, error) {
	out := make([]*sim.Result, len(cfgs))
	var jobs []sim.Job
	var slots []int
	for i, cfg := range cfgs {
		exp, err := reg.Build(cfg)
		if err != nil {
			failed(i, err)
			continue
		}
		jobs = append(jobs, func() (*sim.Engine, sim.RunConfig, error) {
			return exp.Engine(), exp.RunConfig(), nil
		})
		slots = append(slots, i)
	}

	results, err := sim.NewEnsemble(workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for k, res := range results {
		out[slots[k]] = res
	}
	return out, nil
}
