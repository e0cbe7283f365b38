package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.01
	DefaultDuration    = 20.0
	DefaultSubsteps    = 10
	DefaultSampleEvery = 10
	DefaultG           = 1.0
	DefaultSoftening   = 0.01
	DefaultInterval    = 10
	DefaultBoundRadius = 100.0
	DefaultDataDir     = ".orbitsim"
)

// Config describes one run: which scenario to build, which law corrects it,
// the engine's physical constants and how the run is driven.
type Config struct {
	Scenario         string             `yaml:"scenario"`
	BodiesFile       string             `yaml:"bodies_file,omitempty"`
	Params           map[string]float64 `yaml:"params,omitempty"`
	Controller       string             `yaml:"controller"`
	ControllerParams map[string]float64 `yaml:"controller_params,omitempty"`
	Physics          PhysicsConfig      `yaml:"physics"`
	Habitability     HabitabilityConfig `yaml:"habitability"`
	Dt               float64            `yaml:"dt"`
	Duration         float64            `yaml:"duration"`
	Substeps         int                `yaml:"substeps"`
	SampleEvery      int                `yaml:"sample_every"`
	BoundRadius      float64            `yaml:"bound_radius"`
}

type PhysicsConfig struct {
	G                    float64 `yaml:"g"`
	Softening            float64 `yaml:"softening"`
	EnergySampleInterval int     `yaml:"energy_sample_interval"`
}

type HabitabilityConfig struct {
	Policy    string  `yaml:"policy"`
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// Env holds overrides read from the environment. Unset pointer fields leave
// the file or default value in place.
type Env struct {
	DataDir     string   `env:"ORBITSIM_DATA_DIR" envDefault:".orbitsim"`
	G           *float64 `env:"ORBITSIM_G"`
	Softening   *float64 `env:"ORBITSIM_SOFTENING"`
	SampleEvery *int     `env:"ORBITSIM_SAMPLE_EVERY"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:   "star-ring",
		Controller: "none",
		Physics: PhysicsConfig{
			G:                    DefaultG,
			Softening:            DefaultSoftening,
			EnergySampleInterval: DefaultInterval,
		},
		Habitability: HabitabilityConfig{Policy: "bound"},
		Dt:           DefaultDt,
		Duration:     DefaultDuration,
		Substeps:     DefaultSubsteps,
		SampleEvery:  DefaultSampleEvery,
		BoundRadius:  DefaultBoundRadius,
	}
}

// TimeStep is the engine's advisory step: one substep of a tick.
func (c *Config) TimeStep() float64 {
	if c.Substeps < 1 {
		return c.Dt
	}
	return c.Dt / float64(c.Substeps)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ParseEnv reads the ORBITSIM_* environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply overlays the set environment overrides onto cfg.
func (e Env) Apply(cfg *Config) {
	if e.G != nil {
		cfg.Physics.G = *e.G
	}
	if e.Softening != nil {
		cfg.Physics.Softening = *e.Softening
	}
	if e.SampleEvery != nil {
		cfg.SampleEvery = *e.SampleEvery
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = cloneParams(c.Params)
	out.ControllerParams = cloneParams(c.ControllerParams)
	return &out
}

func cloneParams(p map[string]float64) map[string]float64 {
	if p == nil {
		return nil
	}
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
