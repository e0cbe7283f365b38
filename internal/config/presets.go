package config

import "sort"

var Presets = map[string]map[string]*Config{
	"binary": {
		"equal": {
			Scenario: "binary", Controller: "none", Dt: 0.01, Duration: 60.0, Substeps: 10,
			Params: map[string]float64{"m1": 1, "m2": 1, "separation": 2},
		},
		"unequal": {
			Scenario: "binary", Controller: "none", Dt: 0.01, Duration: 60.0, Substeps: 20,
			Params: map[string]float64{"m1": 10, "m2": 1, "separation": 4},
		},
	},
	"ring": {
		"free": {
			Scenario: "ring", Controller: "none", Dt: 0.05, Duration: 400.0, Substeps: 10,
			Params: map[string]float64{"n": 8, "radius": 10, "jitter": 0.01},
		},
		"kept": {
			Scenario: "ring", Controller: "ring", Dt: 0.05, Duration: 400.0, Substeps: 10,
			Params:           map[string]float64{"n": 8, "radius": 10, "jitter": 0.01},
			ControllerParams: map[string]float64{"kr": 0.05, "cr": 0.3, "kt": 0.1, "ct": 0, "drag": 0},
		},
	},
	"star-ring": {
		"free": {
			Scenario: "star-ring", Controller: "none", Dt: 0.01, Duration: 40.0, Substeps: 10,
			Params: map[string]float64{"n": 12, "radius": 10, "mass": 0.5},
		},
		"kept": {
			Scenario: "star-ring", Controller: "ring", Dt: 0.01, Duration: 40.0, Substeps: 10,
			Params: map[string]float64{"n": 12, "radius": 10, "mass": 0.5, "jitter": 0.05},
		},
	},
	"figure8": {
		"choreography": {
			Scenario: "figure8", Controller: "none", Dt: 0.01, Duration: 30.0, Substeps: 20,
		},
	},
	"inner-system": {
		"planets": {
			Scenario: "inner-system", Controller: "none", Dt: 0.01, Duration: 100.0, Substeps: 10,
		},
	},
}

// GetPreset returns a complete copy of the named preset, with unset fields
// filled from DefaultConfig.
func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	p, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}

	cfg := DefaultConfig()
	cfg.Scenario = p.Scenario
	cfg.Controller = p.Controller
	cfg.Dt = p.Dt
	cfg.Duration = p.Duration
	cfg.Substeps = p.Substeps
	cfg.Params = cloneParams(p.Params)
	cfg.ControllerParams = cloneParams(p.ControllerParams)
	return cfg
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
