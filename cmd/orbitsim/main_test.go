package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func newConfigCmd(t *testing.T, set map[string]string) *cobra.Command {
	t.Helper()
	preset, configFile = "", ""
	params, gains = nil, nil
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	for k, v := range set {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	return cmd
}

func TestOverlay(t *testing.T) {
	base := map[string]float64{"n": 6}
	got, err := overlay(base, []string{"n=12", " radius = 4.5 "})
	if err != nil {
		t.Fatal(err)
	}
	if got["n"] != 12 || got["radius"] != 4.5 {
		t.Errorf("overlay = %v", got)
	}
	if base["n"] != 6 {
		t.Error("overlay modified its base")
	}

	for _, bad := range []string{"n", "n=abc"} {
		if _, err := overlay(nil, []string{bad}); err == nil {
			t.Errorf("overlay(%q) succeeded", bad)
		}
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"kr=0,4,8", "cr=1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "kr" || len(ranges[0]) != 3 || ranges[0][2] != 8 || ranges[1][0] != 1 {
		t.Errorf("parseGrid = %v %v", names, ranges)
	}
	if _, _, err := parseGrid([]string{"kr"}); err == nil {
		t.Error("missing values accepted")
	}
	if _, _, err := parseGrid([]string{"kr=1,x"}); err == nil {
		t.Error("bad value accepted")
	}
}

func TestResolveConfig(t *testing.T) {
	cmd := newConfigCmd(t, map[string]string{"dt": "0.5", "controller": "ring", "param": "n=4", "gain": "kr=2"})
	cfg, err := resolveConfig(cmd, []string{"ring"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "ring" || cfg.Dt != 0.5 || cfg.Controller != "ring" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Params["n"] != 4 || cfg.ControllerParams["kr"] != 2 {
		t.Errorf("params = %v gains = %v", cfg.Params, cfg.ControllerParams)
	}
	// unchanged flags keep the defaults
	if cfg.Substeps != 10 {
		t.Errorf("substeps = %d", cfg.Substeps)
	}
}

func TestResolveConfigPreset(t *testing.T) {
	cmd := newConfigCmd(t, map[string]string{"preset": "kept", "time": "2"})
	cfg, err := resolveConfig(cmd, []string{"ring"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Controller != "ring" || cfg.Dt != 0.05 || cfg.Duration != 2 {
		t.Errorf("cfg = %+v", cfg)
	}

	cmd = newConfigCmd(t, map[string]string{"preset": "nope"})
	if _, err := resolveConfig(cmd, []string{"ring"}); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestResolveConfigBodiesFile(t *testing.T) {
	cmd := newConfigCmd(t, map[string]string{"bodies": "system.yaml"})
	cfg, err := resolveConfig(cmd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "file" || cfg.BodiesFile != "system.yaml" {
		t.Errorf("cfg = %+v", cfg)
	}
}
