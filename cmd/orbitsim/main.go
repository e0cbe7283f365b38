package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir      string
	configFile   string
	preset       string
	controller   string
	bodiesFile   string
	dt           float64
	duration     float64
	substeps     int
	sampleEvery  int
	gravity      float64
	softening    float64
	habitability string
	tolerance    float64
	params       []string
	gains        []string
	// live / serve
	addr  string
	tick  int
	trail int
	// tune
	grid    []string
	metric  string
	workers int
	top     int
	// divergence
	body  int
	delta float64
	// sweep / montecarlo
	sweepParam string
	sweepGain  bool
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	trials     int
	jitter     float64
	seed       int
	save       bool
	// svg
	outFile   string
	every     int
	imageSize int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orbitsim",
		Short: "softened n-body simulator with ring station-keeping",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.ParseEnv()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("data") {
				dataDir = env.DataDir
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunPicker(experiment.NewRegistry())
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a simulation and save its energy record",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's energy",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "energy statistics and kinetic-energy spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list scenarios and controllers",
		RunE:  listScenarios,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [scenario]",
		Short: "write a scenario's initial bodies as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  dumpScenario,
	}
	addConfigFlags(dumpCmd)

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a simulation with live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&trail, "trail", viz.DefaultTrail, "trail length in frames")

	serveCmd := &cobra.Command{
		Use:   "serve [scenario]",
		Short: "stream frames over WebSocket",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serveFeed,
	}
	addConfigFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&tick, "tick", 33, "wall-clock tick in milliseconds")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid-search controller gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "gain grid, key=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metric, "metric", "ring_error", "metric to minimise")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")
	tuneCmd.Flags().IntVar(&top, "top", 10, "rows to print")

	divergenceCmd := &cobra.Command{
		Use:   "divergence [scenario]",
		Short: "estimate the divergence rate of nearby trajectories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  divergence,
	}
	addConfigFlags(divergenceCmd)
	divergenceCmd.Flags().IntVar(&body, "body", 0, "index of the perturbed body")
	divergenceCmd.Flags().Float64Var(&delta, "delta", 1e-6, "initial displacement")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	scriptCmd.Flags().BoolVar(&save, "save", false, "save every step, not only those marked save")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "sweep one parameter across a range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "sweep", "", "parameter to sweep")
	sweepCmd.Flags().BoolVar(&sweepGain, "sweep-gain", false, "sweep a controller parameter instead of a scenario parameter")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scenario]",
		Short: "stability over randomly jittered initial conditions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&jitter, "jitter", 0.05, "relative radius jitter")
	monteCarloCmd.Flags().IntVar(&seed, "seed", 1, "first seed")
	monteCarloCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	svgCmd := &cobra.Command{
		Use:   "svg [scenario]",
		Short: "run a simulation and draw its trajectories as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  renderSVG,
	}
	addConfigFlags(svgCmd)
	svgCmd.Flags().StringVarP(&outFile, "out", "o", "orbits.svg", "output file")
	svgCmd.Flags().IntVar(&every, "every", 10, "engine steps between trajectory points")
	svgCmd.Flags().IntVar(&imageSize, "size", 800, "image size in pixels")

	rootCmd.AddCommand(svgCmd, runCmd, listCmd, plotCmd, analyzeCmd, exportJSONCmd, presetsCmd, scenariosCmd, dumpCmd, liveCmd, serveCmd, tuneCmd, divergenceCmd, scriptCmd, sweepCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&controller, "controller", "none", "acceleration law (none, ring)")
	f.StringVar(&bodiesFile, "bodies", "", "bodies file for the file scenario")
	f.Float64Var(&dt, "dt", config.DefaultDt, "tick length")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.IntVar(&substeps, "substeps", config.DefaultSubsteps, "engine steps per tick")
	f.IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "ticks between energy samples")
	f.Float64Var(&gravity, "g", config.DefaultG, "gravitational constant")
	f.Float64Var(&softening, "softening", config.DefaultSoftening, "softening length")
	f.StringVar(&habitability, "habitability", "bound", "habitability policy (bound, always, virial, drift)")
	f.Float64Var(&tolerance, "tolerance", 0, "habitability tolerance")
	f.StringArrayVar(&params, "param", nil, "scenario parameter key=value (repeatable)")
	f.StringArrayVar(&gains, "gain", nil, "controller parameter key=value (repeatable)")
}

// resolveConfig layers defaults, preset, config file, environment and the
// flags the user set, in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	scenario := cfg.Scenario
	if len(args) > 0 {
		scenario = args[0]
	}

	if preset != "" {
		cfg = config.GetPreset(scenario, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scenario))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}

	env, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)

	flags := cmd.Flags()
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("bodies") {
		cfg.BodiesFile = bodiesFile
		if len(args) == 0 {
			cfg.Scenario = experiment.FileScenario
		}
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("g") {
		cfg.Physics.G = gravity
	}
	if flags.Changed("softening") {
		cfg.Physics.Softening = softening
	}
	if flags.Changed("habitability") {
		cfg.Habitability.Policy = habitability
	}
	if flags.Changed("tolerance") {
		cfg.Habitability.Tolerance = tolerance
	}
	if cfg.Params, err = overlay(cfg.Params, params); err != nil {
		return nil, err
	}
	if cfg.ControllerParams, err = overlay(cfg.ControllerParams, gains); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay parses key=value pairs onto a copy of base.
func overlay(base map[string]float64, pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return base, nil
	}
	out := make(map[string]float64, len(base)+len(pairs))
	for k, v := range base {
		out[k] = v
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter %q: %w", p, err)
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}

// parseGrid turns key=v1,v2,... specs into parallel name and value slices.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, s := range specs {
		k, vs, ok := strings.Cut(s, "=")
		if !ok {
			return nil, nil, fmt.Errorf("invalid grid %q: want key=v1,v2,...", s)
		}
		var values []float64
		for _, v := range strings.Split(vs, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid grid %q: %w", s, err)
			}
			values = append(values, f)
		}
		names = append(names, strings.TrimSpace(k))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}
