package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/orbitsim/internal/analysis"
	"github.com/san-kum/orbitsim/internal/automation"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/export"
	"github.com/san-kum/orbitsim/internal/feed"
	"github.com/san-kum/orbitsim/internal/optim"
	"github.com/san-kum/orbitsim/internal/scenario"
	"github.com/san-kum/orbitsim/internal/sim"
	"github.com/san-kum/orbitsim/internal/storage"
	"github.com/san-kum/orbitsim/internal/viz"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running %s (%s, %d bodies)...\n", cfg.Scenario, exp.Describe(), exp.Engine().Len())
	start := time.Now()

	result, runErr := exp.Run(context.Background())
	if result == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, dynamo.ErrInvalidState) {
		return runErr
	}
	elapsed := time.Since(start)

	runID, err := st.Save(automation.Metadata(exp), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	if result.Diverged {
		fmt.Printf("diverged: %v\n", runErr)
	}
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tCTRL\tBODIES\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.4f\t%s\t%d\t%.2e\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Controller,
			run.Bodies,
			run.EnergyDrift,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadEnergy(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(samples))

	for _, series := range []string{"total", "kinetic", "potential"} {
		_, values := storage.Series(samples, series)
		graph := asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series+" energy"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadEnergy(args[0])
	if err != nil {
		return err
	}
	// the closing sample may fall off the regular grid
	if n := len(samples); n > 2 {
		step := samples[1].Time - samples[0].Time
		if last := samples[n-1].Time - samples[n-2].Time; last < 0.999*step {
			samples = samples[:n-1]
		}
	}
	if len(samples) < 4 {
		return fmt.Errorf("no data: %d samples", len(samples))
	}

	fmt.Printf("energy analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tMEAN\tSTDDEV\tMIN\tMAX\tMAX DRIFT")
	for _, name := range []string{"kinetic", "potential", "total"} {
		_, values := storage.Series(samples, name)
		s := analysis.Summarize(values)
		fmt.Fprintf(w, "%s\t%.6g\t%.3g\t%.6g\t%.6g\t%.3e\n", name, s.Mean, s.StdDev, s.Min, s.Max, s.MaxDrift)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	times, kinetic := storage.Series(samples, "kinetic")
	sampleDt := times[1] - times[0]
	_, power, err := analysis.Spectrum(kinetic, sampleDt)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(power[:max(len(power)/4, 1)],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (kinetic)"),
	))
	fmt.Println()

	period, err := analysis.DominantPeriod(kinetic, sampleDt)
	switch {
	case errors.Is(err, analysis.ErrNoPeak):
		fmt.Println("no dominant period")
	case err != nil:
		return err
	default:
		fmt.Printf("dominant frequency: %.4f\n", 1/period)
		fmt.Printf("period: %.4f\n", period)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenarios := scenario.Names()
	if len(args) > 0 {
		scenarios = args
	}
	for _, sc := range scenarios {
		presets := config.ListPresets(sc)
		if len(presets) == 0 {
			if len(args) > 0 {
				fmt.Printf("no presets for scenario: %s\n", sc)
			}
			continue
		}
		fmt.Printf("presets for %s:\n", sc)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func listScenarios(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	fmt.Println("scenarios:")
	for _, name := range reg.ListScenarios() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("  %s (--bodies path.yaml)\n", experiment.FileScenario)
	fmt.Println("controllers:")
	for _, name := range reg.ListControllers() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func dumpScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}
	return scenario.Encode(os.Stdout, exp.Initial())
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	opts, err := viz.Session(experiment.NewRegistry(), cfg, "")
	if err != nil {
		return err
	}
	opts.Trail = trail
	return viz.Run(opts)
}

func serveFeed(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}

	srv, err := feed.NewServer(exp.Engine(), feed.Options{
		Dt:       cfg.TimeStep(),
		Substeps: cfg.Substeps,
		Tick:     time.Duration(tick) * time.Millisecond,
		Logger:   feed.NewStdLogger("info", nil),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Printf("serving %s on %s (ws: /ws, latest: /frame)\n", cfg.Scenario, addr)
	return srv.ListenAndServe(ctx, addr)
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("no --grid given")
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	build := func(p map[string]float64) (*experiment.Experiment, error) {
		c := cfg.Clone()
		if c.ControllerParams == nil {
			c.ControllerParams = make(map[string]float64, len(p))
		}
		for k, v := range p {
			c.ControllerParams[k] = v
		}
		return reg.Build(c)
	}

	gs := optim.NewGridSearch(names, ranges, workers)
	fmt.Printf("tuning %s over %d candidates...\n", cfg.Scenario, len(gs.Candidates()))
	start := time.Now()
	results, err := gs.Search(context.Background(), build, metric)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "RANK"
	for _, n := range names {
		header += "\t" + n
	}
	fmt.Fprintln(w, header+"\t"+metric+"\tNOTE")
	for i, c := range results[:min(top, len(results))] {
		fmt.Fprintf(w, "%d", i+1)
		for _, n := range names {
			fmt.Fprintf(w, "\t%g", c.Params[n])
		}
		note := ""
		switch {
		case c.Err != nil:
			note = c.Err.Error()
		case c.Diverged:
			note = "diverged"
		}
		fmt.Fprintf(w, "\t%.6g\t%s\n", c.Score, note)
	}
	return w.Flush()
}

func divergence(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}

	engineCfg := exp.Engine().Config()
	build := func(x dynamo.State) (*sim.Engine, error) { return sim.New(x, engineCfg) }
	rate, err := analysis.DivergenceRate(build, exp.Initial(), analysis.DivergenceOptions{
		Body:         body,
		Perturbation: delta,
		Dt:           cfg.TimeStep(),
		Duration:     cfg.Duration,
	})
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s (%s)\n", cfg.Scenario, exp.Describe())
	fmt.Printf("divergence rate: %.4f per unit time\n", rate)
	if rate > 0 {
		fmt.Printf("e-folding time: %.4f\n", 1/rate)
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}
	if save {
		for i := range script.Steps {
			script.Steps[i].Save = true
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	results, err := automation.RunScript(context.Background(), script, experiment.NewRegistry(), st, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENARIO\tCTRL\tSTEPS\tDRIFT\tDIVERGED\tRUN ID")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2e\t%v\t%s\n",
			r.Name, r.Config.Scenario, r.Config.Controller, r.Result.StepsTaken, r.Result.EnergyDrift, r.Result.Diverged, r.RunID)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sweep := &automation.ParameterSweep{
		Base:       cfg,
		Param:      sweepParam,
		Controller: sweepGain,
		Min:        sweepMin,
		Max:        sweepMax,
		Steps:      sweepSteps,
		Workers:    workers,
	}
	results, err := automation.RunSweep(context.Background(), sweep, experiment.NewRegistry())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(sweepParam)+"\tDRIFT\tBOUNDED\tDIVERGED\tNOTE")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%g\t-\t-\t-\t%v\n", r.Value, r.Err)
			continue
		}
		fmt.Fprintf(w, "%g\t%.2e\t%.3f\t%v\t\n", r.Value, r.EnergyDrift, r.Metrics["bounded"], r.Diverged)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	results, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarloConfig{
		Base:    cfg,
		Jitter:  jitter,
		Trials:  trials,
		Seed:    seed,
		Workers: workers,
	}, experiment.NewRegistry())
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	drifts := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			drifts = append(drifts, r.EnergyDrift)
		}
	}
	fmt.Printf("scenario: %s (%s)\n", cfg.Scenario, cfg.Controller)
	fmt.Printf("trials: %d stable, %d unstable, %d failed\n", stable, unstable, len(results)-stable-unstable)
	if len(drifts) > 0 {
		s := analysis.Summarize(drifts)
		fmt.Printf("energy drift: mean %.3e, std %.3e, max %.3e\n", s.Mean, s.StdDev, s.Max)
	}
	return nil
}

func renderSVG(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}

	rec := export.NewRecorder(exp.Initial(), every)
	runCfg := exp.RunConfig()
	runCfg.Observers = append(runCfg.Observers, rec)
	if _, err := sim.Run(context.Background(), exp.Engine(), runCfg); err != nil && !errors.Is(err, dynamo.ErrInvalidState) {
		return err
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.SVG(f, exp.Engine().Bodies(), rec.Tracks(), imageSize); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bodies, t=%.3f)\n", outFile, exp.Engine().Len(), exp.Engine().Time())
	return nil
}
