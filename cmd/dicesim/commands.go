package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/dicesim/internal/automation"
	"github.com/san-kum/dicesim/internal/config"
	"github.com/san-kum/dicesim/internal/experiment"
	"github.com/san-kum/dicesim/internal/export"
	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
	"github.com/san-kum/dicesim/internal/sim"
	"github.com/san-kum/dicesim/internal/storage"
	"github.com/san-kum/dicesim/internal/viz"
)

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := cfg.Experiment(dryRun)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := experiment.NewRegistry()
	exp := experiment.New(expCfg, logger)

	var optimizer experiment.Optimizer = experiment.SQP
	if live && !dryRun {
		optimizer = experiment.OptimizerFunc(func(ctx context.Context, spec *models.Spec, x0 []float64, s optim.Settings) (*optim.WelfareResult, error) {
			title := fmt.Sprintf("optimizing %s (%d controls)", spec.Variant(), spec.Dim())
			// Solver debug lines would corrupt the live view.
			s.Logger = zap.NewNop()
			return viz.RunLive(ctx, title, cfg.Solver.MaxIter, theme, func(ctx context.Context, rec optim.Recorder) (*optim.WelfareResult, error) {
				s.Recorder = rec
				return optim.MaximizeWelfare(ctx, spec, x0, s)
			})
		})
	}
	if err := exp.Setup(registry.DefaultMetrics(), optimizer); err != nil {
		return err
	}

	out, err := exp.Optimize(ctx)
	if err != nil {
		return err
	}
	meta, err := reportOptimization(os.Stdout, cfg, exp.Spec(), out, saveFailed)
	if err != nil || meta == nil {
		return err
	}
	logger.Info("run saved", zap.String("run", meta.Name), zap.String("id", meta.ID))
	fmt.Printf("run: %s\n", meta.Name)
	return nil
}

// reportOptimization prints the outcome and saves it under cfg.DataDir. Dry
// runs and non-converged results without saveFailed write nothing and return
// a nil run.
func reportOptimization(w io.Writer, cfg *config.Config, spec *models.Spec, out *experiment.Outcome, saveFailed bool) (*storage.RunMetadata, error) {
	variantName := spec.Variant().String()
	if out.DryRun {
		fmt.Fprintln(w, viz.DryRunSummary(variantName, spec.NumSteps, out.Guess))
		return nil, nil
	}

	res := out.Optimization
	fmt.Fprintln(w, viz.Summary(variantName, res, out.Trace))

	if !res.Success && !saveFailed {
		logger.Warn("result not saved; pass --save-failed to keep it", zap.String("message", res.Message))
		return nil, nil
	}
	if out.Trace == nil {
		return nil, fmt.Errorf("optimizer result could not be simulated; nothing to save")
	}

	st, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	return st.Save(automation.OptimizationRecord(cfg, spec, res, out.Trace), out.Trace.States)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := cfg.Experiment(false)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp := experiment.New(expCfg, logger)
	if err := exp.Setup(registry.DefaultMetrics(), nil); err != nil {
		return err
	}

	var (
		result *sim.Result
		label  string
	)
	if fromRun != "" {
		x, err := savedControls(fromRun)
		if err != nil {
			return err
		}
		pairs, err := sim.Reshape(x[1:], (len(x)-1)/2)
		if err != nil {
			return fmt.Errorf("run %s: %w", fromRun, err)
		}
		label = "run " + fromRun
		result, err = exp.RunSchedule(context.Background(), x[0], pairs)
		if err != nil {
			return err
		}
	} else {
		params := map[string]float64{
			"abatement": abatement,
			"to":        abatement,
			"savings":   savings,
			"kp":        kp,
			"ki":        ki,
			"kd":        kd,
			"target":    target,
		}
		p, err := registry.GetPolicy(policy, params, exp.Spec())
		if err != nil {
			return err
		}
		label = "policy " + policy
		result, err = exp.RunPolicy(context.Background(), p, savings)
		if err != nil {
			return err
		}
	}

	final := result.Final()
	fmt.Printf("simulated %s (%s, %d periods)\n", label, exp.Spec().Variant(), exp.Spec().NumSteps)
	fmt.Printf("welfare: %.6f\n", result.Welfare)
	fmt.Printf("final temperature: %.4f\n", final.Temperature)
	fmt.Println("\nmetrics:")
	for _, name := range sortedNames(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	if !saveTrace {
		return nil
	}
	st, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()
	meta, err := st.Save(automation.SimulationRecord(exp.Spec(), "simulated "+label, result), result.States)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun: %s\n", meta.Name)
	return nil
}

// savedControls reads the optimal control vector stored with a run.
func savedControls(name string) ([]float64, error) {
	meta, err := storage.New(storeDir()).Load(name)
	if err != nil {
		return nil, err
	}
	if len(meta.Controls) == 0 {
		return nil, fmt.Errorf("run %s has no stored controls", name)
	}
	return meta.Controls, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	var (
		runs []storage.RunMetadata
		err  error
	)
	if listVar != "" || success {
		st, err := storage.Open(storeDir())
		if err != nil {
			return err
		}
		defer st.Close()
		runs, err = st.Index().Query(storage.Filter{Variant: listVar, SuccessOnly: success})
		if err != nil {
			return err
		}
	} else {
		runs, err = storage.New(storeDir()).List()
		if err != nil {
			return err
		}
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tVARIANT\tTIME\tSTATUS\tWELFARE\tITER\tELAPSED")
	for _, run := range runs {
		status := "ok"
		if !run.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%d\t%.2fs\n",
			run.Name,
			run.Variant,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			status,
			run.Welfare,
			run.Iterations,
			run.Elapsed,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(storeDir()).Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	graphs, err := viz.Plot(states, columns, 80, 10)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.Name)
	fmt.Printf("variant: %s\n", meta.Variant)
	fmt.Printf("periods: %d\n\n", len(states))
	for _, g := range graphs {
		fmt.Println(g)
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteJSON(os.Stdout, meta, states)
	}
	if err := storage.ExportJSON(outPath, meta, states); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}

func chartRun(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	dir := outPath
	if dir == "" {
		dir = filepath.Join(storeDir(), meta.Name)
	}
	cols := columns
	if len(cols) == 0 {
		cols = viz.DefaultPlotColumns
	}
	timestep := meta.Params.Timestep
	if timestep == 0 {
		timestep = models.DefaultParams().Timestep
	}

	paths, err := export.SaveCharts(states, cols, timestep, dir, meta.Variant, format)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	params, err := cfg.ModelParams()
	if err != nil {
		return err
	}
	spec := models.NewSpec(cfg.Variant, models.WithParams(params), models.WithScaling(cfg.Scaling))

	names, ranges, err := parseGrid(gridFlags)
	if err != nil {
		return err
	}

	var x []float64
	if fromRun != "" {
		if x, err = savedControls(fromRun); err != nil {
			return err
		}
	} else {
		g, err := optim.ParseGuess(controls)
		if err != nil {
			return err
		}
		x = optim.InitialGuess(rand.New(rand.NewSource(cfg.Seed)), spec, g)
	}

	grid := optim.NewGridSearch(names, ranges)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tWELFARE")
	grid.OnPoint = func(p map[string]float64, score float64, err error) {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", p[name])
		}
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			return
		}
		fmt.Fprintf(w, "%.6f\n", -score)
	}

	logger.Info("sweep started", zap.Strings("params", names), zap.Int("points", grid.Size()))
	best, welfare, err := optim.Sweep(context.Background(), cfg.Variant, params, cfg.Scaling, x, grid)
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Println("\nbest:")
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	fmt.Printf("  welfare = %.6f\n", welfare)
	return nil
}

// parseGrid reads --param name=v1,v2,... or name=lo:hi:n flags into grid axes.
func parseGrid(flags []string) ([]string, [][]float64, error) {
	if len(flags) == 0 {
		return nil, nil, fmt.Errorf("at least one --param axis is required (parameters: %s)", strings.Join(models.ParamNames(), ", "))
	}
	names := make([]string, 0, len(flags))
	ranges := make([][]float64, 0, len(flags))
	for _, f := range flags {
		name, list, ok := strings.Cut(f, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("invalid --param %q, want name=v1,v2,... or name=lo:hi:n", f)
		}
		if _, err := models.DefaultParams().Get(name); err != nil {
			return nil, nil, err
		}
		if lo, hi, n, ok := parseSpan(list); ok {
			names = append(names, name)
			ranges = append(ranges, automation.Linspace(lo, hi, n))
			continue
		}
		var values []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("--param %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func benchObjective(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	params, err := cfg.ModelParams()
	if err != nil {
		return err
	}
	spec := models.NewSpec(cfg.Variant, models.WithParams(params), models.WithScaling(cfg.Scaling))
	rng := rand.New(rand.NewSource(cfg.Seed))

	fmt.Printf("benchmarking %s objective (%d controls)\n\n", spec.Variant(), spec.Dim())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tEVALS\tTIME\tEVALS/SEC")

	for _, n := range []int{100, 1000} {
		xs := make([][]float64, n)
		for i := range xs {
			xs[i] = optim.InitialGuess(rng, spec, optim.Guess{Mode: optim.GuessBounded})
		}

		start := time.Now()
		for _, x := range xs {
			if _, err := sim.Objective(x, spec); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		fmt.Fprintf(w, "sequential\t%d\t%v\t%.0f\n", n, elapsed, float64(n)/elapsed.Seconds())

		start = time.Now()
		if _, err := sim.NewEnsemble(spec, cfg.Solver.Workers).Run(context.Background(), xs); err != nil {
			return err
		}
		elapsed = time.Since(start)
		fmt.Fprintf(w, "ensemble\t%d\t%v\t%.0f\n", n, elapsed, float64(n)/elapsed.Seconds())
	}

	problem := optim.WelfareProblem(spec)
	x := optim.InitialGuess(rng, spec, optim.Guess{Mode: optim.GuessBounded})
	fx, err := problem.Func(x)
	if err != nil {
		return err
	}
	start := time.Now()
	if _, err := optim.Gradient(context.Background(), problem.Func, x, problem.Lower, problem.Upper, fx, optim.DefaultStep, cfg.Solver.Workers); err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Fprintf(w, "gradient\t%d\t%v\t%.0f\n", spec.Dim(), elapsed, float64(spec.Dim())/elapsed.Seconds())

	return w.Flush()
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseSpan reads lo:hi:n.
func parseSpan(s string) (lo, hi float64, n int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	n, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || n <= 0 {
		return 0, 0, 0, false
	}
	return lo, hi, n, true
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := storage.Open(storeDir())
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st, logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTEP\tMODE\tVARIANT\tSTATUS\tWELFARE\tRUN")
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		run := "-"
		if r.Run != nil {
			run = r.Run.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.6f\t%s\n", r.Step, r.Mode, r.Variant, status, r.Welfare, run)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	params, err := cfg.ModelParams()
	if err != nil {
		return err
	}
	spec := models.NewSpec(cfg.Variant, models.WithParams(params), models.WithScaling(cfg.Scaling))

	perturb := make(map[string]float64, len(gridFlags))
	for _, f := range gridFlags {
		name, v, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("invalid --perturb %q, want name=fraction", f)
		}
		frac, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("--perturb %s: %w", name, err)
		}
		perturb[name] = frac
	}

	var x []float64
	if fromRun != "" {
		if x, err = savedControls(fromRun); err != nil {
			return err
		}
	} else {
		g, err := optim.ParseGuess(controls)
		if err != nil {
			return err
		}
		x = optim.InitialGuess(rand.New(rand.NewSource(cfg.Seed)), spec, g)
	}

	results, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarloConfig{
		Variant:   cfg.Variant,
		Base:      params,
		Scaling:   cfg.Scaling,
		Controls:  x,
		Perturb:   perturb,
		NumTrials: trials,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			logger.Debug("trial failed", zap.Int("trial", r.TrialID), zap.Error(r.Err))
		}
	}

	s := automation.Summarize(results)
	fmt.Printf("monte carlo: %s, %d trials, %d failed\n\n", spec.Variant(), s.Trials, s.Failed)
	if s.Failed == s.Trials {
		return fmt.Errorf("every trial left the model domain")
	}
	fmt.Printf("  mean:   %.6f\n", s.Mean)
	fmt.Printf("  stddev: %.6f\n", s.StdDev)
	fmt.Printf("  min:    %.6f\n", s.Min)
	fmt.Printf("  p05:    %.6f\n", s.Quantile[0.05])
	fmt.Printf("  p50:    %.6f\n", s.Quantile[0.5])
	fmt.Printf("  p95:    %.6f\n", s.Quantile[0.95])
	fmt.Printf("  max:    %.6f\n", s.Max)
	return nil
}
