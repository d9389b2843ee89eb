package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/dicesim/internal/config"
	"github.com/san-kum/dicesim/internal/logging"
	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/viz"
)

var (
	dataDir    string
	verbosity  int
	configFile string
	preset     string
	variant    string
	steps      int
	scaled     bool
	seed       int64
	guess      string
	maxIter    int
	tol        float64
	workers    int
	dryRun     bool
	saveFailed bool
	live       bool
	theme      string
	// simulate
	policy     string
	savings    float64
	abatement  float64
	kp, ki, kd float64
	target     float64
	saveTrace  bool
	fromRun    string
	// reporting
	columns   []string
	outPath   string
	format    string
	gridFlags []string
	controls  string
	success   bool
	listVar   string
	trials    int

	logger = zap.NewNop()
)

// main registers the dicesim commands and exits with status 1 if the command
// returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "dicesim",
		Short:         "economy-climate simulation and welfare optimization",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.New(verbosity)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config, then \"data\")")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")

	modelFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
		cmd.Flags().StringVar(&variant, "variant", models.AlternateTemperature.String(), "model variant: baseline or alternate")
		cmd.Flags().IntVar(&steps, "steps", 0, "number of periods (default from config)")
		cmd.Flags().BoolVar(&scaled, "scaled", false, "enable numerical scaling")
	}

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "maximize welfare over the control trajectory",
		Args:  cobra.NoArgs,
		RunE:  runOptimize,
	}
	modelFlags(optimizeCmd)
	optimizeCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed for the initial guess")
	optimizeCmd.Flags().StringVar(&guess, "guess", config.DefaultGuess, "initial guess: unit, bounded or constant:<v>")
	optimizeCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "solver iteration limit")
	optimizeCmd.Flags().Float64Var(&tol, "tol", config.DefaultTol, "solver convergence tolerance")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "parallel gradient workers (0 = all CPUs)")
	optimizeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "prepare the run without optimizing or saving")
	optimizeCmd.Flags().BoolVar(&saveFailed, "save-failed", false, "save results that did not converge")
	optimizeCmd.Flags().BoolVar(&live, "live", false, "show live optimizer progress")
	optimizeCmd.Flags().StringVar(&theme, "theme", viz.ThemeNames()[0], fmt.Sprintf("live view theme %v", viz.ThemeNames()))

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate a control policy or a saved run's controls",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	modelFlags(simulateCmd)
	simulateCmd.Flags().StringVar(&policy, "policy", "none", "policy: none, ramp or pid")
	simulateCmd.Flags().StringVar(&fromRun, "run", "", "replay the control schedule of a saved run (its last pair repeats past its horizon)")
	simulateCmd.Flags().Float64Var(&savings, "savings", 0.25, "savings rate")
	simulateCmd.Flags().Float64Var(&abatement, "abatement", 0, "abatement rate (none) or final abatement (ramp)")
	simulateCmd.Flags().Float64Var(&kp, "kp", 0.5, "pid kp")
	simulateCmd.Flags().Float64Var(&ki, "ki", 0.05, "pid ki")
	simulateCmd.Flags().Float64Var(&kd, "kd", 0, "pid kd")
	simulateCmd.Flags().Float64Var(&target, "target", 2.0, "pid temperature target")
	simulateCmd.Flags().BoolVar(&saveTrace, "save", false, "save the trace")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&listVar, "variant", "", "only runs of this variant")
	listCmd.Flags().BoolVar(&success, "success", false, "only converged runs")

	showCmd := &cobra.Command{
		Use:   "show [run]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run]",
		Short: "plot run trace in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "columns", nil, "trace columns to plot")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	chartCmd := &cobra.Command{
		Use:   "chart [run]",
		Short: "write trace charts as image files",
		Args:  cobra.ExactArgs(1),
		RunE:  chartRun,
	}
	chartCmd.Flags().StringSliceVar(&columns, "columns", nil, "trace columns to chart")
	chartCmd.Flags().StringVar(&format, "format", "png", "image format: png, svg or pdf")
	chartCmd.Flags().StringVarP(&outPath, "out", "o", "", "output directory (default the run directory)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "evaluate welfare of fixed controls over a parameter grid",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	modelFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&gridFlags, "param", nil, "grid axis as name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&fromRun, "run", "", "use the controls of a saved run")
	sweepCmd.Flags().StringVar(&controls, "controls", "constant:0.5", "controls when no run is given: unit, bounded or constant:<v>")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark objective evaluation",
		Args:  cobra.NoArgs,
		RunE:  benchObjective,
	}
	modelFlags(benchCmd)
	benchCmd.Flags().IntVar(&workers, "workers", 0, "ensemble workers (0 = all CPUs)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "welfare of fixed controls under perturbed parameters",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	modelFlags(monteCarloCmd)
	monteCarloCmd.Flags().StringArrayVar(&gridFlags, "perturb", nil, "relative perturbation as name=fraction (repeatable)")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	monteCarloCmd.Flags().StringVar(&fromRun, "run", "", "use the controls of a saved run")
	monteCarloCmd.Flags().StringVar(&controls, "controls", "constant:0.5", "controls when no run is given: unit, bounded or constant:<v>")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-20s %s\n", name, p.Variant)
			}
			return nil
		},
	}

	rootCmd.AddCommand(optimizeCmd, simulateCmd, listCmd, showCmd, plotCmd, exportJSONCmd, chartCmd, sweepCmd, scenarioCmd, monteCarloCmd, benchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// resolveConfig layers defaults, preset, config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("variant") || (preset == "" && configFile == "") {
		v, err := models.ParseVariant(variant)
		if err != nil {
			return nil, err
		}
		cfg.Variant = v
	}
	if flags.Changed("steps") {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params["num_steps"] = float64(steps)
	}
	if flags.Changed("scaled") {
		cfg.Scaling.Enabled = scaled
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("guess") {
		cfg.Guess = guess
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIter = maxIter
	}
	if flags.Changed("tol") {
		cfg.Solver.Tol = tol
	}
	if flags.Changed("workers") {
		cfg.Solver.Workers = workers
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("resolved config",
		zap.Stringer("variant", cfg.Variant),
		zap.String("guess", cfg.Guess),
		zap.Bool("scaled", cfg.Scaling.Enabled),
		zap.String("data", cfg.DataDir),
	)
	return cfg, nil
}

// storeDir is the data directory for commands that only read runs.
func storeDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultDataDir
}
