package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dicesim/internal/config"
	"github.com/san-kum/dicesim/internal/experiment"
	"github.com/san-kum/dicesim/internal/logging"
	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
	"github.com/san-kum/dicesim/internal/sim"
	"github.com/san-kum/dicesim/internal/storage"
)

const (
	ModeOptimize = "optimize"
	ModeSimulate = "simulate"

	// PolicyManual replays the step's schedule of [abatement, savings] pairs.
	PolicyManual = "manual"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Unset fields keep the values of
// the preset, or of the default configuration when no preset is named.
type ScenarioStep struct {
	Name         string             `yaml:"name"`
	Mode         string             `yaml:"mode"`
	Preset       string             `yaml:"preset"`
	Variant      string             `yaml:"variant"`
	Params       map[string]float64 `yaml:"params"`
	Scaled       *bool              `yaml:"scaled"`
	Seed         *int64             `yaml:"seed"`
	Guess        string             `yaml:"guess"`
	MaxIter      int                `yaml:"max_iter"`
	Policy       string             `yaml:"policy"`
	PolicyParams map[string]float64 `yaml:"policy_params"`
	Schedule     [][2]float64       `yaml:"schedule"`
	Save         bool               `yaml:"save"`
	SaveFailed   bool               `yaml:"save_failed"`
}

// StepResult is the outcome of one scenario step. Run is set when the step
// was saved.
type StepResult struct {
	Step    string
	Mode    string
	Variant models.Variant
	Success bool
	Message string
	Welfare float64
	Trace   *sim.Result
	Run     *storage.RunMetadata
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		if step.Mode == "" {
			step.Mode = ModeOptimize
		}
		if step.Mode != ModeOptimize && step.Mode != ModeSimulate {
			return nil, fmt.Errorf("step %d: unknown mode %q", i+1, step.Mode)
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step%d", i+1)
		}
	}

	return &scenario, nil
}

// Config resolves the step against its preset or the default configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if s.Variant != "" {
		v, err := models.ParseVariant(s.Variant)
		if err != nil {
			return nil, err
		}
		cfg.Variant = v
	}
	if len(s.Params) > 0 && cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(s.Params))
	}
	for k, v := range s.Params {
		cfg.Params[k] = v
	}
	if s.Scaled != nil {
		cfg.Scaling.Enabled = *s.Scaled
	}
	if s.Seed != nil {
		cfg.Seed = *s.Seed
	}
	if s.Guess != "" {
		cfg.Guess = s.Guess
	}
	if s.MaxIter > 0 {
		cfg.Solver.MaxIter = s.MaxIter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes all steps in a scenario. Steps marked save are written
// to store when it is non-nil. A failing step stops the scenario and the
// results of the finished steps are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store, logger *zap.Logger) ([]StepResult, error) {
	logger = logging.OrNop(logger)
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log := logger.With(zap.String("scenario", scenario.Name), zap.String("step", step.Name))
		log.Info("running step", zap.Int("index", i+1), zap.Int("of", len(scenario.Steps)), zap.String("mode", step.Mode))

		result, err := runStep(ctx, step, registry, log)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}

		if step.Save {
			switch {
			case store == nil:
				log.Warn("no store configured; step not saved")
			case !result.Success && !step.SaveFailed:
				log.Warn("step did not converge; set save_failed to keep it", zap.String("message", result.Message))
			case result.record != nil && result.Trace != nil:
				meta, err := store.Save(*result.record, result.Trace.States)
				if err != nil {
					return results, fmt.Errorf("step %d (%s) save: %w", i+1, step.Name, err)
				}
				result.Run = meta
				log.Info("step saved", zap.String("run", meta.Name))
			}
		}

		results = append(results, result.StepResult)
	}

	return results, nil
}

type stepOutcome struct {
	StepResult
	record *storage.RunMetadata
}

func runStep(ctx context.Context, step ScenarioStep, registry *experiment.Registry, log *zap.Logger) (stepOutcome, error) {
	cfg, err := step.Config()
	if err != nil {
		return stepOutcome{}, err
	}
	expCfg, err := cfg.Experiment(false)
	if err != nil {
		return stepOutcome{}, err
	}
	exp := experiment.New(expCfg, log)
	if err := exp.Setup(registry.DefaultMetrics(), nil); err != nil {
		return stepOutcome{}, err
	}

	out := stepOutcome{StepResult: StepResult{Step: step.Name, Mode: step.Mode, Variant: cfg.Variant}}

	if step.Mode == ModeSimulate {
		policy := step.Policy
		if policy == "" {
			policy = "none"
			if len(step.Schedule) > 0 {
				policy = PolicyManual
			}
		}
		savings, ok := step.PolicyParams["savings"]
		if !ok {
			savings = 0.25
		}

		var trace *sim.Result
		if policy == PolicyManual {
			schedule := make([]models.Control, len(step.Schedule))
			for i, pair := range step.Schedule {
				schedule[i] = models.Control{Abatement: pair[0], Savings: pair[1]}
			}
			if trace, err = exp.RunSchedule(ctx, savings, schedule); err != nil {
				return out, err
			}
		} else {
			p, err := registry.GetPolicy(policy, step.PolicyParams, exp.Spec())
			if err != nil {
				return out, err
			}
			if trace, err = exp.RunPolicy(ctx, p, savings); err != nil {
				return out, err
			}
		}
		out.Success = true
		out.Message = "simulated policy " + policy
		out.Welfare = trace.Welfare
		out.Trace = trace
		rec := SimulationRecord(exp.Spec(), out.Message, trace)
		out.record = &rec
		return out, nil
	}

	o, err := exp.Optimize(ctx)
	if err != nil {
		return out, err
	}
	res := o.Optimization
	out.Success = res.Success
	out.Message = res.Message
	out.Welfare = res.Welfare
	out.Trace = o.Trace
	rec := OptimizationRecord(cfg, exp.Spec(), res, o.Trace)
	out.record = &rec
	return out, nil
}

// OptimizationRecord builds the run metadata of an optimizer result. The
// trace may be nil when the result could not be simulated.
func OptimizationRecord(cfg *config.Config, spec *models.Spec, res *optim.WelfareResult, trace *sim.Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Variant:     spec.Variant().String(),
		Seed:        cfg.Seed,
		Guess:       cfg.Guess,
		Steps:       spec.NumSteps,
		Scaled:      spec.Scaling.Enabled,
		Success:     res.Success,
		Message:     res.Message,
		Welfare:     res.Welfare,
		Elapsed:     res.Elapsed.Seconds(),
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Controls:    res.X,
		Params:      spec.Params,
	}
	if trace != nil {
		meta.Metrics = trace.Metrics
	}
	return meta
}

// SimulationRecord builds the run metadata of a simulated trace.
func SimulationRecord(spec *models.Spec, message string, trace *sim.Result) storage.RunMetadata {
	return storage.RunMetadata{
		Variant: spec.Variant().String(),
		Steps:   spec.NumSteps,
		Scaled:  spec.Scaling.Enabled,
		Success: true,
		Message: message,
		Welfare: trace.Welfare,
		Params:  spec.Params,
		Metrics: trace.Metrics,
	}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	values := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range values {
		values[i] = lo + float64(i)*step
	}
	values[n-1] = hi
	return values
}

// MonteCarloConfig defines a parameter uncertainty study for fixed controls.
// Perturb maps parameter names to the relative half-width of a uniform draw
// around the base value.
type MonteCarloConfig struct {
	Variant   models.Variant
	Base      models.Params
	Scaling   models.Scaling
	Controls  []float64
	Perturb   map[string]float64
	NumTrials int
	Seed      int64
}

// MonteCarloResult holds one trial. Err is set when the perturbed model left
// its domain.
type MonteCarloResult struct {
	TrialID int
	Params  map[string]float64
	Welfare float64
	Err     error
}

var ErrNoTrials = errors.New("monte carlo: no trials requested")

// RunMonteCarlo evaluates the welfare of cfg.Controls under randomly perturbed
// parameters. Draws happen before any evaluation, so a seed reproduces the
// same trials. A zero seed draws from the clock.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, ErrNoTrials
	}
	for name := range cfg.Perturb {
		if _, err := cfg.Base.Get(name); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	names := sortedNames(cfg.Perturb)
	results := make([]MonteCarloResult, cfg.NumTrials)
	for trial := range results {
		draw := make(map[string]float64, len(names))
		for _, name := range names {
			base, _ := cfg.Base.Get(name)
			draw[name] = base * (1 + (rng.Float64()-0.5)*2*cfg.Perturb[name])
		}
		results[trial] = MonteCarloResult{TrialID: trial, Params: draw}
	}

	for i := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := cfg.Base
		for name, v := range results[i].Params {
			if err := p.Set(name, v); err != nil {
				return nil, err
			}
		}
		spec := models.NewSpec(cfg.Variant, models.WithParams(p), models.WithScaling(cfg.Scaling))
		w, err := sim.Objective(cfg.Controls, spec)
		if err != nil {
			if errors.Is(err, sim.ErrLength) {
				return nil, err
			}
			results[i].Err = err
			continue
		}
		results[i].Welfare = spec.PhysicalWelfare(w)
	}

	return results, nil
}
