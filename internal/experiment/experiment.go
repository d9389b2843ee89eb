package experiment

import (
	"context"
	"errors"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/dicesim/internal/control"
	"github.com/san-kum/dicesim/internal/logging"
	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
	"github.com/san-kum/dicesim/internal/sim"
)

var (
	// ErrNotSetup is returned when Run or Optimize is called before Setup.
	ErrNotSetup      = errors.New("experiment not setup")
	ErrEmptySchedule = errors.New("empty control schedule")
)

type Config struct {
	Variant models.Variant
	Params  models.Params
	Scaling models.Scaling
	Seed    int64
	Guess   optim.Guess
	Solver  optim.Settings
	DryRun  bool
}

// Optimizer maximizes welfare from a starting control vector.
type Optimizer interface {
	Maximize(ctx context.Context, spec *models.Spec, x0 []float64, settings optim.Settings) (*optim.WelfareResult, error)
}

// OptimizerFunc adapts a function to Optimizer.
type OptimizerFunc func(ctx context.Context, spec *models.Spec, x0 []float64, settings optim.Settings) (*optim.WelfareResult, error)

func (f OptimizerFunc) Maximize(ctx context.Context, spec *models.Spec, x0 []float64, settings optim.Settings) (*optim.WelfareResult, error) {
	return f(ctx, spec, x0, settings)
}

// SQP is the default Optimizer.
var SQP Optimizer = OptimizerFunc(optim.MaximizeWelfare)

type Experiment struct {
	cfg        Config
	spec       *models.Spec
	simulator  *sim.Simulator
	optimizer  Optimizer
	randSource *rand.Rand
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Experiment {
	return &Experiment{
		cfg:        cfg,
		spec:       models.NewSpec(cfg.Variant, models.WithParams(cfg.Params), models.WithScaling(cfg.Scaling)),
		randSource: rand.New(rand.NewSource(cfg.Seed)),
		logger:     logging.OrNop(logger),
	}
}

// Setup attaches reporting metrics and the optimizer. A nil optimizer uses SQP.
func (e *Experiment) Setup(metrics []sim.Metric, optimizer Optimizer) error {
	if optimizer == nil {
		optimizer = SQP
	}
	e.optimizer = optimizer
	e.simulator = sim.New(e.spec)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Spec() *models.Spec { return e.spec }

func (e *Experiment) Config() Config { return e.cfg }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// InitialGuess draws the starting control vector from the experiment's seeded
// source.
func (e *Experiment) InitialGuess() []float64 {
	return optim.InitialGuess(e.randSource, e.spec, e.cfg.Guess)
}

// Outcome is the result of Optimize. Trace is nil for a dry run and when the
// returned controls cannot be simulated.
type Outcome struct {
	DryRun       bool
	Guess        []float64
	Optimization *optim.WelfareResult
	Trace        *sim.Result
}

// Optimize draws an initial guess, maximizes welfare and simulates the
// resulting controls for reporting. A dry run stops after the guess.
func (e *Experiment) Optimize(ctx context.Context) (*Outcome, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}

	out := &Outcome{Guess: e.InitialGuess()}
	log := e.logger.With(
		zap.Stringer("variant", e.spec.Variant()),
		zap.Int("steps", e.spec.NumSteps),
		zap.Stringer("guess", e.cfg.Guess),
	)
	if e.cfg.DryRun {
		log.Info("dry run: skipping optimization")
		out.DryRun = true
		return out, nil
	}

	settings := e.cfg.Solver
	if settings.Logger == nil {
		settings.Logger = e.logger
	}
	log.Info("optimization started", zap.Int("dim", e.spec.Dim()))
	res, err := e.optimizer.Maximize(ctx, e.spec, out.Guess, settings)
	if err != nil {
		return nil, err
	}
	out.Optimization = res
	log.Info("optimization finished",
		zap.Bool("success", res.Success),
		zap.String("message", res.Message),
		zap.Float64("welfare", res.Welfare),
		zap.Duration("elapsed", res.Elapsed),
	)

	trace, err := e.Run(ctx, res.X)
	if err != nil {
		log.Warn("could not simulate optimizer result", zap.Error(err))
		return out, nil
	}
	out.Trace = trace
	return out, nil
}

// Run simulates a flat control vector of length 2N+1.
func (e *Experiment) Run(ctx context.Context, x []float64) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	return e.simulator.Run(ctx, x)
}

// RunPolicy simulates a closed-loop policy from the initial savings rate.
func (e *Experiment) RunPolicy(ctx context.Context, p control.Policy, initialSavings float64) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	pairs, err := control.Unroll(p, initialSavings, e.spec)
	if err != nil {
		return nil, err
	}
	return e.simulator.RunPolicy(ctx, initialSavings, pairs)
}

// RunSchedule replays an explicit control schedule from the initial savings
// rate. Periods past the end of the schedule repeat its last pair.
func (e *Experiment) RunSchedule(ctx context.Context, initialSavings float64, schedule []models.Control) (*sim.Result, error) {
	if len(schedule) == 0 {
		return nil, ErrEmptySchedule
	}
	return e.RunPolicy(ctx, control.NewManual(schedule), initialSavings)
}
