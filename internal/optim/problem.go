package optim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/dicesim/internal/logging"
)

// ErrDimension reports bounds or a starting point whose length does not match.
var ErrDimension = errors.New("optim: dimension mismatch")

var errNonFinite = errors.New("optim: objective is not finite")

// Func is an objective to minimize. It must be safe for concurrent use.
type Func func(x []float64) (float64, error)

// Problem is a box-constrained minimization problem.
type Problem struct {
	Func  Func
	Lower []float64
	Upper []float64
}

func (p Problem) validate(x0 []float64) error {
	if p.Func == nil {
		return fmt.Errorf("%w: nil objective", ErrDimension)
	}
	n := len(x0)
	if n == 0 {
		return fmt.Errorf("%w: empty starting point", ErrDimension)
	}
	if len(p.Lower) != n || len(p.Upper) != n {
		return fmt.Errorf("%w: x0 has %d elements, bounds have %d and %d", ErrDimension, n, len(p.Lower), len(p.Upper))
	}
	for i := range p.Lower {
		if p.Lower[i] > p.Upper[i] {
			return fmt.Errorf("%w: lower bound exceeds upper bound at %d", ErrDimension, i)
		}
	}
	return nil
}

// clip projects x onto the box in place.
func (p Problem) clip(x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], p.Lower[i]), p.Upper[i])
	}
}

type Status int

const (
	Success Status = iota
	IterationLimit
	LineSearchFailed
	SearchNotDescent
	EvaluationFailed
	Canceled
)

var statusMessages = map[Status]string{
	Success:          "Optimization terminated successfully",
	IterationLimit:   "Iteration limit reached",
	LineSearchFailed: "Line search failed to decrease the objective",
	SearchNotDescent: "Positive directional derivative for linesearch",
	EvaluationFailed: "Objective evaluation failed",
	Canceled:         "Optimization canceled",
}

func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Iteration is reported to a Recorder after every accepted step.
type Iteration struct {
	Iter     int
	F        float64
	StepNorm float64
	Alpha    float64
	Evals    int
	X        []float64
}

type Recorder func(Iteration)

// Settings control the solver. Zero values fall back to DefaultSettings.
type Settings struct {
	MaxIter  int
	Tol      float64
	Step     float64
	Workers  int
	Recorder Recorder
	Logger   *zap.Logger
}

const (
	defaultMaxIter = 100
	defaultTol     = 1e-6
	// DefaultStep is the forward-difference step, the square root of machine epsilon.
	DefaultStep = 1.4901161193847656e-08
)

func DefaultSettings() Settings {
	return Settings{
		MaxIter: defaultMaxIter,
		Tol:     defaultTol,
		Step:    DefaultStep,
	}
}

func (s Settings) withDefaults() Settings {
	if s.MaxIter <= 0 {
		s.MaxIter = defaultMaxIter
	}
	if s.Tol <= 0 {
		s.Tol = defaultTol
	}
	if s.Step <= 0 {
		s.Step = DefaultStep
	}
	s.Logger = logging.OrNop(s.Logger)
	return s
}

// Result is the outcome of Minimize. Err holds the evaluation or context
// error behind EvaluationFailed and Canceled.
type Result struct {
	Success    bool
	Status     Status
	Message    string
	X          []float64
	F          float64
	Iterations int
	FuncEvals  int
	GradEvals  int
	Runtime    time.Duration
	Err        error
}
