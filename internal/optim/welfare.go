package optim

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/sim"
)

// WelfareBounds returns the box for a control vector of length 2N+1: the
// initial savings rate, N abatement rates, then N savings rates.
func WelfareBounds(spec *models.Spec) (lower, upper []float64) {
	n := spec.NumSteps
	lower = make([]float64, spec.Dim())
	upper = make([]float64, spec.Dim())

	lower[0], upper[0] = spec.SavingsLower, spec.SavingsUpper
	for i := 1; i <= n; i++ {
		lower[i], upper[i] = spec.AbatementLower, spec.AbatementUpper
		lower[n+i], upper[n+i] = spec.SavingsLower, spec.SavingsUpper
	}
	return lower, upper
}

type GuessMode int

const (
	// GuessUnit draws every coordinate uniformly from [0, 1].
	GuessUnit GuessMode = iota
	// GuessBounded draws every coordinate uniformly from its own bounds.
	GuessBounded
	// GuessConstant sets every coordinate to a fixed value.
	GuessConstant
)

// Guess selects how the starting control vector is produced.
type Guess struct {
	Mode  GuessMode
	Value float64
}

func ConstantGuess(v float64) Guess { return Guess{Mode: GuessConstant, Value: v} }

// ParseGuess accepts "unit", "bounded" or "constant:<value>".
func ParseGuess(s string) (Guess, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "unit":
		return Guess{Mode: GuessUnit}, nil
	case s == "bounded":
		return Guess{Mode: GuessBounded}, nil
	case strings.HasPrefix(s, "constant:"):
		v, err := strconv.ParseFloat(strings.TrimPrefix(s, "constant:"), 64)
		if err != nil {
			return Guess{}, fmt.Errorf("invalid constant guess %q: %w", s, err)
		}
		return ConstantGuess(v), nil
	}
	return Guess{}, fmt.Errorf("unknown guess mode %q", s)
}

func (g Guess) String() string {
	switch g.Mode {
	case GuessBounded:
		return "bounded"
	case GuessConstant:
		return "constant:" + strconv.FormatFloat(g.Value, 'g', -1, 64)
	default:
		return "unit"
	}
}

// InitialGuess builds a starting control vector of length 2N+1.
func InitialGuess(rng *rand.Rand, spec *models.Spec, g Guess) []float64 {
	x := make([]float64, spec.Dim())
	lower, upper := WelfareBounds(spec)
	for i := range x {
		switch g.Mode {
		case GuessBounded:
			x[i] = lower[i] + rng.Float64()*(upper[i]-lower[i])
		case GuessConstant:
			x[i] = g.Value
		default:
			x[i] = rng.Float64()
		}
	}
	return x
}

// WelfareResult reports a welfare maximization. Welfare is in physical units
// and has the maximization sign.
type WelfareResult struct {
	Success     bool
	Status      Status
	Message     string
	X           []float64
	Welfare     float64
	Elapsed     time.Duration
	Iterations  int
	Evaluations int
	Err         error
}

// WelfareProblem is the minimization of negated welfare over the bounds of spec.
func WelfareProblem(spec *models.Spec) Problem {
	lower, upper := WelfareBounds(spec)
	return Problem{
		Func: func(x []float64) (float64, error) {
			w, err := sim.Objective(x, spec)
			if err != nil {
				return 0, err
			}
			return -w, nil
		},
		Lower: lower,
		Upper: upper,
	}
}

// MaximizeWelfare searches for the control vector with the largest welfare
// starting from x0.
func MaximizeWelfare(ctx context.Context, spec *models.Spec, x0 []float64, settings Settings) (*WelfareResult, error) {
	if len(x0) != spec.Dim() {
		return nil, fmt.Errorf("%w: initial guess has %d elements, want %d", ErrDimension, len(x0), spec.Dim())
	}

	res, err := Minimize(ctx, WelfareProblem(spec), x0, settings)
	if err != nil {
		return nil, err
	}
	return &WelfareResult{
		Success:     res.Success,
		Status:      res.Status,
		Message:     res.Message,
		X:           res.X,
		Welfare:     spec.PhysicalWelfare(-res.F),
		Elapsed:     res.Runtime,
		Iterations:  res.Iterations,
		Evaluations: res.FuncEvals,
		Err:         res.Err,
	}, nil
}
