package sim

import (
	"fmt"

	"github.com/san-kum/dicesim/internal/models"
)

// Reshape pairs a segment of 2n values into n controls: the first n values are
// abatement rates, the last n savings rates.
func Reshape(segment []float64, n int) ([]models.Control, error) {
	if len(segment)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrShape, len(segment))
	}
	if len(segment) != 2*n {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrShape, len(segment), 2*n)
	}
	pairs := make([]models.Control, n)
	for i := range pairs {
		pairs[i] = models.Control{Abatement: segment[i], Savings: segment[n+i]}
	}
	return pairs, nil
}

// Flatten is the inverse of Reshape.
func Flatten(pairs []models.Control) []float64 {
	n := len(pairs)
	out := make([]float64, 2*n)
	for i, p := range pairs {
		out[i] = p.Abatement
		out[n+i] = p.Savings
	}
	return out
}

// Compose builds a full control vector from the initial savings rate and the
// per-period controls.
func Compose(initialSavings float64, pairs []models.Control) []float64 {
	return append([]float64{initialSavings}, Flatten(pairs)...)
}

// Split validates a control vector of length 2N+1 and returns the seed state
// and the N control pairs.
func Split(x []float64, spec *models.Spec) (models.State, []models.Control, error) {
	if len(x) != spec.Dim() {
		return models.State{}, nil, fmt.Errorf("%w: control vector has %d elements, want %d", ErrLength, len(x), spec.Dim())
	}
	pairs, err := Reshape(x[1:], spec.NumSteps)
	if err != nil {
		return models.State{}, nil, err
	}
	seed, err := models.InitialState(x[0], spec)
	if err != nil {
		return models.State{}, nil, fmt.Errorf("seed state: %w", err)
	}
	return seed, pairs, nil
}

// Rollout is the outcome of Simulate. States is empty in Terminal mode.
type Rollout struct {
	Final  models.State
	States []models.State
}

// Simulate applies exactly spec.NumSteps transitions starting at seed.
func Simulate(pairs []models.Control, seed models.State, spec *models.Spec, mode Mode) (*Rollout, error) {
	if len(pairs) != spec.NumSteps {
		return nil, fmt.Errorf("%w: %d control pairs for %d steps", ErrLength, len(pairs), spec.NumSteps)
	}

	r := &Rollout{}
	if mode == Trace {
		r.States = make([]models.State, 0, len(pairs)+1)
		r.States = append(r.States, spec.Physical(seed))
	}

	x := seed
	for i, u := range pairs {
		next, err := models.Transition(x, u, spec)
		if err != nil {
			return nil, &StepError{Step: i, Control: u, Wrapped: err}
		}
		x = next
		if mode == Trace {
			r.States = append(r.States, spec.Physical(x))
		}
	}
	r.Final = x
	return r, nil
}

// Objective is the welfare accumulated over the horizon, in the stored units
// seen by the optimizer. It has no side effects.
func Objective(x []float64, spec *models.Spec) (float64, error) {
	seed, pairs, err := Split(x, spec)
	if err != nil {
		return 0, err
	}
	r, err := Simulate(pairs, seed, spec, Terminal)
	if err != nil {
		return 0, err
	}
	return r.Final.Welfare, nil
}
