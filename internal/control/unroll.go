package control

import (
	"fmt"

	"github.com/san-kum/dicesim/internal/models"
)

// Unroll runs the policy in closed loop from the seed state and returns the
// N controls it chose.
func Unroll(p Policy, initialSavings float64, spec *models.Spec) ([]models.Control, error) {
	if r, ok := p.(interface{ Reset() }); ok {
		r.Reset()
	}

	x, err := models.InitialState(initialSavings, spec)
	if err != nil {
		return nil, err
	}

	pairs := make([]models.Control, spec.NumSteps)
	for i := range pairs {
		u := p.Compute(spec.Physical(x), i)
		pairs[i] = u
		if x, err = models.Transition(x, u, spec); err != nil {
			return nil, fmt.Errorf("unroll period %d: %w", i, err)
		}
	}
	return pairs, nil
}
