package control

import "github.com/san-kum/dicesim/internal/models"

// Policy chooses the control for the period following x.
type Policy interface {
	Compute(x models.State, period int) models.Control
}

// None holds both rates constant.
type None struct {
	u models.Control
}

func NewNone(abatement, savings float64) *None {
	return &None{
		u: models.Control{Abatement: abatement, Savings: savings},
	}
}

func (n *None) Compute(x models.State, period int) models.Control {
	return n.u
}

// Ramp raises abatement linearly from From to To over Periods periods and holds
// it afterwards.
type Ramp struct {
	From    float64
	To      float64
	Periods int
	Savings float64
}

func NewRamp(from, to float64, periods int, savings float64) *Ramp {
	return &Ramp{From: from, To: to, Periods: periods, Savings: savings}
}

func (r *Ramp) Compute(x models.State, period int) models.Control {
	mu := r.To
	if r.Periods > 0 && period < r.Periods {
		mu = r.From + (r.To-r.From)*float64(period)/float64(r.Periods)
	}
	return models.Control{Abatement: mu, Savings: r.Savings}
}
