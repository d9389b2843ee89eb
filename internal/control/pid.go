package control

import (
	"math"

	"github.com/san-kum/dicesim/internal/models"
)

// PID sets abatement from the error between the temperature anomaly and a
// target. Output is clamped to the Spec abatement bounds; the savings rate
// is held at Savings.
type PID struct {
	Kp      float64
	Ki      float64
	Kd      float64
	Target  float64
	Savings float64

	lower, upper float64
	integral     float64
	prevErr      float64
	first        bool
}

func NewPID(kp, ki, kd, target float64, spec *models.Spec) *PID {
	return &PID{
		Kp:      kp,
		Ki:      ki,
		Kd:      kd,
		Target:  target,
		Savings: 0.25,
		lower:   spec.AbatementLower,
		upper:   spec.AbatementUpper,
		first:   true,
	}
}

func (p *PID) Compute(x models.State, period int) models.Control {
	err := x.Temperature - p.Target

	var u float64
	if p.first {
		p.first = false
		u = p.Kp * err
	} else {
		p.integral += err
		u = p.Kp*err + p.Ki*p.integral + p.Kd*(err-p.prevErr)
	}
	p.prevErr = err

	return models.Control{Abatement: math.Min(p.upper, math.Max(p.lower, u)), Savings: p.Savings}
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}
