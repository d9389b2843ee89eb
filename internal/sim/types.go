package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/dicesim/internal/models"
)

var (
	// ErrShape indicates a control segment that cannot be paired up.
	ErrShape = errors.New("sim: control segment has the wrong shape")

	// ErrLength indicates a control vector or pair count that does not match the horizon.
	ErrLength = errors.New("sim: length does not match the horizon")
)

// StepError wraps a transition failure with the period it happened in.
type StepError struct {
	Step    int
	Control models.Control
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (mu=%.4f, s=%.4f): %v", e.Step, e.Control.Abatement, e.Control.Savings, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// Mode selects how much of a rollout is retained.
type Mode int

const (
	// Terminal keeps only the final state.
	Terminal Mode = iota
	// Trace keeps every state in physical units.
	Trace
)

// Metric summarizes a trace one state at a time.
type Metric interface {
	Name() string
	Observe(x models.State)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x models.State)
}

// Result is a reported rollout.
type Result struct {
	States  []models.State
	Metrics map[string]float64
	Welfare float64
}

// Final returns the last state of the trace.
func (r *Result) Final() models.State {
	if len(r.States) == 0 {
		return models.State{}
	}
	return r.States[len(r.States)-1]
}

// Rows returns the trace as a header and one row per period.
func (r *Result) Rows() ([]string, [][]float64) {
	rows := make([][]float64, len(r.States))
	for i, x := range r.States {
		rows[i] = x.Values()
	}
	return models.Columns(), rows
}
