package models

import (
	"errors"
	"fmt"
	"math"
)

// Domain errors for model evaluation.
var (
	// ErrDomain indicates a formula was evaluated outside its real domain.
	ErrDomain = errors.New("models: numerical domain error")

	// ErrUnknownVariant indicates a variant name that is not registered.
	ErrUnknownVariant = errors.New("models: unknown variant")
)

// DomainError records where a domain violation happened.
type DomainError struct {
	Op     string
	Period int
	Base   float64
	Exp    float64
}

func (e *DomainError) Error() string {
	if e.Exp != 0 {
		return fmt.Sprintf("%s: period %d: %s(%g, %g)", ErrDomain, e.Period, e.Op, e.Base, e.Exp)
	}
	return fmt.Sprintf("%s: period %d: %s(%g)", ErrDomain, e.Period, e.Op, e.Base)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// pow is math.Pow restricted to the reals.
func pow(op string, period int, base, exp float64) (float64, error) {
	if base < 0 && exp != math.Trunc(exp) {
		return 0, &DomainError{Op: op, Period: period, Base: base, Exp: exp}
	}
	if base == 0 && exp < 0 {
		return 0, &DomainError{Op: op, Period: period, Base: base, Exp: exp}
	}
	return math.Pow(base, exp), nil
}

func logOf(op string, period int, x float64, log func(float64) float64) (float64, error) {
	if x <= 0 {
		return 0, &DomainError{Op: op, Period: period, Base: x}
	}
	return log(x), nil
}

func checkFinite(x State) error {
	names := Columns()
	for i, v := range x.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &DomainError{Op: "non-finite " + names[i], Period: x.Time, Base: v}
		}
	}
	return nil
}
