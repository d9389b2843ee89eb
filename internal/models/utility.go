package models

import "math"

// Utility is the isoelastic (CRRA) utility of consumption c with risk
// aversion alpha. Utility(0) is 0 for every alpha; negative consumption is a
// domain error.
func Utility(c, alpha float64) (float64, error) {
	return utility(c, alpha, 0)
}

func utility(c, alpha float64, period int) (float64, error) {
	switch {
	case c == 0:
		return 0, nil
	case c < 0:
		return 0, &DomainError{Op: "utility", Period: period, Base: c, Exp: 1 - alpha}
	case alpha == 1:
		return math.Log(c), nil
	}
	p, err := pow("utility", period, c, 1-alpha)
	if err != nil {
		return 0, err
	}
	return (p - 1) / (1 - alpha), nil
}
