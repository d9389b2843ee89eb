package automation

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloSummary describes the welfare distribution of the feasible trials.
type MonteCarloSummary struct {
	Trials   int
	Failed   int
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
	Quantile map[float64]float64
}

var summaryQuantiles = []float64{0.05, 0.5, 0.95}

// Summarize computes welfare statistics over the trials without an error.
func Summarize(results []MonteCarloResult) MonteCarloSummary {
	s := MonteCarloSummary{Trials: len(results), Quantile: make(map[float64]float64)}
	welfare := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		welfare = append(welfare, r.Welfare)
	}
	if len(welfare) == 0 {
		return s
	}

	s.Min = floats.Min(welfare)
	s.Max = floats.Max(welfare)
	if len(welfare) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(welfare, nil)
	} else {
		s.Mean = welfare[0]
	}

	sort.Float64s(welfare)
	for _, q := range summaryQuantiles {
		s.Quantile[q] = stat.Quantile(q, stat.Empirical, welfare, nil)
	}
	return s
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
