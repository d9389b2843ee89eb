package metrics

import (
	"math"

	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/sim"
)

type PeakTemperature struct {
	peak    float64
	samples int
}

func NewPeakTemperature() *PeakTemperature {
	return &PeakTemperature{peak: math.Inf(-1)}
}

func (p *PeakTemperature) Name() string { return "peak_temperature" }

func (p *PeakTemperature) Observe(x models.State) {
	p.peak = math.Max(p.peak, x.Temperature)
	p.samples++
}

func (p *PeakTemperature) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.peak
}

func (p *PeakTemperature) Reset() {
	p.peak = math.Inf(-1)
	p.samples = 0
}

// CumulativeEmissions sums per-period emissions over the simulated periods.
// The seed period is excluded.
type CumulativeEmissions struct {
	total float64
}

func NewCumulativeEmissions() *CumulativeEmissions {
	return &CumulativeEmissions{}
}

func (c *CumulativeEmissions) Name() string { return "cumulative_emissions" }

func (c *CumulativeEmissions) Observe(x models.State) {
	if x.Time == 0 {
		return
	}
	c.total += x.Emissions
}

func (c *CumulativeEmissions) Value() float64 { return c.total }

func (c *CumulativeEmissions) Reset() { c.total = 0 }

// MeanConsumption averages per-capita consumption over the trace.
type MeanConsumption struct {
	sum     float64
	samples int
}

func NewMeanConsumption() *MeanConsumption {
	return &MeanConsumption{}
}

func (m *MeanConsumption) Name() string { return "mean_consumption_per_capita" }

func (m *MeanConsumption) Observe(x models.State) {
	if x.Labor == 0 {
		return
	}
	m.sum += x.Consumption / x.Labor
	m.samples++
}

func (m *MeanConsumption) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanConsumption) Reset() {
	m.sum = 0
	m.samples = 0
}

// Default returns the metrics reported for every run.
func Default(tempThreshold float64) []sim.Metric {
	return []sim.Metric{
		NewPeakTemperature(),
		NewCumulativeEmissions(),
		NewStability(tempThreshold),
		NewControlEffort(),
		NewMeanConsumption(),
	}
}
