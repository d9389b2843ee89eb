package models

import "fmt"

// Control is the policy applied in one period.
type Control struct {
	Abatement float64 // μ, fraction of emissions avoided
	Savings   float64 // fraction of net output invested
}

// State is one period of the model. Transitions return a new value and never
// modify their input.
type State struct {
	Time    int
	Welfare float64

	Abatement float64
	Savings   float64

	Labor         float64
	Technology    float64
	Intensity     float64 // σ, emissions per unit of output
	LandEmissions float64
	Capital       float64
	Output        float64 // gross output Y
	Emissions     float64
	CarbonStock   float64
	Temperature   float64
	ExogForcing   float64
	Forcing       float64 // zero under the inertial sub-model
	Damage        float64 // combined abatement cost and damage multiplier Ω
	Consumption   float64
}

var columns = []string{
	"time",
	"welfare",
	"abatement",
	"savings_rate",
	"labor",
	"technology",
	"carbon_intensity",
	"land_emissions",
	"capital",
	"output",
	"emissions",
	"carbon_stock",
	"temperature",
	"exog_forcing",
	"forcing",
	"damage_coeff",
	"consumption",
}

// Columns names the entries of Values in order.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Values flattens the state in Columns order.
func (x State) Values() []float64 {
	return []float64{
		float64(x.Time),
		x.Welfare,
		x.Abatement,
		x.Savings,
		x.Labor,
		x.Technology,
		x.Intensity,
		x.LandEmissions,
		x.Capital,
		x.Output,
		x.Emissions,
		x.CarbonStock,
		x.Temperature,
		x.ExogForcing,
		x.Forcing,
		x.Damage,
		x.Consumption,
	}
}

// StateFromValues is the inverse of Values.
func StateFromValues(v []float64) (State, error) {
	if len(v) != len(columns) {
		return State{}, fmt.Errorf("state row has %d values, want %d", len(v), len(columns))
	}
	return State{
		Time:          int(v[0]),
		Welfare:       v[1],
		Abatement:     v[2],
		Savings:       v[3],
		Labor:         v[4],
		Technology:    v[5],
		Intensity:     v[6],
		LandEmissions: v[7],
		Capital:       v[8],
		Output:        v[9],
		Emissions:     v[10],
		CarbonStock:   v[11],
		Temperature:   v[12],
		ExogForcing:   v[13],
		Forcing:       v[14],
		Damage:        v[15],
		Consumption:   v[16],
	}, nil
}

// Control returns the policy in effect for the period.
func (x State) Control() Control {
	return Control{Abatement: x.Abatement, Savings: x.Savings}
}
