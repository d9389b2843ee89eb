package models

// Calibration anchors for the period preceding the first simulated period.
const (
	seedLabor       = 7403
	seedTechnology  = 5.115
	seedIntensity   = 0.3503
	seedCapital     = 223 // Ikefuji et al.
	seedCarbon      = 851
	seedTemperature = 0.85 // Ikefuji et al.
	seedAbatement   = 0.03
)

// InitialState builds the seed state at time 0 from the calibration anchors
// and the initial savings rate. Welfare starts at zero.
func InitialState(savings float64, s *Spec) (State, error) {
	x := State{
		Time:          0,
		Welfare:       0,
		Abatement:     seedAbatement,
		Savings:       savings,
		Labor:         seedLabor,
		Technology:    seedTechnology,
		Intensity:     seedIntensity,
		LandEmissions: s.InitialLandEmissions,
		Capital:       seedCapital,
		CarbonStock:   seedCarbon,
		Temperature:   seedTemperature,
		ExogForcing:   exogForcing(s, 0),
	}

	var err error
	if x.Output, err = grossOutput(s, 0, x.Technology, x.Capital, x.Labor); err != nil {
		return State{}, err
	}
	if x.Damage, err = DamageCoefficient(s, 0, x.Intensity, x.Abatement, x.Temperature); err != nil {
		return State{}, err
	}
	x.Emissions = x.Intensity*(1-x.Abatement)*x.Output + x.LandEmissions
	x.Consumption = x.Damage * x.Output * (1 - x.Savings)

	if err := checkFinite(x); err != nil {
		return State{}, err
	}
	return s.Scaling.toStored(x), nil
}
