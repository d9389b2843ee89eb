package models

import (
	"fmt"
	"math"
)

// Transition advances x by one period under control u. The caller is
// responsible for keeping u inside the Spec bounds; nothing is clamped.
func Transition(x State, u Control, s *Spec) (State, error) {
	cur := s.Scaling.toPhysical(x)

	next := State{
		Time:      cur.Time + 1,
		Abatement: u.Abatement,
		Savings:   u.Savings,
	}
	t := next.Time

	// exogenous
	next.ExogForcing = exogForcing(s, t)

	growth, err := pow("labor growth", t, s.AsymptoticLabor/cur.Labor, s.LaborGrowth)
	if err != nil {
		return State{}, err
	}
	next.Labor = cur.Labor * growth
	next.Technology = cur.Technology / (1 - s.TechGrowth*math.Exp(-s.TechDecay*s.Timestep*float64(cur.Time)))

	compounded := math.Pow(math.Pow(1-s.IntensityDecay, s.Timestep), float64(cur.Time))
	next.Intensity = cur.Intensity * math.Exp(-s.IntensityGrowth*compounded*s.Timestep)
	next.LandEmissions = s.InitialLandEmissions * math.Pow(1-s.LandEmissionsDecay, float64(t))

	// endogenous
	next.Capital = (1-s.Depreciation)*cur.Capital + cur.Damage*cur.Output*cur.Savings
	if next.Output, err = grossOutput(s, t, next.Technology, next.Capital, next.Labor); err != nil {
		return State{}, err
	}
	next.Emissions = next.Intensity*(1-next.Abatement)*next.Output + next.LandEmissions
	next.CarbonStock = s.CarbonRetention*cur.CarbonStock + cur.Emissions

	if next.Temperature, next.Forcing, err = s.temperature(s, t, cur.Temperature, next.CarbonStock, next.ExogForcing); err != nil {
		return State{}, err
	}
	if next.Damage, err = DamageCoefficient(s, t, next.Intensity, next.Abatement, next.Temperature); err != nil {
		return State{}, err
	}
	next.Consumption = next.Damage * next.Output * (1 - next.Savings)

	u0, err := utility(s.LaborDiscount*next.Consumption/next.Labor, s.RiskAversion, t)
	if err != nil {
		return State{}, err
	}
	next.Welfare = cur.Welfare + next.Labor*u0/math.Pow(1+s.DiscountRate, float64(t))

	if err := checkFinite(next); err != nil {
		return State{}, err
	}
	return s.Scaling.toStored(next), nil
}

// exogForcing ramps linearly from f0 and saturates at f1.
func exogForcing(s *Spec, t int) float64 {
	span := s.ExogForcingEnd - s.ExogForcingStart
	return s.ExogForcingStart + math.Min(span, span*float64(t)/s.ExogForcingRamp)
}

// grossOutput is Cobb–Douglas in capital and effective labor.
func grossOutput(s *Spec, t int, tech, capital, labor float64) (float64, error) {
	k, err := pow("capital^gamma", t, capital, s.OutputElasticity)
	if err != nil {
		return 0, err
	}
	l, err := pow("labor^(1-gamma)", t, labor/s.LaborDiscount, 1-s.OutputElasticity)
	if err != nil {
		return 0, err
	}
	return tech * k * l, nil
}

// AbatementCost is the fraction of gross output spent on abatement in period t.
func AbatementCost(s *Spec, t int, intensity, abatement float64) (float64, error) {
	share := s.BackstopPrice * math.Pow(1-s.BackstopDecay, float64(t)) * intensity / (1000 * s.BackstopDivisor)
	m, err := pow("abatement^theta", t, abatement, s.AbatementExponent)
	if err != nil {
		return 0, err
	}
	return share * m, nil
}

// DamageCoefficient combines abatement cost and climate damage into one
// multiplier on gross output.
func DamageCoefficient(s *Spec, t int, intensity, abatement, temp float64) (float64, error) {
	cost, err := AbatementCost(s, t, intensity, abatement)
	if err != nil {
		return 0, fmt.Errorf("damage coefficient: %w", err)
	}
	return (1 - cost) / (1 + s.DamageSensitivity*temp*temp), nil
}
