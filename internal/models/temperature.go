package models

import "math"

// temperatureModel returns the temperature and radiative forcing for period t
// given the previous temperature, the new carbon stock and exogenous forcing.
type temperatureModel func(s *Spec, t int, prevTemp, carbon, exog float64) (temp, forcing float64, err error)

var temperatureModels = map[Variant]temperatureModel{
	Baseline:             inertialTemperature,
	AlternateTemperature: forcingTemperature,
}

// inertialTemperature is affine in the previous temperature and ln M.
func inertialTemperature(s *Spec, t int, prevTemp, carbon, _ float64) (float64, float64, error) {
	lnM, err := logOf("ln carbon_stock", t, carbon, math.Log)
	if err != nil {
		return 0, 0, err
	}
	return s.Eta0 + s.Eta1*prevTemp + s.Eta2*lnM, 0, nil
}

// forcingTemperature maps forcing linearly to temperature, without memory.
func forcingTemperature(s *Spec, t int, _, carbon, exog float64) (float64, float64, error) {
	ratio, err := logOf("log2 carbon_ratio", t, carbon/s.PreindustrialCarbon, math.Log2)
	if err != nil {
		return 0, 0, err
	}
	forcing := s.CO2ForcingCoeff*ratio + exog
	return s.ForcingTempCoeff * forcing, forcing, nil
}
