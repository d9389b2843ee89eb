// Package models implements the coupled economy–climate recurrence of a
// DICE-family integrated assessment model.
//
// The package defines the parameter bundle and the per-period dynamics:
//
//   - [Spec]: immutable parameter set plus the temperature [Variant]
//   - [State]: one period of the economy and the climate
//   - [Transition]: maps a state and a [Control] pair to the next state
//   - [InitialState]: builds the seed state preceding the first period
//   - [Utility]: isoelastic utility shared by every welfare computation
//
// # Example
//
//	spec := models.NewSpec(models.AlternateTemperature)
//	x0, _ := models.InitialState(0.25, spec)
//	x1, err := models.Transition(x0, models.Control{Abatement: 0.1, Savings: 0.25}, spec)
//
// # Variants
//
// [Baseline] carries temperature inertia (the next temperature depends on the
// previous one). [AlternateTemperature] maps radiative forcing to temperature
// without memory. The sub-model is chosen once by [NewSpec].
//
// # Errors
//
// A fractional power or logarithm of a non-positive number, or any non-finite
// result, is reported as a [*DomainError] wrapping [ErrDomain]. NaN never leaks
// out of a transition.
package models
