// Package control provides abatement and savings policies for the model.
//
// Policies implement [Policy] and are turned into the per-period control
// sequence consumed by the rollout with [Unroll]:
//
//   - [None]: constant abatement and savings rates
//   - [Ramp]: abatement rising linearly to a target level
//   - [PID]: abatement driven by the temperature error against a target
//   - [ManualController]: an explicit control schedule
//
// # Usage
//
//	pid := control.NewPID(0.2, 0.01, 0.0, 2.0, spec)  // Kp, Ki, Kd, target °C
//	pairs, err := control.Unroll(pid, 0.25, spec)
//	// pairs can seed the optimizer or be simulated directly
//
// Feedback policies observe states in physical units.
package control
