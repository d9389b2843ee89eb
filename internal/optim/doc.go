// Package optim maximizes welfare over the control vector.
//
// The solver is a sequential quadratic programming method restricted to box
// constraints. Each iteration solves a bound-constrained quadratic model built
// from a damped BFGS approximation of the Hessian, then backtracks along the
// resulting direction. Gradients are forward differences evaluated in
// parallel.
package optim
