package optim

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	armijo        = 1e-4
	maxLineSearch = 10
	bfgsDamping   = 0.2
)

// Minimize searches for a local minimum of p.Func inside the bounds starting
// from x0, which is first clipped into the box. Only a malformed problem
// returns an error; every solver outcome, including evaluation failures and
// cancellation, is described by the Result.
func Minimize(ctx context.Context, p Problem, x0 []float64, settings Settings) (*Result, error) {
	if err := p.validate(x0); err != nil {
		return nil, err
	}
	s := settings.withDefaults()
	start := time.Now()

	var evals atomic.Int64
	f := func(x []float64) (float64, error) {
		evals.Add(1)
		v, err := p.Func(x)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errNonFinite
		}
		return v, nil
	}

	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)
	p.clip(x)

	res := &Result{X: x}
	finish := func(status Status, err error) (*Result, error) {
		res.Status = status
		res.Success = status == Success
		res.Message = status.String()
		res.Err = err
		res.FuncEvals = int(evals.Load())
		res.Runtime = time.Since(start)
		s.Logger.Debug("solver finished",
			zap.Stringer("status", status),
			zap.Int("iterations", res.Iterations),
			zap.Int("evaluations", res.FuncEvals),
			zap.Float64("f", res.F),
			zap.Error(err),
		)
		return res, nil
	}

	fx, err := f(x)
	if err != nil {
		return finish(EvaluationFailed, err)
	}
	res.F = fx

	gradient := func(x []float64, fx float64) ([]float64, error) {
		res.GradEvals++
		return Gradient(ctx, f, x, p.Lower, p.Upper, fx, s.Step, s.Workers)
	}
	g, err := gradient(x, fx)
	if err != nil {
		if ctx.Err() != nil {
			return finish(Canceled, ctx.Err())
		}
		return finish(EvaluationFailed, err)
	}

	b := identity(n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	trial := make([]float64, n)

	for res.Iterations < s.MaxIter {
		if err := ctx.Err(); err != nil {
			return finish(Canceled, err)
		}

		floats.SubTo(lo, p.Lower, x)
		floats.SubTo(hi, p.Upper, x)
		// Rounding can leave x a hair outside its own bounds.
		for i := range lo {
			lo[i] = math.Min(lo[i], 0)
			hi[i] = math.Max(hi[i], 0)
		}

		d, ok := solveBoxQP(b, g, lo, hi)
		if !ok {
			b = identity(n)
			if d, ok = solveBoxQP(b, g, lo, hi); !ok {
				return finish(SearchNotDescent, nil)
			}
		}

		stepNorm := floats.Norm(d, 2)
		if stepNorm < s.Tol {
			return finish(Success, nil)
		}

		slope := floats.Dot(g, d)
		if slope >= 0 {
			b = identity(n)
			d, _ = solveBoxQP(b, g, lo, hi)
			stepNorm = floats.Norm(d, 2)
			if stepNorm < s.Tol {
				return finish(Success, nil)
			}
			if slope = floats.Dot(g, d); slope >= 0 {
				return finish(SearchNotDescent, nil)
			}
		}

		alpha, ft, accepted, lastErr := 1.0, 0.0, false, error(nil)
		evalFailures := 0
		for try := 0; try < maxLineSearch; try++ {
			floats.AddScaledTo(trial, x, alpha, d)
			p.clip(trial)

			v, err := f(trial)
			if err != nil {
				lastErr = err
				evalFailures++
				alpha *= 0.1
				continue
			}
			ft = v
			if ft <= fx+armijo*alpha*slope {
				accepted = true
				break
			}
			// Minimizer of the quadratic through f(x), f'(x;d) and f(x+αd).
			next := -slope * alpha * alpha / (2 * (ft - fx - alpha*slope))
			alpha = math.Min(math.Max(next, 0.1*alpha), 0.5*alpha)
		}
		if !accepted {
			if evalFailures == maxLineSearch {
				return finish(EvaluationFailed, lastErr)
			}
			return finish(LineSearchFailed, lastErr)
		}

		xNew := make([]float64, n)
		copy(xNew, trial)
		gNew, err := gradient(xNew, ft)
		if err != nil {
			res.X, res.F = xNew, ft
			res.Iterations++
			if ctx.Err() != nil {
				return finish(Canceled, ctx.Err())
			}
			return finish(EvaluationFailed, err)
		}

		sk := make([]float64, n)
		yk := make([]float64, n)
		floats.SubTo(sk, xNew, x)
		floats.SubTo(yk, gNew, g)
		b = dampedBFGS(b, sk, yk)

		df := math.Abs(fx - ft)
		x, fx, g = xNew, ft, gNew
		res.X, res.F = x, fx
		res.Iterations++

		taken := floats.Norm(sk, 2)
		s.Logger.Debug("solver iteration",
			zap.Int("iter", res.Iterations),
			zap.Float64("f", fx),
			zap.Float64("alpha", alpha),
			zap.Float64("step", taken),
		)
		if s.Recorder != nil {
			s.Recorder(Iteration{
				Iter:     res.Iterations,
				F:        fx,
				StepNorm: taken,
				Alpha:    alpha,
				Evals:    int(evals.Load()),
				X:        append([]float64(nil), x...),
			})
		}

		if df < s.Tol || taken < s.Tol {
			return finish(Success, nil)
		}
	}
	return finish(IterationLimit, nil)
}

func identity(n int) *mat.SymDense {
	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetSym(i, i, 1)
	}
	return b
}

// dampedBFGS applies Powell's damped BFGS update so the approximation stays
// positive definite when the curvature condition fails.
func dampedBFGS(b *mat.SymDense, s, y []float64) *mat.SymDense {
	sv := mat.NewVecDense(len(s), s)
	var bs mat.VecDense
	bs.MulVec(b, sv)

	sBs := mat.Dot(sv, &bs)
	if sBs <= 0 || math.IsNaN(sBs) {
		return identity(len(s))
	}
	sy := floats.Dot(s, y)

	theta := 1.0
	if sy < bfgsDamping*sBs {
		theta = (1 - bfgsDamping) * sBs / (sBs - sy)
	}
	r := make([]float64, len(y))
	for i := range r {
		r[i] = theta*y[i] + (1-theta)*bs.AtVec(i)
	}
	sr := floats.Dot(s, r)
	if sr <= 0 || math.IsNaN(sr) {
		return identity(len(s))
	}

	next := mat.NewSymDense(len(s), nil)
	next.SymRankOne(b, -1/sBs, &bs)
	next.SymRankOne(next, 1/sr, mat.NewVecDense(len(r), r))
	return next
}

func (r *Result) String() string {
	return fmt.Sprintf("%s (f=%g, iterations=%d, evaluations=%d)", r.Message, r.F, r.Iterations, r.FuncEvals)
}
