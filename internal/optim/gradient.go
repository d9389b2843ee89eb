package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Gradient estimates the gradient of f at x by forward differences, given
// fx = f(x). Coordinates within step of their upper bound are differenced
// backwards so every shifted point stays inside [lower, upper]; a coordinate
// with no room either way gets a zero entry. Nil bounds are unbounded.
// Evaluations run concurrently on up to workers goroutines; zero or less uses
// GOMAXPROCS. Any failed evaluation fails the gradient.
func Gradient(ctx context.Context, f Func, x, lower, upper []float64, fx, step float64, workers int) ([]float64, error) {
	if lower != nil && len(lower) != len(x) {
		return nil, fmt.Errorf("%w: x has %d elements, lower bound has %d", ErrDimension, len(x), len(lower))
	}
	if upper != nil && len(upper) != len(x) {
		return nil, fmt.Errorf("%w: x has %d elements, upper bound has %d", ErrDimension, len(x), len(upper))
	}
	if step <= 0 {
		step = DefaultStep
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	grad := make([]float64, len(x))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range x {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h := step
			if upper != nil && x[i]+h > upper[i] {
				if lower != nil && x[i]-h < lower[i] {
					return nil
				}
				h = -h
			}
			xh := make([]float64, len(x))
			copy(xh, x)
			xh[i] += h

			v, err := f(xh)
			if err != nil {
				return fmt.Errorf("gradient coordinate %d: %w", i, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("gradient coordinate %d: %w", i, errNonFinite)
			}
			grad[i] = (v - fx) / h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grad, nil
}
