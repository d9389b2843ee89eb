package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dicesim/internal/models"
)

// Ensemble evaluates the objective for many control vectors concurrently.
// Evaluations share only the read-only spec.
type Ensemble struct {
	spec    *models.Spec
	workers int
}

// NewEnsemble bounds concurrency to workers; zero or less uses GOMAXPROCS.
func NewEnsemble(spec *models.Spec, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{spec: spec, workers: workers}
}

// Run returns the objective of each vector in input order. The first failed
// evaluation cancels the rest and is returned.
func (e *Ensemble) Run(ctx context.Context, xs [][]float64) ([]float64, error) {
	values := make([]float64, len(xs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range xs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := Objective(xs[i], e.spec)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
