package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/sim"
)

// ErrNoFeasiblePoint is returned when every grid point failed to evaluate.
var ErrNoFeasiblePoint = errors.New("optim: no grid point could be evaluated")

// GridSearch enumerates the cartesian product of parameter ranges and keeps
// the point with the lowest score.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// OnPoint, when set, sees every evaluated point and its score or error.
	OnPoint func(params map[string]float64, score float64, err error)
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	if len(g.ranges) == 0 {
		return 0
	}
	size := 1
	for _, r := range g.ranges {
		size *= len(r)
	}
	return size
}

func (g *GridSearch) Search(
	ctx context.Context,
	evaluate func(ctx context.Context, params map[string]float64) (float64, error),
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%w: %d parameters, %d ranges", ErrDimension, len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), evaluate, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoFeasiblePoint
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	evaluate func(context.Context, map[string]float64) (float64, error),
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		val, err := evaluate(ctx, current)
		if g.OnPoint != nil {
			g.OnPoint(current, val, err)
		}
		if err != nil {
			return nil
		}

		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, evaluate, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// Sweep evaluates the welfare of the fixed control vector x under every
// parameter override in the grid and returns the overrides with the highest
// welfare, in physical units.
func Sweep(ctx context.Context, variant models.Variant, base models.Params, scaling models.Scaling, x []float64, grid *GridSearch) (map[string]float64, float64, error) {
	best, score, err := grid.Search(ctx, func(ctx context.Context, overrides map[string]float64) (float64, error) {
		p := base
		for name, v := range overrides {
			if err := p.Set(name, v); err != nil {
				return 0, err
			}
		}
		spec := models.NewSpec(variant, models.WithParams(p), models.WithScaling(scaling))
		w, err := sim.Objective(x, spec)
		if err != nil {
			return 0, err
		}
		return -spec.PhysicalWelfare(w), nil
	})
	if err != nil {
		return nil, 0, err
	}
	return best, -score, nil
}
