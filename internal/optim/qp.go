package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	atLower = -1
	free    = 0
	atUpper = 1
)

// solveBoxQP minimizes g·d + ½dᵀBd subject to lo ≤ d ≤ hi with a primal
// active-set method. lo ≤ 0 ≤ hi must hold so that d = 0 is feasible.
// It reports false when the reduced Hessian is not positive definite.
func solveBoxQP(b *mat.SymDense, g, lo, hi []float64) ([]float64, bool) {
	n := len(g)
	d := make([]float64, n)
	work := make([]int, n)
	for i := range work {
		switch {
		case lo[i] == hi[i]:
			work[i] = atLower
		case lo[i] == 0 && g[i] > 0:
			work[i] = atLower
		case hi[i] == 0 && g[i] < 0:
			work[i] = atUpper
		}
	}

	r := make([]float64, n)
	idx := make([]int, 0, n)
	for iter := 0; iter < 3*n+10; iter++ {
		// r is the gradient of the quadratic model at d.
		copy(r, g)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if d[j] != 0 {
					r[i] += b.At(i, j) * d[j]
				}
			}
		}

		idx = idx[:0]
		for i, w := range work {
			if w == free {
				idx = append(idx, i)
			}
		}

		p := make([]float64, n)
		if len(idx) > 0 {
			sub, ok := reducedStep(b, r, idx)
			if !ok {
				return nil, false
			}
			for k, i := range idx {
				p[i] = sub[k]
			}
		}

		if floats.Norm(p, math.Inf(1)) <= 1e-12*(1+floats.Norm(d, math.Inf(1))) {
			// Release the bound whose multiplier has the wrong sign.
			release, worst := -1, 0.0
			for i, w := range work {
				if lo[i] == hi[i] {
					continue
				}
				var v float64
				switch w {
				case atLower:
					v = -r[i]
				case atUpper:
					v = r[i]
				}
				if v > worst {
					release, worst = i, v
				}
			}
			if release < 0 {
				return d, true
			}
			work[release] = free
			continue
		}

		alpha, block, side := 1.0, -1, free
		for _, i := range idx {
			switch {
			case p[i] < 0:
				if t := (lo[i] - d[i]) / p[i]; t < alpha {
					alpha, block, side = t, i, atLower
				}
			case p[i] > 0:
				if t := (hi[i] - d[i]) / p[i]; t < alpha {
					alpha, block, side = t, i, atUpper
				}
			}
		}
		floats.AddScaled(d, alpha, p)
		if block >= 0 {
			if side == atLower {
				d[block] = lo[block]
			} else {
				d[block] = hi[block]
			}
			work[block] = side
		}
	}
	return d, true
}

// reducedStep solves B_FF p = -r_F over the free coordinates idx.
func reducedStep(b *mat.SymDense, r []float64, idx []int) ([]float64, bool) {
	k := len(idx)
	sub := mat.NewSymDense(k, nil)
	rhs := mat.NewVecDense(k, nil)
	for a, i := range idx {
		rhs.SetVec(a, -r[i])
		for c := a; c < k; c++ {
			sub.SetSym(a, c, b.At(i, idx[c]))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sub); !ok {
		return nil, false
	}
	var p mat.VecDense
	if err := chol.SolveVecTo(&p, rhs); err != nil {
		return nil, false
	}
	return p.RawVector().Data, true
}
