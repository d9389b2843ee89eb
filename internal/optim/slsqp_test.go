package optim_test

import (
	"context"
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dicesim/internal/optim"
)

func weightedQuadratic(center, weights []float64) optim.Func {
	return func(x []float64) (float64, error) {
		var f float64
		for i := range x {
			d := x[i] - center[i]
			f += weights[i] * d * d
		}
		return f, nil
	}
}

func box(n int, lo, hi float64) ([]float64, []float64) {
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range lower {
		lower[i], upper[i] = lo, hi
	}
	return lower, upper
}

var _ = Describe("Minimize", func() {
	var (
		ctx      context.Context
		settings optim.Settings
	)

	BeforeEach(func() {
		ctx = context.Background()
		settings = optim.DefaultSettings()
		settings.Tol = 1e-10
	})

	It("converges to an interior minimum", func() {
		lower, upper := box(4, 0, 1)
		p := optim.Problem{
			Func:  weightedQuadratic([]float64{0.2, 0.4, 0.6, 0.8}, []float64{1, 3, 10, 0.5}),
			Lower: lower,
			Upper: upper,
		}

		res, err := optim.Minimize(ctx, p, []float64{0.9, 0.1, 0.1, 0.1}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.Status).To(Equal(optim.Success))
		Expect(res.Message).To(Equal("Optimization terminated successfully"))
		Expect(res.X).To(HaveLen(4))
		for i, want := range []float64{0.2, 0.4, 0.6, 0.8} {
			Expect(res.X[i]).To(BeNumerically("~", want, 1e-3))
		}
		Expect(res.F).To(BeNumerically("<", 1e-5))
		Expect(res.FuncEvals).To(BeNumerically(">", res.Iterations))
	})

	It("stops on active bounds", func() {
		lower, upper := box(3, 0, 1)
		p := optim.Problem{
			Func:  weightedQuadratic([]float64{-0.5, 0.3, 1.7}, []float64{1, 1, 1}),
			Lower: lower,
			Upper: upper,
		}

		res, err := optim.Minimize(ctx, p, []float64{0.5, 0.5, 0.5}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.X[0]).To(BeNumerically("~", 0, 1e-6))
		Expect(res.X[1]).To(BeNumerically("~", 0.3, 1e-3))
		Expect(res.X[2]).To(BeNumerically("~", 1, 1e-6))
	})

	It("clips the starting point into the bounds", func() {
		lower, upper := box(2, 0, 1)
		var first []float64
		p := optim.Problem{
			Func: func(x []float64) (float64, error) {
				if first == nil {
					first = append([]float64(nil), x...)
				}
				return x[0] + x[1], nil
			},
			Lower: lower,
			Upper: upper,
		}
		settings.Workers = 1

		res, err := optim.Minimize(ctx, p, []float64{-3, 7}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal([]float64{0, 1}))
		for _, v := range res.X {
			Expect(v).To(BeNumerically(">=", 0))
			Expect(v).To(BeNumerically("<=", 1))
		}
	})

	It("reports the iteration limit", func() {
		lower, upper := box(3, -10, 10)
		p := optim.Problem{
			Func:  weightedQuadratic([]float64{1, 2, 3}, []float64{1, 4, 9}),
			Lower: lower,
			Upper: upper,
		}
		settings.MaxIter = 1

		res, err := optim.Minimize(ctx, p, []float64{-8, -8, -8}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeFalse())
		Expect(res.Status).To(Equal(optim.IterationLimit))
		Expect(res.Message).To(Equal("Iteration limit reached"))
		Expect(res.Iterations).To(Equal(1))
	})

	It("reports evaluation failures in the result", func() {
		boom := errors.New("boom")
		lower, upper := box(2, 0, 1)
		p := optim.Problem{
			Func:  func([]float64) (float64, error) { return 0, boom },
			Lower: lower,
			Upper: upper,
		}

		res, err := optim.Minimize(ctx, p, []float64{0.5, 0.5}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeFalse())
		Expect(res.Status).To(Equal(optim.EvaluationFailed))
		Expect(res.Err).To(MatchError(boom))
	})

	It("treats non-finite objectives as failures", func() {
		lower, upper := box(1, 0, 1)
		p := optim.Problem{
			Func:  func([]float64) (float64, error) { return math.NaN(), nil },
			Lower: lower,
			Upper: upper,
		}

		res, err := optim.Minimize(ctx, p, []float64{0.5}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(optim.EvaluationFailed))
	})

	It("stops when the context is canceled", func() {
		lower, upper := box(2, 0, 1)
		p := optim.Problem{
			Func:  weightedQuadratic([]float64{0.5, 0.5}, []float64{1, 1}),
			Lower: lower,
			Upper: upper,
		}
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := optim.Minimize(canceled, p, []float64{0, 0}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(optim.Canceled))
		Expect(res.Err).To(MatchError(context.Canceled))
	})

	It("rejects mismatched dimensions", func() {
		lower, upper := box(2, 0, 1)
		p := optim.Problem{
			Func:  weightedQuadratic([]float64{0, 0, 0}, []float64{1, 1, 1}),
			Lower: lower,
			Upper: upper,
		}
		_, err := optim.Minimize(ctx, p, []float64{0, 0, 0}, settings)
		Expect(err).To(MatchError(optim.ErrDimension))

		p.Lower = []float64{1, 1}
		p.Upper = []float64{0, 0}
		_, err = optim.Minimize(ctx, p, []float64{0, 0}, settings)
		Expect(err).To(MatchError(optim.ErrDimension))
	})

	It("records every accepted iteration", func() {
		lower, upper := box(2, 0, 1)
		p := optim.Problem{
			Func:  weightedQuadratic([]float64{0.3, 0.7}, []float64{2, 5}),
			Lower: lower,
			Upper: upper,
		}
		var seen []optim.Iteration
		settings.Recorder = func(it optim.Iteration) { seen = append(seen, it) }

		res, err := optim.Minimize(ctx, p, []float64{1, 0}, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(res.Iterations))
		for i, it := range seen {
			Expect(it.Iter).To(Equal(i + 1))
			if i > 0 {
				Expect(it.F).To(BeNumerically("<=", seen[i-1].F))
			}
		}
	})
})

var _ = Describe("Gradient", func() {
	f := func(x []float64) (float64, error) {
		return x[0]*x[0] + 3*x[1] - math.Sin(x[2]), nil
	}

	It("matches the analytic gradient", func() {
		x := []float64{0.4, 0.1, 0.7}
		fx, _ := f(x)
		g, err := optim.Gradient(context.Background(), f, x, nil, nil, fx, 0, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(g[0]).To(BeNumerically("~", 0.8, 1e-6))
		Expect(g[1]).To(BeNumerically("~", 3, 1e-6))
		Expect(g[2]).To(BeNumerically("~", -math.Cos(0.7), 1e-6))
	})

	It("differences backwards at the upper bound", func() {
		x := []float64{1, 1, 1}
		upper := []float64{1, 1, 1}
		var outside bool
		bounded := func(p []float64) (float64, error) {
			for _, v := range p {
				if v > 1 {
					outside = true
				}
			}
			return f(p)
		}
		fx, _ := f(x)
		g, err := optim.Gradient(context.Background(), bounded, x, nil, upper, fx, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(outside).To(BeFalse())
		Expect(g[0]).To(BeNumerically("~", 2, 1e-6))
	})

	It("stays inside the box and zeroes fixed coordinates", func() {
		x := []float64{0.5, 0, 1}
		lower := []float64{0, 0, 1 - 1e-10}
		upper := []float64{1, 0, 1}
		inside := func(p []float64) (float64, error) {
			for i, v := range p {
				if v < lower[i] || v > upper[i] {
					return 0, fmt.Errorf("coordinate %d left the box: %g", i, v)
				}
			}
			return f(p)
		}
		fx, _ := f(x)
		g, err := optim.Gradient(context.Background(), inside, x, lower, upper, fx, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(g[0]).To(BeNumerically("~", 1, 1e-6))
		Expect(g[1]).To(Equal(0.0))
		Expect(g[2]).To(Equal(0.0))
	})

	It("fails when any evaluation fails", func() {
		boom := errors.New("boom")
		failing := func(p []float64) (float64, error) {
			if p[1] != 0 {
				return 0, boom
			}
			return 0, nil
		}
		_, err := optim.Gradient(context.Background(), failing, []float64{0, 0}, nil, nil, 0, 0, 0)
		Expect(err).To(MatchError(boom))
	})
})
