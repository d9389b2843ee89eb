package optim_test

import (
	"context"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
	"github.com/san-kum/dicesim/internal/sim"
)

var _ = Describe("WelfareBounds", func() {
	It("lays out savings, abatement, then savings", func() {
		p := models.DefaultParams()
		p.NumSteps = 3
		p.AbatementUpper = 1.2
		p.SavingsLower = 0.1
		p.SavingsUpper = 0.9
		spec := models.NewSpec(models.Baseline, models.WithParams(p))

		lower, upper := optim.WelfareBounds(spec)
		Expect(lower).To(Equal([]float64{0.1, 0, 0, 0, 0.1, 0.1, 0.1}))
		Expect(upper).To(Equal([]float64{0.9, 1.2, 1.2, 1.2, 0.9, 0.9, 0.9}))
	})
})

var _ = Describe("InitialGuess", func() {
	spec := models.NewSpec(models.AlternateTemperature)

	It("draws from the unit interval by default", func() {
		x := optim.InitialGuess(rand.New(rand.NewSource(1)), spec, optim.Guess{})
		Expect(x).To(HaveLen(spec.Dim()))
		for _, v := range x {
			Expect(v).To(BeNumerically(">=", 0))
			Expect(v).To(BeNumerically("<", 1))
		}
	})

	It("is reproducible for a seed", func() {
		a := optim.InitialGuess(rand.New(rand.NewSource(9)), spec, optim.Guess{Mode: optim.GuessBounded})
		b := optim.InitialGuess(rand.New(rand.NewSource(9)), spec, optim.Guess{Mode: optim.GuessBounded})
		Expect(a).To(Equal(b))
	})

	It("fills a constant guess", func() {
		x := optim.InitialGuess(rand.New(rand.NewSource(1)), spec, optim.ConstantGuess(0.25))
		for _, v := range x {
			Expect(v).To(Equal(0.25))
		}
	})

	DescribeTable("ParseGuess",
		func(in string, want optim.Guess, ok bool) {
			got, err := optim.ParseGuess(in)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(optim.ParseGuess(got.String())).To(Equal(want))
		},
		Entry("empty", "", optim.Guess{}, true),
		Entry("unit", "unit", optim.Guess{}, true),
		Entry("bounded", "Bounded", optim.Guess{Mode: optim.GuessBounded}, true),
		Entry("constant", "constant:0.4", optim.ConstantGuess(0.4), true),
		Entry("bad constant", "constant:x", optim.Guess{}, false),
		Entry("unknown", "sobol", optim.Guess{}, false),
	)
})

var _ = Describe("MaximizeWelfare", func() {
	It("improves welfare on a short horizon", func() {
		for _, v := range models.Variants() {
			spec := models.NewSpec(v, models.WithSteps(5))
			x0 := optim.InitialGuess(nil, spec, optim.ConstantGuess(0.5))
			start, err := sim.Objective(x0, spec)
			Expect(err).NotTo(HaveOccurred())

			settings := optim.DefaultSettings()
			settings.MaxIter = 30
			res, err := optim.MaximizeWelfare(context.Background(), spec, x0, settings)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.IsNaN(res.Welfare) || math.IsInf(res.Welfare, 0)).To(BeFalse())
			Expect(res.Welfare).To(BeNumerically(">=", start))
			Expect(res.X).To(HaveLen(spec.Dim()))
			Expect(res.Message).NotTo(BeEmpty())
			Expect(res.Evaluations).To(BeNumerically(">", 0))

			lower, upper := optim.WelfareBounds(spec)
			for i, x := range res.X {
				Expect(x).To(BeNumerically(">=", lower[i]))
				Expect(x).To(BeNumerically("<=", upper[i]))
			}
		}
	})

	It("handles abatement pinned at zero", func() {
		p := models.DefaultParams()
		p.NumSteps = 10
		p.AbatementUpper = 0
		spec := models.NewSpec(models.AlternateTemperature, models.WithParams(p))
		x0 := optim.InitialGuess(nil, spec, optim.ConstantGuess(0.3))

		settings := optim.DefaultSettings()
		settings.MaxIter = 20
		res, err := optim.MaximizeWelfare(context.Background(), spec, x0, settings)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).NotTo(Equal(optim.EvaluationFailed))
		Expect(math.IsNaN(res.Welfare) || math.IsInf(res.Welfare, 0)).To(BeFalse())
		for i := 1; i <= spec.NumSteps; i++ {
			Expect(res.X[i]).To(Equal(0.0))
		}
	})

	It("reports welfare in physical units when scaling is enabled", func() {
		sc := models.DefaultScaling()
		sc.Enabled = true
		spec := models.NewSpec(models.AlternateTemperature, models.WithSteps(4), models.WithScaling(sc))
		x0 := optim.InitialGuess(nil, spec, optim.ConstantGuess(0.5))

		settings := optim.DefaultSettings()
		settings.MaxIter = 1
		res, err := optim.MaximizeWelfare(context.Background(), spec, x0, settings)
		Expect(err).NotTo(HaveOccurred())

		r, err := sim.New(spec).Run(context.Background(), res.X)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Welfare).To(BeNumerically("~", r.Welfare, 1e-9*math.Abs(r.Welfare)+1e-12))
	})

	It("rejects a guess of the wrong length", func() {
		spec := models.NewSpec(models.Baseline, models.WithSteps(5))
		_, err := optim.MaximizeWelfare(context.Background(), spec, make([]float64, 5), optim.DefaultSettings())
		Expect(err).To(MatchError(optim.ErrDimension))
	})
})

var _ = Describe("GridSearch", func() {
	It("keeps the lowest score and skips failures", func() {
		g := optim.NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2, 3}, {-1, 0}})
		Expect(g.Size()).To(Equal(6))

		calls := 0
		best, score, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
			calls++
			if p["a"] == 3 {
				return 0, sim.ErrLength
			}
			return (p["a"]-2)*(p["a"]-2) + p["b"], nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(6))
		Expect(best).To(Equal(map[string]float64{"a": 2, "b": -1}))
		Expect(score).To(Equal(-1.0))
	})

	It("fails when nothing evaluates", func() {
		g := optim.NewGridSearch([]string{"a"}, [][]float64{{1}})
		_, _, err := g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
			return 0, sim.ErrShape
		})
		Expect(err).To(MatchError(optim.ErrNoFeasiblePoint))
	})

	It("sweeps welfare over a model parameter", func() {
		spec := models.NewSpec(models.AlternateTemperature, models.WithSteps(6))
		x := optim.InitialGuess(nil, spec, optim.ConstantGuess(0.5))
		grid := optim.NewGridSearch([]string{"discount_rate"}, [][]float64{{0.03, 0.05, 0.077284}})

		var seen int
		grid.OnPoint = func(map[string]float64, float64, error) { seen++ }
		best, welfare, err := optim.Sweep(context.Background(), spec.Variant(), spec.Params, spec.Scaling, x, grid)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal(3))
		Expect(best).To(HaveKey("discount_rate"))

		p := spec.Params
		Expect(p.Set("discount_rate", best["discount_rate"])).To(Succeed())
		want, err := sim.Objective(x, models.NewSpec(spec.Variant(), models.WithParams(p)))
		Expect(err).NotTo(HaveOccurred())
		Expect(welfare).To(BeNumerically("~", want, 1e-9*math.Abs(want)))
	})
})
