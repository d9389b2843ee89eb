package models

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUtilityZeroConsumption(t *testing.T) {
	for _, v := range Variants() {
		spec := NewSpec(v)
		for _, alpha := range []float64{spec.RiskAversion, 0.5, 1, 2, 3} {
			u, err := Utility(0, alpha)
			require.NoError(t, err)
			assert.Equal(t, 0.0, u, "variant %s alpha %g", v, alpha)
		}
	}
}

func TestUtilityNegativeConsumption(t *testing.T) {
	_, err := Utility(-1e-9, 1.45)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDomain))

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "utility", de.Op)
}

func TestUtilityShape(t *testing.T) {
	u, err := Utility(1, 1.45)
	require.NoError(t, err)
	assert.InDelta(t, 0, u, 1e-15)

	u, err = Utility(math.E, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1, u, 1e-15)

	lo, _ := Utility(0.5, 1.45)
	hi, _ := Utility(2, 1.45)
	assert.Less(t, lo, hi)
}

func TestInitialState(t *testing.T) {
	spec := NewSpec(AlternateTemperature)
	x, err := InitialState(0.3, spec)
	require.NoError(t, err)

	assert.Equal(t, 0, x.Time)
	assert.Equal(t, 0.0, x.Welfare)
	assert.Equal(t, 0.3, x.Savings)
	assert.Equal(t, seedAbatement, x.Abatement)
	assert.Equal(t, spec.InitialLandEmissions, x.LandEmissions)
	assert.Greater(t, x.Output, 0.0)
	assert.InDelta(t, x.Damage*x.Output*0.7, x.Consumption, 1e-6)
}

func TestTransitionAdvancesTime(t *testing.T) {
	spec := NewSpec(Baseline)
	x, err := InitialState(0.25, spec)
	require.NoError(t, err)

	u := Control{Abatement: 0.2, Savings: 0.25}
	for i := 1; i <= 10; i++ {
		prev := x
		x, err = Transition(x, u, spec)
		require.NoError(t, err)
		assert.Equal(t, i, x.Time)
		assert.Equal(t, prev.Time+1, x.Time)
		assert.Equal(t, u, x.Control())
	}
}

func TestTransitionDoesNotModifyInput(t *testing.T) {
	spec := NewSpec(AlternateTemperature, WithScaling(Scaling{
		Enabled: true, Labor: 1e-4, Emissions: 1e-5, Welfare: 1e-5, Capital: 1e-5, Consumption: 1e-5,
	}))
	x, err := InitialState(0.25, spec)
	require.NoError(t, err)
	before := x

	_, err = Transition(x, Control{Abatement: 0.5, Savings: 0.5}, spec)
	require.NoError(t, err)
	assert.Equal(t, before, x)
}

func TestZeroAbatementDamage(t *testing.T) {
	for _, v := range Variants() {
		spec := NewSpec(v)
		x, err := InitialState(0.4, spec)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			x, err = Transition(x, Control{Abatement: 0, Savings: 0.4}, spec)
			require.NoError(t, err)
			want := 1 / (1 + spec.DamageSensitivity*x.Temperature*x.Temperature)
			assert.Equal(t, want, x.Damage, "variant %s period %d", v, x.Time)
		}
	}
}

func TestDamageCoefficientRange(t *testing.T) {
	spec := NewSpec(AlternateTemperature)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		mu := spec.AbatementLower + rng.Float64()*(spec.AbatementUpper-spec.AbatementLower)
		temp := rng.Float64() * 80
		period := rng.Intn(spec.NumSteps + 1)
		intensity := seedIntensity * rng.Float64()

		d, err := DamageCoefficient(spec, period, intensity, mu, temp)
		require.NoError(t, err)
		assert.Greater(t, d, 0.0)
		assert.LessOrEqual(t, d, 1.0)
	}
}

func TestTemperatureVariants(t *testing.T) {
	u := Control{Abatement: 0.1, Savings: 0.3}

	alt := NewSpec(AlternateTemperature)
	x, err := InitialState(0.3, alt)
	require.NoError(t, err)
	warm := x
	warm.Temperature += 2

	a, err := Transition(x, u, alt)
	require.NoError(t, err)
	b, err := Transition(warm, u, alt)
	require.NoError(t, err)
	assert.Equal(t, a.Temperature, b.Temperature, "alternate temperature has no memory")
	assert.InDelta(t, alt.ForcingTempCoeff*a.Forcing, a.Temperature, 1e-12)

	base := NewSpec(Baseline)
	x, err = InitialState(0.3, base)
	require.NoError(t, err)
	warm = x
	warm.Temperature += 2

	a, err = Transition(x, u, base)
	require.NoError(t, err)
	b, err = Transition(warm, u, base)
	require.NoError(t, err)
	assert.InDelta(t, 2*base.Eta1, b.Temperature-a.Temperature, 1e-12)
	assert.Equal(t, 0.0, a.Forcing)
}

func TestScalingPreservesPhysicalValues(t *testing.T) {
	sc := DefaultScaling()
	sc.Enabled = true
	plain := NewSpec(AlternateTemperature)
	scaled := NewSpec(AlternateTemperature, WithScaling(sc))

	xp, err := InitialState(0.5, plain)
	require.NoError(t, err)
	xs, err := InitialState(0.5, scaled)
	require.NoError(t, err)

	u := Control{Abatement: 0.5, Savings: 0.5}
	for i := 0; i < plain.NumSteps; i++ {
		xp, err = Transition(xp, u, plain)
		require.NoError(t, err)
		xs, err = Transition(xs, u, scaled)
		require.NoError(t, err)
	}

	want := xp.Values()
	got := scaled.Physical(xs).Values()
	for i, name := range Columns() {
		assert.InEpsilon(t, want[i], got[i], 1e-9, name)
	}
	assert.InEpsilon(t, scaled.Scaling.Welfare*xp.Welfare, xs.Welfare, 1e-9)
}

func TestTransitionDomainError(t *testing.T) {
	spec := NewSpec(AlternateTemperature)
	x, err := InitialState(0.5, spec)
	require.NoError(t, err)

	x.Capital = -1e9
	x.Savings = 0
	_, err = Transition(x, Control{Abatement: 0.5, Savings: 0.5}, spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDomain)

	x, _ = InitialState(0.5, spec)
	_, err = Transition(x, Control{Abatement: 0.5, Savings: 1.5}, spec)
	require.Error(t, err, "negative consumption must not produce NaN welfare")
	assert.ErrorIs(t, err, ErrDomain)
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
		ok   bool
	}{
		{"baseline", Baseline, true},
		{"Alternate", AlternateTemperature, true},
		{" alternate ", AlternateTemperature, true},
		{"sice", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrUnknownVariant)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewSpecDefaults(t *testing.T) {
	spec := NewSpec(0)
	assert.Equal(t, AlternateTemperature, spec.Variant())
	assert.Equal(t, 100, spec.NumSteps)
	assert.Equal(t, 201, spec.Dim())
	assert.False(t, spec.Scaling.Enabled)

	short := NewSpec(Baseline, WithSteps(10))
	assert.Equal(t, 21, short.Dim())
	assert.Equal(t, Baseline, short.Variant())
}

func TestParamsSetGet(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Set("discount_rate", 0.05))
	require.NoError(t, p.Set("num_steps", 12.9))
	assert.Equal(t, 0.05, p.DiscountRate)
	assert.Equal(t, 12, p.NumSteps)

	v, err := p.Get("carbon_retention")
	require.NoError(t, err)
	assert.Equal(t, 0.9942, v)

	assert.Error(t, p.Set("nope", 1))
	_, err = p.Get("nope")
	assert.Error(t, err)
	assert.Contains(t, ParamNames(), "eta0")
	assert.Len(t, ParamNames(), 34)
}

func TestStateValuesRoundTrip(t *testing.T) {
	spec := NewSpec(Baseline)
	x, err := InitialState(0.3, spec)
	require.NoError(t, err)
	x, err = Transition(x, Control{Abatement: 0.2, Savings: 0.3}, spec)
	require.NoError(t, err)

	got, err := StateFromValues(x.Values())
	require.NoError(t, err)
	assert.Equal(t, x, got)
	assert.Len(t, x.Values(), len(Columns()))

	_, err = StateFromValues([]float64{1, 2})
	assert.Error(t, err)
}
