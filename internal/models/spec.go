package models

// Params holds the physical and economic coefficients of the model. Values are
// marked to a five-year timestep.
type Params struct {
	Timestep float64 `yaml:"timestep"` // years per period
	NumSteps int     `yaml:"num_steps"`

	DamageSensitivity float64 `yaml:"damage_sensitivity"` // ξ*
	CarbonRetention   float64 `yaml:"carbon_retention"`   // φ*
	RiskAversion      float64 `yaml:"risk_aversion"`      // α
	OutputElasticity  float64 `yaml:"output_elasticity"`  // γ, capital share
	Depreciation      float64 `yaml:"depreciation"`       // δ, compounded over a period
	DiscountRate      float64 `yaml:"discount_rate"`      // ρ, compounded over a period
	AbatementExponent float64 `yaml:"abatement_exponent"` // θ

	IntensityGrowth float64 `yaml:"intensity_growth"` // g_σ
	IntensityDecay  float64 `yaml:"intensity_decay"`  // δ_σ
	TechGrowth      float64 `yaml:"tech_growth"`      // g_A
	TechDecay       float64 `yaml:"tech_decay"`       // δ_A

	LandEmissionsDecay   float64 `yaml:"land_emissions_decay"`
	InitialLandEmissions float64 `yaml:"initial_land_emissions"`

	BackstopDivisor float64 `yaml:"backstop_divisor"` // θ₂
	BackstopPrice   float64 `yaml:"backstop_price"`
	BackstopDecay   float64 `yaml:"backstop_decay"`

	ForcingTempCoeff    float64 `yaml:"forcing_temp_coeff"`
	CO2ForcingCoeff     float64 `yaml:"co2_forcing_coeff"`
	ExogForcingStart    float64 `yaml:"exog_forcing_start"` // f0
	ExogForcingEnd      float64 `yaml:"exog_forcing_end"`   // f1
	ExogForcingRamp     float64 `yaml:"exog_forcing_ramp"`  // periods until f1
	PreindustrialCarbon float64 `yaml:"preindustrial_carbon"`

	// Inertial temperature: T' = Eta0 + Eta1*T + Eta2*ln(M').
	Eta0 float64 `yaml:"eta0"`
	Eta1 float64 `yaml:"eta1"`
	Eta2 float64 `yaml:"eta2"`

	AsymptoticLabor float64 `yaml:"asymptotic_labor"`
	LaborGrowth     float64 `yaml:"labor_growth"`
	LaborDiscount   float64 `yaml:"labor_discount"`

	AbatementLower float64 `yaml:"abatement_lower"`
	AbatementUpper float64 `yaml:"abatement_upper"` // 1.2 allows negative emissions
	SavingsLower   float64 `yaml:"savings_lower"`
	SavingsUpper   float64 `yaml:"savings_upper"`
}

// DefaultParams follows Ikefuji et al. where they specify a value and DICE
// 2016 otherwise.
func DefaultParams() Params {
	return Params{
		Timestep: 5,
		NumSteps: 100,

		DamageSensitivity: 0.00265,
		CarbonRetention:   0.9942,
		RiskAversion:      1.45,
		OutputElasticity:  0.3,
		Depreciation:      0.40951,
		DiscountRate:      0.077284,
		AbatementExponent: 2.6,

		IntensityGrowth: 0.0152,
		IntensityDecay:  0.001,
		TechGrowth:      0.076,
		TechDecay:       0.005,

		LandEmissionsDecay:   0.115,
		InitialLandEmissions: 2.6,

		BackstopDivisor: 2.6,
		BackstopPrice:   550,
		BackstopDecay:   0.025,

		ForcingTempCoeff:    0.842,
		CO2ForcingCoeff:     3.6813,
		ExogForcingStart:    0.5,
		ExogForcingEnd:      1.0,
		ExogForcingRamp:     17,
		PreindustrialCarbon: 588,

		Eta0: -2.8672,
		Eta1: 0.8954,
		Eta2: 0.4622,

		AsymptoticLabor: 11500,
		LaborGrowth:     0.134,
		LaborDiscount:   0.001,

		AbatementLower: 0,
		AbatementUpper: 1,
		SavingsLower:   0,
		SavingsUpper:   1,
	}
}

// Scaling rescales five large-magnitude state fields for the optimizer. A
// stored field equals its physical value times the factor.
type Scaling struct {
	Enabled     bool    `yaml:"enabled"`
	Labor       float64 `yaml:"labor"`
	Emissions   float64 `yaml:"emissions"`
	Welfare     float64 `yaml:"welfare"`
	Capital     float64 `yaml:"capital"`
	Consumption float64 `yaml:"consumption"`
}

func DefaultScaling() Scaling {
	return Scaling{
		Labor:       1e-4,
		Emissions:   1e-5,
		Welfare:     1e-5,
		Capital:     1e-5,
		Consumption: 1e-5,
	}
}

// toPhysical divides the scaled fields by their factors.
func (sc Scaling) toPhysical(x State) State {
	if !sc.Enabled {
		return x
	}
	x.Labor /= sc.Labor
	x.Emissions /= sc.Emissions
	x.Welfare /= sc.Welfare
	x.Capital /= sc.Capital
	x.Consumption /= sc.Consumption
	return x
}

// toStored multiplies the scaled fields by their factors.
func (sc Scaling) toStored(x State) State {
	if !sc.Enabled {
		return x
	}
	x.Labor *= sc.Labor
	x.Emissions *= sc.Emissions
	x.Welfare *= sc.Welfare
	x.Capital *= sc.Capital
	x.Consumption *= sc.Consumption
	return x
}

// Spec is the parameter bundle for one run. It is built by NewSpec and must
// not be modified afterwards; evaluations share it by pointer.
type Spec struct {
	Params
	Scaling Scaling

	variant     Variant
	temperature temperatureModel
}

type Option func(*Spec)

// WithParams replaces the default coefficients.
func WithParams(p Params) Option {
	return func(s *Spec) { s.Params = p }
}

// WithScaling enables or configures numerical scaling.
func WithScaling(sc Scaling) Option {
	return func(s *Spec) { s.Scaling = sc }
}

// WithSteps overrides the horizon length.
func WithSteps(n int) Option {
	return func(s *Spec) { s.NumSteps = n }
}

// NewSpec builds a spec for the variant. An unregistered variant falls back to
// AlternateTemperature.
func NewSpec(v Variant, opts ...Option) *Spec {
	if _, ok := temperatureModels[v]; !ok {
		v = AlternateTemperature
	}
	s := &Spec{
		Params:  DefaultParams(),
		Scaling: DefaultScaling(),
		variant: v,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.temperature = temperatureModels[v]
	return s
}

func (s *Spec) Variant() Variant { return s.variant }

// Dim is the length of the flat control vector, 2N+1.
func (s *Spec) Dim() int { return 2*s.NumSteps + 1 }

// Physical converts a stored state to physical units.
func (s *Spec) Physical(x State) State {
	return s.Scaling.toPhysical(x)
}

// PhysicalWelfare converts a stored welfare value to physical units.
func (s *Spec) PhysicalWelfare(w float64) float64 {
	if !s.Scaling.Enabled {
		return w
	}
	return w / s.Scaling.Welfare
}
