package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/dicesim/internal/control"
	"github.com/san-kum/dicesim/internal/metrics"
	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/sim"
)

// DefaultTempThreshold is the warming limit used by the stability metric.
const DefaultTempThreshold = 2.0

type Registry struct {
	variants   map[string]models.Variant
	policies   map[string]func(map[string]float64, *models.Spec) control.Policy
	optimizers map[string]Optimizer
}

func NewRegistry() *Registry {
	r := &Registry{
		variants:   make(map[string]models.Variant),
		policies:   make(map[string]func(map[string]float64, *models.Spec) control.Policy),
		optimizers: make(map[string]Optimizer),
	}

	for _, v := range models.Variants() {
		r.variants[v.String()] = v
	}

	r.policies["none"] = func(params map[string]float64, spec *models.Spec) control.Policy {
		return control.NewNone(params["abatement"], savingsOr(params, 0.25))
	}
	r.policies["ramp"] = func(params map[string]float64, spec *models.Spec) control.Policy {
		periods := int(params["periods"])
		if periods == 0 {
			periods = spec.NumSteps / 2
		}
		to := params["to"]
		if to == 0 {
			to = spec.AbatementUpper
		}
		return control.NewRamp(params["from"], to, periods, savingsOr(params, 0.25))
	}
	r.policies["pid"] = func(params map[string]float64, spec *models.Spec) control.Policy {
		target := params["target"]
		if target == 0 {
			target = DefaultTempThreshold
		}
		p := control.NewPID(params["kp"], params["ki"], params["kd"], target, spec)
		p.Savings = savingsOr(params, p.Savings)
		return p
	}

	r.optimizers["sqp"] = SQP

	return r
}

func savingsOr(params map[string]float64, def float64) float64 {
	if s, ok := params["savings"]; ok {
		return s
	}
	return def
}

func (r *Registry) GetVariant(name string) (models.Variant, error) {
	v, ok := r.variants[name]
	if !ok {
		return models.ParseVariant(name)
	}
	return v, nil
}

func (r *Registry) GetPolicy(name string, params map[string]float64, spec *models.Spec) (control.Policy, error) {
	fn, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy: %s", name)
	}
	return fn(params, spec), nil
}

func (r *Registry) GetOptimizer(name string) (Optimizer, error) {
	o, ok := r.optimizers[name]
	if !ok {
		return nil, fmt.Errorf("unknown optimizer: %s", name)
	}
	return o, nil
}

// RegisterOptimizer adds or replaces a named optimizer.
func (r *Registry) RegisterOptimizer(name string, o Optimizer) {
	r.optimizers[name] = o
}

func (r *Registry) ListVariants() []string {
	return sortedKeys(r.variants)
}

func (r *Registry) ListPolicies() []string {
	return sortedKeys(r.policies)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Default(DefaultTempThreshold)
}
