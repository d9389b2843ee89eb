package sim

import (
	"context"

	"github.com/san-kum/dicesim/internal/models"
)

// Simulator produces reportable traces. Unlike Objective it keeps every state
// and feeds it through the registered metrics and observers.
type Simulator struct {
	spec      *models.Spec
	metrics   []Metric
	observers []Observer
}

func New(spec *models.Spec) *Simulator {
	return &Simulator{
		spec:      spec,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Spec() *models.Spec { return s.spec }

// Run simulates the flat control vector x of length 2N+1.
func (s *Simulator) Run(ctx context.Context, x []float64) (*Result, error) {
	seed, pairs, err := Split(x, s.spec)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, seed, pairs)
}

// RunPolicy simulates an explicit initial savings rate and control sequence.
func (s *Simulator) RunPolicy(ctx context.Context, initialSavings float64, pairs []models.Control) (*Result, error) {
	seed, err := models.InitialState(initialSavings, s.spec)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, seed, pairs)
}

func (s *Simulator) run(ctx context.Context, seed models.State, pairs []models.Control) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r, err := Simulate(pairs, seed, s.spec, Trace)
	if err != nil {
		return nil, err
	}

	result := &Result{
		States:  r.States,
		Metrics: make(map[string]float64),
		Welfare: s.spec.PhysicalWelfare(r.Final.Welfare),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	for _, x := range r.States {
		for _, m := range s.metrics {
			m.Observe(x)
		}
		for _, obs := range s.observers {
			obs.OnStep(x)
		}
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}
