package control

import (
	"math"
	"testing"

	"github.com/san-kum/dicesim/internal/models"
)

func TestNone(t *testing.T) {
	ctrl := NewNone(0.3, 0.25)
	for period := 0; period < 3; period++ {
		u := ctrl.Compute(models.State{Temperature: float64(period)}, period)
		if u.Abatement != 0.3 || u.Savings != 0.25 {
			t.Errorf("period %d: unexpected control %+v", period, u)
		}
	}
}

func TestRamp(t *testing.T) {
	r := NewRamp(0, 1, 10, 0.2)

	tests := []struct {
		period int
		want   float64
	}{
		{0, 0},
		{5, 0.5},
		{10, 1},
		{50, 1},
	}
	for _, tt := range tests {
		u := r.Compute(models.State{}, tt.period)
		if math.Abs(u.Abatement-tt.want) > 1e-12 {
			t.Errorf("period %d: expected %f, got %f", tt.period, tt.want, u.Abatement)
		}
		if u.Savings != 0.2 {
			t.Errorf("period %d: savings %f", tt.period, u.Savings)
		}
	}
}

func TestPIDClamps(t *testing.T) {
	spec := models.NewSpec(models.AlternateTemperature)
	ctrl := NewPID(10.0, 0.1, 5.0, 2.0, spec)

	u := ctrl.Compute(models.State{Temperature: 5}, 0)
	if u.Abatement != spec.AbatementUpper {
		t.Errorf("expected abatement clamped to %f, got %f", spec.AbatementUpper, u.Abatement)
	}

	u = ctrl.Compute(models.State{Temperature: -50}, 1)
	if u.Abatement != spec.AbatementLower {
		t.Errorf("expected abatement clamped to %f, got %f", spec.AbatementLower, u.Abatement)
	}
}

func TestManualRepeatsLast(t *testing.T) {
	ctrl := NewManual([]models.Control{{Abatement: 0.1, Savings: 0.2}, {Abatement: 0.3, Savings: 0.4}})
	if u := ctrl.Compute(models.State{}, 7); u.Abatement != 0.3 || u.Savings != 0.4 {
		t.Errorf("unexpected control %+v", u)
	}
	if u := NewManual(nil).Compute(models.State{}, 0); u != (models.Control{}) {
		t.Errorf("expected zero control, got %+v", u)
	}
}

func TestUnroll(t *testing.T) {
	spec := models.NewSpec(models.Baseline, models.WithSteps(12))
	pid := NewPID(0.2, 0.01, 0, 1.5, spec)

	pairs, err := Unroll(pid, 0.25, spec)
	if err != nil {
		t.Fatalf("unroll failed: %v", err)
	}
	if len(pairs) != spec.NumSteps {
		t.Fatalf("expected %d controls, got %d", spec.NumSteps, len(pairs))
	}
	for i, u := range pairs {
		if u.Abatement < spec.AbatementLower || u.Abatement > spec.AbatementUpper {
			t.Errorf("period %d: abatement %f out of bounds", i, u.Abatement)
		}
	}

	again, err := Unroll(pid, 0.25, spec)
	if err != nil {
		t.Fatalf("second unroll failed: %v", err)
	}
	for i := range pairs {
		if pairs[i] != again[i] {
			t.Fatalf("unroll is not repeatable at period %d", i)
		}
	}
}
