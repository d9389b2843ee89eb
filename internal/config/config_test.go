package config

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Variant != models.AlternateTemperature {
		t.Errorf("expected alternate variant, got %s", cfg.Variant)
	}
	if cfg.Solver.MaxIter <= 0 {
		t.Error("max_iter should be positive")
	}
	if cfg.Scaling.Enabled {
		t.Error("scaling should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("quick")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	p, err := cfg.ModelParams()
	if err != nil {
		t.Fatal(err)
	}
	if p.NumSteps != 20 {
		t.Errorf("expected 20 steps, got %d", p.NumSteps)
	}

	cfg.Params["num_steps"] = 3
	if Presets["quick"].Params["num_steps"] != 20 {
		t.Error("GetPreset must not alias the preset table")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d names, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
	if GetPreset("inertial").Variant != models.Baseline {
		t.Error("inertial preset should use the baseline variant")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("scaled")
	cfg.Variant = models.Baseline
	cfg.Guess = "constant:0.3"
	cfg.Params = map[string]float64{"discount_rate": 0.03}

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Variant != models.Baseline {
		t.Errorf("variant %s, want baseline", got.Variant)
	}
	if !got.Scaling.Enabled {
		t.Error("scaling lost in round trip")
	}

	exp, err := got.Experiment(true)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Params.DiscountRate != 0.03 {
		t.Errorf("discount rate %g, want 0.03", exp.Params.DiscountRate)
	}
	if exp.Guess != optim.ConstantGuess(0.3) {
		t.Errorf("guess %v", exp.Guess)
	}
	if !exp.DryRun {
		t.Error("dry run flag lost")
	}
}

func TestLoadRejectsBadOverrides(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]*Config{
		"unknown_param.yaml": {Guess: "unit", Params: map[string]float64{"gravity": 9.81}},
		"bad_guess.yaml":     {Guess: "halton"},
		"no_steps.yaml":      {Guess: "unit", Params: map[string]float64{"num_steps": 0}},
	}
	for name, cfg := range tests {
		cfg.Variant = models.Baseline
		path := filepath.Join(dir, name)
		if err := Save(path, cfg); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
