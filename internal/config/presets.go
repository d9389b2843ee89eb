package config

import (
	"maps"
	"sort"

	"github.com/san-kum/dicesim/internal/models"
)

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

var Presets = map[string]*Config{
	"ikefuji": preset(func(c *Config) {}),
	"inertial": preset(func(c *Config) {
		c.Variant = models.Baseline
	}),
	"scaled": preset(func(c *Config) {
		c.Scaling.Enabled = true
	}),
	"quick": preset(func(c *Config) {
		c.Params = map[string]float64{"num_steps": 20}
		c.Solver.MaxIter = 30
		c.Solver.Tol = 1e-4
	}),
	"negative-emissions": preset(func(c *Config) {
		c.Params = map[string]float64{"abatement_upper": 1.2}
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	cp.Params = maps.Clone(cfg.Params)
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
