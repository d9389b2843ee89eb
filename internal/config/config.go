package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dicesim/internal/experiment"
	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
)

const (
	DefaultSeed    = 1
	DefaultMaxIter = 100
	DefaultTol     = 1e-6
	DefaultGuess   = "unit"
	DefaultDataDir = "data"
)

type Config struct {
	Variant models.Variant     `yaml:"variant"`
	Seed    int64              `yaml:"seed"`
	Guess   string             `yaml:"guess"`
	Solver  SolverConfig       `yaml:"solver"`
	Scaling models.Scaling     `yaml:"scaling"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	DataDir string             `yaml:"data_dir"`
}

type SolverConfig struct {
	MaxIter int     `yaml:"max_iter"`
	Tol     float64 `yaml:"tol"`
	Step    float64 `yaml:"step"`
	Workers int     `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Variant: models.AlternateTemperature,
		Seed:    DefaultSeed,
		Guess:   DefaultGuess,
		Solver: SolverConfig{
			MaxIter: DefaultMaxIter,
			Tol:     DefaultTol,
			Step:    optim.DefaultStep,
		},
		Scaling: models.DefaultScaling(),
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the guess mode and parameter overrides.
func (c *Config) Validate() error {
	if _, err := optim.ParseGuess(c.Guess); err != nil {
		return err
	}
	_, err := c.ModelParams()
	return err
}

// ModelParams applies the overrides in Params to the default coefficients.
// Overrides are applied in name order.
func (c *Config) ModelParams() (models.Params, error) {
	p := models.DefaultParams()
	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.Set(name, c.Params[name]); err != nil {
			return p, err
		}
	}
	if p.NumSteps <= 0 {
		return p, fmt.Errorf("num_steps must be positive, got %d", p.NumSteps)
	}
	return p, nil
}

func (c *Config) SolverSettings() optim.Settings {
	return optim.Settings{
		MaxIter: c.Solver.MaxIter,
		Tol:     c.Solver.Tol,
		Step:    c.Solver.Step,
		Workers: c.Solver.Workers,
	}
}

// Experiment converts the file configuration into an experiment configuration.
func (c *Config) Experiment(dryRun bool) (experiment.Config, error) {
	params, err := c.ModelParams()
	if err != nil {
		return experiment.Config{}, err
	}
	guess, err := optim.ParseGuess(c.Guess)
	if err != nil {
		return experiment.Config{}, err
	}
	return experiment.Config{
		Variant: c.Variant,
		Params:  params,
		Scaling: c.Scaling,
		Seed:    c.Seed,
		Guess:   guess,
		Solver:  c.SolverSettings(),
		DryRun:  dryRun,
	}, nil
}
