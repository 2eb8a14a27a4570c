// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/segregation/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Agents    AgentsConfig    `yaml:"agents"`
	Run       RunConfig       `yaml:"run"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Bookmarks BookmarksConfig `yaml:"bookmarks"`
	Sweep     SweepConfig     `yaml:"sweep"`
}

// GridConfig holds grid initialization parameters.
type GridConfig struct {
	Size          int     `yaml:"size"`
	FractionEmpty float64 `yaml:"fraction_empty"` // Probability a cell starts empty
	FractionA     float64 `yaml:"fraction_a"`     // Share of occupied cells that start as type A
}

// AgentsConfig holds agent behavior parameters.
type AgentsConfig struct {
	Threshold float64 `yaml:"threshold"` // Minimum same-type neighbor fraction
	PerStep   int     `yaml:"per_step"`  // Cells sampled per tick
}

// RunConfig holds run loop parameters.
type RunConfig struct {
	MaxTicks int   `yaml:"max_ticks"`
	Seed     int64 `yaml:"seed"` // 0 = time-based
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Ticks per stats window
	BookmarkHistorySize int `yaml:"bookmark_history_size"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	SegregationJump SegregationJumpConfig `yaml:"segregation_jump"`
	Plateau         PlateauConfig         `yaml:"plateau"`
}

// SegregationJumpConfig holds segregation jump detection parameters.
type SegregationJumpConfig struct {
	Delta float64 `yaml:"delta"` // Rise over the rolling mean that triggers a bookmark
}

// PlateauConfig holds plateau detection parameters.
type PlateauConfig struct {
	Windows      int     `yaml:"windows"`
	StdThreshold float64 `yaml:"std_threshold"`
}

// SweepConfig holds threshold sweep parameters.
type SweepConfig struct {
	ThresholdMin float64 `yaml:"threshold_min"`
	ThresholdMax float64 `yaml:"threshold_max"`
	Steps        int     `yaml:"steps"`
	Seeds        int     `yaml:"seeds"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse merges data over the embedded defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Unmarshal into same struct - only overwrites fields present in data
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Params returns the model parameters described by the config.
func (c *Config) Params() systems.Params {
	return systems.Params{
		Size:          c.Grid.Size,
		FractionEmpty: c.Grid.FractionEmpty,
		FractionA:     c.Grid.FractionA,
		Threshold:     c.Agents.Threshold,
		AgentsPerStep: c.Agents.PerStep,
	}
}

// Validate checks the model parameters and the auxiliary sections.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Run.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("run.max_ticks %d must be >= 0", c.Run.MaxTicks))
	}
	if c.Telemetry.StatsWindow <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.stats_window %d must be positive", c.Telemetry.StatsWindow))
	}
	if c.Bookmarks.Plateau.Windows < 2 {
		errs = append(errs, fmt.Errorf("bookmarks.plateau.windows %d must be at least 2", c.Bookmarks.Plateau.Windows))
	}
	if c.Sweep.Steps < 1 {
		errs = append(errs, fmt.Errorf("sweep.steps %d must be positive", c.Sweep.Steps))
	}
	if c.Sweep.Seeds < 1 {
		errs = append(errs, fmt.Errorf("sweep.seeds %d must be positive", c.Sweep.Seeds))
	}
	if c.Sweep.ThresholdMin > c.Sweep.ThresholdMax {
		errs = append(errs, fmt.Errorf("sweep.threshold_min %v exceeds threshold_max %v", c.Sweep.ThresholdMin, c.Sweep.ThresholdMax))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
