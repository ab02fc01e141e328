// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Arena      ArenaConfig      `yaml:"arena"`
	Particle   ParticleConfig   `yaml:"particle"`
	Motion     MotionConfig     `yaml:"motion"`
	Population PopulationConfig `yaml:"population"`
	Spawn      SpawnConfig      `yaml:"spawn"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Bookmarks  BookmarksConfig  `yaml:"bookmarks"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ArenaConfig holds the fixed arena dimensions in arena units.
type ArenaConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ParticleConfig holds per-particle physical properties.
type ParticleConfig struct {
	Size float64 `yaml:"size"` // Diameter, used for collision and as a draw hint
}

// MotionConfig holds movement and perturbation parameters.
type MotionConfig struct {
	BaseSpeed     float64 `yaml:"base_speed"`     // Arena units per tick at scale 1
	SpeedScale    float64 `yaml:"speed_scale"`    // Default speed multiplier
	Jitter        float64 `yaml:"jitter"`         // Per-tick velocity noise amplitude (±, per axis)
	CollisionKick float64 `yaml:"collision_kick"` // Velocity noise amplitude after an impulse (±, per axis)
}

// PopulationConfig holds starting counts and the accepted range.
type PopulationConfig struct {
	Rock     int `yaml:"rock"`
	Paper    int `yaml:"paper"`
	Scissors int `yaml:"scissors"`
	MaxCount int `yaml:"max_count"` // Upper bound for any single starting count
}

// Region is an axis-aligned spawn rectangle.
type Region struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// SpawnConfig holds the seed region for each kind.
type SpawnConfig struct {
	Rock     Region `yaml:"rock"`
	Paper    Region `yaml:"paper"`
	Scissors Region `yaml:"scissors"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Ticks per stats window
	BookmarkHistorySize int `yaml:"bookmark_history_size"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	Takeover  TakeoverConfig  `yaml:"takeover"`
	Comeback  ComebackConfig  `yaml:"comeback"`
	Stalemate StalemateConfig `yaml:"stalemate"`
}

// TakeoverConfig triggers when one kind holds this share of the population.
type TakeoverConfig struct {
	Share float64 `yaml:"share"`
}

// ComebackConfig triggers when a kind that fell to MaxLow recovers by Multiplier.
type ComebackConfig struct {
	MaxLow     int `yaml:"max_low"`
	Multiplier int `yaml:"multiplier"`
}

// StalemateConfig triggers when all kinds coexist with low variance.
type StalemateConfig struct {
	CVThreshold   float64 `yaml:"cv_threshold"`
	StableWindows int     `yaml:"stable_windows"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	HalfSize float64 // Particle radius
	MinX     float64 // Wall bounds for particle centers
	MaxX     float64
	MinY     float64
	MaxY     float64
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

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.computeDerived()

	return cfg, nil
}

// Validate checks that the configuration describes a usable arena.
func (c *Config) Validate() error {
	var errs []error
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		errs = append(errs, fmt.Errorf("arena must be positive, got %gx%g", c.Arena.Width, c.Arena.Height))
	}
	if c.Particle.Size <= 0 {
		errs = append(errs, fmt.Errorf("particle size must be positive, got %g", c.Particle.Size))
	} else if c.Particle.Size >= c.Arena.Width || c.Particle.Size >= c.Arena.Height {
		errs = append(errs, fmt.Errorf("particle size %g does not fit arena", c.Particle.Size))
	}
	if c.Motion.BaseSpeed <= 0 {
		errs = append(errs, fmt.Errorf("base_speed must be positive, got %g", c.Motion.BaseSpeed))
	}
	if c.Motion.SpeedScale <= 0 {
		errs = append(errs, fmt.Errorf("speed_scale must be positive, got %g", c.Motion.SpeedScale))
	}
	if c.Motion.Jitter < 0 || c.Motion.CollisionKick < 0 {
		errs = append(errs, errors.New("jitter and collision_kick must not be negative"))
	}
	if c.Population.MaxCount < 1 {
		errs = append(errs, fmt.Errorf("max_count must be at least 1, got %d", c.Population.MaxCount))
	}
	for name, r := range map[string]Region{
		"rock":     c.Spawn.Rock,
		"paper":    c.Spawn.Paper,
		"scissors": c.Spawn.Scissors,
	} {
		if r.W < 0 || r.H < 0 || r.X < 0 || r.Y < 0 || r.X+r.W > c.Arena.Width || r.Y+r.H > c.Arena.Height {
			errs = append(errs, fmt.Errorf("spawn region %s outside arena", name))
		}
	}
	if c.Telemetry.StatsWindow < 1 {
		errs = append(errs, fmt.Errorf("stats_window must be at least 1 tick, got %d", c.Telemetry.StatsWindow))
	}
	if s := c.Bookmarks.Takeover.Share; !(s > 0 && s <= 1) {
		errs = append(errs, fmt.Errorf("takeover share must be in (0, 1], got %g", s))
	}
	if c.Bookmarks.Comeback.Multiplier < 2 {
		errs = append(errs, fmt.Errorf("comeback multiplier must be at least 2, got %d", c.Bookmarks.Comeback.Multiplier))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	half := c.Particle.Size / 2
	c.Derived.HalfSize = half
	c.Derived.MinX = half
	c.Derived.MaxX = c.Arena.Width - half
	c.Derived.MinY = half
	c.Derived.MaxY = c.Arena.Height - half
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
