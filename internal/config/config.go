// Package config loads the craftloop run configuration.
//
// A config file is YAML. Every field is optional; missing fields keep the
// values from Default. Relative paths are resolved against the directory of
// the config file.
//
//	db: craftloop.db
//	world: worlds/elements.yaml
//	goals_file: goals.cue
//	max_cycles: 500
//	mode: exhaustive
//	rewards:
//	  discovery_bonus: 1
//	  goal_bonus: 10
//	retry:
//	  call_timeout: 10s
//	  call_retries: 3
//	  max_backoff: 5s
//	  query_retries: 5
//	goals:
//	  - category: Weather
//	    items: [Steam, Cloud, Rain]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/reward"
	"github.com/roach88/craftloop/internal/sandbox"
	"github.com/roach88/craftloop/internal/selector"
)

// DefaultDB is the store path used when none is configured.
const DefaultDB = "craftloop.db"

// Config is a run configuration.
type Config struct {
	// DB is the SQLite store path.
	DB string `yaml:"db"`

	// World is a sandbox world file. Empty means no environment is
	// configured and run refuses to start.
	World string `yaml:"world,omitempty"`

	// Faults injects sandbox failures. Meant for rehearsing recovery.
	Faults sandbox.Faults `yaml:"faults,omitempty"`

	// GoalsFile is a CUE goal file. It takes precedence over Goals.
	GoalsFile string `yaml:"goals_file,omitempty"`

	// Goals is an inline goal index in priority order.
	Goals []goals.Category `yaml:"goals,omitempty"`

	MaxCycles      int                `yaml:"max_cycles"`
	Mode           string             `yaml:"mode"`
	RandomSeed     uint64             `yaml:"random_seed,omitempty"`
	MaxRandomTries int                `yaml:"max_random_tries"`
	Rewards        reward.Config      `yaml:"rewards"`
	Retry          engine.RetryConfig `yaml:"retry"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DB:             DefaultDB,
		Mode:           selector.ModeExhaustive.String(),
		MaxRandomTries: selector.DefaultMaxRandomTries,
		Rewards:        reward.DefaultConfig(),
		Retry:          engine.DefaultRetryConfig(),
	}
}

// Load reads a config file over the defaults. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes config YAML over the defaults and validates the result.
// An empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.DB, &c.World, &c.GoalsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("db is required")
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative, got %d", c.MaxCycles)
	}
	if _, err := selector.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.MaxRandomTries < 0 {
		return fmt.Errorf("max_random_tries must be non-negative, got %d", c.MaxRandomTries)
	}
	if c.Rewards.DiscoveryBonus < 0 || c.Rewards.GoalBonus < 0 {
		return fmt.Errorf("rewards must be non-negative")
	}
	r := c.Retry
	if r.CallTimeout <= 0 {
		return fmt.Errorf("retry.call_timeout must be positive")
	}
	if r.CallRetries < 0 || r.QueryRetries < 1 {
		return fmt.Errorf("retry.call_retries must be non-negative and retry.query_retries at least 1")
	}
	if r.InitialBackoff <= 0 || r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("retry backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if len(c.Goals) > 0 {
		if _, err := goals.New(c.Goals); err != nil {
			return fmt.Errorf("goals: %w", err)
		}
	}
	return nil
}

// Engine converts the configuration to controller settings.
func (c *Config) Engine() engine.Config {
	mode, _ := selector.ParseMode(c.Mode)
	cfg := engine.DefaultConfig()
	cfg.Mode = mode
	cfg.MaxCycles = c.MaxCycles
	cfg.RandomSeed = c.RandomSeed
	cfg.MaxRandomTries = c.MaxRandomTries
	cfg.Rewards = c.Rewards
	cfg.Retry = c.Retry
	return cfg
}

// GoalSpec returns the goal index: the CUE file if set, else the inline
// goals, else the built-in list.
func (c *Config) GoalSpec() (*goals.Spec, error) {
	switch {
	case c.GoalsFile != "":
		return goals.LoadCUE(c.GoalsFile)
	case len(c.Goals) > 0:
		return goals.New(c.Goals)
	default:
		return goals.Default(), nil
	}
}
