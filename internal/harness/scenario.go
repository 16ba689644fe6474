package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/sandbox"
	"github.com/roach88/craftloop/internal/selector"
)

// Scenario defines one end-to-end discovery run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// World is the sandbox recipe table.
	World sandbox.WorldSpec `yaml:"world"`

	// Faults injects adapter failures.
	Faults sandbox.Faults `yaml:"faults,omitempty"`

	// Goals is the goal index in priority order. Empty means no goals.
	Goals []goals.Category `yaml:"goals,omitempty"`

	// Seed is knowledge that exists before the run, as if persisted by an
	// earlier one.
	Seed Seed `yaml:"seed,omitempty"`

	// MaxCycles bounds the run. Zero means run to exhaustion.
	MaxCycles int `yaml:"max_cycles,omitempty"`

	// Mode is "exhaustive" (default) or "random".
	Mode string `yaml:"mode,omitempty"`

	// RandomSeed seeds random mode. Required when Mode is random so traces
	// are reproducible.
	RandomSeed uint64 `yaml:"random_seed,omitempty"`

	// Assertions validate the final knowledge.
	Assertions []Assertion `yaml:"assertions"`
}

// PairSpec names an unordered pair.
type PairSpec struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Seed is pre-existing knowledge.
type Seed struct {
	// Discovered elements are in the discovered set before the run.
	Discovered []string `yaml:"discovered,omitempty"`

	// Recipes are known before the run.
	Recipes []sandbox.RecipeSpec `yaml:"recipes,omitempty"`

	// Attempts are already in the ledger.
	Attempts []PairSpec `yaml:"attempts,omitempty"`

	// Unlocked elements are available in the sandbox from the start, as if
	// the workspace kept them from an earlier session.
	Unlocked []string `yaml:"unlocked,omitempty"`
}

// Assertion validates the final knowledge or the run summary.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Elements are checked by discovered_contains and achieved.
	Elements []string `yaml:"elements,omitempty"`

	// A, B and Result are checked by recipe.
	A      string `yaml:"a,omitempty"`
	B      string `yaml:"b,omitempty"`
	Result string `yaml:"result,omitempty"`

	// Total is checked by reward.
	Total int64 `yaml:"total,omitempty"`

	// State is checked by stop.
	State string `yaml:"state,omitempty"`

	// Count is checked by attempts.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertDiscoveredContains = "discovered_contains"
	AssertAchieved           = "achieved"
	AssertRecipe             = "recipe"
	AssertReward             = "reward"
	AssertStop               = "stop"
	AssertAttempts           = "attempts"
)

var validStops = map[string]bool{
	"exhausted":   true,
	"cycle_limit": true,
	"interrupted": true,
	"failed":      true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := sandbox.NewWorld(s.World); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if len(s.Goals) > 0 {
		if _, err := goals.New(s.Goals); err != nil {
			return fmt.Errorf("goals: %w", err)
		}
	}
	if s.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative")
	}
	mode, err := selector.ParseMode(s.Mode)
	if err != nil {
		return err
	}
	if mode == selector.ModeRandom && s.RandomSeed == 0 {
		return fmt.Errorf("random_seed is required in random mode")
	}
	for i, r := range s.Seed.Recipes {
		if r.A == "" || r.B == "" || r.Result == "" {
			return fmt.Errorf("seed.recipes[%d]: a, b and result are required", i)
		}
	}
	for i, p := range s.Seed.Attempts {
		if p.A == "" || p.B == "" {
			return fmt.Errorf("seed.attempts[%d]: a and b are required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDiscoveredContains, AssertAchieved:
		if len(a.Elements) == 0 {
			return fmt.Errorf("assertions[%d]: elements list is required for %s", index, a.Type)
		}
	case AssertRecipe:
		if a.A == "" || a.B == "" || a.Result == "" {
			return fmt.Errorf("assertions[%d]: a, b and result are required for recipe", index)
		}
	case AssertReward:
		if a.Total < 0 {
			return fmt.Errorf("assertions[%d]: total must be non-negative for reward", index)
		}
	case AssertStop:
		if !validStops[a.State] {
			return fmt.Errorf("assertions[%d]: unknown stop state %q", index, a.State)
		}
	case AssertAttempts:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for attempts", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
