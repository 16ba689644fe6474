package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/craftloop/internal/ir"
)

const minimalWorld = `
world:
  primitives: [Water, Fire]
  recipes:
    - {a: Water, b: Fire, result: Steam}
`

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "goal_first.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "goal_first", scenario.Name)
	assert.Equal(t, []string{"Water", "Fire"}, scenario.World.Primitives)
	assert.Len(t, scenario.World.Recipes, 2)
	require.Len(t, scenario.Goals, 1)
	assert.Equal(t, "Weather", scenario.Goals[0].Name)
	assert.Equal(t, []ir.Element{"Cloud"}, scenario.Goals[0].Items)
	assert.Equal(t, []string{"Steam"}, scenario.Seed.Unlocked)
	assert.Equal(t, []PairSpec{{A: "Water", B: "Fire"}}, scenario.Seed.Attempts)
	assert.Equal(t, 1, scenario.MaxCycles)
	assert.Len(t, scenario.Assertions, 4)
}

func TestLoadScenario_AllFixturesParse(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	content := `
name: typo
description: "assertion instead of assertions"` + minimalWorld + `
assertion:
  - type: stop
    state: exhausted
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    `description: d` + minimalWorld + "assertions: [{type: stop, state: exhausted}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    `name: n` + minimalWorld + "assertions: [{type: stop, state: exhausted}]",
			wantErr: "description is required",
		},
		{
			name:    "empty world",
			yaml:    "name: n\ndescription: d\nassertions: [{type: stop, state: exhausted}]",
			wantErr: "world",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d" + minimalWorld,
			wantErr: "assertions list is required",
		},
		{
			name:    "bad mode",
			yaml:    "name: n\ndescription: d\nmode: greedy" + minimalWorld + "assertions: [{type: stop, state: exhausted}]",
			wantErr: "invalid exploration mode",
		},
		{
			name:    "random without seed",
			yaml:    "name: n\ndescription: d\nmode: random" + minimalWorld + "assertions: [{type: stop, state: exhausted}]",
			wantErr: "random_seed is required",
		},
		{
			name:    "negative max cycles",
			yaml:    "name: n\ndescription: d\nmax_cycles: -1" + minimalWorld + "assertions: [{type: stop, state: exhausted}]",
			wantErr: "max_cycles must be non-negative",
		},
		{
			name:    "incomplete seed recipe",
			yaml:    "name: n\ndescription: d" + minimalWorld + "seed:\n  recipes: [{a: Water, b: Fire}]\nassertions: [{type: stop, state: exhausted}]",
			wantErr: "seed.recipes[0]",
		},
		{
			name:    "incomplete seed attempt",
			yaml:    "name: n\ndescription: d" + minimalWorld + "seed:\n  attempts: [{a: Water}]\nassertions: [{type: stop, state: exhausted}]",
			wantErr: "seed.attempts[0]",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d" + minimalWorld + "assertions: [{type: vibes}]",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "missing assertion type",
			yaml:    "name: n\ndescription: d" + minimalWorld + "assertions: [{state: exhausted}]",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown stop state",
			yaml:    "name: n\ndescription: d" + minimalWorld + "assertions: [{type: stop, state: bored}]",
			wantErr: `unknown stop state "bored"`,
		},
		{
			name:    "recipe without result",
			yaml:    "name: n\ndescription: d" + minimalWorld + "assertions: [{type: recipe, a: Water, b: Fire}]",
			wantErr: "a, b and result are required for recipe",
		},
		{
			name:    "discovered without elements",
			yaml:    "name: n\ndescription: d" + minimalWorld + "assertions: [{type: discovered_contains}]",
			wantErr: "elements list is required",
		},
		{
			name:    "negative attempts",
			yaml:    "name: n\ndescription: d" + minimalWorld + "assertions: [{type: attempts, count: -2}]",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
