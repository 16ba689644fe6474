package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/selector"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDB, cfg.DB)
	assert.Equal(t, "exhaustive", cfg.Mode)
	assert.Equal(t, engine.DefaultRetryConfig(), cfg.Retry)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
max_cycles: 50
mode: random
random_seed: 9
rewards:
  goal_bonus: 25
retry:
  call_timeout: 2s
  max_backoff: 1s
goals:
  - category: Weather
    items: [Steam, Cloud]
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultDB, cfg.DB)
	assert.Equal(t, 50, cfg.MaxCycles)
	assert.Equal(t, int64(25), cfg.Rewards.GoalBonus)
	assert.Equal(t, int64(1), cfg.Rewards.DiscoveryBonus, "unset nested field keeps default")
	assert.Equal(t, 2*time.Second, cfg.Retry.CallTimeout)
	assert.Equal(t, time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, engine.DefaultRetryConfig().QueryRetries, cfg.Retry.QueryRetries)

	ec := cfg.Engine()
	assert.Equal(t, selector.ModeRandom, ec.Mode)
	assert.Equal(t, uint64(9), ec.RandomSeed)
	assert.Equal(t, 50, ec.MaxCycles)

	spec, err := cfg.GoalSpec()
	require.NoError(t, err)
	require.Len(t, spec.Categories(), 1)
	assert.Equal(t, []ir.Element{"Steam", "Cloud"}, spec.Categories()[0].Items)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "max_cycle: 3", "failed to parse YAML"},
		{"negative cycles", "max_cycles: -1", "max_cycles must be non-negative"},
		{"bad mode", "mode: greedy", "invalid exploration mode"},
		{"empty db", `db: ""`, "db is required"},
		{"negative reward", "rewards: {goal_bonus: -1}", "rewards must be non-negative"},
		{"zero timeout", "retry: {call_timeout: 0s}", "call_timeout must be positive"},
		{"no query retries", "retry: {query_retries: 0}", "query_retries at least 1"},
		{"inverted backoff", "retry: {initial_backoff: 10s, max_backoff: 1s}", "initial_backoff <= max_backoff"},
		{"bad duration", "retry: {call_timeout: soon}", "failed to parse YAML"},
		{"empty goal category", "goals: [{category: '', items: [A]}]", "goals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "craftloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: data/k.db\nworld: /abs/world.yaml\ngoals_file: goals.cue\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "k.db"), cfg.DB)
	assert.Equal(t, "/abs/world.yaml", cfg.World)
	assert.Equal(t, filepath.Join(dir, "goals.cue"), cfg.GoalsFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestGoalSpec_InlineItemsNormalized(t *testing.T) {
	cfg, err := Parse([]byte("goals:\n  - category: Weather\n    items: [\"Steam \", \" Cloud\"]\n"))
	require.NoError(t, err)

	spec, err := cfg.GoalSpec()
	require.NoError(t, err)
	assert.Equal(t, []ir.Element{"Steam", "Cloud"}, spec.Categories()[0].Items)
	_, ok := spec.Match("Steam")
	assert.True(t, ok)
}

func TestGoalSpec_CUEFileWins(t *testing.T) {
	dir := t.TempDir()
	cue := filepath.Join(dir, "goals.cue")
	require.NoError(t, os.WriteFile(cue, []byte(`goal: Metals: ["Metal"]`+"\n"), 0644))

	cfg := Default()
	cfg.GoalsFile = cue
	cfg.Goals = nil

	spec, err := cfg.GoalSpec()
	require.NoError(t, err)
	require.Len(t, spec.Categories(), 1)
	assert.Equal(t, "Metals", spec.Categories()[0].Name)
}

func TestGoalSpec_DefaultWhenUnset(t *testing.T) {
	spec, err := Default().GoalSpec()
	require.NoError(t, err)
	assert.Positive(t, spec.Len())
}
