package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/store"
)

var testWorld = filepath.Join("testdata", "world.yaml")

func TestRun_ToExhaustion(t *testing.T) {
	db := filepath.Join(t.TempDir(), "k.db")

	out, _, code := execute(t, "run", "--db", db, "--world", testWorld, "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var sum engine.Summary
	resp := decodeData(t, out, &sum)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "exhausted", sum.StopReason)
	assert.Equal(t, 10, sum.Cycles)
	assert.Equal(t, []ir.Element{"Steam", "Cloud"}, sum.NewElements)
	assert.Equal(t, int64(2), sum.RewardGained, "default goals do not list Steam or Cloud")
}

func TestRun_TextOutput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "k.db")

	out, stderr, code := execute(t, "run", "--db", db, "--world", testWorld, "--goals", filepath.Join("testdata", "goals.cue"), "-v")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, out, "stopped: exhausted")
	assert.Contains(t, out, "Cycles:        10")
	assert.Contains(t, out, "Goals reached: Steam, Cloud")
	assert.Contains(t, stderr, "[1] explore Fire + Water -> new_element Steam (+11) goal:Heat")
}

func TestRun_ResumeAcrossInvocations(t *testing.T) {
	db := filepath.Join(t.TempDir(), "k.db")

	out, _, code := execute(t, "run", "--db", db, "--world", testWorld, "--max-cycles", "3", "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var first engine.Summary
	decodeData(t, out, &first)
	assert.Equal(t, "cycle_limit", first.StopReason)
	assert.Equal(t, 3, first.Cycles)

	out, _, code = execute(t, "run", "--db", db, "--world", testWorld, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var second engine.Summary
	decodeData(t, out, &second)
	assert.Equal(t, "exhausted", second.StopReason)
	assert.Equal(t, 7, second.Cycles)
	assert.Equal(t, first.FinishedSeq, second.StartedSeq)
	assert.Empty(t, second.NewElements, "everything new was found in the first run")

	out, _, code = execute(t, "status", "--db", db, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var status StatusResult
	decodeData(t, out, &status)
	assert.Equal(t, int64(10), status.Stats.Attempts)
	assert.Equal(t, int64(2), status.Stats.Runs)
	require.Len(t, status.Runs, 2)
	assert.Equal(t, "exhausted", status.Runs[0].StopReason)
	assert.Equal(t, int64(7), status.Runs[0].Cycles)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	worldAbs, err := filepath.Abs(testWorld)
	require.NoError(t, err)
	cfg := "db: k.db\nworld: " + worldAbs + "\nmax_cycles: 2\nmode: random\nrandom_seed: 5\n"
	cfgPath := filepath.Join(dir, "craftloop.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, _, code := execute(t, "run", "--config", cfgPath, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var sum engine.Summary
	decodeData(t, out, &sum)
	assert.Equal(t, 2, sum.Cycles)

	_, err = os.Stat(filepath.Join(dir, "k.db"))
	assert.NoError(t, err, "db path is relative to the config file")

	// A flag overrides the file.
	out, _, code = execute(t, "run", "--config", cfgPath, "--max-cycles", "1", "--format", "json")
	require.Equal(t, ExitSuccess, code)
	decodeData(t, out, &sum)
	assert.Equal(t, 1, sum.Cycles)
}

func TestRun_EmptyWorkspaceEndsCleanly(t *testing.T) {
	dir := t.TempDir()
	worldAbs, err := filepath.Abs(testWorld)
	require.NoError(t, err)
	cfg := "db: k.db\nworld: " + worldAbs + "\nfaults:\n  empty_queries: 1000\n" +
		"retry:\n  initial_backoff: 1ms\n  max_backoff: 1ms\n  query_retries: 2\n"
	cfgPath := filepath.Join(dir, "craftloop.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, _, code := execute(t, "run", "--config", cfgPath, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var sum engine.Summary
	decodeData(t, out, &sum)
	assert.Equal(t, "exhausted", sum.StopReason)
	assert.Equal(t, 0, sum.Cycles)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "k.db")
	badCfg := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badCfg, []byte("max_cycle: 1\n"), 0644))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no world", []string{"run", "--db", db}, "no world configured"},
		{"missing world", []string{"run", "--db", db, "--world", filepath.Join(dir, "nope.yaml")}, "failed to load world"},
		{"bad config", []string{"run", "--db", db, "--config", badCfg}, "failed to load config"},
		{"negative cycles", []string{"run", "--db", db, "--world", testWorld, "--max-cycles", "-1"}, "invalid configuration"},
		{"missing goals", []string{"run", "--db", db, "--world", testWorld, "--goals", filepath.Join(dir, "nope.cue")}, "failed to load goals"},
		{"positional arg", []string{"run", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := execute(t, tt.args...)
			assert.NotEqual(t, ExitSuccess, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestStatus_MissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing.db")

	_, stderr, code := execute(t, "status", "--db", db)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "database not found")
	_, err := os.Stat(db)
	assert.True(t, os.IsNotExist(err), "status must not create a database")
}

func TestStatus_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "k.db")
	_, _, code := execute(t, "run", "--db", db, "--world", testWorld)
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, "status", "--db", db)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Recipes:        2")
	assert.Contains(t, out, "Attempts:       10")
	assert.Contains(t, out, "Recent runs:")
	assert.Contains(t, out, "exhausted")
}

func TestGoals(t *testing.T) {
	db := filepath.Join(t.TempDir(), "k.db")
	goalFile := filepath.Join("testdata", "goals.cue")
	_, _, code := execute(t, "run", "--db", db, "--world", testWorld, "--goals", goalFile)
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, "goals", "--db", db, "--goals", goalFile, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var result GoalsResult
	decodeData(t, out, &result)
	assert.Equal(t, 2, result.Done)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, []goals.CategoryProgress{
		{Category: "Weather", Achieved: []ir.Element{"Cloud"}, Remaining: []ir.Element{"Rain"}},
		{Category: "Heat", Achieved: []ir.Element{"Steam"}, Remaining: []ir.Element{}},
	}, result.Categories)

	out, _, code = execute(t, "goals", "--db", db, "--goals", goalFile)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "  Weather (1/2)")
	assert.Contains(t, out, "missing: Rain")
	assert.Contains(t, out, "✓ Heat (1/1)")
	assert.Contains(t, out, "2 of 3 goal items discovered")
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	docs := filepath.Join(dir, "docs")

	_, _, code := execute(t, "run", "--db", src, "--world", testWorld)
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, "export", "--db", src, "--out", docs, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var exported ExportResult
	decodeData(t, out, &exported)
	assert.Equal(t, 2, exported.Recipes)
	assert.Equal(t, 4, exported.Discovered)
	assert.Equal(t, 10, exported.Attempts)

	out, _, code = execute(t, "import", "--db", dst,
		"--knowledge", filepath.Join(docs, KnowledgeFile),
		"--progress", filepath.Join(docs, ProgressFile),
		"--format", "json")
	require.Equal(t, ExitSuccess, code)
	var stats store.ImportStats
	decodeData(t, out, &stats)
	assert.Equal(t, store.ImportStats{Recipes: 2, Attempts: 10, Discoveries: 4}, stats)

	// Exporting the copy yields byte-identical documents.
	again := filepath.Join(dir, "again")
	_, _, code = execute(t, "export", "--db", dst, "--out", again)
	require.Equal(t, ExitSuccess, code)
	for _, name := range []string{KnowledgeFile, ProgressFile} {
		want, err := os.ReadFile(filepath.Join(docs, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(again, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}

	// A second import changes nothing.
	out, _, code = execute(t, "import", "--db", dst, "--knowledge", filepath.Join(docs, KnowledgeFile), "--format", "json")
	require.Equal(t, ExitSuccess, code)
	decodeData(t, out, &stats)
	assert.Equal(t, store.ImportStats{}, stats)
}

func TestImport_LegacyFiles(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "k.db")
	library := filepath.Join(dir, "crafting_library.json")
	state := filepath.Join(dir, "game_state.json")
	require.NoError(t, os.WriteFile(library, []byte(`{"Water,Fire": "Steam", "Steam,Water": "Cloud"}`), 0644))
	require.NoError(t, os.WriteFile(state, []byte(`{"discovered_items": ["Water", "Fire", "Steam"], "crafted_combinations": [["Water", "Fire"]]}`), 0644))

	out, _, code := execute(t, "import", "--db", db, "--knowledge", library, "--progress", state)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Imported 2 recipes (0 conflicts), 1 attempts, 4 discoveries")

	// The imported recipe for Cloud is replayed first, and (Fire, Water)
	// never. Cloud was already known from the library, so it earns nothing.
	out, stderr, code := execute(t, "run", "--db", db, "--world", testWorld, "--max-cycles", "1", "--format", "json", "-v")
	require.Equal(t, ExitSuccess, code)
	var sum engine.Summary
	decodeData(t, out, &sum)
	assert.Equal(t, 1, sum.Cycles)
	assert.Empty(t, sum.NewElements)
	assert.Equal(t, int64(0), sum.RewardGained)
	assert.Contains(t, stderr, "[1] replay Steam + Water -> known_element Cloud")
}

func TestImport_Errors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "k.db")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"WaterFire": "Steam"}`), 0644))

	_, stderr, code := execute(t, "import", "--db", db)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "nothing to import")

	_, stderr, code = execute(t, "import", "--db", db, "--knowledge", bad)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid knowledge document")

	_, stderr, code = execute(t, "import", "--db", db, "--progress", filepath.Join(dir, "missing.json"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "failed to open progress document")
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "craftloop.log")

	_, _, code := execute(t, "run", "--db", filepath.Join(dir, "k.db"), "--world", testWorld, "--log-file", logPath)
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "discovery starting")
	assert.Contains(t, string(data), "component=engine")
}
