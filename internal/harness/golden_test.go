package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_SteamToCloud(t *testing.T) {
	result, err := RunWithGolden(t, loadFixture(t, "steam_to_cloud"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_GoalFirst(t *testing.T) {
	s := loadFixture(t, "goal_first")
	result, err := Run(s)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, s, result))
}

func TestSnapshotMarshal(t *testing.T) {
	snap := TraceSnapshot{
		Scenario: "s",
		RunID:    "r",
		Trace: []TraceEvent{
			{Cycle: 1, Seq: 3, Tier: "explore", A: "R&D", B: "<x>", Outcome: "no_effect"},
		},
		Stop:   "exhausted",
		Cycles: 1,
	}
	data, err := snap.Marshal()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"scenario":"s","run_id":"r"}`, lines[0])
	assert.Equal(t, `{"cycle":1,"seq":3,"tier":"explore","a":"R&D","b":"<x>","outcome":"no_effect"}`, lines[1])
	assert.Equal(t, `{"stop":"exhausted","cycles":1,"reward":0}`, lines[2])
}
