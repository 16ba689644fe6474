package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/craftloop/internal/ir"
)

func TestScriptedAdapter_Combine(t *testing.T) {
	ctx := context.Background()
	a := NewScriptedAdapter(
		[]ir.Element{"Water", "Fire"},
		map[ir.Pair]ir.Element{{A: "Water", B: "Fire"}: "Steam"},
	)

	out, err := a.AttemptCombine(ctx, "Water", "Fire")
	require.NoError(t, err)
	assert.Equal(t, ir.NewElement("Steam"), out)

	out, err = a.AttemptCombine(ctx, "Fire", "Water")
	require.NoError(t, err)
	assert.Equal(t, ir.KnownElement("Steam"), out)

	out, err = a.AttemptCombine(ctx, "Fire", "Fire")
	require.NoError(t, err)
	assert.Equal(t, ir.NoEffect(), out)

	avail, err := a.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.Element{"Water", "Fire", "Steam"}, avail)

	assert.Equal(t, []ir.Pair{ir.Canon("Fire", "Water"), ir.Canon("Fire", "Water"), ir.Canon("Fire", "Fire")}, a.Combined())
}

func TestScriptedAdapter_Faults(t *testing.T) {
	ctx := context.Background()
	a := NewScriptedAdapter([]ir.Element{"A"}, nil)
	a.ListErrors = 1
	a.EmptyLists = 1
	a.CombineErrors = 1
	a.ResetFails = true
	a.FailurePairs[ir.Canon("A", "A")] = "element not visible"

	_, err := a.ListAvailable(ctx)
	assert.ErrorIs(t, err, ErrScripted)
	avail, err := a.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, avail)
	avail, err = a.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.Element{"A"}, avail)

	_, err = a.AttemptCombine(ctx, "A", "A")
	assert.ErrorIs(t, err, ErrScripted)
	out, err := a.AttemptCombine(ctx, "A", "A")
	require.NoError(t, err)
	assert.Equal(t, ir.AdapterFailure("element not visible"), out)

	ok, err := a.ResetWorkspace(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, a.CountCalls("ListAvailable"))
}
