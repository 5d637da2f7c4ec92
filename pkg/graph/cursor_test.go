package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/objectstore"
)

func TestSetCursorBoundsMaterialize(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.Materialize(ctx, nil)
	require.NoError(t, err)
	_, err = h.CreatePatch().AddNode("n1").Commit(ctx)
	require.NoError(t, err)
	_, err = h.CreatePatch().AddNode("n2").Commit(ctx)
	require.NoError(t, err)

	require.NoError(t, h.SetCursor(ctx, 1))
	state, err := h.Materialize(ctx, nil)
	require.NoError(t, err)
	assert.True(t, state.NodeExists("n1"))
	assert.False(t, state.NodeExists("n2"))

	tick, active := h.ActiveCursor()
	assert.True(t, active)
	assert.Equal(t, uint64(1), tick)

	require.NoError(t, h.ClearCursor(ctx))
	_, active = h.ActiveCursor()
	assert.False(t, active)

	state, err = h.Materialize(ctx, nil)
	require.NoError(t, err)
	assert.True(t, state.NodeExists("n2"))
}

func TestSaveLoadDropListCursors(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.Materialize(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, h.SetCursor(ctx, 5))
	require.NoError(t, h.SaveCursor(ctx, "milestone"))

	require.NoError(t, h.ClearCursor(ctx))
	_, active := h.ActiveCursor()
	require.False(t, active)

	names, err := h.ListCursors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"milestone"}, names)

	require.NoError(t, h.LoadCursor(ctx, "milestone"))
	tick, active := h.ActiveCursor()
	require.True(t, active)
	assert.Equal(t, uint64(5), tick)

	require.NoError(t, h.DropCursor(ctx, "milestone"))
	names, err = h.ListCursors(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSaveCursorRequiresActiveCursor(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	err := h.SaveCursor(ctx, "x")
	require.Error(t, err)
}

func TestLoadCursorMissingNameFails(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	err := h.LoadCursor(ctx, "does-not-exist")
	require.Error(t, err)
}
