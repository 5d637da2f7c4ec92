package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

func TestRunGCRequiresMaterializedState(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.RunGC(ctx)
	require.Error(t, err)
	assert.Equal(t, werrors.ENoState, werrors.CodeOf(err))
}

func TestRunGCCompactsTombstonedDotsBelowFrontier(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.Materialize(ctx, nil)
	require.NoError(t, err)
	_, err = h.CreatePatch().AddNode("n1").Commit(ctx)
	require.NoError(t, err)
	_, err = h.Materialize(ctx, nil)
	require.NoError(t, err)

	builder := h.CreatePatch()
	require.NoError(t, builder.RemoveNode("n1"))
	_, err = builder.Commit(ctx)
	require.NoError(t, err)
	_, err = h.Materialize(ctx, nil)
	require.NoError(t, err)

	result, err := h.RunGC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NodesAfter)

	state, err := h.Materialize(ctx, nil)
	require.NoError(t, err)
	assert.False(t, state.NodeExists("n1"))
}
