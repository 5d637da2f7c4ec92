package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

func TestQueryRequiresMaterializedState(t *testing.T) {
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.NodeExists("n1")
	require.Error(t, err)
	assert.Equal(t, werrors.ENoState, werrors.CodeOf(err))
}

func TestNeighborsAndTraverseFollowVisibleEdges(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.Materialize(ctx, nil)
	require.NoError(t, err)
	_, err = h.CreatePatch().
		AddNode("a").AddNode("b").AddNode("c").
		AddEdge("a", "b", "link").
		AddEdge("b", "c", "link").
		Commit(ctx)
	require.NoError(t, err)
	_, err = h.Materialize(ctx, nil)
	require.NoError(t, err)

	exists, err := h.NodeExists("a")
	require.NoError(t, err)
	assert.True(t, exists)

	neighbors, err := h.Neighbors("a")
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, types.NodeId("b"), neighbors[0].Node)

	order, err := h.Traverse("a", 0)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeId{"a", "b", "c"}, order)
}

func TestTraverseStopsAtRemovedEndpoint(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	_, err := h.Materialize(ctx, nil)
	require.NoError(t, err)
	_, err = h.CreatePatch().AddNode("a").AddNode("b").AddEdge("a", "b", "link").Commit(ctx)
	require.NoError(t, err)
	_, err = h.Materialize(ctx, nil)
	require.NoError(t, err)

	builder := h.CreatePatch()
	require.NoError(t, builder.RemoveNode("b"))
	_, err = builder.Commit(ctx)
	require.NoError(t, err)
	_, err = h.Materialize(ctx, nil)
	require.NoError(t, err)

	order, err := h.Traverse("a", 0)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeId{"a"}, order)
}
