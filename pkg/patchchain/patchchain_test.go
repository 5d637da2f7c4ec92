package patchchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

func patch(writer types.WriterId, lamport uint64, counter uint64) types.Patch {
	return types.Patch{
		Writer:  writer,
		Lamport: lamport,
		Context: types.NewVersionVector(),
		Ops:     []types.Op{types.NewNodeAdd(types.NodeId("n"), types.Dot{Writer: writer, Counter: counter})},
	}
}

func TestAppendAndWalk(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()

	c1, err := Append(ctx, store, "g1", "w1", patch("w1", 1, 1), nil)
	require.NoError(t, err)
	c2, err := Append(ctx, store, "g1", "w1", patch("w1", 2, 2), &c1)
	require.NoError(t, err)

	tip, found, err := Tip(ctx, store, "g1", "w1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, c2, tip)

	patches, err := WalkSince(ctx, store, tip, "")
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, uint64(1), patches[0].Lamport)
	assert.Equal(t, uint64(2), patches[1].Lamport)

	writers, err := ListWriters(ctx, store, "g1")
	require.NoError(t, err)
	assert.Equal(t, []types.WriterId{"w1"}, writers)
}

func TestAppendCASConflict(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()

	_, err := Append(ctx, store, "g1", "w1", patch("w1", 1, 1), nil)
	require.NoError(t, err)

	_, err = Append(ctx, store, "g1", "w1", patch("w1", 2, 2), nil)
	require.Error(t, err)
	assert.Equal(t, werrors.ERefConflict, werrors.CodeOf(err))
}

func TestWalkSinceExclusiveStop(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()

	c1, err := Append(ctx, store, "g1", "w1", patch("w1", 1, 1), nil)
	require.NoError(t, err)
	c2, err := Append(ctx, store, "g1", "w1", patch("w1", 2, 2), &c1)
	require.NoError(t, err)

	patches, err := WalkSince(ctx, store, c2, c1)
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, uint64(2), patches[0].Lamport)
}
