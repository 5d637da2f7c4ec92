package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/objectstore"
)

func TestStatusReflectsFreshnessAndCounts(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	h := openHandle(t, store, "g1", "w1")

	st, err := h.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, CachedStateNone, st.CachedState)

	_, err = h.Materialize(ctx, nil)
	require.NoError(t, err)
	st, err = h.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, CachedStateFresh, st.CachedState)

	_, err = h.CreatePatch().AddNode("n1").Commit(ctx)
	require.NoError(t, err)
	st, err = h.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, CachedStateStale, st.CachedState)
	assert.Equal(t, 1, st.PatchesSinceCkpt)
	assert.Equal(t, 1, st.WriterCount)
}
