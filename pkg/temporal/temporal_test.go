package temporal

import (
	"context"
	"testing"

	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/stretchr/testify/require"
)

func appendPatch(t *testing.T, ctx context.Context, store objectstore.Port, graph string, writer types.WriterId, lamport uint64, ops ...types.Op) {
	t.Helper()
	tip, found, err := patchchain.Tip(ctx, store, graph, writer)
	require.NoError(t, err)
	var expected *string
	if found {
		expected = &tip
	}
	p := types.Patch{Writer: writer, Lamport: lamport, Context: types.NewVersionVector(), Ops: ops}
	_, err = patchchain.Append(ctx, store, graph, writer, p, expected)
	require.NoError(t, err)
}

func TestEventuallyFindsNodeAddedLater(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	const graph = "g1"

	appendPatch(t, ctx, store, graph, "A", 1, types.NewNodeAdd("x", types.Dot{Writer: "A", Counter: 1}))
	appendPatch(t, ctx, store, graph, "A", 2,
		types.NewPropSet("x", "color", types.InlineString("red")))

	ok, err := Eventually(ctx, store, graph, "x", func(s Snapshot) bool {
		if !s.Exists {
			return false
		}
		v, has := s.Props["color"]
		return has && v.Kind == types.ValueKindInline && v.Str == "red"
	}, Options{})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAlwaysFailsOnceNodeRemoved(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	const graph = "g2"

	appendPatch(t, ctx, store, graph, "A", 1, types.NewNodeAdd("z", types.Dot{Writer: "A", Counter: 1}))
	appendPatch(t, ctx, store, graph, "A", 2, types.NewNodeRemove([]types.Dot{{Writer: "A", Counter: 1}}))

	ok, err := Always(ctx, store, graph, "z", func(s Snapshot) bool {
		return s.Exists
	}, Options{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAlwaysFalseWhenNoTickTouchesNode(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	const graph = "g3"

	appendPatch(t, ctx, store, graph, "A", 1, types.NewNodeAdd("x", types.Dot{Writer: "A", Counter: 1}))

	ok, err := Always(ctx, store, graph, "never-touched", func(Snapshot) bool { return true }, Options{})
	require.NoError(t, err)
	require.False(t, ok)
}
