package codec

import (
	"testing"

	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildState(t *testing.T, nodeOrder []string) *types.WarpStateV5 {
	t.Helper()
	s := types.NewWarpStateV5(types.VersionVector{"w1": 2, "w2": 1})
	for _, n := range nodeOrder {
		s.AliveNodes[types.NodeId(n)] = types.ElementView{Entries: []types.Dot{{Writer: "w1", Counter: 1}}}
	}
	k := types.MakeEdgeKey("x", "y", "link")
	s.AliveEdges[k] = types.ElementView{Entries: []types.Dot{{Writer: "w1", Counter: 2}}}
	s.Props[types.MakePropMapKey("x", "color")] = types.PropEntry{
		Value:  types.InlineString("red"),
		Winner: types.EventId{Lamport: 1, Writer: "w1"},
	}
	return s
}

func TestEncodeStateV5IsInsertionOrderInvariant(t *testing.T) {
	a := buildState(t, []string{"x", "y", "z"})
	b := buildState(t, []string{"z", "x", "y"})

	assert.Equal(t, EncodeStateV5(a), EncodeStateV5(b))
}

func TestComputeStateHashV5IsDeterministic(t *testing.T) {
	a := buildState(t, []string{"x", "y"})
	b := buildState(t, []string{"y", "x"})

	assert.Equal(t, ComputeStateHashV5(a), ComputeStateHashV5(b))
}

func TestComputeStateHashV5DiffersOnContentChange(t *testing.T) {
	a := buildState(t, []string{"x", "y"})
	b := buildState(t, []string{"x", "y", "z"})

	assert.NotEqual(t, ComputeStateHashV5(a), ComputeStateHashV5(b))
}

func TestEmptyStateHashIsFixed(t *testing.T) {
	empty := types.NewWarpStateV5(types.NewVersionVector())
	hash := ComputeStateHashV5(empty)
	require.Len(t, hash, 64)
	assert.Equal(t, hash, ComputeStateHashV5(types.NewWarpStateV5(types.NewVersionVector())))
}

func TestEncodeStateV5IgnoresFullyRemovedElements(t *testing.T) {
	withEmptySlice := buildState(t, []string{"x"})
	withEmptySlice.AliveNodes["ghost"] = types.ElementView{}

	withoutGhost := buildState(t, []string{"x"})

	assert.Equal(t, EncodeStateV5(withoutGhost), EncodeStateV5(withEmptySlice))
}

func TestEncodeStateV5HashesTombstones(t *testing.T) {
	withoutTombstone := buildState(t, []string{"x"})
	withTombstone := buildState(t, []string{"x"})
	view := withTombstone.AliveNodes["x"]
	view.Tombstones = []types.Dot{{Writer: "w1", Counter: 1}}
	withTombstone.AliveNodes["x"] = view

	assert.NotEqual(t, EncodeStateV5(withoutTombstone), EncodeStateV5(withTombstone))
	assert.NotEqual(t, ComputeStateHashV5(withoutTombstone), ComputeStateHashV5(withTombstone))
}

func TestDecodeStateV5RoundTripsTombstones(t *testing.T) {
	s := buildState(t, []string{"x"})
	view := s.AliveNodes["x"]
	view.Tombstones = []types.Dot{{Writer: "w1", Counter: 1}}
	s.AliveNodes["x"] = view

	decoded, err := DecodeStateV5(EncodeStateV5(s))
	require.NoError(t, err)
	assert.Equal(t, s.AliveNodes["x"].Tombstones, decoded.AliveNodes["x"].Tombstones)
	assert.False(t, decoded.NodeExists("x"))
}
