package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/types"
)

// TestMigrateDropsDanglingProps implements the seed scenario S4 (original
// §8): a legacy state with one alive node, one tombstoned node, and a
// prop attached to each. After migration only the alive node and its
// prop survive.
func TestMigrateDropsDanglingProps(t *testing.T) {
	visibleKey := types.MakePropMapKey("visible", "k")
	deletedKey := types.MakePropMapKey("deleted", "k")

	legacy := LegacyStateV1{
		NodeAlive: map[types.NodeId]LegacyNodeRegister{
			"visible": {Value: true},
			"deleted": {Value: false},
		},
		Prop: map[types.PropMapKey]LegacyPropRegister{
			visibleKey: {Value: types.InlineString("v1")},
			deletedKey: {Value: types.InlineString("v2")},
		},
	}

	result, err := Migrate(legacy)
	require.NoError(t, err)

	assert.True(t, result.State.NodeExists("visible"))
	assert.False(t, result.State.NodeExists("deleted"))

	entry, ok := result.State.Props[visibleKey]
	require.True(t, ok)
	assert.True(t, entry.Value.Equal(types.InlineString("v1")))

	_, ok = result.State.Props[deletedKey]
	assert.False(t, ok, "prop on a dead node must not survive migration")
}

func TestMigrateEdges(t *testing.T) {
	legacy := LegacyStateV1{
		NodeAlive: map[types.NodeId]LegacyNodeRegister{
			"a": {Value: true},
			"b": {Value: true},
		},
		EdgeAlive: map[types.EdgeKey]LegacyNodeRegister{
			types.MakeEdgeKey("a", "b", "l"): {Value: true},
		},
	}

	result, err := Migrate(legacy)
	require.NoError(t, err)

	assert.True(t, result.State.EdgeExists(types.MakeEdgeKey("a", "b", "l")))
	assert.Equal(t, uint64(3), result.State.Frontier[MigrationWriterId])
}

func TestMigrateEmptyState(t *testing.T) {
	result, err := Migrate(LegacyStateV1{})
	require.NoError(t, err)
	assert.Empty(t, result.State.AliveNodes)
	assert.Empty(t, result.State.AliveEdges)
	assert.Empty(t, result.State.Props)
}
