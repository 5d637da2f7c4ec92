package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeKeyRoundTrips(t *testing.T) {
	k := MakeEdgeKey("n1", "n2", "knows")
	from, to, label, ok := k.Split()
	require.True(t, ok)
	assert.Equal(t, NodeId("n1"), from)
	assert.Equal(t, NodeId("n2"), to)
	assert.Equal(t, EdgeLabel("knows"), label)
}

func TestEdgeKeySplitRejectsMalformedKey(t *testing.T) {
	_, _, _, ok := EdgeKey("no-delimiters-here").Split()
	assert.False(t, ok)
}

func TestEdgeKeyLabelMayContainDelimiterSafely(t *testing.T) {
	// A label containing the NUL delimiter itself still round-trips since
	// SplitN(..., 3) leaves the remainder in the third component.
	k := MakeEdgeKey("n1", "n2", "label\x00withtail")
	from, to, label, ok := k.Split()
	require.True(t, ok)
	assert.Equal(t, NodeId("n1"), from)
	assert.Equal(t, NodeId("n2"), to)
	assert.Equal(t, EdgeLabel("label\x00withtail"), label)
}

func TestPropMapKeyRoundTrips(t *testing.T) {
	k := MakePropMapKey("n1", "color")
	node, key, ok := k.Split()
	require.True(t, ok)
	assert.Equal(t, NodeId("n1"), node)
	assert.Equal(t, PropKey("color"), key)
}

func TestPropMapKeySplitRejectsMalformedKey(t *testing.T) {
	_, _, ok := PropMapKey("no-delimiter").Split()
	assert.False(t, ok)
}
