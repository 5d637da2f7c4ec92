package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWarpStateV5StartsEmpty(t *testing.T) {
	s := NewWarpStateV5(NewVersionVector())
	assert.Equal(t, 5, s.SchemaVersion)
	assert.False(t, s.NodeExists("n1"))
	assert.Nil(t, s.CoverageAnchor)
}

func TestNodeExistsReflectsAliveDots(t *testing.T) {
	s := NewWarpStateV5(NewVersionVector())
	s.AliveNodes["n1"] = ElementView{Entries: []Dot{{Writer: "w1", Counter: 1}}}
	assert.True(t, s.NodeExists("n1"))

	s.AliveNodes["n2"] = ElementView{}
	assert.False(t, s.NodeExists("n2"))
}

func TestEdgeExistsReflectsAliveDots(t *testing.T) {
	s := NewWarpStateV5(NewVersionVector())
	k := MakeEdgeKey("n1", "n2", "knows")
	assert.False(t, s.EdgeExists(k))

	s.AliveEdges[k] = ElementView{Entries: []Dot{{Writer: "w1", Counter: 1}}}
	assert.True(t, s.EdgeExists(k))
}

func TestNodeExistsHonorsTombstonedDots(t *testing.T) {
	s := NewWarpStateV5(NewVersionVector())
	d := Dot{Writer: "w1", Counter: 1}
	s.AliveNodes["n1"] = ElementView{Entries: []Dot{d}, Tombstones: []Dot{d}}
	assert.False(t, s.NodeExists("n1"))
	assert.Empty(t, s.AliveNodeDots("n1"))
}
