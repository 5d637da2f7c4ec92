package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeVVTakesPointwiseMax(t *testing.T) {
	a := VersionVector{"w1": 3, "w2": 1}
	b := VersionVector{"w1": 2, "w3": 5}

	merged := MergeVV(a, b)
	assert.Equal(t, VersionVector{"w1": 3, "w2": 1, "w3": 5}, merged)

	// inputs untouched
	assert.Equal(t, uint64(3), a["w1"])
	assert.Equal(t, uint64(2), b["w1"])
}

func TestMergeVVIsCommutative(t *testing.T) {
	a := VersionVector{"w1": 3, "w2": 1}
	b := VersionVector{"w1": 2, "w3": 5}
	assert.Equal(t, MergeVV(a, b), MergeVV(b, a))
}

func TestCoversAndObserveDot(t *testing.T) {
	vv := NewVersionVector()
	d := Dot{Writer: "w1", Counter: 4}
	assert.False(t, vv.Covers(d))

	vv.ObserveDot(d)
	assert.True(t, vv.Covers(d))
	assert.True(t, vv.Covers(Dot{Writer: "w1", Counter: 2}))
	assert.False(t, vv.Covers(Dot{Writer: "w1", Counter: 5}))
}

func TestDominates(t *testing.T) {
	superset := VersionVector{"w1": 5, "w2": 2}
	subset := VersionVector{"w1": 3}
	assert.True(t, superset.Dominates(subset))
	assert.False(t, subset.Dominates(superset))
}

func TestSortedWritersIsDeterministic(t *testing.T) {
	vv := VersionVector{"w3": 1, "w1": 2, "w2": 3}
	assert.Equal(t, []WriterId{"w1", "w2", "w3"}, vv.SortedWriters())
}

func TestCloneIsIndependent(t *testing.T) {
	vv := VersionVector{"w1": 1}
	clone := vv.Clone()
	clone.Increment("w1")
	assert.Equal(t, uint64(1), vv["w1"])
	assert.Equal(t, uint64(2), clone["w1"])
}
