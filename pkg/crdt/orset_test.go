package crdt

import (
	"testing"

	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/stretchr/testify/assert"
)

func dot(w string, c uint64) types.Dot {
	return types.Dot{Writer: types.WriterId(w), Counter: c}
}

func TestORSetAddThenExists(t *testing.T) {
	s := NewORSet[types.NodeId]()
	assert.False(t, s.Exists("n1"))
	s.Add("n1", dot("w1", 1))
	assert.True(t, s.Exists("n1"))
}

func TestORSetRemoveOnlyCitedDots(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1, d2 := dot("w1", 1), dot("w2", 1)
	s.Add("n1", d1)
	s.Add("n1", d2)

	s.Remove("n1", []types.Dot{d1})
	assert.True(t, s.Exists("n1"), "concurrent uncited add must survive")
	assert.ElementsMatch(t, []types.Dot{d2}, s.AliveDots("n1"))
}

func TestORSetRemoveAllDotsDeletesVisibility(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)
	s.Add("n1", d1)
	s.Remove("n1", []types.Dot{d1})
	assert.False(t, s.Exists("n1"))
}

func TestORSetRemoveCitingWrongElementIsNoOp(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)
	s.Add("n1", d1)
	// d1 was never added to n2, so citing it there must not tombstone it.
	s.Remove("n2", []types.Dot{d1})
	assert.True(t, s.Exists("n1"))
}

func TestORSetRemoveBeforeCorrespondingAddIsNoOp(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)
	s.Remove("n1", []types.Dot{d1}) // remove observed before add arrives at this element
	s.Add("n1", d1)
	assert.True(t, s.Exists("n1"), "citing a dot before it is in entries must not tombstone it")
}

func TestORSetRemoveIsIdempotent(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)
	s.Add("n1", d1)
	s.Remove("n1", []types.Dot{d1})
	s.Remove("n1", []types.Dot{d1})
	assert.False(t, s.Exists("n1"))
}

func TestORSetRemoveCitedResolvesOwnerWithoutExplicitKey(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)
	s.Add("n1", d1)

	s.RemoveCited([]types.Dot{d1})
	assert.False(t, s.Exists("n1"))
}

func TestORSetRemoveCitedSkipsUnknownDots(t *testing.T) {
	s := NewORSet[types.NodeId]()
	s.Add("n1", dot("w1", 1))

	s.RemoveCited([]types.Dot{dot("w2", 9)}) // never added anywhere
	assert.True(t, s.Exists("n1"))
}

// TestORSetRemoveCitedBeforeAddResolvesOnceOwnerIsKnown covers folding a
// RemoveCited before the Add of the dot it cites (e.g. a remove from one
// writer folded ahead of the add from another writer it targets). Unlike
// Remove with an explicit key, RemoveCited has no element to record the
// citation against yet, so it must defer rather than drop it, and the
// later Add must resolve it into a tombstone (§8 property 1, permutation
// invariance).
func TestORSetRemoveCitedBeforeAddResolvesOnceOwnerIsKnown(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)

	s.RemoveCited([]types.Dot{d1}) // owner not known yet
	assert.False(t, s.Exists("n1"))

	s.Add("n1", d1)
	assert.False(t, s.Exists("n1"), "the deferred citation must tombstone the dot once its owner is known")
}

func TestORSetMergeUnionsEntriesAndTombstones(t *testing.T) {
	a := NewORSet[types.NodeId]()
	b := NewORSet[types.NodeId]()

	d1, d2 := dot("w1", 1), dot("w2", 1)
	a.Add("n1", d1)
	b.Add("n1", d2)
	b.Remove("n1", []types.Dot{d2})

	a.Merge(b)
	assert.True(t, a.Exists("n1"))
	assert.ElementsMatch(t, []types.Dot{d1}, a.AliveDots("n1"))
}

func TestORSetMergeIsCommutative(t *testing.T) {
	d1, d2 := dot("w1", 1), dot("w2", 1)

	build := func() (ORSet[types.NodeId], ORSet[types.NodeId]) {
		a := NewORSet[types.NodeId]()
		a.Add("n1", d1)
		b := NewORSet[types.NodeId]()
		b.Add("n1", d2)
		return a, b
	}

	a1, b1 := build()
	a1.Merge(b1)

	b2, a2 := build()
	b2.Merge(a2)

	assert.ElementsMatch(t, a1.AliveDots("n1"), b2.AliveDots("n1"))
}

func TestORSetMergeIsIdempotent(t *testing.T) {
	a := NewORSet[types.NodeId]()
	a.Add("n1", dot("w1", 1))
	b := NewORSet[types.NodeId]()
	b.Add("n1", dot("w2", 1))

	a.Merge(b)
	before := append([]types.Dot(nil), a.AliveDots("n1")...)
	a.Merge(b)
	assert.ElementsMatch(t, before, a.AliveDots("n1"))
}

func TestORSetCompactPreservesVisibilityForUntombstonedDots(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1, d2 := dot("w1", 1), dot("w2", 1)
	s.Add("n1", d1)
	s.Add("n1", d2)
	s.Remove("n1", []types.Dot{d1})

	before := s.Exists("n1")
	s.Compact(types.VersionVector{"w1": 1, "w2": 1})
	assert.Equal(t, before, s.Exists("n1"))
	assert.ElementsMatch(t, []types.Dot{d2}, s.AliveDots("n1"))
}

func TestORSetCompactDropsTombstonedDotsCoveredByVV(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 1)
	s.Add("n1", d1)
	s.Remove("n1", []types.Dot{d1})

	s.Compact(types.VersionVector{"w1": 1})
	assert.False(t, s.Exists("n1"))
	_, hasEntries := s.Entries["n1"]
	assert.False(t, hasEntries, "emptied element should be dropped entirely")
}

func TestORSetCompactLeavesUncoveredTombstonesAlone(t *testing.T) {
	s := NewORSet[types.NodeId]()
	d1 := dot("w1", 5)
	s.Add("n1", d1)
	s.Remove("n1", []types.Dot{d1})

	// vv does not yet cover counter 5 for w1: compaction must not touch it.
	s.Compact(types.VersionVector{"w1": 1})
	_, hasEntries := s.Entries["n1"]
	assert.True(t, hasEntries)
}
