package types

// ElementView is the materialized view of one ORSet element: every dot
// that has ever asserted it (Entries) and every dot a remove has
// tombstoned (Tombstones). A materialized WarpStateV5 must carry both,
// not just the surviving dots, so that join(A, B) can still union
// tombstones once A or B has already been folded down to a single
// snapshot, and so compact(vv) has something to drop (§3, WarpStateV5:
// "each element carries the set of dots that asserted it and the set of
// tombstoned dots").
type ElementView struct {
	Entries    []Dot
	Tombstones []Dot
}

// Alive reports whether this element has at least one entry dot that is
// not also tombstoned.
func (v ElementView) Alive() bool {
	return len(v.AliveDots()) > 0
}

// AliveDots returns Entries minus Tombstones.
func (v ElementView) AliveDots() []Dot {
	if len(v.Entries) == 0 {
		return nil
	}
	if len(v.Tombstones) == 0 {
		return append([]Dot(nil), v.Entries...)
	}
	tomb := make(map[Dot]struct{}, len(v.Tombstones))
	for _, d := range v.Tombstones {
		tomb[d] = struct{}{}
	}
	var out []Dot
	for _, d := range v.Entries {
		if _, removed := tomb[d]; !removed {
			out = append(out, d)
		}
	}
	return out
}

// WarpStateV5 is the materialized graph state produced by reducing a
// causally-ordered sequence of patches. The ORSet/LWWRegister algorithms
// that maintain AliveNodes/AliveEdges/Props live in pkg/crdt; this type
// only fixes the shape the reducer folds into and the serializer walks,
// so pkg/types stays free of reduction logic.
//
// The schema version is fixed at 5 for the lifetime of this format; a
// schema-1 (legacy LWW-only, no ORSet tombstone tracking) document must
// go through pkg/migration before it can be loaded as a WarpStateV5.
type WarpStateV5 struct {
	SchemaVersion int

	// Frontier is the version vector this state has fully incorporated:
	// every dot with Writer/Counter covered by Frontier has been reduced
	// into AliveNodes/AliveEdges/Props (or their tombstone sets).
	Frontier VersionVector

	// AliveNodes/AliveEdges are materialized ORSet views, keyed
	// canonically: each element's full entry set and its tombstone set,
	// not just whichever dots currently survive. Carrying the
	// tombstones forward is what lets pkg/reducer.Join and ORSet.Compact
	// keep honoring removes recorded before this state was materialized.
	AliveNodes map[NodeId]ElementView
	AliveEdges map[EdgeKey]ElementView

	// Props is the materialized LWW register view: the winning value and
	// the EventId that won it, per (node, key).
	Props map[PropMapKey]PropEntry

	// CoverageAnchor, when the state derives from a checkpoint, names the
	// checkpoint digest the reducer used as its starting point; nil for a
	// state reduced from genesis.
	CoverageAnchor *string
}

// PropEntry is one LWW register slot: the value currently winning and the
// EventId of the write that produced it.
type PropEntry struct {
	Value  Value
	Winner EventId
}

// NodeExists reports whether node has at least one surviving dot.
func (s *WarpStateV5) NodeExists(node NodeId) bool {
	return s.AliveNodes[node].Alive()
}

// EdgeExists reports whether the edge keyed by k has at least one
// surviving dot.
func (s *WarpStateV5) EdgeExists(k EdgeKey) bool {
	return s.AliveEdges[k].Alive()
}

// AliveNodeDots returns the surviving dots for node (Entries minus
// Tombstones), e.g. the dots a NodeRemove op must cite to remove it.
func (s *WarpStateV5) AliveNodeDots(node NodeId) []Dot {
	return s.AliveNodes[node].AliveDots()
}

// AliveEdgeDots returns the surviving dots for the edge keyed by k.
func (s *WarpStateV5) AliveEdgeDots(k EdgeKey) []Dot {
	return s.AliveEdges[k].AliveDots()
}

// NewWarpStateV5 returns an empty state at the given frontier (typically
// an empty VersionVector for a genesis state).
func NewWarpStateV5(frontier VersionVector) *WarpStateV5 {
	return &WarpStateV5{
		SchemaVersion: 5,
		Frontier:      frontier,
		AliveNodes:    make(map[NodeId]ElementView),
		AliveEdges:    make(map[EdgeKey]ElementView),
		Props:         make(map[PropMapKey]PropEntry),
	}
}
