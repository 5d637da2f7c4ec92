// Package crdt implements the pure, deterministic CRDT merge algorithms
// that WarpStateV5 is the materialized output of: an add-wins observed-
// remove set (ORSet) keyed by an arbitrary comparable element, and a
// last-writer-wins register resolved by EventId total order.
//
// Both types are free functions/methods over plain maps rather than a
// mutex-guarded service, matching the reducer's requirement that folding
// a patch sequence be pure and side-effect-free (§8 properties 1-3:
// commutative, associative, idempotent).
package crdt

import "github.com/cuemby/warpgraph/pkg/types"

type dotSet map[types.Dot]struct{}

// ORSet is an add-wins observed-remove set. Per element it keeps two
// dot-sets: Entries (every dot ever added) and Tombstones (every dot a
// remove has cited that was already present in Entries). An element
// exists iff Entries(e) \ Tombstones(e) is non-empty.
//
// A remove only tombstones the dots in the intersection of its cited
// dots with the element's current entries: citing a dot that was never
// added to this element is a no-op rather than a global tombstone, so a
// later, legitimate add under that same dot elsewhere is unaffected.
//
// ORSet is generic over the element key (NodeId, EdgeKey, ...) so the
// same algorithm backs both WarpStateV5.AliveNodes and .AliveEdges.
type ORSet[K comparable] struct {
	Entries    map[K]dotSet
	Tombstones map[K]dotSet

	// owner indexes which element a dot was added under, since a
	// NodeRemove/EdgeRemove op cites only dots, not the element they
	// target: a dot is added under exactly one element, so its owner
	// can always be recovered without scanning every element.
	owner map[types.Dot]K

	// pendingCites holds dots RemoveCited has seen before their owning
	// element was known. Add resolves a pending dot into a tombstone the
	// moment it learns that dot's owner, so RemoveCited and Add commute
	// regardless of which one a caller folds first within the same
	// batch (§8 property 1, permutation invariance): a remove is never
	// allowed to depend on having already observed its target's add.
	pendingCites dotSet
}

// NewORSet returns an empty set.
func NewORSet[K comparable]() ORSet[K] {
	return ORSet[K]{
		Entries:      make(map[K]dotSet),
		Tombstones:   make(map[K]dotSet),
		owner:        make(map[types.Dot]K),
		pendingCites: make(dotSet),
	}
}

// Exists reports whether key has at least one dot in Entries not also in
// Tombstones.
func (s ORSet[K]) Exists(key K) bool {
	return len(s.AliveDots(key)) > 0
}

// Add records dot as having added key. If a RemoveCited call already
// cited dot before its owner was known, the citation is resolved here
// into a tombstone, so a remove folded before its target's add still
// takes effect.
func (s ORSet[K]) Add(key K, dot types.Dot) {
	if s.Entries[key] == nil {
		s.Entries[key] = make(dotSet)
	}
	s.Entries[key][dot] = struct{}{}
	if s.owner != nil {
		s.owner[dot] = key
	}
	if _, cited := s.pendingCites[dot]; cited {
		if s.Tombstones[key] == nil {
			s.Tombstones[key] = make(dotSet)
		}
		s.Tombstones[key][dot] = struct{}{}
		delete(s.pendingCites, dot)
	}
}

// Remove tombstones exactly the dots in observed that are already present
// in key's entries. Citing a dot not (yet) in entries is a no-op for that
// dot: it is not recorded as a standing tombstone, so a legitimate
// concurrent add under that dot to this or another element is unaffected
// (§8 property 5, resurrection safety covers only *uncited* concurrent
// adds; this covers dots cited against the wrong element).
func (s ORSet[K]) Remove(key K, observed []types.Dot) {
	entries := s.Entries[key]
	if len(entries) == 0 {
		return
	}
	for _, d := range observed {
		if _, present := entries[d]; present {
			if s.Tombstones[key] == nil {
				s.Tombstones[key] = make(dotSet)
			}
			s.Tombstones[key][d] = struct{}{}
		}
	}
}

// RemoveCited tombstones each dot in observed under whichever element it
// was originally added to, resolved via the owner index built by Add. A
// dot with no known owner yet is recorded in pendingCites rather than
// dropped outright: if this dot's Add folds later in the same batch, it
// resolves the citation into a tombstone (see Add); if the add never
// arrives at all, the citation never resolves and the remove is
// permanently a no-op, exactly as if it had cited a dot that was never
// added anywhere (§8 property 5).
func (s ORSet[K]) RemoveCited(observed []types.Dot) {
	for _, d := range observed {
		key, ok := s.owner[d]
		if !ok {
			if s.pendingCites == nil {
				s.pendingCites = make(dotSet)
			}
			s.pendingCites[d] = struct{}{}
			continue
		}
		s.Remove(key, []types.Dot{d})
	}
}

// AliveDots returns the dots currently alive for key (entries minus
// tombstones), or nil if none.
func (s ORSet[K]) AliveDots(key K) []types.Dot {
	entries := s.Entries[key]
	if len(entries) == 0 {
		return nil
	}
	tomb := s.Tombstones[key]
	var out []types.Dot
	for d := range entries {
		if _, removed := tomb[d]; !removed {
			out = append(out, d)
		}
	}
	return out
}

// Merge folds other into s in place: entries and tombstones each union
// elementwise. Commutative, associative, and idempotent under re-merge of
// the same state (§8 properties 1-3).
func (s ORSet[K]) Merge(other ORSet[K]) {
	for key, dots := range other.Entries {
		for d := range dots {
			s.Add(key, d)
		}
	}
	for key, dots := range other.Tombstones {
		if s.Tombstones[key] == nil {
			s.Tombstones[key] = make(dotSet)
		}
		for d := range dots {
			s.Tombstones[key][d] = struct{}{}
		}
	}
}

// Snapshot materializes s into the WarpStateV5 storage shape: one
// types.ElementView per element that still has at least one entry dot,
// carrying both its entries and its tombstones so a later Join or
// Compact over the materialized state can still honor removes recorded
// before it was serialized (§3, WarpStateV5).
func (s ORSet[K]) Snapshot() map[K]types.ElementView {
	out := make(map[K]types.ElementView, len(s.Entries))
	for key, entries := range s.Entries {
		if len(entries) == 0 {
			continue
		}
		view := types.ElementView{Entries: dotsOf(entries)}
		if tomb := s.Tombstones[key]; len(tomb) > 0 {
			view.Tombstones = dotsOf(tomb)
		}
		out[key] = view
	}
	return out
}

func dotsOf(ds dotSet) []types.Dot {
	out := make([]types.Dot, 0, len(ds))
	for d := range ds {
		out = append(out, d)
	}
	return out
}

// LoadSnapshot rehydrates an ORSet from a materialized WarpStateV5 view,
// restoring both entries and tombstones, e.g. to continue reducing on
// top of an already-materialized state. Loading tombstones (not just
// surviving dots) is required for the result to join and compact
// correctly: a join against a peer that never observed the remove must
// still see the tombstone, not just silently keep whichever side had
// more entries.
func LoadSnapshot[K comparable](views map[K]types.ElementView) ORSet[K] {
	s := NewORSet[K]()
	for key, view := range views {
		for _, d := range view.Entries {
			s.Add(key, d)
		}
		if len(view.Tombstones) == 0 {
			continue
		}
		if s.Tombstones[key] == nil {
			s.Tombstones[key] = make(dotSet)
		}
		for _, d := range view.Tombstones {
			s.Tombstones[key][d] = struct{}{}
		}
	}
	return s
}

// Compact removes from Entries any dot that is both tombstoned and
// covered by vv, then drops any element left with empty Entries. Dots
// not yet tombstoned are never touched, so compaction cannot change
// which elements are visible (§8 property 3, compaction safety).
func (s ORSet[K]) Compact(vv types.VersionVector) {
	for key, entries := range s.Entries {
		tomb := s.Tombstones[key]
		for d := range entries {
			if _, removed := tomb[d]; removed && vv.Covers(d) {
				delete(entries, d)
				delete(tomb, d)
			}
		}
		if len(entries) == 0 {
			delete(s.Entries, key)
			delete(s.Tombstones, key)
		}
	}
}
