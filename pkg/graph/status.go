package graph

import (
	"context"

	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/types"
)

// CachedState describes how stale the handle's cached materialized state
// is relative to the graph's full patch history: none, fresh, or stale.
type CachedState string

const (
	CachedStateNone  CachedState = "none"
	CachedStateFresh CachedState = "fresh"
	CachedStateStale CachedState = "stale"
)

// Status summarizes a handle's current position for observability and
// the doctor engine.
type Status struct {
	Graph            string
	Writer           types.WriterId
	State            State
	CachedState      CachedState
	PatchesSinceCkpt int
	WriterCount      int
	TombstoneRatio   float64
	CursorActive     bool
	CursorTick       uint64
	Frontier         types.VersionVector
}

// Status reports the handle's current cached-state freshness, the number
// of patches folded since the last checkpoint, the tombstone ratio over
// the cached state's elements, and the live writer count.
func (h *Handle) Status(ctx context.Context) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return Status{}, err
	}

	st := Status{
		Graph:            h.graph,
		Writer:           h.writer,
		State:            h.state,
		PatchesSinceCkpt: h.patchesSinceCkpt,
	}
	if h.cursorCeiling != nil {
		st.CursorActive = true
		st.CursorTick = *h.cursorCeiling
	}

	switch {
	case h.cached == nil:
		st.CachedState = CachedStateNone
	case h.state == StateDirty:
		st.CachedState = CachedStateStale
	default:
		st.CachedState = CachedStateFresh
	}

	writers, err := patchchain.ListWriters(ctx, h.store, h.graph)
	if err != nil {
		return Status{}, err
	}
	st.WriterCount = len(writers)

	if h.cached != nil {
		st.Frontier = h.cached.Frontier.Clone()
		st.TombstoneRatio = tombstoneRatio(h.cached)
	}
	return st, nil
}

// tombstoneRatio returns the fraction of ever-entered node/edge dots that
// are now tombstoned in a materialized snapshot, computed directly from
// each ElementView's entry and tombstone sets.
func tombstoneRatio(state *types.WarpStateV5) float64 {
	var totalEntries, totalTombstones uint64
	for _, view := range state.AliveNodes {
		totalEntries += uint64(len(view.Entries))
		totalTombstones += uint64(len(view.Tombstones))
	}
	for _, view := range state.AliveEdges {
		totalEntries += uint64(len(view.Entries))
		totalTombstones += uint64(len(view.Tombstones))
	}
	if totalEntries == 0 {
		return 0
	}
	return float64(totalTombstones) / float64(totalEntries)
}
