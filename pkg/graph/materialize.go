package graph

import (
	"context"
	"sort"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/metrics"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/types"
)

// Materialize finds the latest checkpoint, walks every writer's full
// patch chain, and folds whatever the checkpoint does not already cover
// into a materialized state. If a time-travel cursor is
// active, only patches with lamport ≤ the cursor's tick are applied
// regardless of the ceiling argument; ceiling, when non-nil, further
// restricts materialization below that. The result is cached on the
// handle and the handle transitions StateMaterializing → StateClean.
func (h *Handle) Materialize(ctx context.Context, ceiling *uint64) (*types.WarpStateV5, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	h.state = StateMaterializing

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReduceDuration)

	baseState, previousCommit, _, err := checkpoint.Load(ctx, h.store, h.graph)
	if err != nil {
		h.state = StateDirty
		return nil, err
	}

	writers, err := patchchain.ListWriters(ctx, h.store, h.graph)
	if err != nil {
		h.state = StateDirty
		return nil, err
	}

	var all []types.Patch
	for _, w := range writers {
		tip, found, err := patchchain.Tip(ctx, h.store, h.graph, w)
		if err != nil {
			h.state = StateDirty
			return nil, err
		}
		if !found {
			continue
		}
		patches, err := patchchain.WalkSince(ctx, h.store, tip, "")
		if err != nil {
			h.state = StateDirty
			return nil, err
		}
		all = append(all, patches...)
	}

	pending := all
	if baseState != nil && previousCommit != nil {
		pending = checkpoint.FilterSincePatches(all, *previousCommit, baseState)
	}

	effectiveCeiling := ceiling
	if h.cursorCeiling != nil && (effectiveCeiling == nil || *h.cursorCeiling < *effectiveCeiling) {
		effectiveCeiling = h.cursorCeiling
	}
	if effectiveCeiling != nil {
		pending = filterByLamportCeiling(pending, *effectiveCeiling)
	}

	next, err := reducer.Reduce(pending, baseState)
	if err != nil {
		h.state = StateDirty
		return nil, err
	}

	h.cached = next
	if previousCommit != nil {
		h.cachedCommit = previousCommit
	}
	h.patchesSinceCkpt = len(pending)
	h.state = StateClean
	metrics.PatchesReducedTotal.Add(float64(len(pending)))
	return next, nil
}

func filterByLamportCeiling(patches []types.Patch, ceiling uint64) []types.Patch {
	out := make([]types.Patch, 0, len(patches))
	for _, p := range patches {
		if p.Lamport <= ceiling {
			out = append(out, p)
		}
	}
	return out
}

// DiscoverTicks enumerates every (writer, lamport) pair across the
// graph's full patch history and returns the sorted set of unique
// lamport values plus a per-writer map of patch shas at each tick.
func (h *Handle) DiscoverTicks(ctx context.Context) ([]uint64, map[types.WriterId]map[uint64]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, nil, err
	}

	writers, err := patchchain.ListWriters(ctx, h.store, h.graph)
	if err != nil {
		return nil, nil, err
	}

	tickSet := make(map[uint64]struct{})
	tickShas := make(map[types.WriterId]map[uint64]string, len(writers))
	for _, w := range writers {
		tip, found, err := patchchain.Tip(ctx, h.store, h.graph, w)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		patches, err := patchchain.WalkSince(ctx, h.store, tip, "")
		if err != nil {
			return nil, nil, err
		}
		shas := make(map[uint64]string, len(patches))
		for _, p := range patches {
			tickSet[p.Lamport] = struct{}{}
			shas[p.Lamport] = p.Sha
		}
		tickShas[w] = shas
	}

	ticks := make([]uint64, 0, len(tickSet))
	for t := range tickSet {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks, tickShas, nil
}
