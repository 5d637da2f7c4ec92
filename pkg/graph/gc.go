package graph

import (
	"context"
	"strconv"

	"github.com/cuemby/warpgraph/pkg/events"
	"github.com/cuemby/warpgraph/pkg/metrics"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// GCResult reports how many tombstoned dots a runGC pass dropped, along
// with the node and edge element counts before and after the pass.
type GCResult struct {
	NodesBefore int
	NodesAfter  int
	EdgesBefore int
	EdgesAfter  int

	TombstonesDropped int
}

// RunGC compacts the handle's cached materialized state in place,
// dropping tombstoned node/edge dots the state's own frontier already
// covers. It requires a prior Materialize
// call and does not itself walk the patch chain: ReduceAndCompact with
// an empty patch batch rehydrates the working CRDT structures from the
// cached snapshot, compacts them against its frontier, then
// re-materializes, which is exactly pkg/checkpoint's own compaction step
// applied without also folding a new patch batch.
func (h *Handle) RunGC(ctx context.Context) (GCResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return GCResult{}, err
	}
	if h.cached == nil {
		return GCResult{}, werrors.New(werrors.ENoState, "materialize() must run before runGC")
	}

	before := GCResult{NodesBefore: len(h.cached.AliveNodes), EdgesBefore: len(h.cached.AliveEdges)}

	compacted, err := reducer.ReduceAndCompact(nil, h.cached)
	if err != nil {
		return GCResult{}, err
	}

	var tombstonesDropped int
	for node, before := range h.cached.AliveNodes {
		after := compacted.AliveNodes[node]
		tombstonesDropped += len(before.Entries) - len(after.Entries)
	}
	for edge, before := range h.cached.AliveEdges {
		after := compacted.AliveEdges[edge]
		tombstonesDropped += len(before.Entries) - len(after.Entries)
	}

	h.cached = compacted
	before.NodesAfter = len(compacted.AliveNodes)
	before.EdgesAfter = len(compacted.AliveEdges)
	before.TombstonesDropped = tombstonesDropped

	metrics.TombstonesCompactedTotal.Add(float64(tombstonesDropped))
	h.publish(events.EventGCCompleted, "garbage collection completed", map[string]string{
		"nodes_before": strconv.Itoa(before.NodesBefore), "nodes_after": strconv.Itoa(before.NodesAfter),
	})
	return before, nil
}
