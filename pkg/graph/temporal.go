package graph

import (
	"context"

	"github.com/cuemby/warpgraph/pkg/temporal"
	"github.com/cuemby/warpgraph/pkg/types"
)

// Always evaluates predicate against every tick (≥ opts.Since) at which
// node's state changes, returning false on the first failure or if no
// qualifying tick exists. It reads directly from the
// object store rather than the handle's cached materialized state, since
// the walk needs every historical tick, not just the latest.
func (h *Handle) Always(ctx context.Context, node types.NodeId, predicate temporal.Predicate, opts temporal.Options) (bool, error) {
	h.mu.Lock()
	store, graph := h.store, h.graph
	err := h.checkOpen()
	h.mu.Unlock()
	if err != nil {
		return false, err
	}
	return temporal.Always(ctx, store, graph, node, predicate, opts)
}

// Eventually evaluates predicate against every tick (≥ opts.Since) at
// which node's state changes, returning true on the first success.
func (h *Handle) Eventually(ctx context.Context, node types.NodeId, predicate temporal.Predicate, opts temporal.Options) (bool, error) {
	h.mu.Lock()
	store, graph := h.store, h.graph
	err := h.checkOpen()
	h.mu.Unlock()
	if err != nil {
		return false, err
	}
	return temporal.Eventually(ctx, store, graph, node, predicate, opts)
}
