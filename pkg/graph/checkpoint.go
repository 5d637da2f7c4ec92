package graph

import (
	"context"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/events"
	"github.com/cuemby/warpgraph/pkg/metrics"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// CreateCheckpoint serializes the handle's current materialized state
// into a tree and commits it under the checkpoint pointer, then advances
// the coverage anchor. Fails with E_NO_STATE if the
// handle has never materialized.
func (h *Handle) CreateCheckpoint(ctx context.Context) (checkpoint.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return checkpoint.Result{}, err
	}
	if h.cached == nil {
		return checkpoint.Result{}, werrors.New(werrors.ENoState, "materialize() must run before createCheckpoint")
	}

	_, previousCommit, _, err := checkpoint.Load(ctx, h.store, h.graph)
	if err != nil {
		return checkpoint.Result{}, err
	}

	result, err := checkpoint.Create(ctx, h.store, h.graph, h.cached, previousCommit)
	if err != nil {
		return checkpoint.Result{}, err
	}
	if err := checkpoint.UpdateCoverage(ctx, h.store, h.graph, result.CommitDigest); err != nil {
		return checkpoint.Result{}, err
	}

	h.cachedCommit = &result.CommitDigest
	h.patchesSinceCkpt = 0
	metrics.CheckpointsCreatedTotal.Inc()
	h.publish(events.EventCheckpointCreated, "checkpoint created", map[string]string{
		"commit": result.CommitDigest, "state_hash": result.StateHash,
	})
	return result, nil
}
