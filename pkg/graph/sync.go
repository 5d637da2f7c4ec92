package graph

import (
	"context"
	"strconv"

	"github.com/cuemby/warpgraph/pkg/events"
	"github.com/cuemby/warpgraph/pkg/metrics"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/syncproto"
	"github.com/cuemby/warpgraph/pkg/types"
)

// CreateSyncRequest builds this replica's frontier announcement.
func (h *Handle) CreateSyncRequest(ctx context.Context) (syncproto.SyncRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return syncproto.SyncRequest{}, err
	}
	return syncproto.CreateSyncRequest(ctx, h.store, h.graph)
}

// ProcessSyncRequest computes this replica's response to a peer's sync
// request: its own frontier plus every patch the peer is missing.
func (h *Handle) ProcessSyncRequest(ctx context.Context, req syncproto.SyncRequest) (syncproto.SyncResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return syncproto.SyncResponse{}, err
	}
	return syncproto.ProcessSyncRequest(ctx, h.store, h.graph, req)
}

// SyncNeeded reports whether a further sync round against remoteFrontier
// would make progress.
func (h *Handle) SyncNeeded(ctx context.Context, remoteFrontier map[types.WriterId]string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return false, err
	}
	return syncproto.SyncNeeded(ctx, h.store, h.graph, remoteFrontier)
}

// ApplySyncResponse integrates a peer's sync response into this
// replica's patch chains and folds the newly-applied patches into the
// cached materialized state, transitioning StateDirty. verifier, if
// non-nil, is run against resp.Patches before anything is applied.
func (h *Handle) ApplySyncResponse(ctx context.Context, peer string, resp syncproto.SyncResponse, verifier *syncproto.Verifier) (syncproto.ApplyResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return syncproto.ApplyResult{}, err
	}

	if verifier != nil {
		patches := make([]types.Patch, len(resp.Patches))
		for i, env := range resp.Patches {
			patches[i] = env.Patch
		}
		if err := verifier.CheckWriterAllowlist(patches); err != nil {
			return syncproto.ApplyResult{}, err
		}
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.SyncRoundDuration, peer)

	result, err := syncproto.ApplySyncResponse(ctx, h.store, h.graph, resp)
	if err != nil {
		return result, err
	}
	if len(result.AppliedPatches) > 0 {
		next, err := reducer.Reduce(result.AppliedPatches, h.cached)
		if err != nil {
			return result, err
		}
		h.cached = next
		h.patchesSinceCkpt += len(result.AppliedPatches)
		h.state = StateDirty
		metrics.SyncPatchesAppliedTotal.WithLabelValues(peer).Add(float64(result.Applied))
		h.publish(events.EventSyncApplied, "sync patches applied", map[string]string{
			"peer": peer, "applied": strconv.Itoa(result.Applied),
		})
	}
	return result, nil
}

// Peer is the narrow interface SyncWith needs from a remote replica: the
// ability to answer a sync request. A same-process peer can wrap another
// *Handle; a networked peer wraps an HTTP client speaking the sync
// protocol's JSON envelope.
type Peer interface {
	HandleSyncRequest(ctx context.Context, req syncproto.SyncRequest) (syncproto.SyncResponse, error)
}

// SyncWith runs one full sync round against peer: create a local
// request, hand it to the peer, apply the response.
func (h *Handle) SyncWith(ctx context.Context, peerName string, peer Peer, verifier *syncproto.Verifier) (syncproto.ApplyResult, error) {
	req, err := h.CreateSyncRequest(ctx)
	if err != nil {
		return syncproto.ApplyResult{}, err
	}
	resp, err := peer.HandleSyncRequest(ctx, req)
	if err != nil {
		return syncproto.ApplyResult{}, err
	}
	return h.ApplySyncResponse(ctx, peerName, resp, verifier)
}

// HandleSyncRequest lets a *Handle itself serve as a Peer for an
// in-process sync partner (e.g. tests, or two handles sharing a process
// but not a store).
func (h *Handle) HandleSyncRequest(ctx context.Context, req syncproto.SyncRequest) (syncproto.SyncResponse, error) {
	return h.ProcessSyncRequest(ctx, req)
}
