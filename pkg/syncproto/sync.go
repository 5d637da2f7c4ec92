// Package syncproto implements the peer-to-peer sync protocol: frontier
// exchange over a request/response pair, an HMAC authentication envelope
// with nonce-replay protection, and a writer allowlist. The
// authentication middleware is shaped like a method-classification
// request interceptor generalized from restricting write methods to
// authenticating every sync request. The HMAC key table is a plain
// key-id-to-secret map; the nonce replay cache is a fixed-capacity LRU
// that evicts the least recently used nonce when full.
package syncproto

import (
	"context"
	"sort"

	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

const (
	TypeSyncRequest  = "sync-request"
	TypeSyncResponse = "sync-response"
)

// SyncRequest is the client's frontier announcement.
type SyncRequest struct {
	Type     string                    `json:"type"`
	Frontier map[types.WriterId]string `json:"frontier"`
}

// PatchEnvelope is one patch carried in a SyncResponse.
type PatchEnvelope struct {
	WriterId types.WriterId `json:"writerId"`
	Sha      string         `json:"sha"`
	Patch    types.Patch    `json:"patch"`
}

// SyncResponse carries the server's frontier and every patch the client
// is missing.
type SyncResponse struct {
	Type     string                    `json:"type"`
	Frontier map[types.WriterId]string `json:"frontier"`
	Patches  []PatchEnvelope           `json:"patches"`
}

// CreateSyncRequest builds the local frontier announcement: every
// writer's current tip on this replica.
func CreateSyncRequest(ctx context.Context, store objectstore.Port, graph string) (SyncRequest, error) {
	frontier, err := patchchain.Frontier(ctx, store, graph)
	if err != nil {
		return SyncRequest{}, err
	}
	return SyncRequest{Type: TypeSyncRequest, Frontier: frontier}, nil
}

// ProcessSyncRequest computes the server's own frontier and, for every
// writer, decides what the client is missing:
//   - a writer absent from the client's frontier: send the entire chain;
//   - a writer present but behind: send the chain from the client's tip
//     (exclusive) to the server's tip (inclusive), provided the client's
//     tip is actually an ancestor of the server's (otherwise the chains
//     have diverged and the whole chain is sent, since there is no
//     common suffix to diff against);
//   - a writer whose tip already matches: nothing to send.
//
// Response patches are ordered by (writer, lamport), writer ties broken
// lexicographically.
func ProcessSyncRequest(ctx context.Context, store objectstore.Port, graph string, req SyncRequest) (SyncResponse, error) {
	serverFrontier, err := patchchain.Frontier(ctx, store, graph)
	if err != nil {
		return SyncResponse{}, err
	}

	var envelopes []PatchEnvelope
	for writer, serverTip := range serverFrontier {
		clientTip, known := req.Frontier[writer]
		if known && clientTip == serverTip {
			continue
		}

		stopAt := ""
		if known {
			isAncestor, err := store.IsAncestor(ctx, clientTip, serverTip)
			if err != nil {
				return SyncResponse{}, werrors.Wrap(werrors.EInternal, err, "check chain ancestry").With("writer", string(writer))
			}
			if isAncestor {
				stopAt = clientTip
			}
		}

		patches, err := patchchain.WalkSince(ctx, store, serverTip, stopAt)
		if err != nil {
			return SyncResponse{}, err
		}
		for _, p := range patches {
			envelopes = append(envelopes, PatchEnvelope{WriterId: writer, Sha: p.Sha, Patch: p})
		}
	}

	sort.SliceStable(envelopes, func(i, j int) bool {
		if envelopes[i].WriterId != envelopes[j].WriterId {
			return envelopes[i].WriterId < envelopes[j].WriterId
		}
		return envelopes[i].Patch.Lamport < envelopes[j].Patch.Lamport
	})

	return SyncResponse{Type: TypeSyncResponse, Frontier: serverFrontier, Patches: envelopes}, nil
}

// SyncNeeded reports whether remoteFrontier has a tip for any writer that
// the local replica does not yet have, i.e. whether a further sync round
// would make progress.
func SyncNeeded(ctx context.Context, store objectstore.Port, graph string, remoteFrontier map[types.WriterId]string) (bool, error) {
	local, err := patchchain.Frontier(ctx, store, graph)
	if err != nil {
		return false, err
	}
	for writer, remoteTip := range remoteFrontier {
		if local[writer] != remoteTip {
			return true, nil
		}
	}
	return false, nil
}

// ApplyResult reports how many patches from a SyncResponse were
// successfully integrated locally, and which writer chains a writer's
// own CAS conflict interrupted.
type ApplyResult struct {
	Applied        int
	AppliedPatches []types.Patch
	Interrupted    []types.WriterId
}

// ApplySyncResponse writes every patch in resp to the local store as a
// new commit on its writer's chain, advancing
// each writer's pointer by fast-forward CAS. Patches are grouped by
// writer and applied in the response's (writer, lamport) order; a CAS
// conflict on one writer's chain aborts only that writer's remaining
// patches in this round, leaving ApplyResult.Applied accurate for
// whatever did land. It does not itself invoke the reducer — callers
// (pkg/graph) fold AppliedPatches into the cached materialized state.
func ApplySyncResponse(ctx context.Context, store objectstore.Port, graph string, resp SyncResponse) (ApplyResult, error) {
	byWriter := make(map[types.WriterId][]types.Patch)
	var writerOrder []types.WriterId
	for _, env := range resp.Patches {
		if _, seen := byWriter[env.WriterId]; !seen {
			writerOrder = append(writerOrder, env.WriterId)
		}
		byWriter[env.WriterId] = append(byWriter[env.WriterId], env.Patch)
	}

	var result ApplyResult
	for _, writer := range writerOrder {
		tip, found, err := patchchain.Tip(ctx, store, graph, writer)
		if err != nil {
			return result, err
		}
		var expected *string
		if found {
			expected = &tip
		}

		for _, patch := range byWriter[writer] {
			commitDigest, err := patchchain.Append(ctx, store, graph, writer, patch, expected)
			if err != nil {
				result.Interrupted = append(result.Interrupted, writer)
				break
			}
			expected = &commitDigest
			result.Applied++
			result.AppliedPatches = append(result.AppliedPatches, patch)
		}
	}
	return result, nil
}
