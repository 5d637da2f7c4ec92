package graph

import (
	"context"
	"time"

	"github.com/cuemby/warpgraph/pkg/codec"
	"github.com/cuemby/warpgraph/pkg/events"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// maxCASRetries bounds CAS-conflict retries on a patch commit (original
// §7: "retries CAS conflicts with exponential backoff up to a small
// bound (e.g., 5 attempts), then surfaces E_REF_CONFLICT").
const maxCASRetries = 5

type pendingAdd struct {
	isEdge bool
	node   types.NodeId
	from   types.NodeId
	to     types.NodeId
	label  types.EdgeLabel
}

// Builder accumulates a sequence of ops for a single patch. Obtained via
// Handle.CreatePatch; node/edge adds defer their dot assignment to
// Commit, while removes resolve their observed dots immediately against
// the handle's cached materialized state.
type Builder struct {
	h    *Handle
	ops  []types.Op
	adds []pendingAdd
}

// CreatePatch returns a new Builder for this handle's writer.
func (h *Handle) CreatePatch() *Builder {
	return &Builder{h: h}
}

// AddNode queues a node addition; its dot is assigned at Commit.
func (b *Builder) AddNode(node types.NodeId) *Builder {
	b.adds = append(b.adds, pendingAdd{node: node})
	b.ops = append(b.ops, types.Op{}) // placeholder, filled at Commit
	return b
}

// AddEdge queues an edge addition; its dot is assigned at Commit.
func (b *Builder) AddEdge(from, to types.NodeId, label types.EdgeLabel) *Builder {
	b.adds = append(b.adds, pendingAdd{isEdge: true, from: from, to: to, label: label})
	b.ops = append(b.ops, types.Op{})
	return b
}

// RemoveNode queues a node removal citing every dot currently alive for
// node in the handle's cached state. Fails with E_NO_STATE if the handle
// has never materialized.
func (b *Builder) RemoveNode(node types.NodeId) error {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	if b.h.cached == nil {
		return werrors.New(werrors.ENoState, "materialize() must run before removeNode")
	}
	dots := b.h.cached.AliveNodeDots(node)
	b.ops = append(b.ops, types.NewNodeRemove(append([]types.Dot(nil), dots...)))
	return nil
}

// RemoveEdge queues an edge removal citing every dot currently alive for
// the (from, to, label) edge in the handle's cached state.
func (b *Builder) RemoveEdge(from, to types.NodeId, label types.EdgeLabel) error {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	if b.h.cached == nil {
		return werrors.New(werrors.ENoState, "materialize() must run before removeEdge")
	}
	key := types.MakeEdgeKey(from, to, label)
	dots := b.h.cached.AliveEdgeDots(key)
	b.ops = append(b.ops, types.NewEdgeRemove(append([]types.Dot(nil), dots...)))
	return nil
}

// SetProperty queues an inline property write.
func (b *Builder) SetProperty(node types.NodeId, key types.PropKey, value types.Value) *Builder {
	b.ops = append(b.ops, types.NewPropSet(node, key, value))
	return b
}

// AttachContent writes data as a content-addressed blob and queues a
// PropSet referencing it by digest.
func (b *Builder) AttachContent(ctx context.Context, node types.NodeId, key types.PropKey, data []byte) error {
	digest, err := b.h.store.WriteBlob(ctx, data)
	if err != nil {
		return werrors.Wrap(werrors.EInternal, err, "write attached content blob")
	}
	b.SetProperty(node, key, types.BlobValue(digest))
	return nil
}

// ownChainState scans writer's own patch chain to determine the next
// lamport value (chain length + 1) and the next dot counter (one past
// the highest counter this writer has ever assigned itself). Scanning the
// writer's own chain is sufficient and correct because a writer's dots
// are only ever assigned by that writer.
func ownChainState(ctx context.Context, h *Handle) (nextLamport uint64, nextCounter uint64, tip string, tipFound bool, err error) {
	tip, tipFound, err = patchchain.Tip(ctx, h.store, h.graph, h.writer)
	if err != nil {
		return 0, 0, "", false, err
	}
	if !tipFound {
		return 1, 1, "", false, nil
	}
	patches, err := patchchain.WalkSince(ctx, h.store, tip, "")
	if err != nil {
		return 0, 0, "", false, err
	}
	var maxCounter uint64
	for _, p := range patches {
		for _, op := range p.Ops {
			var d types.Dot
			switch op.Kind {
			case types.OpNodeAdd:
				d = op.NodeAdd.Dot
			case types.OpEdgeAdd:
				d = op.EdgeAdd.Dot
			default:
				continue
			}
			if d.Writer == h.writer && d.Counter > maxCounter {
				maxCounter = d.Counter
			}
		}
	}
	return uint64(len(patches)) + 1, maxCounter + 1, tip, true, nil
}

// Commit assigns dots to every queued add, builds the patch's context
// from the handle's current observed frontier, writes the patch blob and
// commit, and CAS-advances this writer's pointer. On
// success the handle folds the patch into its cache locally and
// transitions to StateDirty.
func (b *Builder) Commit(ctx context.Context) (types.Patch, error) {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	if err := b.h.checkOpen(); err != nil {
		return types.Patch{}, err
	}
	if len(b.ops) == 0 {
		return types.Patch{}, werrors.New(werrors.EUsage, "patch has no queued ops")
	}

	for attempt := 0; ; attempt++ {
		lamport, counterBase, tip, tipFound, err := ownChainState(ctx, b.h)
		if err != nil {
			return types.Patch{}, err
		}

		ops := make([]types.Op, len(b.ops))
		addIdx := 0
		counter := counterBase
		for i, op := range b.ops {
			if op.Kind == "" {
				add := b.adds[addIdx]
				addIdx++
				dot := types.Dot{Writer: b.h.writer, Counter: counter}
				counter++
				if add.isEdge {
					ops[i] = types.NewEdgeAdd(add.from, add.to, add.label, dot)
				} else {
					ops[i] = types.NewNodeAdd(add.node, dot)
				}
			} else {
				ops[i] = op
			}
		}

		context := types.NewVersionVector()
		if b.h.cached != nil {
			context = b.h.cached.Frontier.Clone()
		}

		patch := types.Patch{Writer: b.h.writer, Lamport: lamport, Context: context, Ops: ops}
		if err := patch.Validate(); err != nil {
			return types.Patch{}, err
		}
		sha, err := codec.HashPatch(patch)
		if err != nil {
			return types.Patch{}, werrors.Wrap(werrors.EInternal, err, "hash patch")
		}
		patch.Sha = sha

		var expected *string
		if tipFound {
			expected = &tip
		}
		if _, err := patchchain.Append(ctx, b.h.store, b.h.graph, b.h.writer, patch, expected); err != nil {
			if werrors.CodeOf(err) == werrors.ERefConflict && attempt < maxCASRetries-1 {
				time.Sleep(time.Duration(1<<attempt) * time.Millisecond)
				continue
			}
			return types.Patch{}, err
		}

		next, err := reducer.Reduce([]types.Patch{patch}, b.h.cached)
		if err != nil {
			return types.Patch{}, err
		}
		b.h.cached = next
		b.h.patchesSinceCkpt++
		b.h.state = StateDirty
		b.h.publish(events.EventPatchCommitted, "patch committed", map[string]string{
			"writer": string(b.h.writer), "sha": patch.Sha,
		})
		return patch, nil
	}
}
