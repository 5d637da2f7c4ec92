// Package reducer folds a causally-ordered sequence of patches into a
// materialized *types.WarpStateV5, and joins two independently-reduced
// states produced by disjoint patch batches. The algorithm is a pure,
// non-suspending function of its inputs: every object-store read, hash
// computation, or network round-trip needed to obtain the patches
// happens in the caller, never here (§5, "the reducer itself is pure and
// non-suspending").
package reducer

import (
	"strconv"

	"github.com/cuemby/warpgraph/pkg/codec"
	"github.com/cuemby/warpgraph/pkg/crdt"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// workingState holds the mutable CRDT structures the reducer folds
// patches into before materializing a types.WarpStateV5 snapshot.
type workingState struct {
	nodes    crdt.ORSet[types.NodeId]
	edges    crdt.ORSet[types.EdgeKey]
	props    map[types.PropMapKey]*crdt.LWWRegister
	frontier types.VersionVector
	anchor   *string
}

// fromState rehydrates a working state from a previously materialized
// snapshot so reduction can continue incrementally (e.g. on top of a
// checkpoint). The snapshot's tombstones are restored alongside its
// entries, not just the surviving dots, so a remove folded into one
// branch before it was materialized is still honored once that branch
// is joined or further reduced against (§3, WarpStateV5).
func fromState(initial *types.WarpStateV5) *workingState {
	ws := &workingState{
		nodes:    crdt.NewORSet[types.NodeId](),
		edges:    crdt.NewORSet[types.EdgeKey](),
		props:    make(map[types.PropMapKey]*crdt.LWWRegister),
		frontier: types.NewVersionVector(),
	}
	if initial == nil {
		return ws
	}
	ws.nodes = crdt.LoadSnapshot(initial.AliveNodes)
	ws.edges = crdt.LoadSnapshot(initial.AliveEdges)
	for key, entry := range initial.Props {
		reg := crdt.LWWRegisterFromEntry(entry)
		ws.props[key] = &reg
	}
	ws.frontier.MergeInto(initial.Frontier)
	ws.anchor = initial.CoverageAnchor
	return ws
}

// materialize converts the working state into its WarpStateV5 snapshot
// shape, carrying each element's tombstones forward alongside its
// entries so the result can still be joined or compacted correctly.
func (ws *workingState) materialize() *types.WarpStateV5 {
	out := types.NewWarpStateV5(ws.frontier.Clone())
	out.CoverageAnchor = ws.anchor

	out.AliveNodes = ws.nodes.Snapshot()
	out.AliveEdges = ws.edges.Snapshot()
	for key, reg := range ws.props {
		if entry, ok := reg.ToEntry(); ok {
			out.Props[key] = entry
		}
	}
	return out
}

// applyOp applies a single op of patch (identified by its index for
// EventId tie-breaking) to the working state.
func (ws *workingState) applyOp(patch types.Patch, opIndex int, op types.Op) {
	switch op.Kind {
	case types.OpNodeAdd:
		ws.nodes.Add(op.NodeAdd.Node, op.NodeAdd.Dot)
		ws.frontier.ObserveDot(op.NodeAdd.Dot)
	case types.OpNodeRemove:
		ws.nodes.RemoveCited(op.NodeRemove.ObservedDots)
	case types.OpEdgeAdd:
		key := types.MakeEdgeKey(op.EdgeAdd.From, op.EdgeAdd.To, op.EdgeAdd.Label)
		ws.edges.Add(key, op.EdgeAdd.Dot)
		ws.frontier.ObserveDot(op.EdgeAdd.Dot)
	case types.OpEdgeRemove:
		ws.edges.RemoveCited(op.EdgeRemove.ObservedDots)
	case types.OpPropSet:
		key := types.MakePropMapKey(op.PropSet.Node, op.PropSet.Key)
		reg := ws.props[key]
		if reg == nil {
			reg = &crdt.LWWRegister{}
			ws.props[key] = reg
		}
		eventID := types.EventId{
			Lamport:  patch.Lamport,
			Writer:   patch.Writer,
			PatchSha: patch.Sha,
			OpIndex:  opIndex,
		}
		reg.Assign(op.PropSet.Value, eventID)
	}
}

// Reduce folds patches, applied in the given slice order, on top of
// initial (nil means genesis) and returns the resulting materialized
// state. Patches must already be causally ready for the caller to pass
// them in any order and get the same resulting hash back (§8 property 1,
// permutation invariance) — reduce itself does not check causal
// readiness against the target frontier; that is the sync/graph layer's
// job before it ever calls Reduce.
//
// Every patch is validated before any of its ops are applied; an invalid
// patch fails the whole batch rather than partially applying (§4.2 step
// 1).
func Reduce(patches []types.Patch, initial *types.WarpStateV5) (*types.WarpStateV5, error) {
	for i, p := range patches {
		if err := p.Validate(); err != nil {
			return nil, werrors.Wrap(werrors.EUsage, err, "invalid patch in batch").With("batch_index", strconv.Itoa(i))
		}
	}

	ws := fromState(initial)
	for _, p := range patches {
		p := p
		if p.Sha == "" {
			sha, err := codec.HashPatch(p)
			if err != nil {
				return nil, werrors.Wrap(werrors.EInternal, err, "hash patch for reduction")
			}
			p.Sha = sha
		}
		for i, op := range p.Ops {
			ws.applyOp(p, i, op)
		}
		ws.frontier.MergeInto(p.Context)
	}
	return ws.materialize(), nil
}

// ReduceAndCompact behaves like Reduce but additionally compacts the node
// and edge ORSets against the resulting frontier before materializing,
// dropping tombstoned dots the frontier already covers. pkg/checkpoint
// calls this instead of Reduce when it is about to persist the result as
// a new checkpoint, since compaction is only safe once the state it
// covers is about to be durably anchored.
func ReduceAndCompact(patches []types.Patch, initial *types.WarpStateV5) (*types.WarpStateV5, error) {
	for i, p := range patches {
		if err := p.Validate(); err != nil {
			return nil, werrors.Wrap(werrors.EUsage, err, "invalid patch in batch").With("batch_index", strconv.Itoa(i))
		}
	}

	ws := fromState(initial)
	for _, p := range patches {
		p := p
		if p.Sha == "" {
			sha, err := codec.HashPatch(p)
			if err != nil {
				return nil, werrors.Wrap(werrors.EInternal, err, "hash patch for reduction")
			}
			p.Sha = sha
		}
		for i, op := range p.Ops {
			ws.applyOp(p, i, op)
		}
		ws.frontier.MergeInto(p.Context)
	}
	ws.nodes.Compact(ws.frontier)
	ws.edges.Compact(ws.frontier)
	return ws.materialize(), nil
}
