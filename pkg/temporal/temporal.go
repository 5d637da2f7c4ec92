package temporal

import (
	"context"
	"sort"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// Snapshot is the projection of a single tick's state onto one node.
type Snapshot struct {
	Tick   uint64
	Id     types.NodeId
	Exists bool
	Props  map[types.PropKey]types.Value
}

// Predicate evaluates a single snapshot and reports pass/fail.
type Predicate func(Snapshot) bool

// Options configures Always/Eventually.
type Options struct {
	// Since restricts evaluation to ticks at or after this
	// lamport value. A nil
	// Since evaluates every tick from genesis.
	Since *uint64
}

// tickBatch is one lamport value's worth of patches across every writer,
// used to advance the incremental fold one tick at a time.
type tickBatch struct {
	tick    uint64
	patches []types.Patch
}

// loadTickBatches loads the graph's full patch history (starting from
// its latest checkpoint, if any) and groups it into per-tick batches
// sorted by lamport, so the caller can fold forward incrementally
// instead of re-reducing from genesis at every tick.
func loadTickBatches(ctx context.Context, store objectstore.Port, graph string) (*types.WarpStateV5, []tickBatch, error) {
	baseState, previousCommit, found, err := checkpoint.Load(ctx, store, graph)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		baseState = nil
	}

	writers, err := patchchain.ListWriters(ctx, store, graph)
	if err != nil {
		return nil, nil, err
	}

	var all []types.Patch
	for _, w := range writers {
		tip, found, err := patchchain.Tip(ctx, store, graph, w)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		patches, err := patchchain.WalkSince(ctx, store, tip, "")
		if err != nil {
			return nil, nil, err
		}
		all = append(all, patches...)
	}

	if baseState != nil && previousCommit != nil {
		all = checkpoint.FilterSincePatches(all, *previousCommit, baseState)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Lamport < all[j].Lamport })

	byTick := make(map[uint64][]types.Patch)
	var ticks []uint64
	for _, p := range all {
		if _, ok := byTick[p.Lamport]; !ok {
			ticks = append(ticks, p.Lamport)
		}
		byTick[p.Lamport] = append(byTick[p.Lamport], p)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	batches := make([]tickBatch, 0, len(ticks))
	for _, t := range ticks {
		batches = append(batches, tickBatch{tick: t, patches: byTick[t]})
	}
	return baseState, batches, nil
}

// snapshotNode projects state onto node's visible existence and props.
func snapshotNode(tick uint64, state *types.WarpStateV5, node types.NodeId) Snapshot {
	snap := Snapshot{Tick: tick, Id: node}
	snap.Exists = reducer.NodeVisible(state, node)
	if !snap.Exists {
		return snap
	}
	props := make(map[types.PropKey]types.Value)
	for key, entry := range state.Props {
		n, k, ok := key.Split()
		if !ok || n != node {
			continue
		}
		props[k] = entry.Value
	}
	snap.Props = props
	return snap
}

// touchesNode reports whether any op in patch references node, directly
// or as an edge endpoint. Ticks that don't touch the node are still
// folded into the running state (so later ticks see correct visibility)
// but are skipped for snapshot/predicate evaluation, matching "walks
// every tick ... at which the patches alter state touching nodeId".
func touchesNode(patches []types.Patch, node types.NodeId) bool {
	for _, p := range patches {
		for _, op := range p.Ops {
			switch op.Kind {
			case types.OpNodeAdd:
				if op.NodeAdd.Node == node {
					return true
				}
			case types.OpEdgeAdd:
				if op.EdgeAdd.From == node || op.EdgeAdd.To == node {
					return true
				}
			case types.OpPropSet:
				if op.PropSet.Node == node {
					return true
				}
			case types.OpNodeRemove, types.OpEdgeRemove:
				// Observed-dot removes don't name a node id directly;
				// conservatively treat every remove as touching, since
				// determining whether it removed a dot belonging to
				// this node would require inspecting the pre-image.
				return true
			}
		}
	}
	return false
}

// walk folds state forward tick by tick, invoking onTick only for ticks
// ≥ since that actually touch node, stopping early when onTick returns
// stop=true.
func walk(ctx context.Context, store objectstore.Port, graph string, node types.NodeId, opts Options, onTick func(Snapshot) (stop bool)) (evaluatedAny bool, err error) {
	base, batches, err := loadTickBatches(ctx, store, graph)
	if err != nil {
		return false, err
	}

	state := base
	if state == nil {
		state = types.NewWarpStateV5(types.NewVersionVector())
	}

	for _, b := range batches {
		if opts.Since != nil && b.tick < *opts.Since {
			next, rerr := reducer.Reduce(b.patches, state)
			if rerr != nil {
				return false, rerr
			}
			state = next
			continue
		}

		next, rerr := reducer.Reduce(b.patches, state)
		if rerr != nil {
			return false, rerr
		}
		state = next

		if !touchesNode(b.patches, node) {
			continue
		}
		evaluatedAny = true
		snap := snapshotNode(b.tick, state, node)
		if onTick(snap) {
			return evaluatedAny, nil
		}
	}
	return evaluatedAny, nil
}

// Always reports whether predicate holds at every qualifying tick
//. Returns false on the first tick where predicate
// fails, and false if no qualifying tick exists.
func Always(ctx context.Context, store objectstore.Port, graph string, node types.NodeId, predicate Predicate, opts Options) (bool, error) {
	if predicate == nil {
		return false, werrors.New(werrors.EUsage, "predicate must not be nil")
	}
	result := true
	evaluatedAny, err := walk(ctx, store, graph, node, opts, func(s Snapshot) bool {
		if !predicate(s) {
			result = false
			return true
		}
		return false
	})
	if err != nil {
		return false, err
	}
	if !evaluatedAny {
		return false, nil
	}
	return result, nil
}

// Eventually reports whether predicate holds at some qualifying tick,
// short-circuiting on the first success.
func Eventually(ctx context.Context, store objectstore.Port, graph string, node types.NodeId, predicate Predicate, opts Options) (bool, error) {
	if predicate == nil {
		return false, werrors.New(werrors.EUsage, "predicate must not be nil")
	}
	result := false
	_, err := walk(ctx, store, graph, node, opts, func(s Snapshot) bool {
		if predicate(s) {
			result = true
			return true
		}
		return false
	})
	if err != nil {
		return false, err
	}
	return result, nil
}
