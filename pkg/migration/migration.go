// Package migration implements the one-way conversion from a legacy
// schema-1 LWW graph state to schema-2. Schema-1 is
// read-only: once migrated, a graph only ever accepts schema-2 patches
// again; the legacy reducer never runs again either. Migration is a
// distinct, explicit operation with its own entry point, never an
// implicit upgrade path taken by the normal open/materialize flow
// (pkg/graph.Open refuses to open an unmigrated schema-1 graph,
// returning E_SCHEMA_MISMATCH).
package migration

import (
	"sort"

	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// LegacyNodeRegister is one entry of a schema-1 LWW node/edge register: a
// boolean alive/dead value with no dot or tombstone tracking.
type LegacyNodeRegister struct {
	Value bool
}

// LegacyPropRegister is one entry of a schema-1 LWW property register.
type LegacyPropRegister struct {
	Value types.Value
}

// LegacyStateV1 is the decoded shape of a schema-1 graph: two boolean LWW
// maps (node/edge aliveness) and a flat property map keyed by the same
// canonical "<node>\x00<key>" delimiter schema-2 uses.
type LegacyStateV1 struct {
	NodeAlive map[types.NodeId]LegacyNodeRegister
	EdgeAlive map[types.EdgeKey]LegacyNodeRegister
	Prop      map[types.PropMapKey]LegacyPropRegister
}

// MigrationWriterId is the synthetic writer identity used to mint dots
// for every legacy-alive node/edge during migration; it never produces
// any further patch after migration completes.
const MigrationWriterId types.WriterId = "__schema1_migration__"

// Result is the schema-2 state produced by Migrate. The version vector of
// synthetic dots assigned (observedFrontier) is State.Frontier.
type Result struct {
	State *types.WarpStateV5
}

// Migrate converts a decoded schema-1 state into a schema-2
// types.WarpStateV5:
//  1. start from an empty state and a fresh version vector;
//  2. for every alive legacy node, mint a synthetic dot and ORSet-add it;
//  3. same for edges;
//  4. for every legacy prop, include it only if its owning node is alive
//     (dangling props on a dead node are dropped, never carried forward);
//  5. set the resulting state's frontier to the synthetic vector.
//
// Migrate never fails on a structurally valid LegacyStateV1: minting dots
// and filtering props are pure, total operations over the input maps.
func Migrate(legacy LegacyStateV1) (Result, error) {
	vv := types.NewVersionVector()
	state := types.NewWarpStateV5(vv)

	for _, node := range sortedNodeIds(legacy.NodeAlive) {
		reg := legacy.NodeAlive[node]
		if !reg.Value {
			continue
		}
		dot := types.Dot{Writer: MigrationWriterId, Counter: vv.Increment(MigrationWriterId)}
		view := state.AliveNodes[node]
		view.Entries = append(view.Entries, dot)
		state.AliveNodes[node] = view
	}

	for _, edge := range sortedEdgeKeys(legacy.EdgeAlive) {
		reg := legacy.EdgeAlive[edge]
		if !reg.Value {
			continue
		}
		dot := types.Dot{Writer: MigrationWriterId, Counter: vv.Increment(MigrationWriterId)}
		view := state.AliveEdges[edge]
		view.Entries = append(view.Entries, dot)
		state.AliveEdges[edge] = view
	}

	for _, key := range sortedPropKeys(legacy.Prop) {
		node, _, ok := key.Split()
		if !ok {
			return Result{}, werrors.New(werrors.EUsage, "malformed legacy prop key").With("key", string(key))
		}
		if !state.AliveNodes[node].Alive() {
			// Dangling prop on a dead (or never-alive) node: dropped, never
			// carried forward.
			continue
		}
		reg := legacy.Prop[key]
		state.Props[key] = types.PropEntry{
			Value: reg.Value,
			Winner: types.EventId{
				Lamport:  0,
				Writer:   MigrationWriterId,
				PatchSha: "",
				OpIndex:  0,
			},
		}
	}

	state.Frontier = vv
	return Result{State: state}, nil
}

func sortedNodeIds(m map[types.NodeId]LegacyNodeRegister) []types.NodeId {
	out := make([]types.NodeId, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedEdgeKeys(m map[types.EdgeKey]LegacyNodeRegister) []types.EdgeKey {
	out := make([]types.EdgeKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedPropKeys(m map[types.PropMapKey]LegacyPropRegister) []types.PropMapKey {
	out := make([]types.PropMapKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
