package reducer

import "github.com/cuemby/warpgraph/pkg/types"

// Join merges two independently-materialized states (e.g. two branches
// reduced after an offline sync) into one: elementwise ORSet join on
// nodes and edges, elementwise LWW join on props, and pointwise-max on
// the frontier. Join is commutative: hash(Join(a, b)) == hash(Join(b, a))
// (§8 property 2, diamond confluence).
func Join(a, b *types.WarpStateV5) *types.WarpStateV5 {
	wsA := fromState(a)
	wsB := fromState(b)

	wsA.nodes.Merge(wsB.nodes)
	wsA.edges.Merge(wsB.edges)
	for key, reg := range wsB.props {
		if existing := wsA.props[key]; existing != nil {
			existing.Merge(*reg)
		} else {
			wsA.props[key] = reg
		}
	}
	wsA.frontier.MergeInto(wsB.frontier)

	if wsA.anchor == nil {
		wsA.anchor = wsB.anchor
	}

	return wsA.materialize()
}
