package reducer

import "github.com/cuemby/warpgraph/pkg/types"

// NodeVisible reports whether node has at least one surviving dot.
func NodeVisible(s *types.WarpStateV5, node types.NodeId) bool {
	return s.NodeExists(node)
}

// EdgeVisible reports whether the edge (from, to, label) is alive and
// both of its endpoints are visible. An edge surviving in AliveEdges
// whose endpoint was independently removed is not visible: edge
// liveness is intersected with endpoint liveness at query time rather
// than cascading removal into the edge set itself, which keeps the
// reducer's ORSet operations purely local to the op that triggered them.
func EdgeVisible(s *types.WarpStateV5, from, to types.NodeId, label types.EdgeLabel) bool {
	key := types.MakeEdgeKey(from, to, label)
	return s.EdgeExists(key) && NodeVisible(s, from) && NodeVisible(s, to)
}

// PropVisible reports whether (node, key) has a value and node is
// visible.
func PropVisible(s *types.WarpStateV5, node types.NodeId, key types.PropKey) bool {
	if !NodeVisible(s, node) {
		return false
	}
	_, ok := s.Props[types.MakePropMapKey(node, key)]
	return ok
}

// PropValue returns the winning value at (node, key) if it is visible.
func PropValue(s *types.WarpStateV5, node types.NodeId, key types.PropKey) (types.Value, bool) {
	if !PropVisible(s, node, key) {
		return types.Value{}, false
	}
	entry := s.Props[types.MakePropMapKey(node, key)]
	return entry.Value, true
}
