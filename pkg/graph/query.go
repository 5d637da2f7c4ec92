package graph

import (
	"sort"

	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// cachedStateOrErr returns the handle's cached materialized state,
// failing with E_NO_STATE if Materialize has never been called.
func (h *Handle) cachedStateOrErr() (*types.WarpStateV5, error) {
	if h.cached == nil {
		return nil, werrors.New(werrors.ENoState, "no materialized state; call Materialize first").
			With("graph", h.graph)
	}
	return h.cached, nil
}

// NodeExists reports whether node is currently visible in the handle's
// cached materialized state.
func (h *Handle) NodeExists(node types.NodeId) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return false, err
	}
	state, err := h.cachedStateOrErr()
	if err != nil {
		return false, err
	}
	return reducer.NodeVisible(state, node), nil
}

// EdgeExists reports whether the edge (from, to, label) is currently
// visible in the handle's cached materialized state.
func (h *Handle) EdgeExists(from, to types.NodeId, label types.EdgeLabel) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return false, err
	}
	state, err := h.cachedStateOrErr()
	if err != nil {
		return false, err
	}
	return reducer.EdgeVisible(state, from, to, label), nil
}

// GetProperty returns (node, key)'s current winning value, if visible.
func (h *Handle) GetProperty(node types.NodeId, key types.PropKey) (types.Value, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return types.Value{}, false, err
	}
	state, err := h.cachedStateOrErr()
	if err != nil {
		return types.Value{}, false, err
	}
	v, ok := reducer.PropValue(state, node, key)
	return v, ok, nil
}

// Neighbor describes one edge reachable from a traversal's current node.
type Neighbor struct {
	Node  types.NodeId
	Label types.EdgeLabel
}

// Neighbors returns every node reachable from `node` by one visible
// outgoing edge, sorted by (label, node) for deterministic iteration.
// Traversal composes from this primitive;
// the facade does not impose a fixed traversal order or depth limit,
// leaving BFS/DFS policy to the caller.
func (h *Handle) Neighbors(node types.NodeId) ([]Neighbor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	state, err := h.cachedStateOrErr()
	if err != nil {
		return nil, err
	}
	if !reducer.NodeVisible(state, node) {
		return nil, nil
	}

	var out []Neighbor
	for key := range state.AliveEdges {
		from, to, label, ok := key.Split()
		if !ok || from != node {
			continue
		}
		if !reducer.EdgeVisible(state, from, to, label) {
			continue
		}
		out = append(out, Neighbor{Node: to, Label: label})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Node < out[j].Node
	})
	return out, nil
}

// Traverse performs a breadth-first walk starting at root, following
// only visible edges, up to maxDepth hops (0 = unbounded), and returns
// every node reached in visitation order. The starting node is included
// first if it is visible.
func (h *Handle) Traverse(root types.NodeId, maxDepth int) ([]types.NodeId, error) {
	exists, err := h.NodeExists(root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	visited := map[types.NodeId]bool{root: true}
	order := []types.NodeId{root}
	frontier := []types.NodeId{root}
	depth := 0
	for len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth) {
		var next []types.NodeId
		for _, n := range frontier {
			neighbors, err := h.Neighbors(n)
			if err != nil {
				return nil, err
			}
			for _, nb := range neighbors {
				if visited[nb.Node] {
					continue
				}
				visited[nb.Node] = true
				order = append(order, nb.Node)
				next = append(next, nb.Node)
			}
		}
		frontier = next
		depth++
	}
	return order, nil
}
