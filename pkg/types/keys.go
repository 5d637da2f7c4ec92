package types

import "strings"

// canonicalDelim separates the components of a composite key (edge
// endpoints/label, or node/prop-key) in contexts where the joined form is
// used as a map key or persisted byte string. Identifiers are not checked
// for NUL bytes. Split uses SplitN, so a NUL inside the last component
// (an edge label, or a prop key) stays in that component and round-trips;
// a NUL inside an earlier component (a from/to NodeId, or the NodeId of a
// prop map key) moves the split point and is misparsed.
const canonicalDelim = "\x00"

// EdgeKey is the canonical (from, to, label) encoding used to key the
// edge ORSet and in canonical state serialization.
type EdgeKey string

// MakeEdgeKey builds the canonical edge key for (from, to, label).
func MakeEdgeKey(from, to NodeId, label EdgeLabel) EdgeKey {
	return EdgeKey(string(from) + canonicalDelim + string(to) + canonicalDelim + string(label))
}

// Split decomposes an EdgeKey back into its (from, to, label) components.
func (k EdgeKey) Split() (from, to NodeId, label EdgeLabel, ok bool) {
	parts := strings.SplitN(string(k), canonicalDelim, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return NodeId(parts[0]), NodeId(parts[1]), EdgeLabel(parts[2]), true
}

// PropMapKey is the canonical (nodeId, key) encoding used to key the
// property map.
type PropMapKey string

// MakePropMapKey builds the canonical prop map key for (node, key).
func MakePropMapKey(node NodeId, key PropKey) PropMapKey {
	return PropMapKey(string(node) + canonicalDelim + string(key))
}

// Split decomposes a PropMapKey back into its (node, key) components.
func (k PropMapKey) Split() (node NodeId, key PropKey, ok bool) {
	parts := strings.SplitN(string(k), canonicalDelim, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return NodeId(parts[0]), PropKey(parts[1]), true
}
