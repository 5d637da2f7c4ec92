package types

// OpKind discriminates the five schema-2 operation variants. Implemented
// as a discriminated sum (OpKind tag + one populated payload struct per
// variant) rather than an interface with runtime type assertions, per the
// "dynamic dispatch" design note: the reducer switches on Kind.
type OpKind string

const (
	OpNodeAdd    OpKind = "node_add"
	OpNodeRemove OpKind = "node_remove"
	OpEdgeAdd    OpKind = "edge_add"
	OpEdgeRemove OpKind = "edge_remove"
	OpPropSet    OpKind = "prop_set"
)

// NodeAddOp tags a node addition with the dot that uniquely identifies it.
type NodeAddOp struct {
	Node NodeId
	Dot  Dot
}

// NodeRemoveOp removes exactly the dots it cites; concurrent adds whose
// dots are not cited survive (resurrection, §8 property 5).
type NodeRemoveOp struct {
	ObservedDots []Dot
}

// EdgeAddOp tags an edge addition with the dot that uniquely identifies it.
type EdgeAddOp struct {
	From, To NodeId
	Label    EdgeLabel
	Dot      Dot
}

// EdgeRemoveOp removes exactly the dots it cites.
type EdgeRemoveOp struct {
	ObservedDots []Dot
}

// PropSetOp sets a property; conflicting concurrent sets to the same
// (node, key) resolve via the LWW register's EventId total order.
type PropSetOp struct {
	Node  NodeId
	Key   PropKey
	Value Value
}

// Op is one operation within a patch. Exactly one of the payload fields is
// populated, selected by Kind.
type Op struct {
	Kind OpKind

	NodeAdd    *NodeAddOp
	NodeRemove *NodeRemoveOp
	EdgeAdd    *EdgeAddOp
	EdgeRemove *EdgeRemoveOp
	PropSet    *PropSetOp
}

// Validate reports whether o is a well-formed op: the right payload is
// populated for its Kind, and any dot it carries is well-formed. This is
// the "reject if a dot on an add/edge-add is missing or any op type is
// unknown" validation the reducer runs per patch (§4.2 step 1).
func (o Op) Validate() error {
	switch o.Kind {
	case OpNodeAdd:
		if o.NodeAdd == nil {
			return errMissingPayload(o.Kind)
		}
		if o.NodeAdd.Node == "" {
			return errEmptyField(o.Kind, "node")
		}
		return o.NodeAdd.Dot.Validate()
	case OpNodeRemove:
		if o.NodeRemove == nil {
			return errMissingPayload(o.Kind)
		}
		return nil
	case OpEdgeAdd:
		if o.EdgeAdd == nil {
			return errMissingPayload(o.Kind)
		}
		if o.EdgeAdd.From == "" || o.EdgeAdd.To == "" || o.EdgeAdd.Label == "" {
			return errEmptyField(o.Kind, "from/to/label")
		}
		return o.EdgeAdd.Dot.Validate()
	case OpEdgeRemove:
		if o.EdgeRemove == nil {
			return errMissingPayload(o.Kind)
		}
		return nil
	case OpPropSet:
		if o.PropSet == nil {
			return errMissingPayload(o.Kind)
		}
		if o.PropSet.Node == "" || o.PropSet.Key == "" {
			return errEmptyField(o.Kind, "node/key")
		}
		return nil
	default:
		return errUnknownOpKind(o.Kind)
	}
}

// NewNodeAdd builds a NodeAdd op.
func NewNodeAdd(node NodeId, dot Dot) Op {
	return Op{Kind: OpNodeAdd, NodeAdd: &NodeAddOp{Node: node, Dot: dot}}
}

// NewNodeRemove builds a NodeRemove op.
func NewNodeRemove(observed []Dot) Op {
	return Op{Kind: OpNodeRemove, NodeRemove: &NodeRemoveOp{ObservedDots: observed}}
}

// NewEdgeAdd builds an EdgeAdd op.
func NewEdgeAdd(from, to NodeId, label EdgeLabel, dot Dot) Op {
	return Op{Kind: OpEdgeAdd, EdgeAdd: &EdgeAddOp{From: from, To: to, Label: label, Dot: dot}}
}

// NewEdgeRemove builds an EdgeRemove op.
func NewEdgeRemove(observed []Dot) Op {
	return Op{Kind: OpEdgeRemove, EdgeRemove: &EdgeRemoveOp{ObservedDots: observed}}
}

// NewPropSet builds a PropSet op.
func NewPropSet(node NodeId, key PropKey, value Value) Op {
	return Op{Kind: OpPropSet, PropSet: &PropSetOp{Node: node, Key: key, Value: value}}
}
