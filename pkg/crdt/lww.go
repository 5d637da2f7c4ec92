package crdt

import "github.com/cuemby/warpgraph/pkg/types"

// LWWRegister resolves concurrent writes to the same slot (a (node, key)
// pair in the property map) by keeping only the value whose EventId sorts
// highest under the total order. It never regresses: assigning a value
// with a lower EventId than the current winner is a no-op, which is what
// makes repeated application of the same set of writes, in any order,
// converge to the same winner (§8 properties 1-3).
type LWWRegister struct {
	set   bool
	value types.Value
	id    types.EventId
}

// Assign proposes (value, id) as the register's content. It wins and
// replaces the current value iff id sorts strictly after the current
// winner's id (or the register is unset).
func (r *LWWRegister) Assign(value types.Value, id types.EventId) {
	if !r.set || id.Greater(r.id) {
		r.set = true
		r.value = value
		r.id = id
	}
}

// Get returns the current winning value and its EventId, and whether the
// register has ever been assigned.
func (r *LWWRegister) Get() (types.Value, types.EventId, bool) {
	return r.value, r.id, r.set
}

// Merge folds other into r, keeping whichever side's id wins.
func (r *LWWRegister) Merge(other LWWRegister) {
	if !other.set {
		return
	}
	r.Assign(other.value, other.id)
}

// LWWRegisterFromEntry rebuilds a register from a materialized
// WarpStateV5 PropEntry, e.g. when continuing to reduce on top of an
// already-materialized state.
func LWWRegisterFromEntry(entry types.PropEntry) LWWRegister {
	return LWWRegister{set: true, value: entry.Value, id: entry.Winner}
}

// ToEntry converts a set register into its WarpStateV5 storage shape.
func (r LWWRegister) ToEntry() (types.PropEntry, bool) {
	if !r.set {
		return types.PropEntry{}, false
	}
	return types.PropEntry{Value: r.value, Winner: r.id}, true
}
