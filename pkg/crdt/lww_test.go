package crdt

import (
	"testing"

	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eid(lamport uint64, writer string) types.EventId {
	return types.EventId{Lamport: lamport, Writer: types.WriterId(writer)}
}

func TestLWWRegisterAssignKeepsHigherEventId(t *testing.T) {
	var r LWWRegister
	r.Assign(types.InlineString("first"), eid(1, "a"))
	r.Assign(types.InlineString("second"), eid(2, "a"))

	val, id, ok := r.Get()
	require.True(t, ok)
	assert.Equal(t, types.InlineString("second"), val)
	assert.Equal(t, eid(2, "a"), id)
}

func TestLWWRegisterAssignIgnoresLowerEventId(t *testing.T) {
	var r LWWRegister
	r.Assign(types.InlineString("second"), eid(2, "a"))
	r.Assign(types.InlineString("first"), eid(1, "a"))

	val, _, _ := r.Get()
	assert.Equal(t, types.InlineString("second"), val)
}

func TestLWWRegisterMergeIsOrderIndependent(t *testing.T) {
	var a, b LWWRegister
	a.Assign(types.InlineInt(1), eid(1, "a"))
	b.Assign(types.InlineInt(2), eid(2, "b"))

	a.Merge(b)

	var a2, b2 LWWRegister
	a2.Assign(types.InlineInt(1), eid(1, "a"))
	b2.Assign(types.InlineInt(2), eid(2, "b"))
	b2.Merge(a2)

	va, _, _ := a.Get()
	vb, _, _ := b2.Get()
	assert.Equal(t, va, vb)
}

func TestLWWRegisterEntryRoundTrip(t *testing.T) {
	var r LWWRegister
	r.Assign(types.InlineString("v"), eid(1, "a"))
	entry, ok := r.ToEntry()
	require.True(t, ok)

	rebuilt := LWWRegisterFromEntry(entry)
	val, id, ok := rebuilt.Get()
	require.True(t, ok)
	assert.Equal(t, types.InlineString("v"), val)
	assert.Equal(t, eid(1, "a"), id)
}

func TestUnsetRegisterToEntryReportsFalse(t *testing.T) {
	var r LWWRegister
	_, ok := r.ToEntry()
	assert.False(t, ok)
}
