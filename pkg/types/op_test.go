package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpValidateAcceptsWellFormedVariants(t *testing.T) {
	dot := Dot{Writer: "w1", Counter: 1}
	cases := []Op{
		NewNodeAdd("n1", dot),
		NewNodeRemove([]Dot{dot}),
		NewEdgeAdd("n1", "n2", "knows", dot),
		NewEdgeRemove([]Dot{dot}),
		NewPropSet("n1", "color", InlineString("red")),
	}
	for _, op := range cases {
		assert.NoError(t, op.Validate(), "kind=%s", op.Kind)
	}
}

func TestOpValidateRejectsNilPayload(t *testing.T) {
	op := Op{Kind: OpNodeAdd}
	require.Error(t, op.Validate())
}

func TestOpValidateRejectsUnknownKind(t *testing.T) {
	op := Op{Kind: "not_a_real_kind"}
	require.Error(t, op.Validate())
}

func TestOpValidateRejectsZeroDotOnAdd(t *testing.T) {
	op := NewNodeAdd("n1", Dot{Writer: "w1", Counter: 0})
	require.Error(t, op.Validate())
}

func TestOpValidateRejectsEmptyEdgeLabel(t *testing.T) {
	op := NewEdgeAdd("n1", "n2", "", Dot{Writer: "w1", Counter: 1})
	require.Error(t, op.Validate())
}

func TestOpValidateRejectsEmptyPropKey(t *testing.T) {
	op := NewPropSet("n1", "", InlineString("x"))
	require.Error(t, op.Validate())
}
