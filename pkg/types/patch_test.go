package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPatch() Patch {
	return Patch{
		Writer:  "w1",
		Lamport: 1,
		Context: NewVersionVector(),
		Ops: []Op{
			NewNodeAdd("n1", Dot{Writer: "w1", Counter: 1}),
		},
	}
}

func TestPatchValidateAcceptsWellFormedPatch(t *testing.T) {
	assert.NoError(t, validPatch().Validate())
}

func TestPatchValidateRejectsEmptyOps(t *testing.T) {
	p := validPatch()
	p.Ops = nil
	require.Error(t, p.Validate())
}

func TestPatchValidateRejectsBadWriter(t *testing.T) {
	p := validPatch()
	p.Writer = ""
	require.Error(t, p.Validate())
}

func TestPatchValidatePropagatesOpIndexInError(t *testing.T) {
	p := validPatch()
	p.Ops = append(p.Ops, Op{Kind: "bogus"})
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op_index=1")
}
