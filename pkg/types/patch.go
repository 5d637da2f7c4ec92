package types

import (
	"strconv"

	"github.com/cuemby/warpgraph/pkg/werrors"
)

// Patch is the unit of replication: one writer's causal delta, carrying
// its own dependency context so a receiving replica can tell whether it
// has the prerequisite state to apply it (§4.1, §4.2 step 2).
type Patch struct {
	Writer  WriterId
	Lamport uint64

	// Context is the version vector the writer had observed at the time it
	// produced Ops: the patch is causally ready to apply only once the
	// receiving replica's frontier dominates Context.
	Context VersionVector

	Ops []Op

	// BaseCheckpoint, when set, names the checkpoint this patch's Context
	// is relative to; nil means the patch was produced against the full
	// uncompacted history.
	BaseCheckpoint *string

	// Sha is the canonical content hash of this patch, computed over its
	// canonical JSON encoding once Writer/Lamport/Context/Ops are fixed; it
	// is what EventId.PatchSha references.
	Sha string
}

// Validate checks structural well-formedness of the patch and all its ops.
// It does not check causal readiness against any replica state; that is
// the reducer's job.
func (p Patch) Validate() error {
	if err := p.Writer.Validate(); err != nil {
		return err
	}
	if len(p.Ops) == 0 {
		return werrors.New(werrors.EUsage, "patch has no ops").With("writer", string(p.Writer))
	}
	for i, op := range p.Ops {
		if err := op.Validate(); err != nil {
			return werrors.Wrap(werrors.EUsage, err, "invalid op in patch").
				With("writer", string(p.Writer)).With("op_index", strconv.Itoa(i))
		}
	}
	return nil
}
