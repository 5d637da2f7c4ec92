package syncproto

import (
	"github.com/cuemby/warpgraph/pkg/metrics"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// CheckWriterAllowlist validates every writer named in patches against
// v.AllowedWriters. An empty AllowedWriters
// disables the check entirely (every writer passes). A violation is
// rejected with E_FORBIDDEN_WRITER in enforce mode; in log-only mode the
// patch is admitted and a metric counter is incremented instead.
func (v *Verifier) CheckWriterAllowlist(patches []types.Patch) error {
	if len(v.AllowedWriters) == 0 {
		return nil
	}
	for _, p := range patches {
		if _, ok := v.AllowedWriters[p.Writer]; ok {
			continue
		}
		if v.EnforceAllowlist {
			return werrors.New(werrors.EForbiddenWriter, "writer not in allowlist").With("writer", string(p.Writer))
		}
		metrics.ForbiddenWriterPassthroughTotal.Inc()
	}
	return nil
}
