package types

import (
	"strconv"
	"strings"

	"github.com/cuemby/warpgraph/pkg/werrors"
)

// WriterId identifies a patch-producing writer. It must be non-empty and
// must not contain a path separator, since it is embedded directly into
// pointer names (see refs/warp/<g>/writers/<writerId>).
type WriterId string

// Validate reports whether w is a well-formed writer id.
func (w WriterId) Validate() error {
	if w == "" {
		return werrors.New(werrors.EUsage, "writer id must not be empty")
	}
	if strings.ContainsAny(string(w), "/\\") {
		return werrors.New(werrors.EUsage, "writer id must not contain a path separator").With("writer", string(w))
	}
	return nil
}

// NodeId, EdgeLabel, and PropKey are opaque non-empty identifiers for the
// graph schema; they carry no further structure beyond non-emptiness.
type (
	NodeId    string
	EdgeLabel string
	PropKey   string
)

// Dot is a writer-local, monotonically increasing identifier assigned to
// an add operation: (writerId, counter). The canonical encoding is
// "writerId:counter", counter in base-10 with no padding.
type Dot struct {
	Writer  WriterId
	Counter uint64
}

// Validate reports whether d is well-formed: non-empty writer, counter > 0.
func (d Dot) Validate() error {
	if err := d.Writer.Validate(); err != nil {
		return err
	}
	if d.Counter == 0 {
		return werrors.New(werrors.EUsage, "dot counter must be > 0").With("writer", string(d.Writer))
	}
	return nil
}

// String returns the canonical "writerId:counter" encoding.
func (d Dot) String() string {
	return string(d.Writer) + ":" + strconv.FormatUint(d.Counter, 10)
}

// ParseDot parses the canonical "writerId:counter" encoding produced by
// Dot.String.
func ParseDot(s string) (Dot, error) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return Dot{}, werrors.New(werrors.EUsage, "malformed dot: missing separator").With("dot", s)
	}
	writer, counterStr := s[:idx], s[idx+1:]
	counter, err := strconv.ParseUint(counterStr, 10, 64)
	if err != nil {
		return Dot{}, werrors.Wrap(werrors.EUsage, err, "malformed dot counter").With("dot", s)
	}
	d := Dot{Writer: WriterId(writer), Counter: counter}
	if err := d.Validate(); err != nil {
		return Dot{}, err
	}
	return d, nil
}

// Less imposes a total order on dots: by writer id, then by counter. Used
// only for canonical-encoding ordering (§4.3 "sorted by writerId then
// counter"), never for EventId tie-breaking.
func (d Dot) Less(o Dot) bool {
	if d.Writer != o.Writer {
		return d.Writer < o.Writer
	}
	return d.Counter < o.Counter
}
