// Package codec implements the canonical, permutation-invariant byte
// encoding of a materialized graph state, plus the deterministic JSON
// patch wire format (patch.go), which does not use the byte encoder. Two independently-reduced copies of the same
// mathematical state must serialize to byte-identical output regardless
// of map iteration order, insertion order, or compaction history; this
// package is where that guarantee is enforced, not pkg/reducer.
package codec

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cuemby/warpgraph/pkg/types"
)

// stateHashDomain is prepended to every hash input so a state digest can
// never collide with a digest computed over unrelated bytes that happen
// to share the same encoding.
const stateHashDomain = "warp-v5:state\x00"

// canonicalEncoder accumulates the canonical byte encoding of a state. It
// is a thin wrapper so call sites read as "write this field" rather than
// manual byte-slice juggling.
type canonicalEncoder struct {
	buf []byte
}

func newCanonicalEncoder() *canonicalEncoder {
	return &canonicalEncoder{buf: make([]byte, 0, 4096)}
}

func (e *canonicalEncoder) bytes() []byte { return e.buf }

// writeString emits a length-prefixed UTF-8 string: a fixed-width
// little-endian uint32 length followed by the raw bytes.
func (e *canonicalEncoder) writeString(s string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	e.buf = append(e.buf, lenBuf[:]...)
	e.buf = append(e.buf, s...)
}

// writeUint64 emits a fixed-width little-endian uint64.
func (e *canonicalEncoder) writeUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// writeInt64 emits a fixed-width little-endian int64.
func (e *canonicalEncoder) writeInt64(v int64) {
	e.writeUint64(uint64(v))
}

// writeByte emits a single tag/flag byte.
func (e *canonicalEncoder) writeByte(b byte) {
	e.buf = append(e.buf, b)
}

// writeDot emits a dot as its (writerId, counter) pair.
func (e *canonicalEncoder) writeDot(d types.Dot) {
	e.writeString(string(d.Writer))
	e.writeUint64(d.Counter)
}

// writeDotSet emits a sorted (by writerId then counter) sequence of dots.
func (e *canonicalEncoder) writeDotSet(dots []types.Dot) {
	sorted := append([]types.Dot(nil), dots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	e.writeUint64(uint64(len(sorted)))
	for _, d := range sorted {
		e.writeDot(d)
	}
}

const (
	valueKindInline byte = 0
	valueKindBlob   byte = 1

	scalarString byte = 0
	scalarInt    byte = 1
	scalarFloat  byte = 2
	scalarBool   byte = 3
	scalarNull   byte = 4
)

// writeValue emits a Value's type tag, type kind, and canonical scalar
// encoding.
func (e *canonicalEncoder) writeValue(v types.Value) {
	if v.Kind == types.ValueKindBlob {
		e.writeByte(valueKindBlob)
		e.writeString(v.BlobDigest)
		return
	}
	e.writeByte(valueKindInline)
	switch v.ScalarKind {
	case types.ScalarString:
		e.writeByte(scalarString)
		e.writeString(v.Str)
	case types.ScalarInt:
		e.writeByte(scalarInt)
		e.writeInt64(v.Int)
	case types.ScalarFloat:
		e.writeByte(scalarFloat)
		e.writeUint64(math.Float64bits(v.Float))
	case types.ScalarBool:
		e.writeByte(scalarBool)
		if v.Bool {
			e.writeByte(1)
		} else {
			e.writeByte(0)
		}
	default:
		e.writeByte(scalarNull)
	}
}
