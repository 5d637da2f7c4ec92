package codec

import (
	"encoding/binary"
	"math"

	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// canonicalDecoder reads back the exact shape canonicalEncoder produces.
// It is the mirror of the encoder, not a general-purpose parser: a
// truncated or malformed buffer fails fast with an EInternal error rather
// than panicking, since callers feed it bytes they themselves wrote.
type canonicalDecoder struct {
	buf []byte
	pos int
}

func newCanonicalDecoder(buf []byte) *canonicalDecoder {
	return &canonicalDecoder{buf: buf}
}

func (d *canonicalDecoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return werrors.New(werrors.EInternal, "truncated canonical encoding")
	}
	return nil
}

func (d *canonicalDecoder) readString() (string, error) {
	if err := d.need(4); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	s := string(d.buf[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s, nil
}

func (d *canonicalDecoder) readUint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *canonicalDecoder) readInt64() (int64, error) {
	v, err := d.readUint64()
	return int64(v), err
}

func (d *canonicalDecoder) readByte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *canonicalDecoder) readDot() (types.Dot, error) {
	writer, err := d.readString()
	if err != nil {
		return types.Dot{}, err
	}
	counter, err := d.readUint64()
	if err != nil {
		return types.Dot{}, err
	}
	return types.Dot{Writer: types.WriterId(writer), Counter: counter}, nil
}

func (d *canonicalDecoder) readDotSet() ([]types.Dot, error) {
	n, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	dots := make([]types.Dot, 0, n)
	for i := uint64(0); i < n; i++ {
		dot, err := d.readDot()
		if err != nil {
			return nil, err
		}
		dots = append(dots, dot)
	}
	return dots, nil
}

func (d *canonicalDecoder) readValue() (types.Value, error) {
	kind, err := d.readByte()
	if err != nil {
		return types.Value{}, err
	}
	if kind == valueKindBlob {
		digest, err := d.readString()
		if err != nil {
			return types.Value{}, err
		}
		return types.BlobValue(digest), nil
	}

	scalar, err := d.readByte()
	if err != nil {
		return types.Value{}, err
	}
	switch scalar {
	case scalarString:
		s, err := d.readString()
		if err != nil {
			return types.Value{}, err
		}
		return types.InlineString(s), nil
	case scalarInt:
		i, err := d.readInt64()
		if err != nil {
			return types.Value{}, err
		}
		return types.InlineInt(i), nil
	case scalarFloat:
		bits, err := d.readUint64()
		if err != nil {
			return types.Value{}, err
		}
		return types.InlineFloat(math.Float64frombits(bits)), nil
	case scalarBool:
		b, err := d.readByte()
		if err != nil {
			return types.Value{}, err
		}
		return types.InlineBool(b != 0), nil
	case scalarNull:
		return types.InlineNull(), nil
	default:
		return types.Value{}, werrors.New(werrors.EInternal, "unknown scalar tag").With("tag", string(rune(scalar)))
	}
}

// DecodeStateV5 inverts EncodeStateV5. It is used by pkg/checkpoint to
// load a persisted state.v5 blob back into a *types.WarpStateV5.
func DecodeStateV5(data []byte) (*types.WarpStateV5, error) {
	d := newCanonicalDecoder(data)

	schemaVersion, err := d.readUint64()
	if err != nil {
		return nil, err
	}

	vv, err := decodeVersionVector(d)
	if err != nil {
		return nil, err
	}
	nodes, err := decodeAliveNodes(d)
	if err != nil {
		return nil, err
	}
	edges, err := decodeAliveEdges(d)
	if err != nil {
		return nil, err
	}
	props, err := decodeProps(d)
	if err != nil {
		return nil, err
	}

	return &types.WarpStateV5{
		SchemaVersion: int(schemaVersion),
		Frontier:      vv,
		AliveNodes:    nodes,
		AliveEdges:    edges,
		Props:         props,
	}, nil
}

func decodeVersionVector(d *canonicalDecoder) (types.VersionVector, error) {
	n, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	vv := make(types.VersionVector, n)
	for i := uint64(0); i < n; i++ {
		writer, err := d.readString()
		if err != nil {
			return nil, err
		}
		counter, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		vv[types.WriterId(writer)] = counter
	}
	return vv, nil
}

func decodeAliveNodes(d *canonicalDecoder) (map[types.NodeId]types.ElementView, error) {
	n, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	out := make(map[types.NodeId]types.ElementView, n)
	for i := uint64(0); i < n; i++ {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		entries, err := d.readDotSet()
		if err != nil {
			return nil, err
		}
		tombstones, err := d.readDotSet()
		if err != nil {
			return nil, err
		}
		out[types.NodeId(key)] = types.ElementView{Entries: entries, Tombstones: tombstones}
	}
	return out, nil
}

func decodeAliveEdges(d *canonicalDecoder) (map[types.EdgeKey]types.ElementView, error) {
	n, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	out := make(map[types.EdgeKey]types.ElementView, n)
	for i := uint64(0); i < n; i++ {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		entries, err := d.readDotSet()
		if err != nil {
			return nil, err
		}
		tombstones, err := d.readDotSet()
		if err != nil {
			return nil, err
		}
		out[types.EdgeKey(key)] = types.ElementView{Entries: entries, Tombstones: tombstones}
	}
	return out, nil
}

func decodeProps(d *canonicalDecoder) (map[types.PropMapKey]types.PropEntry, error) {
	n, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	out := make(map[types.PropMapKey]types.PropEntry, n)
	for i := uint64(0); i < n; i++ {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		value, err := d.readValue()
		if err != nil {
			return nil, err
		}
		lamport, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		writer, err := d.readString()
		if err != nil {
			return nil, err
		}
		patchSha, err := d.readString()
		if err != nil {
			return nil, err
		}
		opIndex, err := d.readInt64()
		if err != nil {
			return nil, err
		}
		out[types.PropMapKey(key)] = types.PropEntry{
			Value: value,
			Winner: types.EventId{
				Lamport:  lamport,
				Writer:   types.WriterId(writer),
				PatchSha: patchSha,
				OpIndex:  int(opIndex),
			},
		}
	}
	return out, nil
}
