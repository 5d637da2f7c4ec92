package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// patchHashDomain domain-separates patch content hashes from state hashes
// so a patch and a state can never collide even if their encodings
// happened to coincide.
const patchHashDomain = "warp-v1:patch\x00"

// wireDot/wireOp/wireValue/wirePatch are the canonical JSON shapes.
// json.Marshal on a Go struct emits fields in struct-declaration order
// and writes map keys (wirePatch.Context) in sorted order, so two calls
// with equal input always produce byte-identical output.

type wireDot struct {
	Writer  string `json:"writer"`
	Counter uint64 `json:"counter"`
}

type wireValue struct {
	Kind       string  `json:"kind"`
	ScalarKind string  `json:"scalar_kind,omitempty"`
	Str        string  `json:"str,omitempty"`
	Int        int64   `json:"int,omitempty"`
	Float      float64 `json:"float,omitempty"`
	Bool       bool    `json:"bool,omitempty"`
	BlobDigest string  `json:"blob_digest,omitempty"`
}

type wireOp struct {
	Kind string `json:"kind"`

	Node  string     `json:"node,omitempty"`
	Dot   *wireDot   `json:"dot,omitempty"`
	Dots  []wireDot  `json:"dots,omitempty"`
	From  string     `json:"from,omitempty"`
	To    string     `json:"to,omitempty"`
	Label string     `json:"label,omitempty"`
	Key   string     `json:"key,omitempty"`
	Value *wireValue `json:"value,omitempty"`
}

type wirePatch struct {
	Writer         string            `json:"writer"`
	Lamport        uint64            `json:"lamport"`
	Context        map[string]uint64 `json:"context"`
	Ops            []wireOp          `json:"ops"`
	BaseCheckpoint *string           `json:"base_checkpoint,omitempty"`
}

func toWireDot(d types.Dot) wireDot {
	return wireDot{Writer: string(d.Writer), Counter: d.Counter}
}

func fromWireDot(d wireDot) types.Dot {
	return types.Dot{Writer: types.WriterId(d.Writer), Counter: d.Counter}
}

func toWireValue(v types.Value) wireValue {
	if v.Kind == types.ValueKindBlob {
		return wireValue{Kind: string(types.ValueKindBlob), BlobDigest: v.BlobDigest}
	}
	return wireValue{
		Kind:       string(types.ValueKindInline),
		ScalarKind: string(v.ScalarKind),
		Str:        v.Str,
		Int:        v.Int,
		Float:      v.Float,
		Bool:       v.Bool,
	}
}

func fromWireValue(v wireValue) types.Value {
	if types.ValueKind(v.Kind) == types.ValueKindBlob {
		return types.BlobValue(v.BlobDigest)
	}
	return types.Value{
		Kind:       types.ValueKindInline,
		ScalarKind: types.ScalarKind(v.ScalarKind),
		Str:        v.Str,
		Int:        v.Int,
		Float:      v.Float,
		Bool:       v.Bool,
	}
}

func toWireOp(op types.Op) (wireOp, error) {
	w := wireOp{Kind: string(op.Kind)}
	switch op.Kind {
	case types.OpNodeAdd:
		w.Node = string(op.NodeAdd.Node)
		d := toWireDot(op.NodeAdd.Dot)
		w.Dot = &d
	case types.OpNodeRemove:
		for _, d := range op.NodeRemove.ObservedDots {
			w.Dots = append(w.Dots, toWireDot(d))
		}
	case types.OpEdgeAdd:
		w.From = string(op.EdgeAdd.From)
		w.To = string(op.EdgeAdd.To)
		w.Label = string(op.EdgeAdd.Label)
		d := toWireDot(op.EdgeAdd.Dot)
		w.Dot = &d
	case types.OpEdgeRemove:
		for _, d := range op.EdgeRemove.ObservedDots {
			w.Dots = append(w.Dots, toWireDot(d))
		}
	case types.OpPropSet:
		w.Node = string(op.PropSet.Node)
		w.Key = string(op.PropSet.Key)
		val := toWireValue(op.PropSet.Value)
		w.Value = &val
	default:
		return wireOp{}, werrors.New(werrors.EUsage, "cannot encode unknown op kind").With("kind", string(op.Kind))
	}
	return w, nil
}

func fromWireOp(w wireOp) (types.Op, error) {
	switch types.OpKind(w.Kind) {
	case types.OpNodeAdd:
		if w.Dot == nil {
			return types.Op{}, werrors.New(werrors.EUsage, "node_add op missing dot")
		}
		return types.NewNodeAdd(types.NodeId(w.Node), fromWireDot(*w.Dot)), nil
	case types.OpNodeRemove:
		return types.NewNodeRemove(fromWireDots(w.Dots)), nil
	case types.OpEdgeAdd:
		if w.Dot == nil {
			return types.Op{}, werrors.New(werrors.EUsage, "edge_add op missing dot")
		}
		return types.NewEdgeAdd(types.NodeId(w.From), types.NodeId(w.To), types.EdgeLabel(w.Label), fromWireDot(*w.Dot)), nil
	case types.OpEdgeRemove:
		return types.NewEdgeRemove(fromWireDots(w.Dots)), nil
	case types.OpPropSet:
		if w.Value == nil {
			return types.Op{}, werrors.New(werrors.EUsage, "prop_set op missing value")
		}
		return types.NewPropSet(types.NodeId(w.Node), types.PropKey(w.Key), fromWireValue(*w.Value)), nil
	default:
		return types.Op{}, werrors.New(werrors.EUsage, "cannot decode unknown op kind").With("kind", w.Kind)
	}
}

func fromWireDots(dots []wireDot) []types.Dot {
	if dots == nil {
		return nil
	}
	out := make([]types.Dot, len(dots))
	for i, d := range dots {
		out[i] = fromWireDot(d)
	}
	return out
}

// EncodePatch produces the canonical JSON encoding of p. Ops are encoded
// in the order they appear in p.Ops (patch op order is caller-meaningful,
// not sorted); Context is encoded with sorted keys since Go's
// encoding/json already sorts map[string]X keys byte-lexicographically,
// which matches the canonical mapping-ordering rule used elsewhere.
func EncodePatch(p types.Patch) ([]byte, error) {
	w := wirePatch{
		Writer:         string(p.Writer),
		Lamport:        p.Lamport,
		Context:        make(map[string]uint64, len(p.Context)),
		BaseCheckpoint: p.BaseCheckpoint,
	}
	for writer, counter := range p.Context {
		w.Context[string(writer)] = counter
	}
	for _, op := range p.Ops {
		wop, err := toWireOp(op)
		if err != nil {
			return nil, err
		}
		w.Ops = append(w.Ops, wop)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "encode patch")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodePatch parses the canonical JSON encoding produced by EncodePatch.
// The returned Patch's Sha field is left empty; call HashPatch separately
// once the patch is otherwise final.
func DecodePatch(data []byte) (types.Patch, error) {
	var w wirePatch
	if err := json.Unmarshal(data, &w); err != nil {
		return types.Patch{}, werrors.Wrap(werrors.EUsage, err, "decode patch")
	}

	ctx := types.NewVersionVector()
	for writer, counter := range w.Context {
		ctx[types.WriterId(writer)] = counter
	}

	ops := make([]types.Op, 0, len(w.Ops))
	for _, wop := range w.Ops {
		op, err := fromWireOp(wop)
		if err != nil {
			return types.Patch{}, err
		}
		ops = append(ops, op)
	}

	return types.Patch{
		Writer:         types.WriterId(w.Writer),
		Lamport:        w.Lamport,
		Context:        ctx,
		Ops:            ops,
		BaseCheckpoint: w.BaseCheckpoint,
	}, nil
}

// HashPatch computes the hex-encoded, domain-separated SHA-256 digest of
// p's canonical encoding. Encoding a patch, decoding it, and re-encoding
// it must reproduce the same bytes and therefore the same hash.
func HashPatch(p types.Patch) (string, error) {
	encoded, err := EncodePatch(p)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(patchHashDomain))
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}

