package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/cuemby/warpgraph/pkg/types"
)

// EncodeStateV5 produces the canonical byte encoding of a materialized
// state: every mapping sorted byte-lexicographically on its key, every
// dot-set sorted by (writerId, counter), fixed-width integers, and
// length-prefixed strings, so that two states equal as mathematical
// structures always encode to identical bytes regardless of map
// iteration order or how they were built up.
func EncodeStateV5(state *types.WarpStateV5) []byte {
	e := newCanonicalEncoder()

	e.writeUint64(uint64(state.SchemaVersion))
	encodeVersionVector(e, state.Frontier)
	encodeAliveNodes(e, state.AliveNodes)
	encodeAliveEdges(e, state.AliveEdges)
	encodeProps(e, state.Props)

	return e.bytes()
}

func encodeVersionVector(e *canonicalEncoder, vv types.VersionVector) {
	writers := vv.SortedWriters()
	e.writeUint64(uint64(len(writers)))
	for _, w := range writers {
		e.writeString(string(w))
		e.writeUint64(vv[w])
	}
}

func encodeAliveNodes(e *canonicalEncoder, nodes map[types.NodeId]types.ElementView) {
	keys := make([]string, 0, len(nodes))
	for n := range nodes {
		if len(nodes[n].Entries) > 0 {
			keys = append(keys, string(n))
		}
	}
	sort.Strings(keys)
	e.writeUint64(uint64(len(keys)))
	for _, k := range keys {
		view := nodes[types.NodeId(k)]
		e.writeString(k)
		e.writeDotSet(view.Entries)
		e.writeDotSet(view.Tombstones)
	}
}

func encodeAliveEdges(e *canonicalEncoder, edges map[types.EdgeKey]types.ElementView) {
	keys := make([]string, 0, len(edges))
	for k := range edges {
		if len(edges[k].Entries) > 0 {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	e.writeUint64(uint64(len(keys)))
	for _, k := range keys {
		view := edges[types.EdgeKey(k)]
		e.writeString(k)
		e.writeDotSet(view.Entries)
		e.writeDotSet(view.Tombstones)
	}
}

func encodeProps(e *canonicalEncoder, props map[types.PropMapKey]types.PropEntry) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	e.writeUint64(uint64(len(keys)))
	for _, k := range keys {
		entry := props[types.PropMapKey(k)]
		e.writeString(k)
		e.writeValue(entry.Value)
		e.writeUint64(entry.Winner.Lamport)
		e.writeString(string(entry.Winner.Writer))
		e.writeString(entry.Winner.PatchSha)
		e.writeInt64(int64(entry.Winner.OpIndex))
	}
}

// ComputeStateHashV5 returns the hex-encoded SHA-256 digest of the
// domain-separated canonical encoding of state. Two states equal as
// mathematical structures always hash identically, independent of
// insertion order or compaction history (permutation invariance, §8
// property 1; compaction safety, §8 property 3).
func ComputeStateHashV5(state *types.WarpStateV5) string {
	h := sha256.New()
	h.Write([]byte(stateHashDomain))
	h.Write(EncodeStateV5(state))
	return hex.EncodeToString(h.Sum(nil))
}
