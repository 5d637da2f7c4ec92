package types

// EventId is the total order key used to resolve concurrent PropSet
// writes to the same LWW register: (lamport, writerId, patchSha, opIndex).
// Comparison is lexicographic on this 4-tuple with lamport numeric and the
// rest string-compare, matching the RGA-style "(Timestamp, NodeID)"
// happened-before tie-break but extended with the patch digest and the
// op's position within the patch so that two ops in the same patch at the
// same lamport still order deterministically.
type EventId struct {
	Lamport  uint64
	Writer   WriterId
	PatchSha string
	OpIndex  int
}

// Less reports whether e sorts strictly before o under the total order.
func (e EventId) Less(o EventId) bool {
	if e.Lamport != o.Lamport {
		return e.Lamport < o.Lamport
	}
	if e.Writer != o.Writer {
		return e.Writer < o.Writer
	}
	if e.PatchSha != o.PatchSha {
		return e.PatchSha < o.PatchSha
	}
	return e.OpIndex < o.OpIndex
}

// Greater reports whether e sorts strictly after o.
func (e EventId) Greater(o EventId) bool {
	return o.Less(e)
}
