/*
Package codec implements WarpGraph's two canonical wire formats: the
permutation-invariant byte encoding and SHA-256 hash of a materialized
state ([EncodeStateV5], [ComputeStateHashV5]), and the canonical JSON
encoding, decoding, and content hash of a patch ([EncodePatch],
[DecodePatch], [HashPatch]).

Both formats are domain-separated (a fixed prefix precedes every hash
input) so a state digest and a patch digest can never collide, and both
are deterministic across processes and machines: encoding the same
logical value twice, on any machine, produces identical bytes.
*/
package codec
