package types

// TrustPolicy selects how a graph's trust record bears on sync
// acceptance: Any accepts a patch from any writer, whether or not it is
// named in TrustedWriters; AllWritersMustBeTrusted rejects any patch whose
// writer is absent from TrustedWriters even if sync auth otherwise succeeds.
type TrustPolicy string

const (
	TrustPolicyAny                     TrustPolicy = "any"
	TrustPolicyAllWritersMustBeTrusted TrustPolicy = "all_writers_must_be_trusted"
)

// TrustConfig is the decoded content of a graph's trust record: the
// policy-bearing document at the tip of refs/warp/<g>/trust.
type TrustConfig struct {
	Version int

	TrustedWriters []WriterId
	Policy         TrustPolicy

	// Epoch is an ISO-8601 timestamp string; a replica must reject an
	// incoming trust update whose Epoch sorts lexicographically before the
	// current tip's Epoch (monotonicity, §4.7). ISO-8601 date/time strings
	// compare correctly under plain string ordering, so no parsing is
	// needed to enforce this.
	Epoch string

	// RequiredSignatures is the minimum number of distinct allowed signers
	// that must have signed a trust commit for it to be accepted.
	RequiredSignatures int

	// AllowedSignersPath names the allowed-signers file (as consumed by an
	// external signature-verification collaborator) against which
	// signatures on trust commits are checked.
	AllowedSignersPath string
}

// Contains reports whether w appears in the trusted writer list.
func (c TrustConfig) Contains(w WriterId) bool {
	for _, tw := range c.TrustedWriters {
		if tw == w {
			return true
		}
	}
	return false
}

// TrustChangeReceipt is returned by an accepted initTrust/updateTrust call:
// the new commit digest, the canonical snapshot digest of its trust.json
// content, and the set of writers added/removed relative to the previous
// config (empty on initTrust, since there is no previous config).
type TrustChangeReceipt struct {
	CommitSha      string
	SnapshotDigest string
	Config         TrustConfig
	AddedWriters   []WriterId
	RemovedWriters []WriterId
}

// WriterEvaluation is evaluateWriters' per-writer verdict: whether w is
// permitted under the policy, and the human-readable reason (e.g.
// "trusted", "not in trusted list", "policy any admits untrusted writers").
type WriterEvaluation struct {
	Writer      WriterId
	Trusted     bool
	Explanation string
}

// EvaluationResult is evaluateWriters' full output: the writers permitted
// to proceed, the writers rejected, and every writer's explanation.
type EvaluationResult struct {
	EvaluatedWriters []WriterId
	UntrustedWriters []WriterId
	Explanations     map[WriterId]string
}
