package types

// AuditResult is the verdict produced by walking a graph's receipt chain.
type AuditResult string

const (
	// AuditValid: every receipt in the chain verifies against its stated
	// predecessor and signer set with no gaps.
	AuditValid AuditResult = "VALID"
	// AuditPartial: a verifiable prefix exists but the chain could not be
	// walked to genesis (e.g. a pruned/compacted predecessor).
	AuditPartial AuditResult = "PARTIAL"
	// AuditInvalid: a receipt fails signature or hash-chain verification.
	AuditInvalid AuditResult = "INVALID"
)

// AuditReceipt is one entry in the append-only audit chain: a commitment
// to a patch having been accepted, linked to its predecessor by hash.
type AuditReceipt struct {
	Sha        string
	PrevSha    string
	PatchSha   string
	Writer     WriterId
	Lamport    uint64
	Signatures []string
}

// AuditFinding describes one problem surfaced while verifying a receipt
// chain, attributed to the receipt at fault.
type AuditFinding struct {
	ReceiptSha string
	Reason     string
}

// AuditReport is the full result of verifying a graph's receipt chain:
// the overall verdict plus any findings that justify a PARTIAL or INVALID
// result.
type AuditReport struct {
	Result       AuditResult
	VerifiedTo   string
	Findings     []AuditFinding
	ReceiptCount int
}
