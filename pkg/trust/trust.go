// Package trust implements the Trust Record Service: a
// fast-forward-only commit chain, one per graph, carrying a canonical
// trust.json document that names the writers a graph accepts patches
// from and the policy used to evaluate them. Structured like a
// CertAuthority wrapping a storage.Store with CAS-guarded issuance of
// signed certificates, but around a content-addressed commit chain
// instead of a bucket keyed by serial: trust.go CAS-advances a single
// named pointer per graph, since there is exactly one live trust
// document per graph rather than many certs.
package trust

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

const trustBlobPath = "trust.json"

// RefName returns the trust record pointer name for graph.
func RefName(graph string) string {
	return "refs/warp/" + graph + "/trust/root"
}

// wireTrustConfig is the canonical on-disk shape of trust.json: fields
// declared in lexicographic order by JSON tag so encoding/json's
// declaration-order field emission produces the canonical
// "keys in lexicographic order" form without a custom
// marshaler.
type wireTrustConfig struct {
	AllowedSignersPath string   `json:"allowedSignersPath,omitempty"`
	Epoch              string   `json:"epoch"`
	Policy             string   `json:"policy"`
	RequiredSignatures int      `json:"requiredSignatures"`
	TrustedWriters     []string `json:"trustedWriters"`
	Version            int      `json:"version"`
}

func toWire(c types.TrustConfig) wireTrustConfig {
	writers := make([]string, len(c.TrustedWriters))
	for i, w := range c.TrustedWriters {
		writers[i] = string(w)
	}
	return wireTrustConfig{
		AllowedSignersPath: c.AllowedSignersPath,
		Epoch:              c.Epoch,
		Policy:             string(c.Policy),
		RequiredSignatures: c.RequiredSignatures,
		TrustedWriters:     writers,
		Version:            c.Version,
	}
}

func fromWire(w wireTrustConfig) types.TrustConfig {
	writers := make([]types.WriterId, len(w.TrustedWriters))
	for i, s := range w.TrustedWriters {
		writers[i] = types.WriterId(s)
	}
	return types.TrustConfig{
		Version:            w.Version,
		TrustedWriters:     writers,
		Policy:             types.TrustPolicy(w.Policy),
		Epoch:              w.Epoch,
		RequiredSignatures: w.RequiredSignatures,
		AllowedSignersPath: w.AllowedSignersPath,
	}
}

// Canonicalize returns c with its writer list trimmed, deduplicated, and
// sorted.
func Canonicalize(c types.TrustConfig) types.TrustConfig {
	seen := make(map[types.WriterId]struct{}, len(c.TrustedWriters))
	out := make([]types.WriterId, 0, len(c.TrustedWriters))
	for _, w := range c.TrustedWriters {
		trimmed := types.WriterId(strings.TrimSpace(string(w)))
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	c.TrustedWriters = out
	return c
}

// EncodeCanonical returns the canonical trust.json bytes for c.
func EncodeCanonical(c types.TrustConfig) ([]byte, error) {
	data, err := json.Marshal(toWire(Canonicalize(c)))
	if err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "encode trust config")
	}
	return data, nil
}

// Validate enforces the trust document's schema rules: exact version=1,
// policy in the supported allowlist (else E_TRUST_POLICY_RESERVED), and
// a non-empty epoch.
func Validate(c types.TrustConfig) error {
	if c.Version != 1 {
		return werrors.New(werrors.ETrustSchemaInvalid, "unsupported trust schema version").
			With("version", strconv.Itoa(c.Version))
	}
	switch c.Policy {
	case types.TrustPolicyAny, types.TrustPolicyAllWritersMustBeTrusted:
	default:
		return werrors.New(werrors.ETrustPolicyReserved, "reserved or unsupported trust policy").
			With("policy", string(c.Policy))
	}
	if strings.TrimSpace(c.Epoch) == "" {
		return werrors.New(werrors.ETrustSchemaInvalid, "trust epoch must not be empty")
	}
	return nil
}

// Service is the Trust Record Service for one graph, operating against
// an Object Store Port.
type Service struct {
	store  objectstore.Port
	crypto cryptoport.Port
	graph  string
}

// New returns a trust Service for graph.
func New(store objectstore.Port, crypto cryptoport.Port, graph string) *Service {
	return &Service{store: store, crypto: crypto, graph: graph}
}

func (s *Service) writeCommit(ctx context.Context, cfg types.TrustConfig, parents []string) (commitDigest, snapshotDigest string, err error) {
	data, err := EncodeCanonical(cfg)
	if err != nil {
		return "", "", err
	}
	snapshotDigest, err = s.crypto.Hash(cryptoport.SHA256, data)
	if err != nil {
		return "", "", werrors.Wrap(werrors.EInternal, err, "hash trust snapshot")
	}
	blobDigest, err := s.store.WriteBlob(ctx, data)
	if err != nil {
		return "", "", werrors.Wrap(werrors.EInternal, err, "write trust blob")
	}
	treeDigest, err := s.store.WriteTree(ctx, []objectstore.TreeEntry{
		{Mode: "100644", Path: trustBlobPath, Oid: blobDigest},
	})
	if err != nil {
		return "", "", werrors.Wrap(werrors.EInternal, err, "write trust tree")
	}
	commitDigest, err = s.store.CommitNodeWithTree(ctx, objectstore.CommitSpec{
		TreeOid: treeDigest,
		Parents: parents,
		Message: "trust update",
	})
	if err != nil {
		return "", "", werrors.Wrap(werrors.EInternal, err, "write trust commit")
	}
	return commitDigest, snapshotDigest, nil
}

// InitTrust creates the genesis trust record for the graph. It fails with
// E_TRUST_REF_CONFLICT if the pointer already exists (CAS from nil).
func (s *Service) InitTrust(ctx context.Context, cfg types.TrustConfig) (types.TrustChangeReceipt, error) {
	cfg = Canonicalize(cfg)
	if err := Validate(cfg); err != nil {
		return types.TrustChangeReceipt{}, err
	}
	commitDigest, snapshotDigest, err := s.writeCommit(ctx, cfg, nil)
	if err != nil {
		return types.TrustChangeReceipt{}, err
	}
	if err := s.store.CompareAndSwapRef(ctx, RefName(s.graph), commitDigest, nil); err != nil {
		return types.TrustChangeReceipt{}, werrors.Wrap(werrors.ETrustRefConflict, err, "trust record already exists").With("graph", s.graph)
	}
	return types.TrustChangeReceipt{
		CommitSha:      commitDigest,
		SnapshotDigest: snapshotDigest,
		Config:         cfg,
		AddedWriters:   cfg.TrustedWriters,
	}, nil
}

// UpdateTrust appends a new trust record on top of the current tip.
// newConfig.Epoch must sort at or after the current tip's epoch
// (E_TRUST_EPOCH_REGRESSION otherwise); the update is CAS'd from the
// current tip (E_TRUST_REF_CONFLICT on a concurrent writer winning the
// race). actor is recorded only for the caller's own audit logging; the
// trust document itself carries no actor field.
func (s *Service) UpdateTrust(ctx context.Context, newConfig types.TrustConfig, actor string) (types.TrustChangeReceipt, error) {
	_ = actor
	newConfig = Canonicalize(newConfig)
	if err := Validate(newConfig); err != nil {
		return types.TrustChangeReceipt{}, err
	}

	ref := RefName(s.graph)
	tip, found, err := s.store.ReadRef(ctx, ref)
	if err != nil {
		return types.TrustChangeReceipt{}, werrors.Wrap(werrors.EInternal, err, "read trust pointer")
	}
	if !found {
		return types.TrustChangeReceipt{}, werrors.New(werrors.ENotFound, "no trust record exists for graph").With("graph", s.graph)
	}

	current, err := s.readAtCommit(ctx, tip)
	if err != nil {
		return types.TrustChangeReceipt{}, err
	}
	if newConfig.Epoch < current.Epoch {
		return types.TrustChangeReceipt{}, werrors.New(werrors.ETrustEpochRegression, "new trust epoch precedes current epoch").
			With("current_epoch", current.Epoch).With("new_epoch", newConfig.Epoch)
	}

	commitDigest, snapshotDigest, err := s.writeCommit(ctx, newConfig, []string{tip})
	if err != nil {
		return types.TrustChangeReceipt{}, err
	}
	expected := tip
	if err := s.store.CompareAndSwapRef(ctx, ref, commitDigest, &expected); err != nil {
		return types.TrustChangeReceipt{}, werrors.Wrap(werrors.ETrustRefConflict, err, "concurrent trust update").With("graph", s.graph)
	}

	added, removed := diffWriters(current.TrustedWriters, newConfig.TrustedWriters)
	return types.TrustChangeReceipt{
		CommitSha:      commitDigest,
		SnapshotDigest: snapshotDigest,
		Config:         newConfig,
		AddedWriters:   added,
		RemovedWriters: removed,
	}, nil
}

func diffWriters(oldList, newList []types.WriterId) (added, removed []types.WriterId) {
	oldSet := make(map[types.WriterId]struct{}, len(oldList))
	for _, w := range oldList {
		oldSet[w] = struct{}{}
	}
	newSet := make(map[types.WriterId]struct{}, len(newList))
	for _, w := range newList {
		newSet[w] = struct{}{}
	}
	for _, w := range newList {
		if _, ok := oldSet[w]; !ok {
			added = append(added, w)
		}
	}
	for _, w := range oldList {
		if _, ok := newSet[w]; !ok {
			removed = append(removed, w)
		}
	}
	return added, removed
}

// ReadTrustConfig returns the trust config at the graph's current tip.
func (s *Service) ReadTrustConfig(ctx context.Context) (types.TrustConfig, error) {
	tip, found, err := s.store.ReadRef(ctx, RefName(s.graph))
	if err != nil {
		return types.TrustConfig{}, werrors.Wrap(werrors.EInternal, err, "read trust pointer")
	}
	if !found {
		return types.TrustConfig{}, werrors.New(werrors.ENotFound, "no trust record exists for graph").With("graph", s.graph)
	}
	return s.readAtCommit(ctx, tip)
}

// ReadTrustConfigAtCommit pins a read to a historical trust commit.
func (s *Service) ReadTrustConfigAtCommit(ctx context.Context, sha string) (types.TrustConfig, error) {
	exists, err := s.store.NodeExists(ctx, sha)
	if err != nil {
		return types.TrustConfig{}, werrors.Wrap(werrors.EInternal, err, "check trust pin")
	}
	if !exists {
		return types.TrustConfig{}, werrors.New(werrors.ETrustPinInvalid, "pinned trust commit does not exist").With("sha", sha)
	}
	return s.readAtCommit(ctx, sha)
}

func (s *Service) readAtCommit(ctx context.Context, commitSha string) (types.TrustConfig, error) {
	treeDigest, err := s.store.GetCommitTree(ctx, commitSha)
	if err != nil {
		return types.TrustConfig{}, werrors.Wrap(werrors.ETrustPinInvalid, err, "resolve trust commit tree").With("sha", commitSha)
	}
	oids, err := s.store.ReadTreeOids(ctx, treeDigest)
	if err != nil {
		return types.TrustConfig{}, werrors.Wrap(werrors.ETrustPinInvalid, err, "read trust tree entries").With("sha", commitSha)
	}
	blobDigest, ok := oids[trustBlobPath]
	if !ok {
		return types.TrustConfig{}, werrors.New(werrors.ETrustPinInvalid, "trust commit missing trust.json").With("sha", commitSha)
	}
	data, err := s.store.ReadBlob(ctx, blobDigest)
	if err != nil {
		return types.TrustConfig{}, werrors.Wrap(werrors.ETrustPinInvalid, err, "read trust blob").With("sha", commitSha)
	}
	var w wireTrustConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return types.TrustConfig{}, werrors.Wrap(werrors.ETrustSchemaInvalid, err, "decode trust.json").With("sha", commitSha)
	}
	cfg := fromWire(w)
	if err := Validate(cfg); err != nil {
		return types.TrustConfig{}, err
	}
	return cfg, nil
}

// EvaluateWriters is a pure function: under TrustPolicyAny every writer
// is permitted (writers absent from TrustedWriters are still permitted,
// but their explanation says so); under
// TrustPolicyAllWritersMustBeTrusted, a writer absent from TrustedWriters
// is rejected.
func EvaluateWriters(writerIds []types.WriterId, config types.TrustConfig) types.EvaluationResult {
	result := types.EvaluationResult{Explanations: make(map[types.WriterId]string, len(writerIds))}
	sorted := append([]types.WriterId(nil), writerIds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, w := range sorted {
		trusted := config.Contains(w)
		switch config.Policy {
		case types.TrustPolicyAllWritersMustBeTrusted:
			if trusted {
				result.EvaluatedWriters = append(result.EvaluatedWriters, w)
				result.Explanations[w] = "trusted"
			} else {
				result.UntrustedWriters = append(result.UntrustedWriters, w)
				result.Explanations[w] = "not in trusted writer list; policy requires all writers be trusted"
			}
		default: // TrustPolicyAny
			result.EvaluatedWriters = append(result.EvaluatedWriters, w)
			if trusted {
				result.Explanations[w] = "trusted"
			} else {
				result.Explanations[w] = "not in trusted writer list; policy any admits untrusted writers"
			}
		}
	}
	return result
}

// HistoryEntry is one commit walked by GetTrustHistory.
type HistoryEntry struct {
	CommitSha string
	Config    types.TrustConfig
}

// GetTrustHistory walks the trust chain from its tip to genesis, bounded
// by maxWalk (0 means the default of 1000).
func (s *Service) GetTrustHistory(ctx context.Context, maxWalk int) ([]HistoryEntry, error) {
	if maxWalk <= 0 {
		maxWalk = 1000
	}
	tip, found, err := s.store.ReadRef(ctx, RefName(s.graph))
	if err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "read trust pointer")
	}
	if !found {
		return nil, nil
	}

	var out []HistoryEntry
	sha := tip
	for i := 0; i < maxWalk && sha != ""; i++ {
		cfg, err := s.readAtCommit(ctx, sha)
		if err != nil {
			return out, err
		}
		out = append(out, HistoryEntry{CommitSha: sha, Config: cfg})

		info, err := s.store.GetNodeInfo(ctx, sha)
		if err != nil {
			return out, werrors.Wrap(werrors.EInternal, err, "walk trust history").With("sha", sha)
		}
		if len(info.Parents) == 0 {
			break
		}
		sha = info.Parents[0]
	}
	return out, nil
}

// Finding is one diagnosis emitted by Diagnose.
type Finding struct {
	Code    string
	Message string
}

// Diagnose reports structural problems with a graph's trust record:
// missing pointer, empty trusted-writer list, unsupported policy, or an
// invalid pin. pkg/doctor wraps this as one of its composable checks.
func (s *Service) Diagnose(ctx context.Context, pinSha string) []Finding {
	var findings []Finding

	var cfg types.TrustConfig
	var err error
	if pinSha != "" {
		cfg, err = s.ReadTrustConfigAtCommit(ctx, pinSha)
	} else {
		cfg, err = s.ReadTrustConfig(ctx)
	}
	if err != nil {
		switch werrors.CodeOf(err) {
		case werrors.ENotFound:
			findings = append(findings, Finding{Code: "TRUST_REF_MISSING", Message: "no trust record exists for this graph"})
		case werrors.ETrustPinInvalid:
			findings = append(findings, Finding{Code: "TRUST_PIN_INVALID", Message: err.Error()})
		default:
			findings = append(findings, Finding{Code: "TRUST_SCHEMA_INVALID", Message: err.Error()})
		}
		return findings
	}

	if len(cfg.TrustedWriters) == 0 {
		findings = append(findings, Finding{Code: "TRUST_EMPTY_WRITER_LIST", Message: "trusted writer list is empty"})
	}
	switch cfg.Policy {
	case types.TrustPolicyAny, types.TrustPolicyAllWritersMustBeTrusted:
	default:
		findings = append(findings, Finding{Code: "TRUST_POLICY_UNSUPPORTED", Message: "unsupported trust policy: " + string(cfg.Policy)})
	}
	return findings
}
