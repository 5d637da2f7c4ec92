// Package audit implements the Audit Verifier: an
// append-only, per-writer receipt chain attesting that a patch was
// accepted, and a walker that validates a chain's signatures and
// linkage back to genesis. It is grounded on pkg/trust (the sibling
// fast-forward commit chain it is structurally identical to) and, for
// the append-only per-writer pointer itself, on pkg/patchchain.
package audit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

const receiptBlobPath = "receipt.json"

// receiptHashDomain domain-separates a receipt's identity hash from
// patch and state hashes computed elsewhere in the module.
const receiptHashDomain = "warp-v1:receipt\x00"

// RefName returns writer's audit chain pointer name within graph.
func RefName(graph string, writer types.WriterId) string {
	return "refs/warp/" + graph + "/audit/" + string(writer)
}

// RefPrefix returns the listRefs prefix enumerating every writer with an
// audit chain in graph.
func RefPrefix(graph string) string {
	return "refs/warp/" + graph + "/audit/"
}

// SignerKeys maps a signer id — a writer named in a trust record's
// allowed-signers keyring — to its HMAC secret. Loading the keyring
// itself from TrustConfig.AllowedSignersPath is the host's concern; this
// package only consumes the resolved table.
type SignerKeys map[string][]byte

type wireReceipt struct {
	Lamport    uint64   `json:"lamport"`
	PatchSha   string   `json:"patchSha"`
	PrevSha    string   `json:"prevSha"`
	Sha        string   `json:"sha"`
	Signatures []string `json:"signatures"`
	Writer     string   `json:"writer"`
}

func canonicalPayload(prevSha, patchSha string, writer types.WriterId, lamport uint64) string {
	return receiptHashDomain + prevSha + "|" + patchSha + "|" + string(writer) + "|" + strconv.FormatUint(lamport, 10)
}

// Service is the Audit Verifier for one graph.
type Service struct {
	store  objectstore.Port
	crypto cryptoport.Port
	graph  string
}

// New returns an audit Service for graph.
func New(store objectstore.Port, crypto cryptoport.Port, graph string) *Service {
	return &Service{store: store, crypto: crypto, graph: graph}
}

// Append writes a new receipt for patchSha onto writer's audit chain,
// signed by every signer in signerIDs using keys, and CAS-advances the
// chain's pointer. Called by pkg/graph immediately after a patch commits
// or is accepted via sync.
func (s *Service) Append(ctx context.Context, writer types.WriterId, patchSha string, lamport uint64, keys SignerKeys, signerIDs []string) (types.AuditReceipt, error) {
	ref := RefName(s.graph, writer)
	prevTip, found, err := s.store.ReadRef(ctx, ref)
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "read audit pointer").With("writer", string(writer))
	}

	var prevSha string
	if found {
		prevReceipt, err := s.readReceiptAtCommit(ctx, prevTip)
		if err != nil {
			return types.AuditReceipt{}, err
		}
		prevSha = prevReceipt.Sha
	}

	sha, err := s.crypto.Hash(cryptoport.SHA256, []byte(canonicalPayload(prevSha, patchSha, writer, lamport)))
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "hash audit receipt")
	}

	sorted := append([]string(nil), signerIDs...)
	sort.Strings(sorted)
	sigs := make([]string, 0, len(sorted))
	for _, id := range sorted {
		secret, ok := keys[id]
		if !ok {
			return types.AuditReceipt{}, werrors.New(werrors.EInternal, "no key for signer").With("signer", id)
		}
		mac, err := s.crypto.HMAC(cryptoport.SHA256, secret, []byte(sha))
		if err != nil {
			return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "sign audit receipt").With("signer", id)
		}
		sigs = append(sigs, id+":"+hex.EncodeToString(mac))
	}

	receipt := types.AuditReceipt{
		Sha:        sha,
		PrevSha:    prevSha,
		PatchSha:   patchSha,
		Writer:     writer,
		Lamport:    lamport,
		Signatures: sigs,
	}

	data, err := json.Marshal(wireReceipt{
		Lamport:    receipt.Lamport,
		PatchSha:   receipt.PatchSha,
		PrevSha:    receipt.PrevSha,
		Sha:        receipt.Sha,
		Signatures: receipt.Signatures,
		Writer:     string(receipt.Writer),
	})
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "encode audit receipt")
	}
	blobDigest, err := s.store.WriteBlob(ctx, data)
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "write receipt blob")
	}
	treeDigest, err := s.store.WriteTree(ctx, []objectstore.TreeEntry{
		{Mode: "100644", Path: receiptBlobPath, Oid: blobDigest},
	})
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "write receipt tree")
	}
	var parents []string
	if found {
		parents = []string{prevTip}
	}
	commitDigest, err := s.store.CommitNodeWithTree(ctx, objectstore.CommitSpec{
		TreeOid: treeDigest,
		Parents: parents,
		Message: "audit receipt " + sha,
	})
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "write receipt commit")
	}

	var expected *string
	if found {
		expected = &prevTip
	}
	if err := s.store.CompareAndSwapRef(ctx, ref, commitDigest, expected); err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.ERefConflict, err, "advance audit pointer").With("writer", string(writer))
	}
	return receipt, nil
}

func (s *Service) readReceiptAtCommit(ctx context.Context, commitSha string) (types.AuditReceipt, error) {
	treeDigest, err := s.store.GetCommitTree(ctx, commitSha)
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "resolve receipt commit tree").With("sha", commitSha)
	}
	oids, err := s.store.ReadTreeOids(ctx, treeDigest)
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "read receipt tree entries").With("sha", commitSha)
	}
	blobDigest, ok := oids[receiptBlobPath]
	if !ok {
		return types.AuditReceipt{}, werrors.New(werrors.EInternal, "receipt commit missing receipt.json").With("sha", commitSha)
	}
	data, err := s.store.ReadBlob(ctx, blobDigest)
	if err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "read receipt blob").With("sha", commitSha)
	}
	var w wireReceipt
	if err := json.Unmarshal(data, &w); err != nil {
		return types.AuditReceipt{}, werrors.Wrap(werrors.EInternal, err, "decode receipt.json").With("sha", commitSha)
	}
	return types.AuditReceipt{
		Sha:        w.Sha,
		PrevSha:    w.PrevSha,
		PatchSha:   w.PatchSha,
		Writer:     types.WriterId(w.Writer),
		Lamport:    w.Lamport,
		Signatures: w.Signatures,
	}, nil
}

// VerifyChain walks writer's audit chain tip→genesis,
// validating each receipt's signatures against trustConfig, its linkage
// to its predecessor, and that its referenced patch exists on writer's
// patch chain. requiredSignatures is the minimum number of distinct
// valid signer signatures a receipt must carry (trustConfig's
// RequiredSignatures, passed explicitly so callers may pin historical
// policy).
func (s *Service) VerifyChain(ctx context.Context, writer types.WriterId, trustConfig types.TrustConfig, keys SignerKeys, requiredSignatures int) (types.AuditReport, error) {
	report := types.AuditReport{Result: types.AuditValid}

	patchShas, err := s.writerPatchShas(ctx, writer)
	if err != nil {
		return types.AuditReport{}, err
	}

	tip, found, err := s.store.ReadRef(ctx, RefName(s.graph, writer))
	if err != nil {
		return types.AuditReport{}, werrors.Wrap(werrors.EInternal, err, "read audit pointer").With("writer", string(writer))
	}
	if !found {
		report.Result = types.AuditPartial
		report.Findings = append(report.Findings, types.AuditFinding{Reason: "no audit chain exists for writer"})
		return report, nil
	}

	trusted := make(map[string]struct{}, len(trustConfig.TrustedWriters))
	for _, w := range trustConfig.TrustedWriters {
		trusted[string(w)] = struct{}{}
	}

	var childPrevSha string
	haveChild := false
	sha := tip
	for sha != "" {
		receipt, err := s.readReceiptAtCommit(ctx, sha)
		if err != nil {
			report.Result = types.AuditPartial
			report.VerifiedTo = sha
			report.Findings = append(report.Findings, types.AuditFinding{ReceiptSha: sha, Reason: "receipt unreadable: " + err.Error()})
			break
		}
		report.ReceiptCount++

		if haveChild && receipt.Sha != childPrevSha {
			report.Result = types.AuditInvalid
			report.Findings = append(report.Findings, types.AuditFinding{ReceiptSha: receipt.Sha, Reason: "receipt does not link to its child's prevSha"})
		}

		expectedSha, hashErr := s.crypto.Hash(cryptoport.SHA256, []byte(canonicalPayload(receipt.PrevSha, receipt.PatchSha, receipt.Writer, receipt.Lamport)))
		if hashErr != nil || expectedSha != receipt.Sha {
			report.Result = types.AuditInvalid
			report.Findings = append(report.Findings, types.AuditFinding{ReceiptSha: receipt.Sha, Reason: "receipt content does not match its identity hash"})
		}

		if _, ok := patchShas[receipt.PatchSha]; !ok {
			report.Result = types.AuditInvalid
			report.Findings = append(report.Findings, types.AuditFinding{ReceiptSha: receipt.Sha, Reason: "referenced patch does not exist on writer's chain"})
		}

		valid := s.countValidSignatures(receipt, trusted, keys)
		if valid < requiredSignatures {
			report.Result = types.AuditInvalid
			report.Findings = append(report.Findings, types.AuditFinding{
				ReceiptSha: receipt.Sha,
				Reason:     "insufficient valid trusted signatures: have " + strconv.Itoa(valid) + ", need " + strconv.Itoa(requiredSignatures),
			})
		}

		report.VerifiedTo = receipt.Sha
		childPrevSha = receipt.PrevSha
		haveChild = true

		if receipt.PrevSha == "" {
			sha = ""
			break
		}

		info, infoErr := s.store.GetNodeInfo(ctx, sha)
		if infoErr != nil || len(info.Parents) == 0 {
			if report.Result == types.AuditValid {
				report.Result = types.AuditPartial
			}
			report.Findings = append(report.Findings, types.AuditFinding{ReceiptSha: receipt.Sha, Reason: "chain truncated before reaching genesis"})
			break
		}
		sha = info.Parents[0]
	}

	return report, nil
}

func (s *Service) countValidSignatures(receipt types.AuditReceipt, trusted map[string]struct{}, keys SignerKeys) int {
	valid := 0
	for _, sig := range receipt.Signatures {
		signer, macHex, ok := strings.Cut(sig, ":")
		if !ok {
			continue
		}
		if _, ok := trusted[signer]; !ok {
			continue
		}
		secret, ok := keys[signer]
		if !ok {
			continue
		}
		mac, err := hex.DecodeString(macHex)
		if err != nil {
			continue
		}
		expected, err := s.crypto.HMAC(cryptoport.SHA256, secret, []byte(receipt.Sha))
		if err != nil {
			continue
		}
		if s.crypto.TimingSafeEqual(expected, mac) {
			valid++
		}
	}
	return valid
}

// writerPatchShas returns the set of content-hash shas for every patch on
// writer's patch chain, used to validate that an audit receipt names a
// patch that genuinely belongs to that writer.
func (s *Service) writerPatchShas(ctx context.Context, writer types.WriterId) (map[string]struct{}, error) {
	tip, found, err := patchchain.Tip(ctx, s.store, s.graph, writer)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]struct{}{}, nil
	}
	patches, err := patchchain.WalkSince(ctx, s.store, tip, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(patches))
	for _, p := range patches {
		out[p.Sha] = struct{}{}
	}
	return out, nil
}

// Summary is the whole-graph tally returned by VerifyAll.
type Summary struct {
	Total   int
	Valid   int
	Partial int
	Invalid int
}

// ChainResult pairs a writer with its verification report.
type ChainResult struct {
	Writer types.WriterId
	Report types.AuditReport
}

// VerifyAll verifies every writer with an audit chain in the graph,
// returning a whole-graph summary and the per-writer chain list.
func (s *Service) VerifyAll(ctx context.Context, trustConfig types.TrustConfig, keys SignerKeys, requiredSignatures int) (Summary, []ChainResult, error) {
	prefix := RefPrefix(s.graph)
	names, err := s.store.ListRefs(ctx, prefix)
	if err != nil {
		return Summary{}, nil, werrors.Wrap(werrors.EInternal, err, "list audit refs").With("graph", s.graph)
	}

	writers := make([]types.WriterId, 0, len(names))
	for _, n := range names {
		writers = append(writers, types.WriterId(n[len(prefix):]))
	}
	sort.Slice(writers, func(i, j int) bool { return writers[i] < writers[j] })

	var summary Summary
	chains := make([]ChainResult, 0, len(writers))
	for _, w := range writers {
		report, err := s.VerifyChain(ctx, w, trustConfig, keys, requiredSignatures)
		if err != nil {
			return Summary{}, nil, err
		}
		summary.Total++
		switch report.Result {
		case types.AuditValid:
			summary.Valid++
		case types.AuditPartial:
			summary.Partial++
		case types.AuditInvalid:
			summary.Invalid++
		}
		chains = append(chains, ChainResult{Writer: w, Report: report})
	}
	return summary, chains, nil
}
