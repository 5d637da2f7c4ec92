package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/types"
)

func testPatch(writer types.WriterId, lamport, counter uint64) types.Patch {
	return types.Patch{
		Writer:  writer,
		Lamport: lamport,
		Context: types.NewVersionVector(),
		Ops:     []types.Op{types.NewNodeAdd(types.NodeId("n"), types.Dot{Writer: writer, Counter: counter})},
	}
}

func trustConfigFor(writers ...types.WriterId) types.TrustConfig {
	return types.TrustConfig{
		Version:            1,
		TrustedWriters:     writers,
		Policy:             types.TrustPolicyAny,
		Epoch:              "2025-01-01",
		RequiredSignatures: 1,
	}
}

func TestVerifyChainValid(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := New(store, crypto, "g1")
	keys := SignerKeys{"w1": []byte("secret1")}

	commit1, err := patchchain.Append(ctx, store, "g1", "w1", testPatch("w1", 1, 1), nil)
	require.NoError(t, err)
	p1, err := patchchain.ReadPatch(ctx, store, commit1)
	require.NoError(t, err)

	r1, err := svc.Append(ctx, "w1", p1.Sha, 1, keys, []string{"w1"})
	require.NoError(t, err)
	assert.Empty(t, r1.PrevSha)

	commit2, err := patchchain.Append(ctx, store, "g1", "w1", testPatch("w1", 2, 2), &commit1)
	require.NoError(t, err)
	p2, err := patchchain.ReadPatch(ctx, store, commit2)
	require.NoError(t, err)

	_, err = svc.Append(ctx, "w1", p2.Sha, 2, keys, []string{"w1"})
	require.NoError(t, err)

	report, err := svc.VerifyChain(ctx, "w1", trustConfigFor("w1"), keys, 1)
	require.NoError(t, err)
	assert.Equal(t, types.AuditValid, report.Result)
	assert.Equal(t, 2, report.ReceiptCount)
	assert.Empty(t, report.Findings)
}

func TestVerifyChainInvalidOnInsufficientSignatures(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := New(store, crypto, "g1")
	keys := SignerKeys{"w1": []byte("secret1")}

	commit1, err := patchchain.Append(ctx, store, "g1", "w1", testPatch("w1", 1, 1), nil)
	require.NoError(t, err)
	p1, err := patchchain.ReadPatch(ctx, store, commit1)
	require.NoError(t, err)

	_, err = svc.Append(ctx, "w1", p1.Sha, 1, keys, []string{"w1"})
	require.NoError(t, err)

	// Require two signatures but the chain only ever had one signer.
	report, err := svc.VerifyChain(ctx, "w1", trustConfigFor("w1"), keys, 2)
	require.NoError(t, err)
	assert.Equal(t, types.AuditInvalid, report.Result)
	require.Len(t, report.Findings, 1)
}

func TestVerifyChainInvalidWhenPatchMissing(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := New(store, crypto, "g1")
	keys := SignerKeys{"w1": []byte("secret1")}

	_, err := svc.Append(ctx, "w1", "sha-of-a-patch-that-was-never-committed", 1, keys, []string{"w1"})
	require.NoError(t, err)

	report, err := svc.VerifyChain(ctx, "w1", trustConfigFor("w1"), keys, 1)
	require.NoError(t, err)
	assert.Equal(t, types.AuditInvalid, report.Result)
	assert.NotEmpty(t, report.Findings)
}

func TestVerifyChainPartialWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := New(store, crypto, "g1")

	report, err := svc.VerifyChain(ctx, "ghost", trustConfigFor("w1"), SignerKeys{}, 1)
	require.NoError(t, err)
	assert.Equal(t, types.AuditPartial, report.Result)
}

func TestVerifyAllSummary(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := New(store, crypto, "g1")
	keys := SignerKeys{"w1": []byte("s1"), "w2": []byte("s2")}

	c1, err := patchchain.Append(ctx, store, "g1", "w1", testPatch("w1", 1, 1), nil)
	require.NoError(t, err)
	p1, err := patchchain.ReadPatch(ctx, store, c1)
	require.NoError(t, err)
	_, err = svc.Append(ctx, "w1", p1.Sha, 1, keys, []string{"w1"})
	require.NoError(t, err)

	c2, err := patchchain.Append(ctx, store, "g1", "w2", testPatch("w2", 1, 1), nil)
	require.NoError(t, err)
	p2, err := patchchain.ReadPatch(ctx, store, c2)
	require.NoError(t, err)
	_, err = svc.Append(ctx, "w2", p2.Sha, 1, keys, []string{"w2"})
	require.NoError(t, err)

	summary, chains, err := svc.VerifyAll(ctx, trustConfigFor("w1", "w2"), keys, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Valid)
	assert.Equal(t, 0, summary.Invalid)
	require.Len(t, chains, 2)
}

func TestSequentialAppendsOnSameWriterSucceed(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := New(store, crypto, "g1")
	keys := SignerKeys{"w1": []byte("s1")}

	_, err := svc.Append(ctx, "w1", "patch-sha-1", 1, keys, []string{"w1"})
	require.NoError(t, err)

	// The second Append reads the tip the first one left and CAS-advances
	// the audit pointer from there, so it succeeds too.
	_, err = svc.Append(ctx, "w1", "patch-sha-2", 2, keys, []string{"w1"})
	require.NoError(t, err, "sequential appends on the same service succeed")
}
