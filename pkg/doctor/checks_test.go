package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/trust"
	"github.com/cuemby/warpgraph/pkg/types"
)

func TestDefaultChecksOnEmptyGraphAreHealthy(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()

	e := New(time.Second, DefaultChecks(store, crypto, "g1")...)
	report := e.Run(ctx)
	assert.Equal(t, HealthDegraded, report.Health) // no trust record + no checkpoint are warnings
	for _, f := range report.Findings {
		assert.NotEqual(t, StatusFail, f.Status, f.Message)
	}
}

func TestRefIntegrityCatchesDanglingWriterTip(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()

	p := types.Patch{Writer: "w1", Lamport: 1, Context: types.NewVersionVector(),
		Ops: []types.Op{types.NewNodeAdd("n1", types.Dot{Writer: "w1", Counter: 1})}}
	_, err := patchchain.Append(ctx, store, "g1", "w1", p, nil)
	require.NoError(t, err)

	// Corrupt the pointer by pointing it at a digest that was never committed.
	require.NoError(t, store.UpdateRef(ctx, patchchain.RefName("g1", "w1"), "deadbeef"))

	check := RefIntegrityCheck{Store: store, Graph: "g1"}
	findings, err := check.Run(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, StatusFail, findings[0].Status)
	assert.Equal(t, "DANGLING_WRITER_TIP", findings[0].Code)
}

func TestTrustSchemaCheckOkAfterInit(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	crypto := cryptoport.New()
	svc := trust.New(store, crypto, "g1")
	_, err := svc.InitTrust(ctx, types.TrustConfig{
		Version:        1,
		TrustedWriters: []types.WriterId{"w1"},
		Policy:         types.TrustPolicyAny,
		Epoch:          "2025-01-01",
	})
	require.NoError(t, err)

	check := TrustSchemaCheck{Trust: svc}
	findings, err := check.Run(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, StatusOK, findings[0].Status)
}

func TestCoverageCheckWarnsOnUncoveredWriter(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()

	p := types.Patch{Writer: "w1", Lamport: 1, Context: types.NewVersionVector(),
		Ops: []types.Op{types.NewNodeAdd("n1", types.Dot{Writer: "w1", Counter: 1})}}
	_, err := patchchain.Append(ctx, store, "g1", "w1", p, nil)
	require.NoError(t, err)

	empty, err := reducer.Reduce(nil, nil)
	require.NoError(t, err)
	_, err = checkpoint.Create(ctx, store, "g1", empty, nil)
	require.NoError(t, err)

	check := CoverageCheck{Store: store, Graph: "g1"}
	findings, err := check.Run(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, StatusWarn, findings[0].Status)
	assert.Equal(t, "WRITER_UNCOVERED", findings[0].Code)
}
