package doctor

import (
	"context"
	"fmt"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/patchchain"
	"github.com/cuemby/warpgraph/pkg/trust"
	"github.com/cuemby/warpgraph/pkg/types"
)

// StoreReachabilityCheck pings the object store. A store that cannot be
// reached makes every other check meaningless, so this runs first.
type StoreReachabilityCheck struct {
	Store objectstore.Port
}

func (c StoreReachabilityCheck) Id() string { return "store-reachability" }

func (c StoreReachabilityCheck) Run(ctx context.Context) ([]Finding, error) {
	if err := c.Store.Ping(ctx); err != nil {
		return []Finding{{
			Status:  StatusFail,
			Code:    "STORE_UNREACHABLE",
			Impact:  ImpactOperability,
			Message: fmt.Sprintf("object store ping failed: %v", err),
			Fix:     "verify the object store path/connection configured for this graph",
		}}, nil
	}
	return []Finding{{Status: StatusOK, Code: "STORE_REACHABLE", Impact: ImpactOperability, Message: "object store is reachable"}}, nil
}

// TrustSchemaCheck wraps trust.Service.Diagnose, translating its findings into the doctor's shape.
type TrustSchemaCheck struct {
	Trust  *trust.Service
	PinSha string
}

func (c TrustSchemaCheck) Id() string { return "trust-schema" }

func (c TrustSchemaCheck) Run(ctx context.Context) ([]Finding, error) {
	raw := c.Trust.Diagnose(ctx, c.PinSha)
	if len(raw) == 0 {
		return []Finding{{Status: StatusOK, Code: "TRUST_OK", Impact: ImpactSecurity, Message: "trust record is well-formed"}}, nil
	}
	out := make([]Finding, 0, len(raw))
	for _, f := range raw {
		status := StatusFail
		if f.Code == "TRUST_EMPTY_WRITER_LIST" || f.Code == "TRUST_REF_MISSING" {
			status = StatusWarn
		}
		out = append(out, Finding{
			Status:  status,
			Code:    f.Code,
			Impact:  ImpactSecurity,
			Message: f.Message,
		})
	}
	return out, nil
}

// CoverageCheck reports whether every known writer's tip is covered by
// the latest checkpoint. An uncovered writer means
// compaction/checkpointing has not run since that writer's last patch,
// which is a warning (growth risk), not a correctness failure.
type CoverageCheck struct {
	Store objectstore.Port
	Graph string
}

func (c CoverageCheck) Id() string { return "coverage-anchor" }

func (c CoverageCheck) Run(ctx context.Context) ([]Finding, error) {
	_, checkpointCommit, found, err := checkpoint.Load(ctx, c.Store, c.Graph)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Finding{{Status: StatusWarn, Code: "NO_CHECKPOINT", Impact: ImpactOperability,
			Message: "graph has never been checkpointed; tombstone metadata is unbounded",
			Fix:     "run createCheckpoint() once enough patch history has accumulated"}}, nil
	}

	writers, err := patchchain.ListWriters(ctx, c.Store, c.Graph)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, w := range writers {
		tip, found, err := patchchain.Tip(ctx, c.Store, c.Graph, w)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		covered, err := c.Store.IsAncestor(ctx, tip, *checkpointCommit)
		if err != nil {
			return nil, err
		}
		if !covered {
			findings = append(findings, Finding{
				Status:   StatusWarn,
				Code:     "WRITER_UNCOVERED",
				Impact:   ImpactOperability,
				Message:  fmt.Sprintf("writer %q has patches past the latest checkpoint", w),
				Evidence: map[string]string{"writer": string(w), "tip": tip},
			})
		}
	}
	if len(findings) == 0 {
		findings = append(findings, Finding{Status: StatusOK, Code: "COVERAGE_OK", Impact: ImpactOperability,
			Message: "every writer's tip is covered by the latest checkpoint"})
	}
	return findings, nil
}

// RefIntegrityCheck verifies every writer pointer resolves to a readable
// commit, catching dangling or corrupt pointers before they surface as a
// confusing materialize() failure.
type RefIntegrityCheck struct {
	Store objectstore.Port
	Graph string
}

func (c RefIntegrityCheck) Id() string { return "ref-integrity" }

func (c RefIntegrityCheck) Run(ctx context.Context) ([]Finding, error) {
	writers, err := patchchain.ListWriters(ctx, c.Store, c.Graph)
	if err != nil {
		return nil, err
	}
	if len(writers) == 0 {
		return []Finding{{Status: StatusOK, Code: "NO_WRITERS", Impact: ImpactHygiene, Message: "graph has no writers yet"}}, nil
	}

	var findings []Finding
	for _, w := range writers {
		tip, found, err := patchchain.Tip(ctx, c.Store, c.Graph, w)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		exists, err := c.Store.NodeExists(ctx, tip)
		if err != nil {
			return nil, err
		}
		if !exists {
			findings = append(findings, Finding{
				Status:   StatusFail,
				Code:     "DANGLING_WRITER_TIP",
				Impact:   ImpactDataIntegrity,
				Message:  fmt.Sprintf("writer %q's pointer resolves to a missing commit", w),
				Evidence: map[string]string{"writer": string(w), "tip": tip},
			})
		}
	}
	if len(findings) == 0 {
		findings = append(findings, Finding{Status: StatusOK, Code: "REFS_OK", Impact: ImpactDataIntegrity,
			Message: fmt.Sprintf("all %d writer pointers resolve", len(writers))})
	}
	return findings, nil
}

// TombstoneRatioCheck materializes the graph and warns when the fraction
// of compactable (tombstoned-but-uncompacted) state grows large, as a
// proactive nudge to run checkpoint/compaction.
type TombstoneRatioCheck struct {
	Store     objectstore.Port
	Graph     string
	WarnAbove float64 // e.g. 0.5
}

func (c TombstoneRatioCheck) Id() string { return "tombstone-ratio" }

func (c TombstoneRatioCheck) Run(ctx context.Context) ([]Finding, error) {
	state, _, found, err := checkpoint.Load(ctx, c.Store, c.Graph)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Finding{{Status: StatusOK, Code: "NO_CHECKPOINT_YET", Impact: ImpactHygiene,
			Message: "no checkpoint to evaluate tombstone ratio against"}}, nil
	}

	ratio := tombstoneRatioOf(state)
	threshold := c.WarnAbove
	if threshold <= 0 {
		threshold = 0.5
	}
	if ratio > threshold {
		return []Finding{{
			Status:  StatusWarn,
			Code:    "HIGH_TOMBSTONE_RATIO",
			Impact:  ImpactHygiene,
			Message: fmt.Sprintf("tombstone ratio %.2f exceeds %.2f", ratio, threshold),
			Fix:     "run runGC() or createCheckpoint() to compact",
		}}, nil
	}
	return []Finding{{Status: StatusOK, Code: "TOMBSTONE_RATIO_OK", Impact: ImpactHygiene,
		Message: fmt.Sprintf("tombstone ratio %.2f within bounds", ratio)}}, nil
}

func tombstoneRatioOf(state *types.WarpStateV5) float64 {
	var totalEntries, totalTombstones uint64
	for _, view := range state.AliveNodes {
		totalEntries += uint64(len(view.Entries))
		totalTombstones += uint64(len(view.Tombstones))
	}
	for _, view := range state.AliveEdges {
		totalEntries += uint64(len(view.Entries))
		totalTombstones += uint64(len(view.Tombstones))
	}
	if totalEntries == 0 {
		return 0
	}
	return float64(totalTombstones) / float64(totalEntries)
}

// DefaultChecks returns the standard check list for graph against store,
// in the order CLI operators expect to read them: reachability first,
// then correctness (refs, trust), then hygiene (coverage, tombstones).
func DefaultChecks(store objectstore.Port, crypto cryptoport.Port, graph string) []Check {
	return []Check{
		StoreReachabilityCheck{Store: store},
		RefIntegrityCheck{Store: store, Graph: graph},
		TrustSchemaCheck{Trust: trust.New(store, crypto, graph)},
		CoverageCheck{Store: store, Graph: graph},
		TombstoneRatioCheck{Store: store, Graph: graph},
	}
}
