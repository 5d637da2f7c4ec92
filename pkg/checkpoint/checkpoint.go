// Package checkpoint implements the checkpoint/compaction protocol that
// bounds the growth of ORSet tombstone metadata: periodically the
// materialized state is serialized to a commit, the previous checkpoint's
// tombstones that are now covered are compacted away, and the checkpoint
// pointer is advanced with a fast-forward-only CAS.
package checkpoint

import (
	"context"

	"github.com/cuemby/warpgraph/pkg/codec"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/reducer"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

const stateBlobPath = "state.v5"

// RefName returns the checkpoint head pointer name for graph.
func RefName(graph string) string {
	return "refs/warp/" + graph + "/checkpoints/head"
}

// CoverageRefName returns the coverage anchor pointer name for graph.
func CoverageRefName(graph string) string {
	return "refs/warp/" + graph + "/coverage/head"
}

// Result is the outcome of creating a checkpoint: the new commit digest
// and the state hash it covers, so callers can log or assert on it
// without a second store round-trip.
type Result struct {
	CommitDigest string
	StateHash    string
}

// Create serializes state into a single state.v5 blob, writes the tree
// and commit, and advances the checkpoint pointer with a fast-forward CAS
// against previousCommit (nil means no prior checkpoint exists). The
// commit's includedVV is state.Frontier; any compaction the caller wants
// applied to the live ORSets must already have happened before state was
// materialized — Create only persists, it never mutates state.
func Create(ctx context.Context, store objectstore.Port, graph string, state *types.WarpStateV5, previousCommit *string) (Result, error) {
	encoded := codec.EncodeStateV5(state)
	blobDigest, err := store.WriteBlob(ctx, encoded)
	if err != nil {
		return Result{}, werrors.Wrap(werrors.EInternal, err, "write checkpoint blob")
	}

	treeDigest, err := store.WriteTree(ctx, []objectstore.TreeEntry{
		{Mode: "100644", Path: stateBlobPath, Oid: blobDigest},
	})
	if err != nil {
		return Result{}, werrors.Wrap(werrors.EInternal, err, "write checkpoint tree")
	}

	var parents []string
	if previousCommit != nil {
		parents = []string{*previousCommit}
	}
	commitDigest, err := store.CommitNodeWithTree(ctx, objectstore.CommitSpec{
		TreeOid: treeDigest,
		Parents: parents,
		Message: "checkpoint",
	})
	if err != nil {
		return Result{}, werrors.Wrap(werrors.EInternal, err, "write checkpoint commit")
	}

	ref := RefName(graph)
	if err := store.CompareAndSwapRef(ctx, ref, commitDigest, previousCommit); err != nil {
		return Result{}, werrors.Wrap(werrors.ERefConflict, err, "advance checkpoint pointer").With("graph", graph)
	}

	return Result{CommitDigest: commitDigest, StateHash: codec.ComputeStateHashV5(state)}, nil
}

// Load reads the latest checkpoint commit for graph, if any, and decodes
// its state.v5 blob back into a *types.WarpStateV5. It returns
// (nil, nil, false, nil) when no checkpoint exists yet.
func Load(ctx context.Context, store objectstore.Port, graph string) (*types.WarpStateV5, *string, bool, error) {
	ref := RefName(graph)
	commitDigest, found, err := store.ReadRef(ctx, ref)
	if err != nil {
		return nil, nil, false, werrors.Wrap(werrors.EInternal, err, "read checkpoint pointer")
	}
	if !found {
		return nil, nil, false, nil
	}

	treeDigest, err := store.GetCommitTree(ctx, commitDigest)
	if err != nil {
		return nil, nil, false, werrors.Wrap(werrors.EInternal, err, "resolve checkpoint tree")
	}
	oids, err := store.ReadTreeOids(ctx, treeDigest)
	if err != nil {
		return nil, nil, false, werrors.Wrap(werrors.EInternal, err, "read checkpoint tree entries")
	}
	blobDigest, ok := oids[stateBlobPath]
	if !ok {
		return nil, nil, false, werrors.New(werrors.EInternal, "checkpoint tree missing state blob").With("graph", graph)
	}
	data, err := store.ReadBlob(ctx, blobDigest)
	if err != nil {
		return nil, nil, false, werrors.Wrap(werrors.EInternal, err, "read checkpoint state blob")
	}

	state, err := codec.DecodeStateV5(data)
	if err != nil {
		return nil, nil, false, err
	}
	digestCopy := commitDigest
	state.CoverageAnchor = &digestCopy
	return state, &digestCopy, true, nil
}

// CreateFromPatches reduces patches on top of the graph's latest
// checkpoint (or from genesis, if none exists yet), compacting the
// resulting ORSets against the new frontier, and persists the result as
// the next checkpoint. It is the entry point pkg/graph calls on its
// periodic checkpoint trigger.
func CreateFromPatches(ctx context.Context, store objectstore.Port, graph string, patches []types.Patch) (Result, error) {
	baseState, previousCommit, _, err := Load(ctx, store, graph)
	if err != nil {
		return Result{}, err
	}

	pending := patches
	if baseState != nil && previousCommit != nil {
		pending = FilterSincePatches(patches, *previousCommit, baseState)
	}

	next, err := reducer.ReduceAndCompact(pending, baseState)
	if err != nil {
		return Result{}, err
	}

	return Create(ctx, store, graph, next, previousCommit)
}

// FilterSincePatches keeps only the patches a materialization pass must
// still apply on top of a loaded checkpoint: those with lamport strictly
// greater than the checkpoint's highest observed lamport, or that cite a
// baseCheckpoint other than the one just loaded. This is the
// "materialization shortcut" — load the checkpoint once, then replay only
// what it does not already cover.
func FilterSincePatches(patches []types.Patch, checkpointDigest string, checkpointState *types.WarpStateV5) []types.Patch {
	ceiling := highestLamport(checkpointState.Frontier)

	out := make([]types.Patch, 0, len(patches))
	for _, p := range patches {
		if p.BaseCheckpoint != nil && *p.BaseCheckpoint != checkpointDigest {
			out = append(out, p)
			continue
		}
		if p.Lamport > ceiling {
			out = append(out, p)
		}
	}
	return out
}

func highestLamport(vv types.VersionVector) uint64 {
	var max uint64
	for _, counter := range vv {
		if counter > max {
			max = counter
		}
	}
	return max
}

// UpdateCoverage advances the coverage anchor pointer to checkpointDigest.
// A writer tip T is covered iff T is an ancestor of the checkpoint commit
// (IsAncestor); IsCovered answers that question against the anchor
// recorded here.
func UpdateCoverage(ctx context.Context, store objectstore.Port, graph, checkpointDigest string) error {
	ref := CoverageRefName(graph)
	return store.UpdateRef(ctx, ref, checkpointDigest)
}

// IsCovered reports whether tip is an ancestor of the graph's current
// coverage anchor. It returns false, without error, when no anchor has
// been recorded yet.
func IsCovered(ctx context.Context, store objectstore.Port, graph, tip string) (bool, error) {
	anchor, found, err := store.ReadRef(ctx, CoverageRefName(graph))
	if err != nil {
		return false, werrors.Wrap(werrors.EInternal, err, "read coverage anchor")
	}
	if !found {
		return false, nil
	}
	return store.IsAncestor(ctx, tip, anchor)
}
