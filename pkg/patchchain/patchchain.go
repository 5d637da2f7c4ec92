// Package patchchain implements the per-writer append-only patch chain
// that both pkg/graph (committing new local patches) and pkg/syncproto
// (applying patches received from a peer) build on: each patch is
// written as a blob wrapped in a single-entry tree, committed with parent
// = the writer's previous tip, and the writer's named pointer is
// advanced by a fast-forward-only CAS. Factored
// out of both call sites into its own package — rather than one
// depending on the other — since pkg/graph calls into pkg/syncproto for
// SyncWith and the reverse import would cycle.
package patchchain

import (
	"context"

	"github.com/cuemby/warpgraph/pkg/codec"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

const patchBlobPath = "patch.json"
const writersRefPrefix = "writers/"

// RefName returns the pointer name for writer's patch chain tip within
// graph.
func RefName(graph string, writer types.WriterId) string {
	return "refs/warp/" + graph + "/" + writersRefPrefix + string(writer)
}

// WritersRefPrefix returns the listRefs prefix enumerating every writer
// pointer under graph.
func WritersRefPrefix(graph string) string {
	return "refs/warp/" + graph + "/" + writersRefPrefix
}

// ListWriters enumerates every writer with at least one patch in graph,
// discovered by listing the known pointer prefix.
func ListWriters(ctx context.Context, store objectstore.Port, graph string) ([]types.WriterId, error) {
	prefix := WritersRefPrefix(graph)
	names, err := store.ListRefs(ctx, prefix)
	if err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "list writer refs").With("graph", graph)
	}
	out := make([]types.WriterId, 0, len(names))
	for _, n := range names {
		out = append(out, types.WriterId(n[len(prefix):]))
	}
	return out, nil
}

// Tip returns the current tip commit digest of writer's chain in graph,
// and false if the writer has never committed a patch (it does not
// appear in the frontier).
func Tip(ctx context.Context, store objectstore.Port, graph string, writer types.WriterId) (string, bool, error) {
	digest, found, err := store.ReadRef(ctx, RefName(graph, writer))
	if err != nil {
		return "", false, werrors.Wrap(werrors.EInternal, err, "read writer tip").With("writer", string(writer))
	}
	return digest, found, nil
}

// Append writes patch as a new commit on writer's chain, parented on
// expectedTip (nil for a writer's first-ever patch), and CAS-advances
// the writer's pointer from expectedTip to the new commit. patch.Sha is
// computed if not already set. Returns the new commit digest.
//
// A CAS mismatch (a concurrent writer already advanced the pointer) is
// surfaced as werrors.ERefConflict; callers retry with a freshly-read
// expectedTip, bounded by a small retry count.
func Append(ctx context.Context, store objectstore.Port, graph string, writer types.WriterId, patch types.Patch, expectedTip *string) (commitDigest string, err error) {
	if patch.Sha == "" {
		sha, herr := codec.HashPatch(patch)
		if herr != nil {
			return "", werrors.Wrap(werrors.EInternal, herr, "hash patch")
		}
		patch.Sha = sha
	}

	data, err := codec.EncodePatch(patch)
	if err != nil {
		return "", err
	}
	blobDigest, err := store.WriteBlob(ctx, data)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "write patch blob")
	}
	treeDigest, err := store.WriteTree(ctx, []objectstore.TreeEntry{
		{Mode: "100644", Path: patchBlobPath, Oid: blobDigest},
	})
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "write patch tree")
	}

	var parents []string
	if expectedTip != nil {
		parents = []string{*expectedTip}
	}
	commitDigest, err = store.CommitNodeWithTree(ctx, objectstore.CommitSpec{
		TreeOid: treeDigest,
		Parents: parents,
		Message: "patch " + patch.Sha,
	})
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "write patch commit")
	}

	ref := RefName(graph, writer)
	if err := store.CompareAndSwapRef(ctx, ref, commitDigest, expectedTip); err != nil {
		return "", werrors.Wrap(werrors.ERefConflict, err, "advance writer pointer").With("writer", string(writer))
	}
	return commitDigest, nil
}

// ReadPatch resolves commitSha's tree and decodes its patch.json blob,
// stamping the result's Sha from the canonical re-encoding.
func ReadPatch(ctx context.Context, store objectstore.Port, commitSha string) (types.Patch, error) {
	treeDigest, err := store.GetCommitTree(ctx, commitSha)
	if err != nil {
		return types.Patch{}, werrors.Wrap(werrors.EInternal, err, "resolve patch commit tree").With("sha", commitSha)
	}
	oids, err := store.ReadTreeOids(ctx, treeDigest)
	if err != nil {
		return types.Patch{}, werrors.Wrap(werrors.EInternal, err, "read patch tree entries").With("sha", commitSha)
	}
	blobDigest, ok := oids[patchBlobPath]
	if !ok {
		return types.Patch{}, werrors.New(werrors.EInternal, "patch commit missing patch.json").With("sha", commitSha)
	}
	data, err := store.ReadBlob(ctx, blobDigest)
	if err != nil {
		return types.Patch{}, werrors.Wrap(werrors.EInternal, err, "read patch blob").With("sha", commitSha)
	}
	patch, err := codec.DecodePatch(data)
	if err != nil {
		return types.Patch{}, err
	}
	sha, err := codec.HashPatch(patch)
	if err != nil {
		return types.Patch{}, werrors.Wrap(werrors.EInternal, err, "hash decoded patch")
	}
	patch.Sha = sha
	return patch, nil
}

// WalkSince walks writer's chain from tip back toward genesis, stopping
// (exclusive) at stopAt if non-empty, and returns the patches in
// oldest-first order — the shape pkg/syncproto needs to replay "every
// patch on the chain from clientTip (exclusive) to serverTip (inclusive)"
//. If stopAt is not an ancestor of tip, WalkSince
// returns the entire chain to genesis.
func WalkSince(ctx context.Context, store objectstore.Port, tip, stopAt string) ([]types.Patch, error) {
	var shas []string
	cur := tip
	for cur != "" && cur != stopAt {
		shas = append(shas, cur)
		info, err := store.GetNodeInfo(ctx, cur)
		if err != nil {
			return nil, werrors.Wrap(werrors.EInternal, err, "walk patch chain").With("sha", cur)
		}
		if len(info.Parents) == 0 {
			cur = ""
			break
		}
		cur = info.Parents[0]
	}

	patches := make([]types.Patch, len(shas))
	for i := len(shas) - 1; i >= 0; i-- {
		p, err := ReadPatch(ctx, store, shas[i])
		if err != nil {
			return nil, err
		}
		patches[len(shas)-1-i] = p
	}
	return patches, nil
}

// Frontier reads every writer's current tip into a map, for use as a
// sync request/response frontier.
func Frontier(ctx context.Context, store objectstore.Port, graph string) (map[types.WriterId]string, error) {
	writers, err := ListWriters(ctx, store, graph)
	if err != nil {
		return nil, err
	}
	out := make(map[types.WriterId]string, len(writers))
	for _, w := range writers {
		tip, found, err := Tip(ctx, store, graph, w)
		if err != nil {
			return nil, err
		}
		if found {
			out[w] = tip
		}
	}
	return out, nil
}
