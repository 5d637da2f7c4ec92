// Package objectstore defines the Object Store Port — the one host
// dependency WarpGraph has: a content-addressed blob/tree/commit store
// with mutable named pointers, modeled directly on a source-control
// object database (the kind git itself implements). WarpGraph's CRDT
// reducer, sync protocol, and trust/audit chains are all written against
// the Port interface; cmd/ and pkg/graph select a concrete adapter.
package objectstore

import (
	"context"
	"time"
)

// TreeEntry is one row of a tree object: a path mapped to the digest of
// the blob (or nested tree) stored there, carrying a file-mode string in
// the same "<mode> blob <oid>\t<path>" shape a real object database uses.
type TreeEntry struct {
	Mode string
	Oid  string
	Path string
}

// CommitSpec is the input to CommitNodeWithTree: a new commit pointing at
// treeOid with the given parents (empty for a root commit) and message.
type CommitSpec struct {
	TreeOid string
	Parents []string
	Message string
}

// NodeInfo describes a commit node.
type NodeInfo struct {
	Sha     string
	Message string
	Author  string
	Date    time.Time
	Parents []string
}

// Port is the Object Store Port every WarpGraph component is written
// against. ctx carries cancellation/deadline for the underlying I/O;
// every method may block on disk or network and therefore takes one
// (§5, "every object-store call" is a suspension point).
type Port interface {
	// ReadRef returns the digest a named pointer currently resolves to,
	// and false if the pointer does not exist.
	ReadRef(ctx context.Context, name string) (digest string, found bool, err error)
	// ListRefs returns every pointer name with the given prefix, sorted.
	ListRefs(ctx context.Context, prefix string) ([]string, error)
	// UpdateRef unconditionally advances name to newDigest.
	UpdateRef(ctx context.Context, name, newDigest string) error
	// CompareAndSwapRef advances name to newDigest iff its current value
	// equals expected (nil expected means "must not currently exist").
	// Returns werrors.ERefConflict on mismatch.
	CompareAndSwapRef(ctx context.Context, name, newDigest string, expected *string) error
	// DeleteRef removes a named pointer.
	DeleteRef(ctx context.Context, name string) error

	// ReadBlob returns the bytes stored under digest.
	ReadBlob(ctx context.Context, digest string) ([]byte, error)
	// WriteBlob stores data and returns its content digest.
	WriteBlob(ctx context.Context, data []byte) (digest string, err error)

	// WriteTree stores a tree object and returns its content digest.
	WriteTree(ctx context.Context, entries []TreeEntry) (digest string, err error)
	// ReadTreeOids returns the tree's path → oid mapping.
	ReadTreeOids(ctx context.Context, digest string) (map[string]string, error)

	// GetCommitTree returns the tree digest a commit points at.
	GetCommitTree(ctx context.Context, commitDigest string) (string, error)
	// CommitNodeWithTree creates a commit object and returns its digest.
	CommitNodeWithTree(ctx context.Context, spec CommitSpec) (digest string, err error)
	// NodeExists reports whether digest names a known commit.
	NodeExists(ctx context.Context, digest string) (bool, error)
	// IsAncestor reports whether a is an ancestor of (or equal to) b,
	// walking b's parent chain.
	IsAncestor(ctx context.Context, a, b string) (bool, error)
	// GetNodeInfo returns metadata about a commit.
	GetNodeInfo(ctx context.Context, digest string) (NodeInfo, error)

	// Ping verifies the store is reachable and healthy.
	Ping(ctx context.Context) error

	// Close releases any resources (file handles, connections) held by
	// the adapter.
	Close() error
}
