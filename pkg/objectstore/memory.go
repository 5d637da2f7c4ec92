package objectstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

type memCommit struct {
	TreeOid string
	Parents []string
	Message string
}

// MemoryStore is an in-process Port implementation backed by plain maps
// guarded by a single mutex. It exists for tests and for short-lived
// tooling (doctor dry-runs, migration previews) that should not require a
// database file on disk; pkg/objectstore/bolt.go is the durable adapter.
type MemoryStore struct {
	mu sync.RWMutex

	crypto cryptoport.Port

	blobs   map[string][]byte
	trees   map[string][]TreeEntry
	commits map[string]memCommit
	refs    map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		crypto:  cryptoport.New(),
		blobs:   make(map[string][]byte),
		trees:   make(map[string][]TreeEntry),
		commits: make(map[string]memCommit),
		refs:    make(map[string]string),
	}
}

func (m *MemoryStore) digest(data []byte) (string, error) {
	return m.crypto.Hash(cryptoport.SHA256, data)
}

func (m *MemoryStore) ReadRef(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.refs[name]
	return d, ok, nil
}

func (m *MemoryStore) ListRefs(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name := range m.refs {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) UpdateRef(_ context.Context, name, newDigest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[name] = newDigest
	return nil
}

func (m *MemoryStore) CompareAndSwapRef(_ context.Context, name, newDigest string, expected *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.refs[name]
	if expected == nil {
		if exists {
			return werrors.New(werrors.ERefConflict, "ref already exists").With("ref", name)
		}
	} else {
		if !exists || current != *expected {
			return werrors.New(werrors.ERefConflict, "ref CAS mismatch").With("ref", name)
		}
	}
	m.refs[name] = newDigest
	return nil
}

func (m *MemoryStore) DeleteRef(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refs, name)
	return nil
}

func (m *MemoryStore) ReadBlob(_ context.Context, digest string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[digest]
	if !ok {
		return nil, werrors.New(werrors.ENotFound, "blob not found").With("digest", digest)
	}
	return data, nil
}

func (m *MemoryStore) WriteBlob(_ context.Context, data []byte) (string, error) {
	digest, err := m.digest(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[digest] = append([]byte(nil), data...)
	return digest, nil
}

func (m *MemoryStore) WriteTree(_ context.Context, entries []TreeEntry) (string, error) {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	encoded, err := json.Marshal(sorted)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "encode tree")
	}
	digest, err := m.digest(encoded)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[digest] = sorted
	return digest, nil
}

func (m *MemoryStore) ReadTreeOids(_ context.Context, digest string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.trees[digest]
	if !ok {
		return nil, werrors.New(werrors.ENotFound, "tree not found").With("digest", digest)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Path] = e.Oid
	}
	return out, nil
}

func (m *MemoryStore) GetCommitTree(_ context.Context, commitDigest string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commits[commitDigest]
	if !ok {
		return "", werrors.New(werrors.ENotFound, "commit not found").With("digest", commitDigest)
	}
	return c.TreeOid, nil
}

func (m *MemoryStore) CommitNodeWithTree(_ context.Context, spec CommitSpec) (string, error) {
	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "encode commit")
	}
	digest, err := m.digest(encoded)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[digest] = memCommit{TreeOid: spec.TreeOid, Parents: append([]string(nil), spec.Parents...), Message: spec.Message}
	return digest, nil
}

func (m *MemoryStore) NodeExists(_ context.Context, digest string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.commits[digest]
	return ok, nil
}

func (m *MemoryStore) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return true, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := make(map[string]bool)
	queue := []string{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		c, ok := m.commits[cur]
		if !ok {
			continue
		}
		for _, p := range c.Parents {
			if p == a {
				return true, nil
			}
			queue = append(queue, p)
		}
	}
	return false, nil
}

func (m *MemoryStore) GetNodeInfo(_ context.Context, digest string) (NodeInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commits[digest]
	if !ok {
		return NodeInfo{}, werrors.New(werrors.ENotFound, "commit not found").With("digest", digest)
	}
	return NodeInfo{Sha: digest, Message: c.Message, Parents: c.Parents}, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
