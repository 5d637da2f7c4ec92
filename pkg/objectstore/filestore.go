package objectstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// FileStore is a hybrid Port adapter: blobs, trees, and commits live in
// process memory exactly like MemoryStore, but named pointers are
// persisted as one file per ref under baseDir/refs/, each written with
// atomic.WriteFile's rename-on-write so a crash mid-write can never leave
// a ref pointing at a half-written digest. It exists for tooling that
// wants MemoryStore's simplicity for objects but needs refs to survive a
// process restart — a doctor or migration dry-run re-entered after a
// crash, or a test asserting CAS survives a simulated restart.
//
// FileStore does not persist blobs/trees/commits; a restart starts those
// maps empty. Long-running deployments use BoltStore, which persists
// everything in one transactional file.
type FileStore struct {
	mu sync.RWMutex

	baseDir string
	crypto  cryptoport.Port

	blobs   map[string][]byte
	trees   map[string][]TreeEntry
	commits map[string]memCommit
}

// OpenFileStore returns a FileStore rooted at baseDir, creating
// baseDir/refs if it does not already exist.
func OpenFileStore(baseDir string) (*FileStore, error) {
	refsDir := filepath.Join(baseDir, "refs")
	if err := os.MkdirAll(refsDir, 0o755); err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "create refs directory").With("dir", refsDir)
	}
	return &FileStore{
		baseDir: baseDir,
		crypto:  cryptoport.New(),
		blobs:   make(map[string][]byte),
		trees:   make(map[string][]TreeEntry),
		commits: make(map[string]memCommit),
	}, nil
}

// refPath maps a ref name to a flat filename safe for any filesystem:
// names contain '/' (refs/warp/<graph>/...) which cannot appear as a
// path separator inside a single directory entry, so it is encoded.
func refPath(baseDir, name string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(name))
	return filepath.Join(baseDir, "refs", encoded)
}

func (f *FileStore) digest(data []byte) (string, error) {
	return f.crypto.Hash(cryptoport.SHA256, data)
}

func (f *FileStore) readRefFile(name string) (string, bool, error) {
	data, err := os.ReadFile(refPath(f.baseDir, name))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, werrors.Wrap(werrors.EInternal, err, "read ref file").With("ref", name)
	}
	return string(data), true, nil
}

func (f *FileStore) writeRefFile(name, digest string) error {
	if err := atomic.WriteFile(refPath(f.baseDir, name), bytes.NewReader([]byte(digest))); err != nil {
		return werrors.Wrap(werrors.EInternal, err, "write ref file").With("ref", name)
	}
	return nil
}

func (f *FileStore) ReadRef(_ context.Context, name string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.readRefFile(name)
}

func (f *FileStore) ListRefs(_ context.Context, prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(f.baseDir, "refs"))
	if err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "list refs directory")
	}
	var out []string
	for _, e := range entries {
		decoded, err := base64.RawURLEncoding.DecodeString(e.Name())
		if err != nil {
			continue
		}
		name := string(decoded)
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FileStore) UpdateRef(_ context.Context, name, newDigest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeRefFile(name, newDigest)
}

func (f *FileStore) CompareAndSwapRef(_ context.Context, name, newDigest string, expected *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, exists, err := f.readRefFile(name)
	if err != nil {
		return err
	}
	if expected == nil {
		if exists {
			return werrors.New(werrors.ERefConflict, "ref already exists").With("ref", name)
		}
	} else if !exists || current != *expected {
		return werrors.New(werrors.ERefConflict, "ref CAS mismatch").With("ref", name)
	}
	return f.writeRefFile(name, newDigest)
}

func (f *FileStore) DeleteRef(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(refPath(f.baseDir, name))
	if err != nil && !os.IsNotExist(err) {
		return werrors.Wrap(werrors.EInternal, err, "delete ref file").With("ref", name)
	}
	return nil
}

func (f *FileStore) ReadBlob(_ context.Context, digest string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.blobs[digest]
	if !ok {
		return nil, werrors.New(werrors.ENotFound, "blob not found").With("digest", digest)
	}
	return data, nil
}

func (f *FileStore) WriteBlob(_ context.Context, data []byte) (string, error) {
	digest, err := f.digest(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[digest] = append([]byte(nil), data...)
	return digest, nil
}

func (f *FileStore) WriteTree(_ context.Context, entries []TreeEntry) (string, error) {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	encoded, err := json.Marshal(sorted)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "encode tree")
	}
	digest, err := f.digest(encoded)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trees[digest] = sorted
	return digest, nil
}

func (f *FileStore) ReadTreeOids(_ context.Context, digest string) (map[string]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entries, ok := f.trees[digest]
	if !ok {
		return nil, werrors.New(werrors.ENotFound, "tree not found").With("digest", digest)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Path] = e.Oid
	}
	return out, nil
}

func (f *FileStore) GetCommitTree(_ context.Context, commitDigest string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.commits[commitDigest]
	if !ok {
		return "", werrors.New(werrors.ENotFound, "commit not found").With("digest", commitDigest)
	}
	return c.TreeOid, nil
}

func (f *FileStore) CommitNodeWithTree(_ context.Context, spec CommitSpec) (string, error) {
	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "encode commit")
	}
	digest, err := f.digest(encoded)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits[digest] = memCommit{TreeOid: spec.TreeOid, Parents: append([]string(nil), spec.Parents...), Message: spec.Message}
	return digest, nil
}

func (f *FileStore) NodeExists(_ context.Context, digest string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.commits[digest]
	return ok, nil
}

func (f *FileStore) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return true, nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	visited := make(map[string]bool)
	queue := []string{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		c, ok := f.commits[cur]
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

func (f *FileStore) GetNodeInfo(_ context.Context, digest string) (NodeInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.commits[digest]
	if !ok {
		return NodeInfo{}, werrors.New(werrors.ENotFound, "commit not found").With("digest", digest)
	}
	return NodeInfo{Sha: digest, Message: c.Message, Parents: c.Parents}, nil
}

func (f *FileStore) Ping(context.Context) error { return nil }

func (f *FileStore) Close() error { return nil }
