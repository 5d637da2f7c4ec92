package objectstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/werrors"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlobs   = []byte("blobs")
	bucketTrees   = []byte("trees")
	bucketCommits = []byte("commits")
	bucketRefs    = []byte("refs")
)

// BoltStore is the durable Port adapter: every object and pointer lives
// in a single BoltDB file, one bucket per object kind, content-addressed
// by hex SHA-256 digest.
type BoltStore struct {
	db     *bolt.DB
	crypto cryptoport.Port
}

// OpenBoltStore opens (creating if absent) the object database at
// <dataDir>/warpgraph.db and ensures its buckets exist.
func OpenBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "warpgraph.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, werrors.Wrap(werrors.EInternal, err, "open object store")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBlobs, bucketTrees, bucketCommits, bucketRefs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return werrors.Wrap(werrors.EInternal, err, "create bucket").With("bucket", string(b))
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, crypto: cryptoport.New()}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) digest(data []byte) (string, error) {
	return s.crypto.Hash(cryptoport.SHA256, data)
}

func (s *BoltStore) ReadRef(_ context.Context, name string) (string, bool, error) {
	var digest string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRefs).Get([]byte(name))
		if v != nil {
			digest, found = string(v), true
		}
		return nil
	})
	return digest, found, err
}

func (s *BoltStore) ListRefs(_ context.Context, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRefs).Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (s *BoltStore) UpdateRef(_ context.Context, name, newDigest string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRefs).Put([]byte(name), []byte(newDigest))
	})
}

func (s *BoltStore) CompareAndSwapRef(_ context.Context, name, newDigest string, expected *string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		current := b.Get([]byte(name))
		if expected == nil {
			if current != nil {
				return werrors.New(werrors.ERefConflict, "ref already exists").With("ref", name)
			}
		} else {
			if current == nil || string(current) != *expected {
				return werrors.New(werrors.ERefConflict, "ref CAS mismatch").With("ref", name)
			}
		}
		return b.Put([]byte(name), []byte(newDigest))
	})
}

func (s *BoltStore) DeleteRef(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRefs).Delete([]byte(name))
	})
}

func (s *BoltStore) ReadBlob(_ context.Context, digest string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(digest))
		if v == nil {
			return werrors.New(werrors.ENotFound, "blob not found").With("digest", digest)
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *BoltStore) WriteBlob(_ context.Context, data []byte) (string, error) {
	digest, err := s.digest(data)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(digest), data)
	})
	return digest, err
}

func (s *BoltStore) WriteTree(_ context.Context, entries []TreeEntry) (string, error) {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	encoded, err := json.Marshal(sorted)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "encode tree")
	}
	digest, err := s.digest(encoded)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTrees).Put([]byte(digest), encoded)
	})
	return digest, err
}

func (s *BoltStore) ReadTreeOids(_ context.Context, digest string) (map[string]string, error) {
	var entries []TreeEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTrees).Get([]byte(digest))
		if v == nil {
			return werrors.New(werrors.ENotFound, "tree not found").With("digest", digest)
		}
		return json.Unmarshal(v, &entries)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Path] = e.Oid
	}
	return out, nil
}

func (s *BoltStore) GetCommitTree(_ context.Context, commitDigest string) (string, error) {
	var c memCommit
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCommits).Get([]byte(commitDigest))
		if v == nil {
			return werrors.New(werrors.ENotFound, "commit not found").With("digest", commitDigest)
		}
		return json.Unmarshal(v, &c)
	})
	return c.TreeOid, err
}

func (s *BoltStore) CommitNodeWithTree(_ context.Context, spec CommitSpec) (string, error) {
	c := memCommit{TreeOid: spec.TreeOid, Parents: spec.Parents, Message: spec.Message}
	encoded, err := json.Marshal(c)
	if err != nil {
		return "", werrors.Wrap(werrors.EInternal, err, "encode commit")
	}
	digest, err := s.digest(encoded)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommits).Put([]byte(digest), encoded)
	})
	return digest, err
}

func (s *BoltStore) NodeExists(_ context.Context, digest string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketCommits).Get([]byte(digest)) != nil
		return nil
	})
	return exists, err
}

func (s *BoltStore) readCommit(tx *bolt.Tx, digest string) (memCommit, bool) {
	var c memCommit
	v := tx.Bucket(bucketCommits).Get([]byte(digest))
	if v == nil {
		return memCommit{}, false
	}
	if err := json.Unmarshal(v, &c); err != nil {
		return memCommit{}, false
	}
	return c, true
}

func (s *BoltStore) IsAncestor(_ context.Context, a, b string) (bool, error) {
	if a == b {
		return true, nil
	}
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		visited := make(map[string]bool)
		queue := []string{b}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			c, ok := s.readCommit(tx, cur)
			if !ok {
				continue
			}
			for _, p := range c.Parents {
				if p == a {
					found = true
					return nil
				}
				queue = append(queue, p)
			}
		}
		return nil
	})
	return found, err
}

func (s *BoltStore) GetNodeInfo(_ context.Context, digest string) (NodeInfo, error) {
	var info NodeInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		c, ok := s.readCommit(tx, digest)
		if !ok {
			return werrors.New(werrors.ENotFound, "commit not found").With("digest", digest)
		}
		info = NodeInfo{Sha: digest, Message: c.Message, Parents: c.Parents}
		return nil
	})
	return info, err
}

func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}
