package objectstore

import (
	"context"
	"testing"

	"github.com/cuemby/warpgraph/pkg/werrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runPortSuite exercises the Port contract against any adapter, so
// BoltStore, MemoryStore and FileStore are held to the same behavior.
func runPortSuite(t *testing.T, newStore func(t *testing.T) Port) {
	ctx := context.Background()

	t.Run("blob write read round trip", func(t *testing.T) {
		s := newStore(t)
		digest, err := s.WriteBlob(ctx, []byte("hello"))
		require.NoError(t, err)
		data, err := s.ReadBlob(ctx, digest)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("blob write is content addressed", func(t *testing.T) {
		s := newStore(t)
		d1, err := s.WriteBlob(ctx, []byte("same"))
		require.NoError(t, err)
		d2, err := s.WriteBlob(ctx, []byte("same"))
		require.NoError(t, err)
		assert.Equal(t, d1, d2)
	})

	t.Run("read missing blob errors", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadBlob(ctx, "deadbeef")
		require.Error(t, err)
	})

	t.Run("tree round trip sorted by path", func(t *testing.T) {
		s := newStore(t)
		digest, err := s.WriteTree(ctx, []TreeEntry{
			{Mode: "100644", Path: "b", Oid: "oid-b"},
			{Mode: "100644", Path: "a", Oid: "oid-a"},
		})
		require.NoError(t, err)
		oids, err := s.ReadTreeOids(ctx, digest)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "oid-a", "b": "oid-b"}, oids)
	})

	t.Run("ref read of unset ref reports not found", func(t *testing.T) {
		s := newStore(t)
		_, found, err := s.ReadRef(ctx, "refs/warp/g1/writers/w1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("update ref then read", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpdateRef(ctx, "refs/warp/g1/writers/w1", "commit-1"))
		digest, found, err := s.ReadRef(ctx, "refs/warp/g1/writers/w1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "commit-1", digest)
	})

	t.Run("cas from nil succeeds only once", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CompareAndSwapRef(ctx, "refs/warp/g1/trust/root", "c1", nil))
		err := s.CompareAndSwapRef(ctx, "refs/warp/g1/trust/root", "c2", nil)
		require.Error(t, err)
		assert.Equal(t, werrors.ERefConflict, werrors.CodeOf(err))
	})

	t.Run("cas with matching expected advances ref", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CompareAndSwapRef(ctx, "ref", "c1", nil))
		c1 := "c1"
		require.NoError(t, s.CompareAndSwapRef(ctx, "ref", "c2", &c1))
		digest, _, err := s.ReadRef(ctx, "ref")
		require.NoError(t, err)
		assert.Equal(t, "c2", digest)
	})

	t.Run("cas with stale expected fails", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CompareAndSwapRef(ctx, "ref", "c1", nil))
		stale := "wrong"
		err := s.CompareAndSwapRef(ctx, "ref", "c2", &stale)
		require.Error(t, err)
	})

	t.Run("list refs by prefix sorted", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpdateRef(ctx, "refs/warp/g1/writers/b", "x"))
		require.NoError(t, s.UpdateRef(ctx, "refs/warp/g1/writers/a", "x"))
		require.NoError(t, s.UpdateRef(ctx, "refs/warp/g2/writers/a", "x"))

		names, err := s.ListRefs(ctx, "refs/warp/g1/writers/")
		require.NoError(t, err)
		assert.Equal(t, []string{"refs/warp/g1/writers/a", "refs/warp/g1/writers/b"}, names)
	})

	t.Run("delete ref removes it", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpdateRef(ctx, "ref", "x"))
		require.NoError(t, s.DeleteRef(ctx, "ref"))
		_, found, err := s.ReadRef(ctx, "ref")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("commit chain ancestry and node info", func(t *testing.T) {
		s := newStore(t)
		treeDigest, err := s.WriteTree(ctx, nil)
		require.NoError(t, err)

		root, err := s.CommitNodeWithTree(ctx, CommitSpec{TreeOid: treeDigest, Message: "root"})
		require.NoError(t, err)
		child, err := s.CommitNodeWithTree(ctx, CommitSpec{TreeOid: treeDigest, Parents: []string{root}, Message: "child"})
		require.NoError(t, err)

		exists, err := s.NodeExists(ctx, root)
		require.NoError(t, err)
		assert.True(t, exists)

		gotTree, err := s.GetCommitTree(ctx, child)
		require.NoError(t, err)
		assert.Equal(t, treeDigest, gotTree)

		isAnc, err := s.IsAncestor(ctx, root, child)
		require.NoError(t, err)
		assert.True(t, isAnc)

		isAnc, err = s.IsAncestor(ctx, child, root)
		require.NoError(t, err)
		assert.False(t, isAnc)

		info, err := s.GetNodeInfo(ctx, child)
		require.NoError(t, err)
		assert.Equal(t, "child", info.Message)
		assert.Equal(t, []string{root}, info.Parents)
	})

	t.Run("ping succeeds", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStorePortSuite(t *testing.T) {
	runPortSuite(t, func(t *testing.T) Port {
		s := NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBoltStorePortSuite(t *testing.T) {
	runPortSuite(t, func(t *testing.T) Port {
		s, err := OpenBoltStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileStorePortSuite(t *testing.T) {
	runPortSuite(t, func(t *testing.T) Port {
		s, err := OpenFileStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileStoreRefSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := OpenFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.UpdateRef(ctx, "refs/warp/g1/writers/w1", "digest-1"))

	s2, err := OpenFileStore(dir)
	require.NoError(t, err)
	digest, found, err := s2.ReadRef(ctx, "refs/warp/g1/writers/w1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "digest-1", digest)

	// A CAS against the reopened store sees the ref persisted by s1, not a
	// fresh empty map: mismatched expected digests are still rejected.
	err = s2.CompareAndSwapRef(ctx, "refs/warp/g1/writers/w1", "digest-2", stringPtr("wrong-expected"))
	require.Error(t, err)

	require.NoError(t, s2.CompareAndSwapRef(ctx, "refs/warp/g1/writers/w1", "digest-2", stringPtr("digest-1")))
	digest, _, err = s1.ReadRef(ctx, "refs/warp/g1/writers/w1")
	require.NoError(t, err)
	assert.Equal(t, "digest-2", digest, "s1 reads s2's write: both point at the same on-disk ref file")
}

func stringPtr(s string) *string { return &s }
