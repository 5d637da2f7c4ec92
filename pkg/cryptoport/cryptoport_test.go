package cryptoport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSHA256IsDeterministic(t *testing.T) {
	p := New()
	h1, err := p.Hash(SHA256, []byte("hello"))
	require.NoError(t, err)
	h2, err := p.Hash(SHA256, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashRejectsUnknownAlgorithm(t *testing.T) {
	p := New()
	_, err := p.Hash("md5", []byte("x"))
	require.Error(t, err)
}

func TestHMACIsDeterministicAndKeyed(t *testing.T) {
	p := New()
	mac1, err := p.HMAC(SHA256, []byte("key-a"), []byte("payload"))
	require.NoError(t, err)
	mac2, err := p.HMAC(SHA256, []byte("key-a"), []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, mac1, mac2)

	mac3, err := p.HMAC(SHA256, []byte("key-b"), []byte("payload"))
	require.NoError(t, err)
	assert.NotEqual(t, mac1, mac3)
}

func TestHMACRejectsNonSHA256(t *testing.T) {
	p := New()
	_, err := p.HMAC(SHA1, []byte("k"), []byte("d"))
	require.Error(t, err)
}

func TestTimingSafeEqual(t *testing.T) {
	p := New()
	assert.True(t, p.TimingSafeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, p.TimingSafeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, p.TimingSafeEqual([]byte("abc"), []byte("ab")))
}
