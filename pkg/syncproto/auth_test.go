package syncproto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

func newVerifier() *Verifier {
	return &Verifier{
		Crypto: cryptoport.New(),
		Keys:   KeyTable{"k1": []byte("supersecret")},
		Nonces: NewNonceCache(10),
	}
}

// TestReplayRejected implements seed scenario S5: signing
// a request and replaying the exact same headers/body is rejected, but
// re-signing with a fresh nonce at the same timestamp is accepted.
func TestReplayRejected(t *testing.T) {
	v := newVerifier()
	crypto := cryptoport.New()
	now := time.UnixMilli(1_700_000_000_000)
	body := []byte(`{"type":"sync-request"}`)

	nonce1 := NewNonce()
	headers1, err := SignRequest(crypto, v.Keys, "k1", "POST", "/sync", body, "application/json", now, nonce1)
	require.NoError(t, err)

	require.NoError(t, v.VerifyRequest(headers1, "POST", "/sync", body, "application/json", now))

	err = v.VerifyRequest(headers1, "POST", "/sync", body, "application/json", now)
	require.Error(t, err)
	assert.Equal(t, werrors.EReplay, werrors.CodeOf(err))

	nonce2 := NewNonce()
	headers2, err := SignRequest(crypto, v.Keys, "k1", "POST", "/sync", body, "application/json", now, nonce2)
	require.NoError(t, err)
	require.NoError(t, v.VerifyRequest(headers2, "POST", "/sync", body, "application/json", now))
}

func TestInvalidSignatureDoesNotConsumeNonce(t *testing.T) {
	v := newVerifier()
	now := time.UnixMilli(1_700_000_000_000)
	body := []byte(`{}`)
	nonce := NewNonce()

	tampered, err := SignRequest(cryptoport.New(), v.Keys, "k1", "POST", "/sync", body, "application/json", now, nonce)
	require.NoError(t, err)
	tampered.Signature = "0000000000000000000000000000000000000000000000000000000000000000"[:64]

	err = v.VerifyRequest(tampered, "POST", "/sync", body, "application/json", now)
	require.Error(t, err)
	assert.Equal(t, werrors.EInvalidSignature, werrors.CodeOf(err))

	// The nonce must still be usable by the real request.
	real, err := SignRequest(cryptoport.New(), v.Keys, "k1", "POST", "/sync", body, "application/json", now, nonce)
	require.NoError(t, err)
	require.NoError(t, v.VerifyRequest(real, "POST", "/sync", body, "application/json", now))
}

func TestMissingAuthHeaders(t *testing.T) {
	v := newVerifier()
	err := v.VerifyRequest(AuthHeaders{}, "POST", "/sync", nil, "application/json", time.Now())
	require.Error(t, err)
	assert.Equal(t, werrors.EMissingAuth, werrors.CodeOf(err))
}

func TestUnsupportedSigVersion(t *testing.T) {
	v := newVerifier()
	headers := AuthHeaders{SigVersion: "2", KeyID: "k1", Timestamp: "1", Nonce: NewNonce(), Signature: "ab"}
	err := v.VerifyRequest(headers, "POST", "/sync", nil, "application/json", time.Now())
	require.Error(t, err)
	assert.Equal(t, werrors.EInvalidVersion, werrors.CodeOf(err))
}

func TestExpiredBoundary(t *testing.T) {
	v := newVerifier()
	crypto := cryptoport.New()
	now := time.UnixMilli(1_700_000_000_000)
	signedAt := now.Add(-MaxClockSkew)
	body := []byte(`{}`)
	nonce := NewNonce()

	headers, err := SignRequest(crypto, v.Keys, "k1", "GET", "/sync", body, "application/json", signedAt, nonce)
	require.NoError(t, err)
	require.NoError(t, v.VerifyRequest(headers, "GET", "/sync", body, "application/json", now), "exactly at the boundary must be accepted")

	v2 := newVerifier()
	signedAtTooOld := now.Add(-MaxClockSkew - time.Millisecond)
	nonce2 := NewNonce()
	headers2, err := SignRequest(crypto, v2.Keys, "k1", "GET", "/sync", body, "application/json", signedAtTooOld, nonce2)
	require.NoError(t, err)
	err = v2.VerifyRequest(headers2, "GET", "/sync", body, "application/json", now)
	require.Error(t, err)
	assert.Equal(t, werrors.EExpired, werrors.CodeOf(err))
}

func TestUnknownKeyID(t *testing.T) {
	v := newVerifier()
	headers := AuthHeaders{SigVersion: "1", KeyID: "ghost", Timestamp: "1700000000000", Nonce: NewNonce(), Signature: "a" + stringsRepeat("0", 63)}
	err := v.VerifyRequest(headers, "GET", "/sync", nil, "application/json", time.UnixMilli(1_700_000_000_000))
	require.Error(t, err)
	assert.Equal(t, werrors.EUnknownKeyID, werrors.CodeOf(err))
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
