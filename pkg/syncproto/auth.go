package syncproto

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/metrics"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
)

// SigVersion is the only supported authentication envelope version.
const SigVersion = "1"

// DefaultNonceCacheCapacity is the default LRU replay-cache capacity.
const DefaultNonceCacheCapacity = 10000

// MaxClockSkew bounds how far a request timestamp may drift from the
// server's clock before it is rejected as expired.
const MaxClockSkew = 300_000 * time.Millisecond

var nonceV4Pattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
var signatureHexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// AuthHeaders is the five-header authentication envelope attached to
// every sync request.
type AuthHeaders struct {
	SigVersion string
	KeyID      string
	Timestamp  string
	Nonce      string
	Signature  string
}

// KeyTable maps a key id to its shared HMAC secret.
type KeyTable map[string][]byte

// CanonicalPayload builds the exact string that is HMAC-signed:
// "warp-v1|<keyId>|<method>|<path>|<ts>|<nonce>|<content-type>|<sha256(body)>".
func CanonicalPayload(keyID, method, path, timestamp, nonce, contentType string, bodySha256Hex string) string {
	return strings.Join([]string{
		"warp-v1", keyID, method, path, timestamp, nonce, contentType, bodySha256Hex,
	}, "|")
}

// SignRequest builds the full AuthHeaders for an outgoing request signed
// with keyID's secret from table. now and nonce are supplied by the
// caller (the facade's injected Clock and a generated UUID) so signing
// is deterministic and testable.
func SignRequest(crypto cryptoport.Port, table KeyTable, keyID string, method, path string, body []byte, contentType string, now time.Time, nonce string) (AuthHeaders, error) {
	secret, ok := table[keyID]
	if !ok {
		return AuthHeaders{}, werrors.New(werrors.EUnknownKeyID, "unknown key id").With("key_id", keyID)
	}
	bodySum := sha256.Sum256(body)
	bodyHex := hex.EncodeToString(bodySum[:])
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	payload := CanonicalPayload(keyID, method, path, ts, nonce, contentType, bodyHex)
	mac, err := crypto.HMAC(cryptoport.SHA256, secret, []byte(payload))
	if err != nil {
		return AuthHeaders{}, err
	}
	return AuthHeaders{
		SigVersion: SigVersion,
		KeyID:      keyID,
		Timestamp:  ts,
		Nonce:      nonce,
		Signature:  hex.EncodeToString(mac),
	}, nil
}

// NewNonce returns a fresh v4 UUID nonce for an outgoing request.
func NewNonce() string {
	return uuid.New().String()
}

// NonceCache is the LRU replay-protection cache: a nonce is claimed only
// once verification otherwise succeeds.
type NonceCache struct {
	cache *lru.Cache[string, struct{}]
}

// NewNonceCache returns a NonceCache with the given capacity (0 means
// DefaultNonceCacheCapacity).
func NewNonceCache(capacity int) *NonceCache {
	if capacity <= 0 {
		capacity = DefaultNonceCacheCapacity
	}
	c, _ := lru.NewWithEvict[string, struct{}](capacity, func(string, struct{}) {
		metrics.NonceCacheEvictionsTotal.Inc()
	})
	return &NonceCache{cache: c}
}

// Claim records nonce as used, returning false if it was already present
// (a replay).
func (n *NonceCache) Claim(nonce string) (fresh bool) {
	if _, found := n.cache.Get(nonce); found {
		return false
	}
	n.cache.Add(nonce, struct{}{})
	return true
}

// Verifier validates incoming sync requests against the HMAC
// authentication envelope.
type Verifier struct {
	Crypto cryptoport.Port
	Keys   KeyTable
	Nonces *NonceCache

	// AllowedWriters, if non-empty, restricts which writers' patches a
	// request may carry. EnforceAllowlist selects whether a violation is
	// rejected (true) or merely counted (false, "log-only mode").
	AllowedWriters   map[types.WriterId]struct{}
	EnforceAllowlist bool
}

// VerifyRequest runs the full authentication check described by original
// §4.6 steps 1-7 (writer-allowlist enforcement, step 8, is a separate
// call — CheckWriterAllowlist — since it needs the parsed patch list,
// which is only available after the body has been authenticated and
// decoded).
func (v *Verifier) VerifyRequest(headers AuthHeaders, method, path string, body []byte, contentType string, now time.Time) error {
	if headers.SigVersion == "" && headers.KeyID == "" && headers.Timestamp == "" && headers.Nonce == "" && headers.Signature == "" {
		return werrors.New(werrors.EMissingAuth, "missing authentication headers")
	}
	if headers.SigVersion != SigVersion {
		return werrors.New(werrors.EInvalidVersion, "unsupported sig-version").With("sig_version", headers.SigVersion)
	}
	if headers.KeyID == "" || headers.Timestamp == "" || headers.Nonce == "" || headers.Signature == "" {
		return werrors.New(werrors.EMissingAuth, "missing one or more authentication headers")
	}

	tsMillis, err := strconv.ParseInt(headers.Timestamp, 10, 64)
	if err != nil {
		return werrors.New(werrors.EMalformedHeader, "timestamp is not an integer string").With("timestamp", headers.Timestamp)
	}
	if !nonceV4Pattern.MatchString(headers.Nonce) {
		return werrors.New(werrors.EMalformedHeader, "nonce is not a v4 UUID").With("nonce", headers.Nonce)
	}
	if !signatureHexPattern.MatchString(headers.Signature) {
		return werrors.New(werrors.EMalformedHeader, "signature is not 64 lowercase hex characters")
	}

	ts := time.UnixMilli(tsMillis)
	skew := now.Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxClockSkew {
		return werrors.New(werrors.EExpired, "request timestamp outside allowed clock skew").
			With("skew_ms", strconv.FormatInt(skew.Milliseconds(), 10))
	}

	secret, ok := v.Keys[headers.KeyID]
	if !ok {
		return werrors.New(werrors.EUnknownKeyID, "unknown key id").With("key_id", headers.KeyID)
	}

	bodySum := sha256.Sum256(body)
	bodyHex := hex.EncodeToString(bodySum[:])
	payload := CanonicalPayload(headers.KeyID, method, path, headers.Timestamp, headers.Nonce, contentType, bodyHex)
	expectedMAC, err := v.Crypto.HMAC(cryptoport.SHA256, secret, []byte(payload))
	if err != nil {
		return err
	}
	gotMAC, err := hex.DecodeString(headers.Signature)
	if err != nil {
		return werrors.New(werrors.EMalformedHeader, "signature is not valid hex")
	}
	if !v.Crypto.TimingSafeEqual(expectedMAC, gotMAC) {
		return werrors.New(werrors.EInvalidSignature, "HMAC signature mismatch")
	}

	// Only a fully-authenticated request claims its nonce: an invalid
	// signature must never burn the nonce of the legitimate request it
	// was forged to resemble.
	if !v.Nonces.Claim(headers.Nonce) {
		return werrors.New(werrors.EReplay, "nonce already used").With("nonce", headers.Nonce)
	}
	return nil
}
