// Package cryptoport implements the Crypto Port: the small set of
// hashing, HMAC, and constant-time comparison primitives the sync
// protocol and object-store adapters need, backed entirely by the
// standard library (crypto/sha256, crypto/sha1, crypto/hmac,
// crypto/subtle). There is no third-party cryptography dependency in
// the example pack suitable for this surface, and the standard library
// implementations are themselves the audited, constant-time reference
// for these exact primitives — reaching for an external package here
// would add a dependency without adding safety.
package cryptoport

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // sha-1 is an explicitly supported legacy digest, not used for new signatures
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/cuemby/warpgraph/pkg/werrors"
)

// Algorithm names the supported digest algorithms.
type Algorithm string

const (
	SHA256 Algorithm = "sha-256"
	SHA1   Algorithm = "sha-1"
)

// Port is the Crypto Port: digest, HMAC, and constant-time compare. It is
// a struct of stateless methods rather than a package-level function set
// so object-store and sync-protocol code can depend on an interface and
// swap in a test double without needing a real clock or RNG.
type Port struct{}

// New returns the standard-library-backed Crypto Port implementation.
func New() Port { return Port{} }

// Hash returns the hex-encoded digest of data under algorithm.
func (Port) Hash(algorithm Algorithm, data []byte) (string, error) {
	switch algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case SHA1:
		sum := sha1.Sum(data) //nolint:gosec // legacy digest support only, see package doc
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", werrors.New(werrors.EUsage, "unsupported hash algorithm").With("algorithm", string(algorithm))
	}
}

// HMAC returns the raw HMAC-SHA256 of data keyed by key. The sync
// protocol always uses SHA256 for its authentication envelope; algorithm
// is accepted for forward compatibility but anything other than SHA256
// is rejected today.
func (Port) HMAC(algorithm Algorithm, key, data []byte) ([]byte, error) {
	if algorithm != SHA256 {
		return nil, werrors.New(werrors.EUsage, "unsupported hmac algorithm").With("algorithm", string(algorithm))
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// TimingSafeEqual reports whether a and b are equal using a
// constant-time comparison, so that signature verification does not leak
// timing information about how many leading bytes matched.
func (Port) TimingSafeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
