package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustConfigContains(t *testing.T) {
	c := TrustConfig{TrustedWriters: []WriterId{"w1", "w2"}, Policy: TrustPolicyAny}
	assert.True(t, c.Contains("w1"))
	assert.False(t, c.Contains("w3"))
}

func TestTrustConfigContainsEmptyList(t *testing.T) {
	c := TrustConfig{Policy: TrustPolicyAllWritersMustBeTrusted}
	assert.False(t, c.Contains("anyone"))
}
