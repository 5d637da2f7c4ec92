package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueEqualComparesByScalarKind(t *testing.T) {
	assert.True(t, InlineString("a").Equal(InlineString("a")))
	assert.False(t, InlineString("a").Equal(InlineString("b")))
	assert.False(t, InlineString("1").Equal(InlineInt(1)))
	assert.True(t, InlineInt(7).Equal(InlineInt(7)))
	assert.True(t, InlineBool(true).Equal(InlineBool(true)))
	assert.True(t, InlineNull().Equal(InlineNull()))
}

func TestBlobValueEqualComparesDigestOnly(t *testing.T) {
	a := BlobValue("sha256:abc")
	b := BlobValue("sha256:abc")
	c := BlobValue("sha256:def")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestValueEqualDistinguishesKind(t *testing.T) {
	assert.False(t, InlineString("sha256:abc").Equal(BlobValue("sha256:abc")))
}
