package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotStringRoundTrips(t *testing.T) {
	d := Dot{Writer: "writer-a", Counter: 42}
	parsed, err := ParseDot(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParseDotRejectsMissingSeparator(t *testing.T) {
	_, err := ParseDot("writer-a-no-counter")
	require.Error(t, err)
}

func TestParseDotRejectsZeroCounter(t *testing.T) {
	_, err := ParseDot("writer-a:0")
	require.Error(t, err)
}

func TestDotLessOrdersByWriterThenCounter(t *testing.T) {
	a := Dot{Writer: "a", Counter: 5}
	b := Dot{Writer: "b", Counter: 1}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))

	a1 := Dot{Writer: "a", Counter: 1}
	a2 := Dot{Writer: "a", Counter: 2}
	assert.True(t, a1.Less(a2))
}

func TestWriterIdValidateRejectsPathSeparators(t *testing.T) {
	require.Error(t, WriterId("bad/writer").Validate())
	require.Error(t, WriterId("").Validate())
	require.NoError(t, WriterId("writer-a").Validate())
}
