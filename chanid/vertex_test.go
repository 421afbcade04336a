package chanid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVertexFromString(t *testing.T) {
	t.Parallel()

	v := NewVertexFromString("Alice")

	var want Vertex
	copy(want[:], "Alice")

	require.Equal(t, want, v)
	require.Equal(t, "416c696365", v.String())
}

func TestVertexFromStringTruncates(t *testing.T) {
	t.Parallel()

	long := "this-name-is-much-longer-than-thirty-three-bytes-for-sure"
	v := NewVertexFromString(long)

	var want Vertex
	copy(want[:], long[:len(want)])

	require.Equal(t, want, v)
}

func TestVertexFromHex(t *testing.T) {
	t.Parallel()

	const pubKeyHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

	v, err := NewVertexFromHex(pubKeyHex)
	require.NoError(t, err)
	require.Equal(t, pubKeyHex, v.String())
}

func TestVertexFromHexInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewVertexFromHex("not-hex")
	require.Error(t, err)
}

func TestVertexStringTrimsTrailingZeros(t *testing.T) {
	t.Parallel()

	v := NewVertexFromString("S")
	require.Equal(t, "53", v.String())

	require.Equal(t, "", (Vertex{}).String())
}
