package chanid

import "encoding/hex"

// Vertex is a fixed-size identifier for a node in the channel graph, sized
// to hold a compressed secp256k1 public key the way the gossip layer names
// nodes. Synthetic graphs built directly in Go (tests, simulations) may
// populate it from any short byte sequence via NewVertexFromString; the
// zero-padding that leaves is harmless since equality and map-keying only
// care about the full 33 bytes matching.
type Vertex [33]byte

// NewVertexFromHex decodes a hex-encoded public key, as found in gossip's
// node1_pub/node2_pub fields, into a Vertex.
func NewVertexFromHex(pubKeyHex string) (Vertex, error) {
	var v Vertex

	b, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return v, err
	}

	n := len(b)
	if n > len(v) {
		n = len(v)
	}
	copy(v[:n], b[:n])

	return v, nil
}

// NewVertexFromString deterministically maps an arbitrary identifier (e.g.
// "Alice", "S", "R") onto a Vertex. It is not a hash: short, human-readable
// names round-trip through the leading bytes exactly, which keeps test
// fixtures and debug output readable.
func NewVertexFromString(name string) Vertex {
	var v Vertex

	n := len(name)
	if n > len(v) {
		n = len(v)
	}
	copy(v[:n], name[:n])

	return v
}

// String renders the vertex as a hex string, trimmed of trailing zero
// bytes so human-constructed test vertices stay readable.
func (v Vertex) String() string {
	end := len(v)
	for end > 0 && v[end-1] == 0 {
		end--
	}

	return hex.EncodeToString(v[:end])
}
