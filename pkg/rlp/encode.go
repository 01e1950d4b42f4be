// Package rlp implements the Recursive Length Prefix encoding used by
// pkg/trie to derive node identities. It is scoped to exactly the two
// shapes a trie node ever needs: a canonical byte-string encoding (hex-
// prefix keys, stored values, node hashes) and list framing around
// already-encoded items (a node's own payload). There is no general
// reflection-based encoder here, since nothing in this module ever RLP-
// encodes anything but a []byte or a list of such encodings.
package rlp

// EncodeToBytes returns the canonical RLP encoding of a byte string. The
// error return exists so callers (and pkg/trie, which checks every RLP
// call) can treat this uniformly with the rest of the codec; encoding a
// byte string never actually fails.
func EncodeToBytes(data []byte) ([]byte, error) {
	return encodeString(data), nil
}

func encodeString(data []byte) []byte {
	n := len(data)
	if n == 1 && data[0] <= 0x7f {
		return data
	}
	if n <= 55 {
		buf := make([]byte, 1+n)
		buf[0] = 0x80 + byte(n)
		copy(buf[1:], data)
		return buf
	}
	lenBytes := putUintBigEndian(uint64(n))
	buf := make([]byte, 1+len(lenBytes)+n)
	buf[0] = 0xb7 + byte(len(lenBytes))
	copy(buf[1:], lenBytes)
	copy(buf[1+len(lenBytes):], data)
	return buf
}

// WrapList wraps an already RLP-encoded payload — the concatenation of one
// or more items' own encodings — in a list header. This is the only list
// encoding primitive the package needs: every node's children are encoded
// individually first (see pkg/trie/rlp_codec.go's encodeNodeRef) and then
// assembled with WrapList, rather than built from a single reflected
// slice value.
func WrapList(payload []byte) []byte {
	return wrapList(payload)
}

func wrapList(payload []byte) []byte {
	n := len(payload)
	if n <= 55 {
		buf := make([]byte, 1+n)
		buf[0] = 0xc0 + byte(n)
		copy(buf[1:], payload)
		return buf
	}
	lenBytes := putUintBigEndian(uint64(n))
	buf := make([]byte, 1+len(lenBytes)+n)
	buf[0] = 0xf7 + byte(len(lenBytes))
	copy(buf[1:], lenBytes)
	copy(buf[1+len(lenBytes):], payload)
	return buf
}

// putUintBigEndian encodes u as big-endian with no leading zeros, the
// length-prefix form RLP uses for strings/lists over 55 bytes.
func putUintBigEndian(u uint64) []byte {
	switch {
	case u < (1 << 8):
		return []byte{byte(u)}
	case u < (1 << 16):
		return []byte{byte(u >> 8), byte(u)}
	case u < (1 << 24):
		return []byte{byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 32):
		return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 40):
		return []byte{byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 48):
		return []byte{byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 56):
		return []byte{byte(u >> 48), byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	default:
		return []byte{byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	}
}
