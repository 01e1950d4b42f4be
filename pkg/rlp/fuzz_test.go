package rlp

import (
	"testing"
)

// FuzzRawListItems drives the package's actual decode entrypoint —
// pkg/trie/decode.go calls nothing else — across arbitrary byte strings,
// checking only that malformed input is rejected with an error rather than
// a panic or an out-of-bounds read.
func FuzzRawListItems(f *testing.F) {
	f.Add([]byte{0xc0})                                                 // empty list
	f.Add([]byte{0xc8, 0x83, 0x63, 0x61, 0x74, 0x83, 0x64, 0x6f, 0x67}) // ["cat","dog"]
	f.Add([]byte{0x80})                                                 // bare empty string, not a list
	f.Add([]byte{0xc4, 0x83, 0x64, 0x6f})                               // truncated string inside a list
	f.Add([]byte{0xf8, 0x00, 0x80})                                     // length field with a leading zero
	f.Add([]byte{})                                                     // empty input

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = RawListItems(data)
	})
}
