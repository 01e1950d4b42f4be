package rlp

import (
	"bytes"
	"errors"
	"testing"
)

func TestRawListItemsCatDog(t *testing.T) {
	// ["cat", "dog"]
	data := []byte{0xc8, 0x83, 0x63, 0x61, 0x74, 0x83, 0x64, 0x6f, 0x67}
	items, err := RawListItems(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if string(items[0]) != "cat" || string(items[1]) != "dog" {
		t.Fatalf("got %q/%q, want cat/dog", items[0], items[1])
	}
}

func TestRawListItemsEmptyList(t *testing.T) {
	items, err := RawListItems([]byte{0xc0})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
}

// TestRawListItemsSeventeen exercises the shape pkg/trie's branch decoder
// relies on: 16 empty child slots plus one populated value slot.
func TestRawListItemsSeventeen(t *testing.T) {
	payload := []byte{}
	for i := 0; i < 16; i++ {
		payload = append(payload, 0x80) // empty string
	}
	val, _ := EncodeToBytes([]byte("v"))
	payload = append(payload, val...)
	data := WrapList(payload)

	items, err := RawListItems(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 17 {
		t.Fatalf("got %d items, want 17", len(items))
	}
	for i := 0; i < 16; i++ {
		if len(items[i]) != 0 {
			t.Fatalf("child slot %d: got %x, want empty", i, items[i])
		}
	}
	if string(items[16]) != "v" {
		t.Fatalf("value slot: got %q, want %q", items[16], "v")
	}
}

// TestRawListItemsNestedList exercises the inline-child shape a short
// node's child reference takes when its own encoding is under 32 bytes:
// the list item yields its full encoding, header included, rather than
// being flattened or pre-decoded.
func TestRawListItemsNestedList(t *testing.T) {
	inner, _ := EncodeToBytes([]byte("k"))
	innerNode := WrapList(append(append([]byte{}, inner...), inner...))
	outer := WrapList(innerNode)

	items, err := RawListItems(outer)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if !bytes.Equal(items[0], innerNode) {
		t.Fatalf("nested item: got %x, want %x (full encoding, not flattened)", items[0], innerNode)
	}
}

func TestRawListItemsRejectsNonList(t *testing.T) {
	_, err := RawListItems([]byte{0x83, 0x64, 0x6f, 0x67}) // a bare string
	if err == nil {
		t.Fatal("expected error decoding a string as a list")
	}
}

func TestRawListItemsRejectsTruncatedInput(t *testing.T) {
	// Claims a 3-byte string but only has 2.
	_, err := RawListItems([]byte{0xc4, 0x83, 0x64, 0x6f})
	if err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestRawListItemsRejectsNonCanonicalLength(t *testing.T) {
	// Claims a long list whose one-byte length field is a leading zero.
	_, err := RawListItems([]byte{0xf8, 0x00, 0x80})
	if err == nil {
		t.Fatal("expected error for non-canonical length prefix")
	}
}

func TestRawListItemsRejectsOversizedShortForm(t *testing.T) {
	// A "long list" whose actual size would fit the short form (<=55) is
	// non-canonical and must be rejected, not silently accepted.
	_, err := RawListItems([]byte{0xf8, 0x01, 0x80})
	if !errors.Is(err, ErrNonCanonicalSize) {
		t.Fatalf("got %v, want ErrNonCanonicalSize", err)
	}
}

// TestEncodeDecodeRoundTrip ties the package's two halves together: a
// leaf-shaped 2-item list (hex-prefix key, value) built with EncodeToBytes
// and WrapList must read back through RawListItems unchanged.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	key, _ := EncodeToBytes([]byte{0x20, 0x6f})
	val, _ := EncodeToBytes([]byte("verb"))
	data := WrapList(append(append([]byte{}, key...), val...))

	items, err := RawListItems(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !bytes.Equal(items[0], []byte{0x20, 0x6f}) {
		t.Fatalf("key: got %x, want %x", items[0], []byte{0x20, 0x6f})
	}
	if string(items[1]) != "verb" {
		t.Fatalf("value: got %q, want %q", items[1], "verb")
	}
}
