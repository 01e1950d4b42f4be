package rlp

import (
	"testing"
)

func TestEncodeBytes32(t *testing.T) {
	var h [32]byte
	for i := range h {
		h[i] = byte(i)
	}
	got := EncodeBytes32(h)
	want, err := EncodeToBytes(h[:])
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("EncodeBytes32 = %x, want %x", got, want)
	}
}

func TestEstimateListSizeMatchesWrapList(t *testing.T) {
	payload := make([]byte, 40)
	got := EstimateListSize(len(payload))
	want := len(wrapList(payload))
	if got != want {
		t.Errorf("EstimateListSize(%d) = %d, want %d", len(payload), got, want)
	}
}

func TestEstimateListSizeLongForm(t *testing.T) {
	payload := make([]byte, 200)
	got := EstimateListSize(len(payload))
	want := len(wrapList(payload))
	if got != want {
		t.Errorf("EstimateListSize(%d) = %d, want %d", len(payload), got, want)
	}
}

func TestEncoderPoolWrapListMatchesWrapList(t *testing.T) {
	pool := NewEncoderPool()
	a, b := []byte{0x83, 'c', 'a', 't'}, []byte{0x83, 'd', 'o', 'g'}

	got := pool.WrapList(a, b)
	want := wrapList(append(append([]byte{}, a...), b...))
	if string(got) != string(want) {
		t.Errorf("EncoderPool.WrapList = %x, want %x", got, want)
	}
}

func TestEncoderPoolReusesBuffers(t *testing.T) {
	pool := NewEncoderPool()
	for i := 0; i < 10; i++ {
		pool.WrapList([]byte{0x83, 'c', 'a', 't'})
	}
	snap := pool.Metrics().Snapshot()
	if snap.TotalEncodes != 10 {
		t.Errorf("TotalEncodes = %d, want 10", snap.TotalEncodes)
	}
	if snap.PoolHits == 0 {
		t.Error("expected at least one pool hit after repeated WrapList calls")
	}
}
