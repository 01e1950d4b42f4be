// encoder_pool.go provides a pooled RLP encoder for the high-throughput
// node-encoding path the trie package's commit walk drives: every dirty
// node in a commit batch gets re-encoded, and most of that payload is
// 32-byte child hashes, which EncodeBytes32 encodes directly rather than
// through EncodeToBytes.
package rlp

import (
	"sync"
	"sync/atomic"
)

// defaultBufSize is the initial capacity for pooled encoder buffers.
const defaultBufSize = 4096

// maxBufSize caps the buffer size to avoid retaining oversized buffers.
const maxBufSize = 1 << 20 // 1 MiB

// EncoderMetrics tracks encoder pool usage for monitoring.
type EncoderMetrics struct {
	// PoolHits counts how many times a buffer was reused from the pool.
	PoolHits atomic.Int64
	// PoolMisses counts how many times a new buffer was allocated.
	PoolMisses atomic.Int64
	// TotalEncodes counts the total number of encode operations.
	TotalEncodes atomic.Int64
	// TotalBytes counts the total bytes of RLP output produced.
	TotalBytes atomic.Int64
}

// Snapshot returns a point-in-time copy of the encoder metrics.
func (m *EncoderMetrics) Snapshot() EncoderMetricsSnapshot {
	return EncoderMetricsSnapshot{
		PoolHits:     m.PoolHits.Load(),
		PoolMisses:   m.PoolMisses.Load(),
		TotalEncodes: m.TotalEncodes.Load(),
		TotalBytes:   m.TotalBytes.Load(),
	}
}

// EncoderMetricsSnapshot is a frozen copy of EncoderMetrics values.
type EncoderMetricsSnapshot struct {
	PoolHits     int64
	PoolMisses   int64
	TotalEncodes int64
	TotalBytes   int64
}

// EncoderPool manages a pool of reusable RLP encoding buffers used to
// batch-encode a node's already-encoded child items into its own list
// payload without allocating a fresh slice per node.
type EncoderPool struct {
	pool    sync.Pool
	metrics EncoderMetrics
}

// NewEncoderPool creates a new encoder pool with default buffer sizing.
func NewEncoderPool() *EncoderPool {
	ep := &EncoderPool{}
	ep.pool.New = func() interface{} {
		ep.metrics.PoolMisses.Add(1)
		buf := make([]byte, 0, defaultBufSize)
		return &encoderBuf{data: buf, fresh: true}
	}
	return ep
}

// Metrics returns the pool's usage metrics.
func (ep *EncoderPool) Metrics() *EncoderMetrics {
	return &ep.metrics
}

// encoderBuf is the pooled buffer wrapper. fresh marks a buffer that was
// just allocated by pool.New rather than reused, so get can credit the
// right metric without double-counting a miss as a hit.
type encoderBuf struct {
	data  []byte
	fresh bool
}

// get retrieves a buffer from the pool, reset to zero length.
func (ep *EncoderPool) get() *encoderBuf {
	buf := ep.pool.Get().(*encoderBuf)
	if buf.fresh {
		buf.fresh = false
	} else {
		ep.metrics.PoolHits.Add(1)
	}
	buf.data = buf.data[:0]
	return buf
}

// put returns a buffer to the pool, discarding oversized buffers so one
// unusually large node doesn't permanently inflate the pool's working set.
func (ep *EncoderPool) put(buf *encoderBuf) {
	if cap(buf.data) > maxBufSize {
		return
	}
	ep.pool.Put(buf)
}

// WrapList appends payload's items (each already individually RLP-encoded,
// as encodeNodeRef produces) into a pooled buffer and returns the list
// encoding as a freshly copied slice the caller owns.
func (ep *EncoderPool) WrapList(items ...[]byte) []byte {
	buf := ep.get()
	defer ep.put(buf)

	total := 0
	for _, item := range items {
		total += len(item)
	}
	if cap(buf.data) < EstimateListSize(total) {
		buf.data = make([]byte, 0, EstimateListSize(total))
	}
	for _, item := range items {
		buf.data = append(buf.data, item...)
	}
	result := wrapList(buf.data)

	ep.metrics.TotalEncodes.Add(1)
	ep.metrics.TotalBytes.Add(int64(len(result)))

	out := make([]byte, len(result))
	copy(out, result)
	return out
}

// EncodeBytes32 encodes a fixed 32-byte value (a node's Keccak-256 hash)
// without going through the general EncodeToBytes length dispatch: every
// encoding is exactly [0xa0, data...], so there is nothing to branch on.
func EncodeBytes32(data [32]byte) []byte {
	buf := make([]byte, 33)
	buf[0] = 0x80 + 32
	copy(buf[1:], data[:])
	return buf
}

// EstimateListSize returns an estimate of the RLP-encoded size of a list
// with the given total payload size, used to preallocate a branch node's
// payload buffer instead of growing it one append at a time across its
// 17 items.
func EstimateListSize(payloadSize int) int {
	if payloadSize <= 55 {
		return 1 + payloadSize
	}
	return 1 + uintByteLen(uint64(payloadSize)) + payloadSize
}

func uintByteLen(u uint64) int {
	switch {
	case u < (1 << 8):
		return 1
	case u < (1 << 16):
		return 2
	case u < (1 << 24):
		return 3
	case u < (1 << 32):
		return 4
	case u < (1 << 40):
		return 5
	case u < (1 << 48):
		return 6
	case u < (1 << 56):
		return 7
	default:
		return 8
	}
}
