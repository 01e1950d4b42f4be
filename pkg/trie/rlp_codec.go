package trie

import (
	"github.com/ZorbaTheGreek7/go-mpt/pkg/crypto"
	"github.com/ZorbaTheGreek7/go-mpt/pkg/rlp"
	"github.com/ethereum/go-ethereum/common"
)

// common32 reinterprets a 32-byte hashNode as a common.Hash. Callers must
// only call this on a hashNode known not to be an inline reference.
func common32(hn hashNode) common.Hash {
	var h common.Hash
	copy(h[:], hn)
	return h
}

// nodePool is the package-wide pooled encoder every shortNode/fullNode
// encoding goes through. Its counters can be inspected via NodeEncoderMetrics
// to see how effectively the pool is being reused across a process's lifetime.
var nodePool = rlp.NewEncoderPool()

// NodeEncoderMetrics reports cumulative usage of the encoder buffer pool
// backing every node encoding this package has performed since process
// start. It is a debugging/observability aid, not load-bearing: a cold
// pool simply means every encode allocated its own buffer.
func NodeEncoderMetrics() rlp.EncoderMetricsSnapshot {
	return nodePool.Metrics().Snapshot()
}

// hasher turns in-memory nodes into their consensus encoding and, where the
// encoding is long enough, their Keccak-256 hash. It carries no state of its
// own; it exists (rather than a handful of free functions) to mirror the
// shape of the committer and cache types it is used alongside.
type hasher struct{}

func newHasher() *hasher {
	return &hasher{}
}

// hash returns the node's reference (a hashNode: either a 32-byte hash or,
// for encodings under 32 bytes, the raw RLP itself) and the node with its
// children replaced by their own references. The second return value is
// what gets kept in the live trie; the first is what gets written into the
// parent's encoding. A cached, non-dirty node's hash is reused as-is.
//
// force always hashes even a short encoding; only the root is hashed with
// force set, since the root reference is always looked up by hash even when
// its encoding would otherwise qualify for inlining.
func (h *hasher) hash(n node, force bool) (node, node, error) {
	if hash, dirty := n.cache(); hash != nil && !dirty {
		return hash, n, nil
	}
	collapsed, cached, err := h.hashChildren(n)
	if err != nil {
		return nil, nil, err
	}
	hashed, err := h.store(collapsed, force)
	if err != nil {
		return nil, nil, err
	}
	cachedHash, _ := hashed.(hashNode)
	switch cn := cached.(type) {
	case *shortNode:
		cn.flags.hash = cachedHash
		cn.flags.dirty = false
	case *fullNode:
		cn.flags.hash = cachedHash
		cn.flags.dirty = false
	}
	return hashed, cached, nil
}

// hashChildren replaces n's immediate children with their references,
// returning both the collapsed copy (used for this node's own encoding) and
// the cached copy (kept live in the trie, with its children still resolved
// for as long as nothing evicts them).
func (h *hasher) hashChildren(original node) (node, node, error) {
	switch n := original.(type) {
	case *shortNode:
		collapsed, cached := n.copy(), n.copy()
		collapsed.Key = hexToCompact(n.Key)
		if _, ok := n.Val.(valueNode); !ok && n.Val != nil {
			childH, childC, err := h.hash(n.Val, false)
			if err != nil {
				return nil, nil, err
			}
			collapsed.Val = childH
			cached.Val = childC
		}
		return collapsed, cached, nil
	case *fullNode:
		collapsed, cached := n.copy(), n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childH, childC, err := h.hash(n.Children[i], false)
				if err != nil {
					return nil, nil, err
				}
				collapsed.Children[i] = childH
				cached.Children[i] = childC
			}
		}
		return collapsed, cached, nil
	default:
		return n, n, nil
	}
}

// store RLP-encodes n and, unless the encoding is under 32 bytes and force
// is false, returns its Keccak-256 hash instead of the node itself.
func (h *hasher) store(n node, force bool) (node, error) {
	if _, ok := n.(hashNode); ok {
		return n, nil
	}
	if _, ok := n.(valueNode); ok {
		return n, nil
	}
	enc, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	if len(enc) < 32 && !force {
		return n, nil
	}
	return hashNode(crypto.Keccak256(enc)), nil
}

// encodeNode produces the canonical RLP encoding of a node whose children
// have already been collapsed to references (see hashChildren). This is
// the encoding that gets hashed and, for the root or any node >= 32 bytes,
// flushed to the node store.
func encodeNode(n node) ([]byte, error) {
	switch n := n.(type) {
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	case hashNode:
		return []byte(n), nil
	case valueNode:
		return rlp.EncodeToBytes([]byte(n))
	default:
		return nil, nil
	}
}

// encodeShortNode encodes a leaf or extension as the spec's 2-element list
// [compactKey, val]. n.Key must already be compact (hex-prefix) encoded.
func encodeShortNode(n *shortNode) ([]byte, error) {
	keyEnc, err := rlp.EncodeToBytes(n.Key)
	if err != nil {
		return nil, err
	}
	valEnc, err := encodeNodeRef(n.Val)
	if err != nil {
		return nil, err
	}
	return nodePool.WrapList(keyEnc, valEnc), nil
}

// encodeFullNode encodes a branch as the spec's 17-element list
// [child0..child15, value]. Most of a branch's 17 items are either a
// 33-byte hash reference or a single empty-string byte, so its payload
// size is predictable enough to preallocate rather than grow by append
// across all 17 items.
func encodeFullNode(n *fullNode) ([]byte, error) {
	items := make([][]byte, 17)
	for i := 0; i < 17; i++ {
		enc, err := encodeNodeRef(n.Children[i])
		if err != nil {
			return nil, err
		}
		items[i] = enc
	}
	return nodePool.WrapList(items...), nil
}

// encodeNodeRef encodes a child reference for inclusion in a parent's
// payload: an empty RLP string for an absent child, an RLP string of the
// raw bytes for a value or a hash reference, or the child's own inline RLP
// encoding when it is short enough to have been left unhashed.
func encodeNodeRef(n node) ([]byte, error) {
	switch n := n.(type) {
	case nil:
		return []byte{0x80}, nil
	case valueNode:
		return rlp.EncodeToBytes([]byte(n))
	case hashNode:
		if n.isInline() {
			return []byte(n), nil
		}
		var h [32]byte
		copy(h[:], n)
		return rlp.EncodeBytes32(h), nil
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	default:
		return []byte{0x80}, nil
	}
}
