package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ZorbaTheGreek7/go-mpt/pkg/rlp"
)

// decodeNode decodes the RLP encoding of a single trie node. Child slots
// that reference another node are left as hashNode placeholders — the
// "Unknown" variant — whether the reference is a 32-byte hash or a short
// inline encoding; resolve is what turns those into concrete nodes, and
// only when something actually needs to look inside them.
//
// hash is the reference this encoding was fetched under, if any, and is
// cached on the returned node so re-hashing it later is a no-op.
func decodeNode(hash hashNode, data []byte) (node, error) {
	if len(data) == 0 {
		log.Error("trie decode: malformed node", "reason", "empty node encoding")
		return nil, fmt.Errorf("%w: empty node encoding", ErrMalformedNode)
	}
	elems, err := rlp.RawListItems(data)
	if err != nil {
		log.Error("trie decode: malformed node", "reason", err, "hash", hash)
		return nil, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	switch len(elems) {
	case 2:
		return decodeShort(hash, elems)
	case 17:
		return decodeFull(hash, elems)
	default:
		log.Error("trie decode: malformed node", "reason", "unexpected list item count", "count", len(elems), "hash", hash)
		return nil, fmt.Errorf("%w: expected 2 or 17 list items, got %d", ErrMalformedNode, len(elems))
	}
}

// decodeShort decodes a 2-item list into a leaf or an extension, as
// discriminated by the hex-prefix terminator nibble on the decoded key.
func decodeShort(hash hashNode, elems [][]byte) (node, error) {
	key := compactToHex(elems[0])
	flags := nodeFlag{hash: hash, dirty: false}

	if hasTerm(key) {
		return &shortNode{Key: key, Val: valueNode(elems[1]), flags: flags}, nil
	}
	child, err := decodeRef(elems[1])
	if err != nil {
		return nil, err
	}
	return &shortNode{Key: key, Val: child, flags: flags}, nil
}

// decodeFull decodes a 17-item list into a branch: 16 child references plus
// the value stored at this branch point, if any.
func decodeFull(hash hashNode, elems [][]byte) (node, error) {
	n := &fullNode{flags: nodeFlag{hash: hash, dirty: false}}
	for i := 0; i < 16; i++ {
		if len(elems[i]) == 0 {
			continue
		}
		child, err := decodeRef(elems[i])
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	if len(elems[16]) > 0 {
		n.Children[16] = valueNode(elems[16])
	}
	return n, nil
}

// decodeRef turns one child reference's raw bytes into an Unknown
// placeholder. It never recurses into the referenced node: that only
// happens on resolve, keeping decode a single flat pass regardless of how
// deep an inline chain goes.
func decodeRef(data []byte) (node, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return hashNode(data), nil
}

// resolve materializes an Unknown child in place. A 32-byte reference is
// looked up first in cache, then in store by hash; anything else is the
// node's own inline RLP and is decoded directly. resolve never touches an
// already-concrete node, so callers can call it unconditionally before
// dereferencing a child.
func resolve(n node, store NodeStore, cache *nodeCache) (node, error) {
	hn, ok := n.(hashNode)
	if !ok {
		return n, nil
	}
	if hn.isInline() {
		return decodeNode(nil, hn)
	}
	key := common32(hn)
	if cached, ok := cache.get(key); ok {
		return cached, nil
	}
	enc, ok := store.Get(key)
	if !ok {
		log.Warn("trie resolve: dangling hash reference", "hash", key)
		return nil, fmt.Errorf("%w: %x", ErrMissingNode, []byte(hn))
	}
	decoded, err := decodeNode(hn, enc)
	if err != nil {
		return nil, err
	}
	cache.add(key, decoded)
	return decoded, nil
}
