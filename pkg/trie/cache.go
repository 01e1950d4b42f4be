package trie

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum/go-ethereum/common"
)

// defaultNodeCacheSize is the default number of decoded nodes kept per
// cache. It bounds memory, not correctness: a miss simply falls back to
// store.Get plus decodeNode.
const defaultNodeCacheSize = 4096

// nodeCache is a shared, concurrency-safe cache of decoded nodes keyed by
// their 32-byte hash reference. It is a pure accelerator for resolve: a
// miss here must be indistinguishable from decoding the node fresh, so
// resolve never treats a cache miss as an error.
type nodeCache struct {
	lru *lru.Cache[common.Hash, node]
}

// newNodeCache creates a cache holding up to size decoded nodes. A
// non-positive size disables caching: get always misses and add is a no-op,
// which is a valid (if slow) configuration.
func newNodeCache(size int) *nodeCache {
	if size <= 0 {
		return &nodeCache{}
	}
	c, err := lru.New[common.Hash, node](size)
	if err != nil {
		// Only returned for size <= 0, already excluded above.
		panic("trie: " + err.Error())
	}
	return &nodeCache{lru: c}
}

func (c *nodeCache) get(hash common.Hash) (node, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	return c.lru.Get(hash)
}

func (c *nodeCache) add(hash common.Hash, n node) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(hash, n)
}

// defaultValueCacheSize is the default number of resolved values kept per
// cache, keyed by the raw key bytes they were stored under.
const defaultValueCacheSize = 4096

// valueCache is a shared, concurrency-safe cache of Get's resolved values,
// keyed by the raw (not nibble-expanded) key. Like nodeCache it is a pure
// accelerator: a miss falls back to the ordinary traversal. Per spec §9,
// it must never go stale — every Set/Delete removes the affected key's
// entry before the mutation itself proceeds, so a later Get either misses
// (and re-resolves the new value) or was never cached in the first place.
type valueCache struct {
	lru *lru.Cache[string, []byte]
}

// newValueCache creates a cache holding up to size resolved values. A
// non-positive size disables caching: get always misses and add/remove are
// no-ops.
func newValueCache(size int) *valueCache {
	if size <= 0 {
		return &valueCache{}
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		// Only returned for size <= 0, already excluded above.
		panic("trie: " + err.Error())
	}
	return &valueCache{lru: c}
}

func (c *valueCache) get(key []byte) ([]byte, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	return c.lru.Get(string(key))
}

func (c *valueCache) add(key, value []byte) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(string(key), value)
}

// remove evicts key's cached value, if any. Called before every Set/Delete
// so a concurrent reader never observes a value that a write is about to
// replace or remove.
func (c *valueCache) remove(key []byte) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Remove(string(key))
}
