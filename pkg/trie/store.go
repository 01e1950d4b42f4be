package trie

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NodeStore is the content-addressed backing store a Trie resolves
// unresolved references from and flushes newly hashed nodes into. hash must
// equal Keccak256(rlp) for every successful Set the trie performs; the trie
// never checks this itself, since enforcing it is the store's contract to
// keep.
type NodeStore interface {
	// Get returns the RLP encoding previously stored under hash, and
	// whether an entry exists at all.
	Get(hash common.Hash) ([]byte, bool)
	// Set records the RLP encoding of a node under its hash.
	Set(hash common.Hash, rlp []byte)
}

// MemoryStore is a NodeStore backed by a plain map, guarded by a RWMutex so
// reads (during resolve) and the batch writes at commit time can both
// proceed from multiple goroutines. It is what callers pass to New when
// they have no real database yet, and is also sufficient as the target of a root-level
// parallel commit fan-out.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[common.Hash][]byte
}

// NewMemoryStore creates an empty in-memory node store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[common.Hash][]byte)}
}

func (s *MemoryStore) Get(hash common.Hash) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.nodes[hash]
	return data, ok
}

func (s *MemoryStore) Set(hash common.Hash, rlp []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(rlp))
	copy(cp, rlp)
	s.nodes[hash] = cp
}

// Len returns the number of nodes currently held by the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
