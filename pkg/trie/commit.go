package trie

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ZorbaTheGreek7/go-mpt/pkg/crypto"
)

// CommitMetrics reports what a single Commit call did, for callers that
// want visibility into commit cost without instrumenting the store
// themselves.
type CommitMetrics struct {
	NodesWritten int64
	BytesFlushed int64
	HashTimeNs   int64
	CommitTimeNs int64
}

// collectedNode is one (hash, rlp) pair waiting to be flushed to the store.
type collectedNode struct {
	hash common.Hash
	data []byte
}

// nodeCollector accumulates (hash, rlp) pairs discovered during a commit
// walk. It is safe for concurrent use by the root-level parallel fan-out.
type nodeCollector struct {
	mu    sync.Mutex
	nodes []collectedNode
}

func (c *nodeCollector) add(hash common.Hash, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append(c.nodes, collectedNode{hash: hash, data: data})
}

// Commit hashes every dirty node reachable from the root, writes each one
// whose reference is a hash (as opposed to an inline encoding) to the
// store, and returns the new root hash. Nodes are left clean and cached
// in memory afterward, so a second Commit with no intervening mutation is
// a no-op walk that writes nothing.
//
// When the root is a Branch with at least t.parallelThreshold dirty
// children, those children are committed concurrently; this is the only
// concurrency the package introduces, and it is safe because each
// subtree's nodes and store keys are disjoint from its siblings'.
func (t *Trie) Commit() (common.Hash, *CommitMetrics, error) {
	metrics := &CommitMetrics{}
	if t.root == nil {
		return emptyRoot, metrics, nil
	}

	hashStart := time.Now()
	collector := &nodeCollector{}
	hashed, cached, err := t.commitRoot(t.root, collector)
	metrics.HashTimeNs = time.Since(hashStart).Nanoseconds()
	if err != nil {
		return common.Hash{}, metrics, err
	}
	t.root = cached

	commitStart := time.Now()
	for _, cn := range collector.nodes {
		t.store.Set(cn.hash, cn.data)
		metrics.NodesWritten++
		metrics.BytesFlushed += int64(len(cn.data))
	}
	metrics.CommitTimeNs = time.Since(commitStart).Nanoseconds()
	log.Debug("trie commit", "nodesWritten", metrics.NodesWritten, "bytesFlushed", metrics.BytesFlushed)

	hn, ok := hashed.(hashNode)
	if !ok || hn.isInline() {
		return common.Hash{}, metrics, fmt.Errorf("%w: forced root hash came back inline", ErrStructuralInvariant)
	}
	return common32(hn), metrics, nil
}

// UpdateRootHash resolves and caches the root's hash without writing
// anything to the store; callers that batch persistence separately (or
// only need the hash for comparison) use this instead of Commit.
func (t *Trie) UpdateRootHash() (common.Hash, error) {
	if t.root == nil {
		return emptyRoot, nil
	}
	h := newHasher()
	hashed, cached, err := h.hash(t.root, true)
	if err != nil {
		return common.Hash{}, err
	}
	t.root = cached
	hn, ok := hashed.(hashNode)
	if !ok || hn.isInline() {
		return common.Hash{}, fmt.Errorf("%w: forced root hash came back inline", ErrStructuralInvariant)
	}
	return common32(hn), nil
}

// commitRoot decides whether the root qualifies for the parallel fan-out
// and dispatches to the matching commit path, always force-hashing the
// root itself.
func (t *Trie) commitRoot(n node, collector *nodeCollector) (node, node, error) {
	if fn, ok := n.(*fullNode); ok && t.dirtyChildCount(fn) >= t.parallelThreshold && t.parallelThreshold > 0 {
		return t.commitBranchParallel(fn, collector, true)
	}
	return t.commitNode(n, collector, true)
}

func (t *Trie) dirtyChildCount(fn *fullNode) int {
	count := 0
	for i := 0; i < 16; i++ {
		if c := fn.Children[i]; c != nil {
			if _, ref := c.(hashNode); ref {
				continue // an unresolved reference is unchanged, not dirty
			}
			if _, dirty := c.cache(); dirty {
				count++
			}
		}
	}
	return count
}

// commitNode is the sequential depth-first commit walk: hash each child
// first, then this node, recording every >=32-byte encoding along the
// way. force carries the root's "always hash, never inline" rule down to
// exactly the one call it applies to.
func (t *Trie) commitNode(n node, collector *nodeCollector, force bool) (node, node, error) {
	switch n := n.(type) {
	case nil, valueNode, hashNode:
		return n, n, nil
	case *shortNode:
		if hash, dirty := n.cache(); hash != nil && !dirty {
			return hash, n, nil
		}
		collapsed, cached := n.copy(), n.copy()
		collapsed.Key = hexToCompact(n.Key)
		if _, ok := n.Val.(valueNode); !ok && n.Val != nil {
			childH, childC, err := t.commitNode(n.Val, collector, false)
			if err != nil {
				return nil, nil, err
			}
			collapsed.Val = childH
			cached.Val = childC
		}
		return t.commitStore(collapsed, cached, collector, force)
	case *fullNode:
		if hash, dirty := n.cache(); hash != nil && !dirty {
			return hash, n, nil
		}
		collapsed, cached := n.copy(), n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childH, childC, err := t.commitNode(n.Children[i], collector, false)
				if err != nil {
					return nil, nil, err
				}
				collapsed.Children[i] = childH
				cached.Children[i] = childC
			}
		}
		return t.commitStore(collapsed, cached, collector, force)
	default:
		return nil, nil, fmt.Errorf("%w: unexpected node type %T during commit", ErrStructuralInvariant, n)
	}
}

// commitBranchParallel commits a root Branch's children concurrently, one
// goroutine per non-empty child, then assembles and force-hashes the
// branch itself. Errors from workers are aggregated into a *CommitError
// rather than surfaced one at a time.
func (t *Trie) commitBranchParallel(n *fullNode, collector *nodeCollector, force bool) (node, node, error) {
	if hash, dirty := n.cache(); hash != nil && !dirty {
		return hash, n, nil
	}
	collapsed, cached := n.copy(), n.copy()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for i := 0; i < 16; i++ {
		child := n.Children[i]
		if child == nil {
			continue
		}
		wg.Add(1)
		go func(i int, child node) {
			defer wg.Done()
			childH, childC, err := t.commitNode(child, collector, false)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			collapsed.Children[i] = childH
			cached.Children[i] = childC
		}(i, child)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, nil, &CommitError{Errs: errs}
	}
	return t.commitStore(collapsed, cached, collector, force)
}

// commitStore encodes collapsed, records it for flushing when its
// encoding is long enough to need a hash reference (or force requires one
// regardless of length), and marks cached clean with the resulting
// reference.
func (t *Trie) commitStore(collapsed, cached node, collector *nodeCollector, force bool) (node, node, error) {
	enc, err := encodeNode(collapsed)
	if err != nil {
		return nil, nil, err
	}
	if len(enc) < 32 && !force {
		markClean(cached, nil)
		return collapsed, cached, nil
	}
	hash := crypto.Keccak256(enc)
	hn := hashNode(hash)
	var h common.Hash
	copy(h[:], hash)
	collector.add(h, enc)
	markClean(cached, hn)
	return hn, cached, nil
}

func markClean(n node, hash hashNode) {
	switch cn := n.(type) {
	case *shortNode:
		cn.flags.hash = hash
		cn.flags.dirty = false
	case *fullNode:
		cn.flags.hash = hash
		cn.flags.dirty = false
	}
}
