package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ZorbaTheGreek7/go-mpt/pkg/crypto"
	"github.com/ZorbaTheGreek7/go-mpt/pkg/rlp"
)

// emptyRoot is the root hash of a trie with no entries: Keccak256(RLP("")).
// RLP of the empty byte string is the single byte 0x80.
var emptyRoot = crypto.Keccak256Hash(mustEncodeEmptyString())

func mustEncodeEmptyString() []byte {
	b, err := rlp.EncodeToBytes([]byte{})
	if err != nil {
		panic("trie: encoding the empty string failed: " + err.Error())
	}
	return b
}

// Option configures a Trie at construction time.
type Option func(*Trie)

// WithNodeCacheSize overrides the number of decoded nodes the trie's
// resolve path caches. The default is defaultNodeCacheSize; a value <= 0
// disables the cache.
func WithNodeCacheSize(size int) Option {
	return func(t *Trie) { t.cache = newNodeCache(size) }
}

// WithValueCacheSize overrides the number of resolved values Get caches by
// key. The default is defaultValueCacheSize; a value <= 0 disables the
// cache.
func WithValueCacheSize(size int) Option {
	return func(t *Trie) {
		t.values = newValueCache(size)
		t.valueCacheSize = size
	}
}

// WithParallelCommitThreshold overrides how many dirty children the root
// branch needs before Commit fans its children out across goroutines. The
// default is 4; 0 or a negative value disables parallel commit entirely.
func WithParallelCommitThreshold(n int) Option {
	return func(t *Trie) { t.parallelThreshold = n }
}

// Trie is a Merkle Patricia Trie: a radix tree over 4-bit nibbles whose
// root is a Keccak-256 digest committing to the whole key/value set.
//
// A Trie is not safe for concurrent mutation; read-only use (Get) is safe
// to share across goroutines as long as the shared node cache is, which
// it is.
type Trie struct {
	root   node
	store  NodeStore
	cache  *nodeCache
	values *valueCache

	valueCacheSize    int
	parallelThreshold int
}

// New creates a Trie backed by store, starting from rootHash. Passing the
// empty-trie hash (or the zero hash) yields an empty trie; any other hash
// is left as an unresolved reference and is only fetched from store the
// first time a traversal needs it.
func New(store NodeStore, rootHash common.Hash, opts ...Option) *Trie {
	t := &Trie{
		store:             store,
		cache:             newNodeCache(defaultNodeCacheSize),
		values:            newValueCache(defaultValueCacheSize),
		valueCacheSize:    defaultValueCacheSize,
		parallelThreshold: 4,
	}
	for _, opt := range opts {
		opt(t)
	}
	if rootHash != emptyRoot && rootHash != (common.Hash{}) {
		t.root = hashNode(rootHash[:])
	}
	return t
}

// Copy returns a Trie that starts out sharing every node with t but
// mutates independently afterward. This is safe for the node cache
// because every mutation replaces nodes on its path with copies rather
// than editing them in place (see connectBranch/connectExtension), and
// node cache entries are keyed by content hash so they stay valid
// regardless of which trie resolved them first. The value cache is keyed
// by raw key instead of content hash, so the same key can map to
// different values in t and its copy after they diverge; sharing it
// across the two would let one trie's write evict or clobber the other's
// cached read, so Copy gives cp its own, independently-populated value
// cache rather than aliasing t's.
func (t *Trie) Copy() *Trie {
	cp := *t
	cp.values = newValueCache(t.valueCacheSize)
	return &cp
}

// RootHash resolves and returns the trie's current root hash, hashing any
// dirty nodes in memory (but never writing to the store) along the way.
// It is equivalent to UpdateRootHash, exposed as the read half of the
// root_hash property pair.
func (t *Trie) RootHash() (common.Hash, error) {
	return t.UpdateRootHash()
}

// SetRootHash discards t's current in-memory contents and replaces them
// with whatever is reachable from hash through the store, resolved lazily
// on the next traversal. This is the write half of the root_hash property
// pair, and is also the prescribed recovery path after an error: per the
// package's error policy, a Trie that failed a mutation mid-traversal must
// be discarded by resetting its root_hash rather than mutated further.
func (t *Trie) SetRootHash(hash common.Hash) {
	t.values = newValueCache(t.valueCacheSize)
	if hash == emptyRoot || hash == (common.Hash{}) {
		t.root = nil
		return
	}
	t.root = hashNode(hash[:])
}

// Empty reports whether the trie currently has no entries.
func (t *Trie) Empty() bool {
	return t.root == nil
}

// Len walks the trie counting stored values. It only walks nodes already
// resolved in memory: an unresolved hashNode it encounters is skipped
// rather than fetched, so Len on a freshly opened trie under-reports until
// the relevant subtrees have been rewritten by Set or Delete (Get leaves
// nothing resolved behind). It exists for tests and
// debugging, not for any hot path.
func (t *Trie) Len() int {
	return countValues(t.root)
}

func countValues(n node) int {
	switch n := n.(type) {
	case nil:
		return 0
	case valueNode:
		return 1
	case *shortNode:
		return countValues(n.Val)
	case *fullNode:
		count := 0
		for i := 0; i < 17; i++ {
			count += countValues(n.Children[i])
		}
		return count
	case hashNode:
		return 0
	default:
		return 0
	}
}

// Get returns the value stored under key, or nil if the key is absent.
// Since Set never stores an empty value (it deletes instead), a nil
// return unambiguously means "not found". A hit in the value cache skips
// traversal entirely; a miss falls back to t.run and populates the cache
// with whatever it finds, including a miss (cached as nil).
func (t *Trie) Get(key []byte) ([]byte, error) {
	if v, ok := t.values.get(key); ok {
		return v, nil
	}
	v, err := t.run(key, nil, false, false)
	if err != nil {
		return nil, err
	}
	t.values.add(key, v)
	return v, nil
}

// Set stores value under key. An empty value deletes the key instead,
// matching the wire-level trie's inability to distinguish a stored empty
// string from no entry at all. The value cache entry for key is evicted
// before the mutation runs, so no reader can observe a cached value that
// is about to become stale.
func (t *Trie) Set(key, value []byte) error {
	t.values.remove(key)
	_, err := t.run(key, valueNode(value), true, true)
	return err
}

// Delete removes key from the trie. Deleting a key that is not present is
// a no-op; use t.run directly (package-internal) to exercise the strict
// ErrMissingDeleteKey path. As with Set, the value cache entry for key is
// evicted before the mutation runs.
func (t *Trie) Delete(key []byte) error {
	t.values.remove(key)
	_, err := t.run(key, nil, true, true)
	return err
}

// toNibbles expands a byte key into its hex nibble sequence, two nibbles
// per byte, high nibble first. Unlike a stored leaf's Key, this carries no
// terminator: the terminator is a property of how a node's own path is
// encoded, not of a path being matched against it.
func toNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	return nibbles
}

// leafPath returns n's path nibbles with the terminator stripped.
func leafPath(n *shortNode) []byte {
	return n.Key[:len(n.Key)-1]
}

func newLeaf(path []byte, val node, dirty bool) *shortNode {
	key := make([]byte, len(path)+1)
	copy(key, path)
	key[len(path)] = terminatorByte
	return &shortNode{Key: key, Val: val, flags: nodeFlag{dirty: dirty}}
}

func newExtension(path []byte, child node, dirty bool) *shortNode {
	key := make([]byte, len(path))
	copy(key, path)
	return &shortNode{Key: key, Val: child, flags: nodeFlag{dirty: dirty}}
}

func concat(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}

func keysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ancestorEntry is one frame of the per-operation ancestor stack: the
// ancestor node itself, and (for a branch ancestor) which of its 16
// children lies on the path to the node currently being visited.
type ancestorEntry struct {
	node node
	slot int
}

// traverseContext carries everything a single Get/Set/Delete call threads
// through its traversal. It is allocated fresh per call and never shared
// across goroutines or operations: a private stack per call in place of
// one shared mutable scratch stack.
type traverseContext struct {
	path                []byte
	value               node // nil => read or delete; valueNode => write
	isUpdate            bool
	ignoreMissingDelete bool
	cursor              int
	stack               []ancestorEntry
}

func (ctx *traverseContext) push(n node, slot int) {
	if ctx.isUpdate {
		ctx.stack = append(ctx.stack, ancestorEntry{node: n, slot: slot})
	}
}

// run is the unified entry point behind Get/Set/Delete. It returns the
// value found at key (nil when absent, and nil for an update that changed
// the trie). t.root is replaced only when traverse reports the update
// actually changed something; a genuine no-op (duplicate value, ignored
// missing delete) leaves it untouched, and a read never writes it.
func (t *Trie) run(key []byte, value node, isUpdate, ignoreMissingDelete bool) ([]byte, error) {
	if isUpdate {
		if vn, ok := value.(valueNode); ok && len(vn) == 0 {
			value = nil
		}
	}
	path := toNibbles(key)

	if t.root == nil {
		if !isUpdate || value == nil {
			return nil, nil
		}
		t.root = newLeaf(path, value, true)
		return nil, nil
	}

	resolved, err := resolve(t.root, t.store, t.cache)
	if err != nil {
		return nil, err
	}
	if isUpdate {
		t.root = resolved
	}

	ctx := &traverseContext{path: path, value: value, isUpdate: isUpdate, ignoreMissingDelete: ignoreMissingDelete}
	result, next, changed, err := t.traverse(resolved, ctx)
	if err != nil {
		return nil, err
	}
	if isUpdate && changed {
		t.root = next
	}
	return result, nil
}

func (t *Trie) traverse(n node, ctx *traverseContext) ([]byte, node, bool, error) {
	switch n := n.(type) {
	case *fullNode:
		return t.traverseBranch(n, ctx)
	case *shortNode:
		if n.isLeaf() {
			return t.traverseLeaf(n, ctx)
		}
		return t.traverseExtension(n, ctx)
	case hashNode:
		resolved, err := resolve(n, t.store, t.cache)
		if err != nil {
			return nil, nil, false, err
		}
		return t.traverse(resolved, ctx)
	default:
		return nil, nil, false, fmt.Errorf("%w: unexpected node type %T mid-traversal", ErrStructuralInvariant, n)
	}
}

// traverseBranch: a branch's own value lives in its 17th slot and is
// read/replaced directly once the path is fully consumed; otherwise a
// single nibble selects the next child.
func (t *Trie) traverseBranch(n *fullNode, ctx *traverseContext) ([]byte, node, bool, error) {
	if len(ctx.path)-ctx.cursor == 0 {
		existing, _ := n.Children[16].(valueNode)
		if !ctx.isUpdate {
			if existing == nil {
				return nil, nil, false, nil
			}
			return []byte(existing), nil, false, nil
		}
		if ctx.value == nil {
			if existing == nil {
				return nil, nil, false, nil
			}
			next, err := connectBranch(n, 16, nil, t.store, t.cache)
			if err != nil {
				return nil, nil, false, err
			}
			root, err := connectNodes(ctx.stack, next, t.store, t.cache)
			return nil, root, true, err
		}
		if existing != nil && keysEqual(existing, ctx.value.(valueNode)) {
			return []byte(existing), nil, false, nil
		}
		next := n.copy()
		next.Children[16] = ctx.value
		next.flags = nodeFlag{dirty: true}
		root, err := connectNodes(ctx.stack, next, t.store, t.cache)
		return nil, root, true, err
	}

	nibble := ctx.path[ctx.cursor]
	ctx.push(n, int(nibble))
	ctx.cursor++
	child := n.Children[nibble]

	if child == nil {
		if !ctx.isUpdate {
			return nil, nil, false, nil
		}
		if ctx.value == nil {
			if !ctx.ignoreMissingDelete {
				return nil, nil, false, fmt.Errorf("%w: %x", ErrMissingDeleteKey, ctx.path)
			}
			return nil, nil, false, nil
		}
		leaf := newLeaf(ctx.path[ctx.cursor:], ctx.value, true)
		root, err := connectNodes(ctx.stack, leaf, t.store, t.cache)
		return nil, root, true, err
	}

	resolvedChild, err := resolve(child, t.store, t.cache)
	if err != nil {
		return nil, nil, false, err
	}
	return t.traverse(resolvedChild, ctx)
}

// traverseExtension follows an extension as far as its stored path
// matches the remaining key, or splits it into a branch when the key
// diverges partway through.
func (t *Trie) traverseExtension(n *shortNode, ctx *traverseContext) ([]byte, node, bool, error) {
	remaining := ctx.path[ctx.cursor:]
	m := prefixLen(remaining, n.Key)

	if m == len(n.Key) {
		ctx.push(n, 0)
		ctx.cursor += m
		child, err := resolve(n.Val, t.store, t.cache)
		if err != nil {
			return nil, nil, false, err
		}
		return t.traverse(child, ctx)
	}

	if !ctx.isUpdate {
		return nil, nil, false, nil
	}
	if ctx.value == nil {
		if !ctx.ignoreMissingDelete {
			return nil, nil, false, fmt.Errorf("%w: %x", ErrMissingDeleteKey, ctx.path)
		}
		return nil, nil, false, nil
	}

	branch := &fullNode{flags: nodeFlag{dirty: true}}
	tail := n.Key[m+1:]
	if len(tail) > 0 {
		branch.Children[n.Key[m]] = newExtension(tail, n.Val, true)
	} else {
		branch.Children[n.Key[m]] = n.Val
	}
	if m == len(remaining) {
		branch.Children[16] = ctx.value
	} else {
		branch.Children[remaining[m]] = newLeaf(remaining[m+1:], ctx.value, true)
	}

	if m > 0 {
		ctx.push(newExtension(n.Key[:m], nil, true), 0)
	}
	root, err := connectNodes(ctx.stack, branch, t.store, t.cache)
	return nil, root, true, err
}

// traverseLeaf compares the remaining key against the leaf's own path and
// either resolves to its value or splits the leaf into a branch.
func (t *Trie) traverseLeaf(n *shortNode, ctx *traverseContext) ([]byte, node, bool, error) {
	remaining := ctx.path[ctx.cursor:]
	path := leafPath(n)
	m := prefixLen(remaining, path)

	if m == len(remaining) && m == len(path) {
		existing := n.Val.(valueNode)
		if !ctx.isUpdate {
			return []byte(existing), nil, false, nil
		}
		if ctx.value == nil {
			root, err := connectNodes(ctx.stack, nil, t.store, t.cache)
			return nil, root, true, err
		}
		if keysEqual(existing, ctx.value.(valueNode)) {
			return []byte(existing), nil, false, nil
		}
		next := newLeaf(path, ctx.value, true)
		root, err := connectNodes(ctx.stack, next, t.store, t.cache)
		return nil, root, true, err
	}

	if !ctx.isUpdate {
		return nil, nil, false, nil
	}
	if ctx.value == nil {
		if !ctx.ignoreMissingDelete {
			return nil, nil, false, fmt.Errorf("%w: %x", ErrMissingDeleteKey, ctx.path)
		}
		return nil, nil, false, nil
	}

	branch := &fullNode{flags: nodeFlag{dirty: true}}
	switch {
	case m == len(remaining):
		branch.Children[16] = ctx.value
		branch.Children[path[m]] = newLeaf(path[m+1:], n.Val, true)
	case m == len(path):
		branch.Children[16] = n.Val
		branch.Children[remaining[m]] = newLeaf(remaining[m+1:], ctx.value, true)
	default:
		branch.Children[path[m]] = newLeaf(path[m+1:], n.Val, true)
		branch.Children[remaining[m]] = newLeaf(remaining[m+1:], ctx.value, true)
	}

	if m > 0 {
		ctx.push(newExtension(path[:m], nil, true), 0)
	}
	root, err := connectNodes(ctx.stack, branch, t.store, t.cache)
	return nil, root, true, err
}

// connectNodes walks the ancestor stack from the deepest entry to the
// shallowest, rebuilding each ancestor with next substituted into the
// slot recorded for it, and returns what the deepest substitution
// ultimately bubbles up to become: the new trie root.
func connectNodes(stack []ancestorEntry, next node, store NodeStore, cache *nodeCache) (node, error) {
	var err error
	for i := len(stack) - 1; i >= 0; i-- {
		anc := stack[i]
		switch p := anc.node.(type) {
		case *fullNode:
			next, err = connectBranch(p, anc.slot, next, store, cache)
		case *shortNode:
			next, err = connectExtension(p, next)
		default:
			return nil, fmt.Errorf("%w: leaf cannot be an ancestor", ErrStructuralInvariant)
		}
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

func connectBranch(branch *fullNode, slot int, next node, store NodeStore, cache *nodeCache) (node, error) {
	cp := branch.copy()
	cp.Children[slot] = next
	cp.flags = nodeFlag{dirty: true}

	if next != nil {
		return cp, nil
	}

	count, sole := countNonEmptyChildren(cp)
	hasValue := cp.Children[16] != nil
	if count >= 2 || (count >= 1 && hasValue) {
		return cp, nil
	}
	if hasValue {
		return newLeaf(nil, cp.Children[16], true), nil
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: branch left with no children and no value", ErrStructuralInvariant)
	}

	child, err := resolve(cp.Children[sole], store, cache)
	if err != nil {
		return nil, err
	}
	switch c := child.(type) {
	case *fullNode:
		return newExtension([]byte{byte(sole)}, c, true), nil
	case *shortNode:
		if c.isLeaf() {
			return newLeaf(concat([]byte{byte(sole)}, leafPath(c)), c.Val, true), nil
		}
		return newExtension(concat([]byte{byte(sole)}, c.Key), c.Val, true), nil
	default:
		return nil, fmt.Errorf("%w: branch's sole remaining child has unexpected type %T", ErrStructuralInvariant, child)
	}
}

func connectExtension(ext *shortNode, next node) (node, error) {
	switch n := next.(type) {
	case *shortNode:
		if n.isLeaf() {
			return newLeaf(concat(ext.Key, leafPath(n)), n.Val, true), nil
		}
		return newExtension(concat(ext.Key, n.Key), n.Val, true), nil
	case *fullNode:
		return newExtension(ext.Key, n, true), nil
	default:
		return nil, fmt.Errorf("%w: extension's child replaced by unexpected type %T", ErrStructuralInvariant, next)
	}
}
