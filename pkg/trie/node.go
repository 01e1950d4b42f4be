package trie

// node is the interface implemented by all trie node representations.
//
// There are four variants, matching the spec's data model:
//
//   - *shortNode with a terminated Key: a Leaf. Val is a valueNode holding
//     the stored bytes.
//   - *shortNode with a non-terminated Key: an Extension. Val is always a
//     *fullNode, or a hashNode standing in for one until it is resolved
//     (extensions are collapsed eagerly so they never point at another
//     shortNode or at a Leaf).
//   - *fullNode: a Branch, 16 children plus an optional value in slot 16.
//   - hashNode: an unresolved placeholder, carrying either the node's
//     32-byte Keccak hash or, for small nodes, its raw RLP bytes inline.
//     hashNode stands in for the "Unknown" variant until resolve replaces
//     it with a concrete node.
type node interface {
	// cache returns the cached hash and dirty flag for this node.
	cache() (hashNode, bool)
}

// fullNode is a branch node with 16 children (one per hex nibble) plus an optional value.
// Children[16] holds the value stored at this branch point (nil if no key terminates here).
type fullNode struct {
	Children [17]node // 0-15: children indexed by nibble, 16: value slot
	flags    nodeFlag
}

// shortNode is an extension or leaf node. If the key has the terminator flag
// (indicated via HP encoding), it is a leaf node; otherwise it is an extension node.
type shortNode struct {
	Key   []byte // hex-encoded nibble key (may include terminator 0x10)
	Val   node   // child node (for extension) or valueNode (for leaf)
	flags nodeFlag
}

// hashNode is a node reference: either the 32-byte Keccak hash of a node
// whose RLP encoding is >= 32 bytes, or the raw RLP of a node whose
// encoding is shorter (the consensus encoding embeds small nodes inline
// rather than hashing them). Length 32 means hash; any other length means
// inline RLP.
type hashNode []byte

// valueNode is raw value data stored in a leaf node.
type valueNode []byte

// nodeFlag contains caching information for a node.
type nodeFlag struct {
	hash  hashNode // cached hash of the node
	dirty bool     // whether the node has been modified since last hashing
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

// isInline reports whether a hashNode carries an embedded RLP encoding
// rather than a 32-byte hash.
func (n hashNode) isInline() bool { return len(n) != 32 }

// copy returns a shallow copy of the fullNode.
func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

// copy returns a copy of the shortNode.
func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

// isLeaf reports whether a shortNode's key carries the hex-prefix
// terminator, i.e. whether it is a Leaf rather than an Extension.
func (n *shortNode) isLeaf() bool {
	return hasTerm(n.Key)
}

// countNonEmptyChildren reports how many of a branch's first 16 slots are
// occupied and, if exactly one is, which index it occupies.
func countNonEmptyChildren(n *fullNode) (count int, sole int) {
	sole = -1
	for i := 0; i < 16; i++ {
		if n.Children[i] != nil {
			count++
			sole = i
		}
	}
	return count, sole
}
