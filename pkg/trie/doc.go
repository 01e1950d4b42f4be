// Package trie implements a Merkle Patricia Trie: an authenticated,
// persistent key/value map whose root is a 32-byte Keccak-256 digest
// committing to the entire (key, value) multiset it holds.
//
// The package covers the in-memory mutation engine and its canonical
// encoding: hex-prefix path encoding, RLP node serialization and hashing,
// the recursive descent used by Get/Set/Delete, the structural rewrite
// that restores the trie's minimality invariant after every mutation, and
// the commit protocol that flushes newly created nodes to a
// content-addressed backing store.
//
// Mutating a single Trie from multiple goroutines concurrently is not
// supported. Commit may fan out internally across the root's children;
// see Trie.Commit.
package trie
