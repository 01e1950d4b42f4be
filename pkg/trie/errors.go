package trie

import "errors"

var (
	// ErrMissingNode is returned when a hashed reference cannot be resolved
	// because the backing store has no entry for it.
	ErrMissingNode = errors.New("trie: missing node")

	// ErrMalformedNode is returned when a node's RLP encoding does not match
	// any of the two/seventeen-item shapes the codec recognizes.
	ErrMalformedNode = errors.New("trie: malformed node encoding")

	// ErrMissingDeleteKey is returned when a delete that does not ignore
	// missing keys targets a key absent from the trie. Trie.Delete ignores
	// missing keys and never returns it.
	ErrMissingDeleteKey = errors.New("trie: key not found for delete")

	// ErrStructuralInvariant is returned when an internal consistency check
	// fails — a leaf surfacing as an ancestor, a branch left with no
	// children and no value, an unexpected node type during traversal or
	// commit, a root hash that came back inline, and similar conditions
	// that should be unreachable through the public API and indicate a bug
	// rather than bad input.
	ErrStructuralInvariant = errors.New("trie: structural invariant violated")
)

// CommitError aggregates the failures of a parallel commit fan-out. It
// implements Unwrap() []error so callers can use errors.Is/errors.As against
// any one of the underlying failures.
type CommitError struct {
	Errs []error
}

func (e *CommitError) Error() string {
	if len(e.Errs) == 1 {
		return "trie: commit failed: " + e.Errs[0].Error()
	}
	s := "trie: commit failed with multiple errors:"
	for _, err := range e.Errs {
		s += " " + err.Error() + ";"
	}
	return s
}

func (e *CommitError) Unwrap() []error { return e.Errs }
