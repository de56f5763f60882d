// Package diff implements the generic array diff used by pkg/stack to
// adjust a frame's program counter when its code is patched.
//
// The algorithm is a hand-rolled longest-common-subsequence diff over a full
// O(n*m) table, which yields a minimal insert/remove edit script; no
// dependency in the retrieved example pack offers a diff over
// caller-supplied equality on arbitrary values (sergi/go-diff, the pack's
// only diff dependency, operates on runes/lines of text, which nothing in
// this module needs a diff over — see DESIGN.md).
package diff

// ChangeKind identifies the kind of a single Change.
type ChangeKind int

const (
	Kept ChangeKind = iota
	Inserted
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Kept:
		return "kept"
	case Inserted:
		return "inserted"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one element of the edit script produced by Array.
//
// IndexA is valid for Kept and Removed (index into the old slice). IndexB
// is valid for Kept and Inserted (index into the new slice).
type Change[T any] struct {
	Kind   ChangeKind
	Value  T
	IndexA int
	IndexB int
}

// EqualFunc reports whether two elements should be considered identical by
// the diff algorithm.
type EqualFunc[T any] func(a, b T) bool

// Array computes a minimal edit script turning a into b using the
// caller-supplied equality function eq. The returned sequence, restricted
// to Kept∪Removed, reproduces a in order; restricted to Kept∪Inserted, it
// reproduces b in order.
func Array[T any](a, b []T, eq EqualFunc[T]) []Change[T] {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}

	// LCS dynamic-programming table; O(n*m) time and space, which is ample
	// for script-sized node lists (hundreds to low thousands of nodes).
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if eq(a[i], b[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var changes []Change[T]
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case eq(a[i], b[j]):
			changes = append(changes, Change[T]{Kind: Kept, Value: a[i], IndexA: i, IndexB: j})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			changes = append(changes, Change[T]{Kind: Removed, Value: a[i], IndexA: i})
			i++
		default:
			changes = append(changes, Change[T]{Kind: Inserted, Value: b[j], IndexB: j})
			j++
		}
	}
	for ; i < n; i++ {
		changes = append(changes, Change[T]{Kind: Removed, Value: a[i], IndexA: i})
	}
	for ; j < m; j++ {
		changes = append(changes, Change[T]{Kind: Inserted, Value: b[j], IndexB: j})
	}
	return changes
}

// Apply reconstructs the new slice (b) from an edit script produced by
// Array. It is used by tests to verify the diff law apply(diff(a,b)) == b.
func Apply[T any](changes []Change[T]) []T {
	var out []T
	for _, c := range changes {
		if c.Kind == Kept || c.Kind == Inserted {
			out = append(out, c.Value)
		}
	}
	return out
}
