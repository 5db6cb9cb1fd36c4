package value

import "golang.org/x/exp/constraints"

// maxOrdered returns the larger of a and b. Used by the GC's nextGC ceiling
// (heap.go) in place of a hand-rolled comparison, the way the teacher reaches
// for golang.org/x/exp/constraints generics over bespoke per-type helpers.
func maxOrdered[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
