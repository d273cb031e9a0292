// Package table provides a minimal container that assigns collision-free
// uint32 handles to values.
//
// It is used wherever an opaque small integer has to stand in for an object
// that lives on this side of an API boundary: the dispatch layer hands out
// store handles from a table, and the standalone sqlite key-value store hands
// out namespace ids from one.
//
// Allocation Strategy:
//
//	A monotonically increasing counter proposes the next handle. If the proposed
//	handle is still live the counter keeps walking, wrapping around at
//	math.MaxUint32. Push only fails when all 2^32 handles are live at the same
//	time, so exhaustion is a hard capacity error and never an unbounded wait.
//
// Usage Example:
//
//	t := table.New[string]()
//	h, err := t.Push("foo")
//	name, ok := t.Get(h)
//	t.Remove(h)
package table
