package table

import (
	"errors"
)

// keySpace is the number of distinct handles a table can hand out (all uint32 values).
const keySpace uint64 = 1 << 32

// ErrTableFull is returned by Push when every handle of the key space is in use.
var ErrTableFull = errors.New("table is full")

// Table maps small unsigned integer handles to owned values.
// Handles are allocated from a wrapping counter; a handle is never handed out
// while it is still live, but it may be reused after it was removed.
//
// Thread-safety: Table is not safe for concurrent use. Callers that share a
// table between goroutines must synchronize access themselves.
type Table[V any] struct {
	next     uint32
	capacity uint64
	tuples   map[uint32]V
}

// New creates an empty table that can hold up to 2^32 live entries.
func New[V any]() *Table[V] {
	return NewWithCapacity[V](keySpace)
}

// NewWithCapacity creates a table with an artificial limit of live entries.
// Capacities above 2^32 are clamped to the key space.
func NewWithCapacity[V any](capacity uint64) *Table[V] {
	capacity = min(capacity, keySpace)
	return &Table[V]{
		capacity: capacity,
		tuples:   make(map[uint32]V),
	}
}

// Push stores value under a free handle and returns the handle.
// The search starts at the internal counter and walks forward (wrapping on
// overflow) past every handle that is still live.
func (t *Table[V]) Push(value V) (uint32, error) {
	if uint64(len(t.tuples)) >= t.capacity {
		return 0, ErrTableFull
	}

	for {
		key := t.next
		t.next++ // wraps at math.MaxUint32
		if _, ok := t.tuples[key]; ok {
			continue
		}
		t.tuples[key] = value
		return key, nil
	}
}

// Get returns the value stored under handle and whether it is live.
func (t *Table[V]) Get(handle uint32) (V, bool) {
	v, ok := t.tuples[handle]
	return v, ok
}

// Remove deletes handle from the table and hands its value back to the caller.
// Removing a handle that is not live is a no-op and returns false.
func (t *Table[V]) Remove(handle uint32) (V, bool) {
	v, ok := t.tuples[handle]
	if ok {
		delete(t.tuples, handle)
	}
	return v, ok
}

// Len returns the number of live entries.
func (t *Table[V]) Len() int {
	return len(t.tuples)
}

// Range calls fn for every live entry in unspecified order until fn returns false.
// fn must not modify the table.
func (t *Table[V]) Range(fn func(handle uint32, value V) bool) {
	for k, v := range t.tuples {
		if !fn(k, v) {
			return
		}
	}
}
