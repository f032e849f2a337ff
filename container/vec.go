package container

import (
	"github.com/wippyai/wasm-engine/errors"
)

// Vec is a bounded sequence. Index access is O(1), push/pop at the tail
// is O(1), removing the first element is O(n).
type Vec[T any] struct {
	s Storage[T]
}

// NewVec creates a vec backed by dynamic storage bounded at capacity.
func NewVec[T any](capacity int) *Vec[T] {
	return &Vec[T]{s: &dynamicStorage[T]{limit: capacity}}
}

// NewFixedVec creates a vec whose backing array is fully allocated at
// construction. No allocation is performed afterwards.
func NewFixedVec[T any](capacity int) *Vec[T] {
	return &Vec[T]{s: &fixedStorage[T]{buf: make([]T, capacity)}}
}

// Len returns the number of elements.
func (v *Vec[T]) Len() int { return len(v.s.Buf()) }

// IsEmpty reports whether the vec holds no elements.
func (v *Vec[T]) IsEmpty() bool { return v.Len() == 0 }

// Cap returns the configured capacity.
func (v *Vec[T]) Cap() int { return v.s.Cap() }

// Push appends x, or returns a capacity error leaving the vec unchanged.
func (v *Vec[T]) Push(x T) error {
	n := v.Len()
	buf, ok := v.s.Extend(1)
	if !ok {
		return errors.Capacity(uint64(n)+1, uint64(v.s.Cap()))
	}
	buf[n] = x
	return nil
}

// Pop removes and returns the last element.
func (v *Vec[T]) Pop() (T, bool) {
	n := v.Len()
	if n == 0 {
		var zero T
		return zero, false
	}
	x := v.s.Buf()[n-1]
	v.s.Shrink(n - 1)
	return x, true
}

// Peek returns the last element without removing it.
func (v *Vec[T]) Peek() (T, bool) {
	n := v.Len()
	if n == 0 {
		var zero T
		return zero, false
	}
	return v.s.Buf()[n-1], true
}

// Get returns the element at index i.
func (v *Vec[T]) Get(i int) (T, bool) {
	if i < 0 || i >= v.Len() {
		var zero T
		return zero, false
	}
	return v.s.Buf()[i], true
}

// Set replaces the element at index i.
func (v *Vec[T]) Set(i int, x T) bool {
	if i < 0 || i >= v.Len() {
		return false
	}
	v.s.Buf()[i] = x
	return true
}

// Truncate discards all elements at index n and above. Truncating to a
// length at or beyond Len is a no-op.
func (v *Vec[T]) Truncate(n int) {
	if n < 0 || n >= v.Len() {
		return
	}
	v.s.Shrink(n)
}

// RemoveFirst removes and returns the first element, shifting the rest.
func (v *Vec[T]) RemoveFirst() (T, bool) {
	n := v.Len()
	if n == 0 {
		var zero T
		return zero, false
	}
	buf := v.s.Buf()
	x := buf[0]
	copy(buf, buf[1:])
	v.s.Shrink(n - 1)
	return x, true
}

// RemoveAt removes and returns the element at index i, shifting the
// elements after it.
func (v *Vec[T]) RemoveAt(i int) (T, bool) {
	n := v.Len()
	if i < 0 || i >= n {
		var zero T
		return zero, false
	}
	buf := v.s.Buf()
	x := buf[i]
	copy(buf[i:], buf[i+1:])
	v.s.Shrink(n - 1)
	return x, true
}

// Slice returns a view of the current contents. The view is invalidated
// by any mutation.
func (v *Vec[T]) Slice() []T { return v.s.Buf() }

// Iter returns a lazy, restartable iterator over the current contents.
func (v *Vec[T]) Iter() *Iterator[T] {
	return &Iterator[T]{vec: v}
}

// Iterator walks a Vec front to back. Next observes mutations made
// behind the cursor position; Reset restarts from the front.
type Iterator[T any] struct {
	vec *Vec[T]
	pos int
}

// Next returns the next element, or false when exhausted.
func (it *Iterator[T]) Next() (T, bool) {
	x, ok := it.vec.Get(it.pos)
	if ok {
		it.pos++
	}
	return x, ok
}

// Reset restarts iteration from the front.
func (it *Iterator[T]) Reset() { it.pos = 0 }
