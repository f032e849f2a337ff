package container

// Storage is the backing strategy for a Vec. Implementations differ
// only in how the backing array is obtained; the bounded-capacity
// contract is identical.
type Storage[T any] interface {
	// Buf returns the current logical contents.
	Buf() []T

	// Extend grows the logical length by n and returns the full
	// contents, or false if the capacity would be exceeded. New slots
	// are zero values.
	Extend(n int) ([]T, bool)

	// Shrink truncates the logical length to n. Vacated slots are
	// zeroed so the storage never pins discarded values.
	Shrink(n int)

	// Cap returns the fixed or configured capacity.
	Cap() int
}

// dynamicStorage grows its backing slice on demand, bounded by limit.
type dynamicStorage[T any] struct {
	buf   []T
	limit int
}

func (s *dynamicStorage[T]) Buf() []T { return s.buf }

func (s *dynamicStorage[T]) Extend(n int) ([]T, bool) {
	if len(s.buf)+n > s.limit {
		return nil, false
	}
	s.buf = append(s.buf, make([]T, n)...)
	return s.buf, true
}

func (s *dynamicStorage[T]) Shrink(n int) {
	var zero T
	for i := n; i < len(s.buf); i++ {
		s.buf[i] = zero
	}
	s.buf = s.buf[:n]
}

func (s *dynamicStorage[T]) Cap() int { return s.limit }

// fixedStorage allocates the whole backing array at construction and
// never allocates again.
type fixedStorage[T any] struct {
	buf []T
	n   int
}

func (s *fixedStorage[T]) Buf() []T { return s.buf[:s.n] }

func (s *fixedStorage[T]) Extend(n int) ([]T, bool) {
	if s.n+n > len(s.buf) {
		return nil, false
	}
	s.n += n
	return s.buf[:s.n], true
}

func (s *fixedStorage[T]) Shrink(n int) {
	var zero T
	for i := n; i < s.n; i++ {
		s.buf[i] = zero
	}
	s.n = n
}

func (s *fixedStorage[T]) Cap() int { return len(s.buf) }
