package memory

import (
	"sync"
)

// Shared wraps a Provider in a reader/writer lock for explicit
// cross-instance sharing. Only individual operations are mutually
// exclusive; composite sequences that need atomicity must be wrapped by
// the caller.
type Shared struct {
	mu sync.RWMutex
	p  Provider
}

// NewShared wraps p for concurrent use. The wrapped provider must not
// be accessed directly afterwards.
func NewShared(p Provider) *Shared {
	return &Shared{p: p}
}

// Len returns the current size in bytes.
func (s *Shared) Len() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.Len()
}

// IsEmpty reports whether the region has zero size.
func (s *Shared) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.IsEmpty()
}

// Pages returns the current size in pages.
func (s *Shared) Pages() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.Pages()
}

// ReadBytes returns a copy of length bytes at offset.
func (s *Shared) ReadBytes(offset, length uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.ReadBytes(offset, length)
}

// WriteBytes copies data into the region under the write lock.
func (s *Shared) WriteBytes(offset uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.WriteBytes(offset, data)
}

// Grow extends the region under the write lock.
func (s *Shared) Grow(delta uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Grow(delta)
}
