package resource

import "sync"

// Shared wraps a Table with a mutex so engine instances on different
// goroutines can share it. Every operation takes the lock; the
// observers registered on the inner table run under it.
type Shared struct {
	mu    sync.Mutex
	table *Table
}

// NewShared wraps table for concurrent use. The caller must not touch
// the inner table directly afterwards.
func NewShared(table *Table) *Shared {
	return &Shared{table: table}
}

func (s *Shared) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Subscribe(o)
}

func (s *Shared) Allocate(typeID, owner uint32, value any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Allocate(typeID, owner, value)
}

func (s *Shared) Get(h Handle, typeID uint32) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Get(h, typeID)
}

func (s *Shared) Entry(h Handle) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Entry(h)
}

func (s *Shared) Remove(h Handle) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Remove(h)
}

func (s *Shared) Owner(h Handle) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Owner(h)
}

func (s *Shared) TransferOwnership(h Handle, newOwner uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.TransferOwnership(h, newOwner)
}

func (s *Shared) Restore(h Handle, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Restore(h, e)
}

func (s *Shared) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len()
}

func (s *Shared) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.IsEmpty()
}

func (s *Shared) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Cap()
}

// Each holds the lock for the whole walk. fn must not call back into
// the shared table.
func (s *Shared) Each(fn func(Handle, Entry) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Each(fn)
}

func (s *Shared) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Clear()
}

func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Close()
}
