package resource

import (
	"sort"

	"github.com/wippyai/wasm-engine/errors"
)

// CounterBackend mints handles from a monotonic counter. Handles are
// never reused, so a stale handle can never alias a later allocation.
// This is the backend for the dynamic-allocation regime.
type CounterBackend struct {
	entries map[Handle]Entry
	next    Handle
	limit   int
}

// NewCounterBackend creates a counter backend bounded at limit live
// entries.
func NewCounterBackend(limit int) *CounterBackend {
	return &CounterBackend{
		entries: make(map[Handle]Entry, limit),
		next:    1,
		limit:   limit,
	}
}

// Create stores e under the next counter value.
func (b *CounterBackend) Create(e Entry) (Handle, error) {
	if len(b.entries) >= b.limit {
		return 0, errors.LimitExceeded(uint64(len(b.entries))+1, uint64(b.limit))
	}
	h := b.next
	b.next++
	b.entries[h] = e
	return h, nil
}

// Lookup returns the entry for a live handle.
func (b *CounterBackend) Lookup(h Handle) (Entry, bool) {
	e, ok := b.entries[h]
	return e, ok
}

// Remove deletes h and returns its entry.
func (b *CounterBackend) Remove(h Handle) (Entry, bool) {
	e, ok := b.entries[h]
	if !ok {
		return Entry{}, false
	}
	delete(b.entries, h)
	return e, true
}

// SetOwner rewrites the owner of a live handle.
func (b *CounterBackend) SetOwner(h Handle, owner uint32) bool {
	e, ok := b.entries[h]
	if !ok {
		return false
	}
	e.Owner = owner
	b.entries[h] = e
	return true
}

// Restore re-inserts an entry at a previously minted handle. Only
// handles below the counter watermark are accepted, and never over a
// live entry.
func (b *CounterBackend) Restore(h Handle, e Entry) error {
	if h == 0 || h >= b.next {
		return errors.NotFound("handle was never allocated")
	}
	if _, live := b.entries[h]; live {
		return errors.InvalidState("restore over live handle %d", h)
	}
	if len(b.entries) >= b.limit {
		return errors.LimitExceeded(uint64(len(b.entries))+1, uint64(b.limit))
	}
	b.entries[h] = e
	return nil
}

// Len returns the number of live entries.
func (b *CounterBackend) Len() int { return len(b.entries) }

// Cap returns the configured limit.
func (b *CounterBackend) Cap() int { return b.limit }

// Each visits live entries in ascending handle order.
func (b *CounterBackend) Each(fn func(Handle, Entry) bool) {
	handles := make([]Handle, 0, len(b.entries))
	for h := range b.entries {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		if !fn(h, b.entries[h]) {
			return
		}
	}
}

// Reset removes every entry. The counter keeps advancing, so handles
// from before the reset stay invalid forever.
func (b *CounterBackend) Reset() {
	for h := range b.entries {
		delete(b.entries, h)
	}
}
