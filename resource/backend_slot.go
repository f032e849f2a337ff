package resource

import (
	"github.com/wippyai/wasm-engine/errors"
)

// SlotBackend stores entries in a slot array fully allocated at
// construction, the backend for the fixed-capacity regime. Handles
// encode the slot index and a per-slot generation tag; removing an
// entry bumps the slot's generation, so a stale handle fails the
// generation check and reads as absent, never as another value.
type SlotBackend struct {
	slots    []slot
	freeList []uint32
}

type slot struct {
	entry Entry
	gen   uint32
	live  bool
}

// NewSlotBackend creates a slot backend with capacity slots, all
// allocated now.
func NewSlotBackend(capacity int) *SlotBackend {
	b := &SlotBackend{
		slots:    make([]slot, capacity),
		freeList: make([]uint32, capacity),
	}
	// Free list is popped from the tail, so store indices high-to-low
	// to hand out slot 0 first.
	for i := range b.freeList {
		b.freeList[i] = uint32(capacity - 1 - i)
	}
	return b
}

// handleFor packs a slot index and generation into a handle. Slot
// indices are offset by one so handle 0 stays invalid.
func handleFor(idx, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(idx+1))
}

// decode splits a handle into slot index and generation.
func (b *SlotBackend) decode(h Handle) (uint32, uint32, bool) {
	low := uint32(h)
	if low == 0 || int(low) > len(b.slots) {
		return 0, 0, false
	}
	return low - 1, uint32(h >> 32), true
}

// Create stores e in a free slot under the slot's current generation.
func (b *SlotBackend) Create(e Entry) (Handle, error) {
	if len(b.freeList) == 0 {
		return 0, errors.LimitExceeded(uint64(len(b.slots))+1, uint64(len(b.slots)))
	}
	idx := b.freeList[len(b.freeList)-1]
	b.freeList = b.freeList[:len(b.freeList)-1]

	s := &b.slots[idx]
	s.entry = e
	s.live = true
	return handleFor(idx, s.gen), nil
}

// Lookup returns the entry for h if the slot is live and the
// generation matches.
func (b *SlotBackend) Lookup(h Handle) (Entry, bool) {
	idx, gen, ok := b.decode(h)
	if !ok {
		return Entry{}, false
	}
	s := &b.slots[idx]
	if !s.live || s.gen != gen {
		return Entry{}, false
	}
	return s.entry, true
}

// Remove deletes h, bumps the slot generation, and recycles the slot.
func (b *SlotBackend) Remove(h Handle) (Entry, bool) {
	idx, gen, ok := b.decode(h)
	if !ok {
		return Entry{}, false
	}
	s := &b.slots[idx]
	if !s.live || s.gen != gen {
		return Entry{}, false
	}
	e := s.entry
	s.entry = Entry{}
	s.live = false
	s.gen++
	b.freeList = append(b.freeList, idx)
	return e, true
}

// SetOwner rewrites the owner of a live handle.
func (b *SlotBackend) SetOwner(h Handle, owner uint32) bool {
	idx, gen, ok := b.decode(h)
	if !ok {
		return false
	}
	s := &b.slots[idx]
	if !s.live || s.gen != gen {
		return false
	}
	s.entry.Owner = owner
	return true
}

// Restore re-occupies a just-removed handle. It succeeds only while
// the slot is still free at generation h.gen+1, i.e. before any reuse.
func (b *SlotBackend) Restore(h Handle, e Entry) error {
	idx, gen, ok := b.decode(h)
	if !ok {
		return errors.NotFound("malformed handle")
	}
	s := &b.slots[idx]
	if s.live {
		return errors.InvalidState("restore over live slot %d", idx)
	}
	if s.gen != gen+1 {
		return errors.NotFound("slot reused since removal")
	}
	// Take the slot back off the free list.
	for i := len(b.freeList) - 1; i >= 0; i-- {
		if b.freeList[i] == idx {
			b.freeList = append(b.freeList[:i], b.freeList[i+1:]...)
			s.entry = e
			s.live = true
			s.gen = gen
			return nil
		}
	}
	return errors.InvalidState("slot %d missing from free list", idx)
}

// Len returns the number of live entries.
func (b *SlotBackend) Len() int {
	return len(b.slots) - len(b.freeList)
}

// Cap returns the slot count.
func (b *SlotBackend) Cap() int { return len(b.slots) }

// Each visits live entries in slot order.
func (b *SlotBackend) Each(fn func(Handle, Entry) bool) {
	for i := range b.slots {
		s := &b.slots[i]
		if !s.live {
			continue
		}
		if !fn(handleFor(uint32(i), s.gen), s.entry) {
			return
		}
	}
}

// Reset removes all entries and bumps every slot generation, so every
// outstanding handle, live or stale, is invalid afterwards.
func (b *SlotBackend) Reset() {
	b.freeList = b.freeList[:0]
	for i := len(b.slots) - 1; i >= 0; i-- {
		s := &b.slots[i]
		s.entry = Entry{}
		s.live = false
		s.gen++
		b.freeList = append(b.freeList, uint32(i))
	}
}
