package memory

import (
	"github.com/wippyai/wasm-engine/platform"
)

// DynamicMemory is a growable region backed by a PageAllocator. It is
// the provider for the dynamic-allocation regime.
type DynamicMemory struct {
	alloc    platform.PageAllocator
	buf      []byte
	maxPages uint32
}

// NewDynamic creates a dynamic region of initial pages, growable up to
// max pages through alloc.
func NewDynamic(alloc platform.PageAllocator, initial, max uint32) (*DynamicMemory, error) {
	buf, err := alloc.Allocate(initial, max)
	if err != nil {
		return nil, err
	}
	return &DynamicMemory{alloc: alloc, buf: buf, maxPages: max}, nil
}

// Len returns the current size in bytes.
func (m *DynamicMemory) Len() uint32 { return uint32(len(m.buf)) }

// IsEmpty reports whether the region has zero size.
func (m *DynamicMemory) IsEmpty() bool { return len(m.buf) == 0 }

// Pages returns the current size in pages.
func (m *DynamicMemory) Pages() uint32 { return uint32(len(m.buf) / platform.PageSize) }

// ReadBytes returns a copy of length bytes at offset.
func (m *DynamicMemory) ReadBytes(offset, length uint32) ([]byte, error) {
	if err := checkBounds(offset, length, m.Len()); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.buf[offset:uint64(offset)+uint64(length)])
	return out, nil
}

// WriteBytes copies data into the region, all or nothing.
func (m *DynamicMemory) WriteBytes(offset uint32, data []byte) error {
	if err := checkBounds(offset, uint32(len(data)), m.Len()); err != nil {
		return err
	}
	copy(m.buf[offset:], data)
	return nil
}

// Grow extends the region by delta pages and returns the previous page
// count.
func (m *DynamicMemory) Grow(delta uint32) (uint32, error) {
	prev := m.Pages()
	grown, err := m.alloc.Grow(m.buf, delta, m.maxPages)
	if err != nil {
		return 0, err
	}
	m.buf = grown
	return prev, nil
}

// ShrinkTo restores the visible length to pages, rolling back a Grow.
// The hidden tail is zeroed so a later grow observes fresh pages.
func (m *DynamicMemory) ShrinkTo(pages uint32) {
	newSize := uint64(pages) * platform.PageSize
	if newSize >= uint64(len(m.buf)) {
		return
	}
	for i := newSize; i < uint64(len(m.buf)); i++ {
		m.buf[i] = 0
	}
	m.buf = m.buf[:newSize]
}

// Release returns the backing pages to the allocator. The region must
// not be used afterwards.
func (m *DynamicMemory) Release() {
	m.alloc.Deallocate(m.buf)
	m.buf = nil
}
