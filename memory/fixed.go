package memory

import (
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/platform"
)

// FixedMemory is a fixed-capacity region for the no-allocation regime.
// The full max size is allocated at construction; Grow only moves the
// visible length within the preallocated span, so no allocation ever
// happens after the constructor returns.
type FixedMemory struct {
	buf  []byte // len == maxPages * PageSize
	size uint32 // visible bytes
}

// NewFixed creates a fixed region of initial pages with a hard ceiling
// of max pages, all allocated now.
func NewFixed(initial, max uint32) (*FixedMemory, error) {
	if initial > max {
		return nil, errors.AllocationFailure(
			uint64(initial)*platform.PageSize, uint64(max)*platform.PageSize)
	}
	return &FixedMemory{
		buf:  make([]byte, uint64(max)*platform.PageSize),
		size: initial * platform.PageSize,
	}, nil
}

// Len returns the visible size in bytes.
func (m *FixedMemory) Len() uint32 { return m.size }

// IsEmpty reports whether the visible region has zero size.
func (m *FixedMemory) IsEmpty() bool { return m.size == 0 }

// Pages returns the visible size in pages.
func (m *FixedMemory) Pages() uint32 { return m.size / platform.PageSize }

// ReadBytes returns a copy of length bytes at offset.
func (m *FixedMemory) ReadBytes(offset, length uint32) ([]byte, error) {
	if err := checkBounds(offset, length, m.size); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.buf[offset:uint64(offset)+uint64(length)])
	return out, nil
}

// WriteBytes copies data into the region, all or nothing.
func (m *FixedMemory) WriteBytes(offset uint32, data []byte) error {
	if err := checkBounds(offset, uint32(len(data)), m.size); err != nil {
		return err
	}
	copy(m.buf[offset:], data)
	return nil
}

// Grow moves the visible length forward by delta pages within the
// preallocated span.
func (m *FixedMemory) Grow(delta uint32) (uint32, error) {
	prev := m.Pages()
	requested := uint64(prev) + uint64(delta)
	maxPages := uint64(len(m.buf)) / platform.PageSize
	if requested > maxPages {
		return 0, errors.AllocationFailure(
			requested*platform.PageSize, uint64(len(m.buf)))
	}
	m.size = uint32(requested * platform.PageSize)
	return prev, nil
}

// ShrinkTo restores the visible length to pages. Used by the engine's
// call journal to roll back a grow; the exposed-then-hidden span is
// zeroed so a later grow observes fresh pages.
func (m *FixedMemory) ShrinkTo(pages uint32) {
	newSize := pages * platform.PageSize
	for i := newSize; i < m.size; i++ {
		m.buf[i] = 0
	}
	m.size = newSize
}
