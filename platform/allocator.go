package platform

import (
	"github.com/wippyai/wasm-engine/errors"
)

// PageSize is the WebAssembly linear memory page size in bytes.
const PageSize = 65536

// PageAllocator provides raw page allocation for the dynamic memory
// provider. Sizes are expressed in 64 KiB pages.
type PageAllocator interface {
	// Allocate reserves a region of initial pages that may later grow up
	// to max pages. The returned slice has length initial*PageSize.
	Allocate(initial, max uint32) ([]byte, error)

	// Grow extends buf by delta pages, up to max. The returned slice
	// contains the previous contents followed by zeroed pages. The input
	// slice must not be used after a successful grow.
	Grow(buf []byte, delta, max uint32) ([]byte, error)

	// Deallocate releases a region obtained from Allocate or Grow.
	Deallocate(buf []byte)
}

// HeapAllocator implements PageAllocator over the Go heap. Allocate
// reserves capacity for max pages up front so Grow never copies.
type HeapAllocator struct{}

// NewHeapAllocator returns the default heap-backed page allocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{}
}

// Allocate reserves initial pages with capacity for max pages.
func (*HeapAllocator) Allocate(initial, max uint32) ([]byte, error) {
	if initial > max {
		return nil, errors.AllocationFailure(uint64(initial)*PageSize, uint64(max)*PageSize)
	}
	return make([]byte, uint64(initial)*PageSize, uint64(max)*PageSize), nil
}

// Grow extends buf by delta pages up to max.
func (*HeapAllocator) Grow(buf []byte, delta, max uint32) ([]byte, error) {
	curPages := uint32(len(buf) / PageSize)
	newPages := uint64(curPages) + uint64(delta)
	if newPages > uint64(max) {
		return nil, errors.AllocationFailure(newPages*PageSize, uint64(max)*PageSize)
	}
	newLen := newPages * PageSize
	if newLen <= uint64(cap(buf)) {
		return buf[:newLen], nil
	}
	grown := make([]byte, newLen)
	copy(grown, buf)
	return grown, nil
}

// Deallocate releases the region. The heap allocator defers to the GC.
func (*HeapAllocator) Deallocate([]byte) {}
