package platform

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-engine/errors"
)

func TestHeapAllocate(t *testing.T) {
	a := NewHeapAllocator()

	buf, err := a.Allocate(2, 4)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(buf) != 2*PageSize {
		t.Fatalf("len = %d, want %d", len(buf), 2*PageSize)
	}
	if cap(buf) != 4*PageSize {
		t.Fatalf("cap = %d, want %d", cap(buf), 4*PageSize)
	}
}

func TestHeapAllocateInitialBeyondMax(t *testing.T) {
	a := NewHeapAllocator()
	_, err := a.Allocate(5, 4)
	if !stderrors.Is(err, &errors.Error{Category: errors.CategoryMemory, Kind: errors.KindAllocationFailure}) {
		t.Fatalf("want allocation failure, got %v", err)
	}
}

func TestHeapGrow(t *testing.T) {
	a := NewHeapAllocator()
	buf, _ := a.Allocate(1, 3)
	buf[0] = 0xAB

	grown, err := a.Grow(buf, 2, 3)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if len(grown) != 3*PageSize {
		t.Fatalf("len = %d, want %d", len(grown), 3*PageSize)
	}
	if grown[0] != 0xAB {
		t.Fatal("contents lost during grow")
	}
	if grown[PageSize] != 0 {
		t.Fatal("new pages must be zeroed")
	}
}

func TestHeapGrowBeyondMax(t *testing.T) {
	a := NewHeapAllocator()
	buf, _ := a.Allocate(2, 3)

	_, err := a.Grow(buf, 2, 3)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindAllocationFailure {
		t.Fatalf("want allocation failure, got %v", err)
	}
	if e.Requested != 4*PageSize || e.Available != 3*PageSize {
		t.Fatalf("wrong sizes: requested=%d available=%d", e.Requested, e.Available)
	}
}
