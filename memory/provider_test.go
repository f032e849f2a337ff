package memory

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/platform"
)

// byteRegion is a test-only provider with byte-granular size, used to
// exercise the contract at the exact sizes the bounds scenarios call
// for without multiplying through the 64 KiB page size.
type byteRegion struct {
	buf []byte
}

func (r *byteRegion) Len() uint32   { return uint32(len(r.buf)) }
func (r *byteRegion) IsEmpty() bool { return len(r.buf) == 0 }
func (r *byteRegion) Pages() uint32 { return uint32(len(r.buf) / platform.PageSize) }
func (r *byteRegion) Grow(uint32) (uint32, error) {
	return 0, errors.AllocationFailure(0, uint64(len(r.buf)))
}
func (r *byteRegion) ReadBytes(offset, length uint32) ([]byte, error) {
	if err := checkBounds(offset, length, r.Len()); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, r.buf[offset:])
	return out, nil
}
func (r *byteRegion) WriteBytes(offset uint32, data []byte) error {
	if err := checkBounds(offset, uint32(len(data)), r.Len()); err != nil {
		return err
	}
	copy(r.buf[offset:], data)
	return nil
}

func providers(t *testing.T) map[string]Provider {
	t.Helper()
	dyn, err := NewDynamic(platform.NewHeapAllocator(), 1, 4)
	if err != nil {
		t.Fatalf("NewDynamic: %v", err)
	}
	fix, err := NewFixed(1, 4)
	if err != nil {
		t.Fatalf("NewFixed: %v", err)
	}
	return map[string]Provider{"dynamic": dyn, "fixed": fix}
}

func TestBoundsScenario(t *testing.T) {
	// Size 1024: read_bytes(0,1) ok; (1024,1), (0,1025) and the
	// overflow path all rejected with the caller's offset/length.
	r := &byteRegion{buf: make([]byte, 1024)}

	if _, err := r.ReadBytes(0, 1); err != nil {
		t.Fatalf("ReadBytes(0,1): %v", err)
	}

	cases := []struct {
		offset, length uint32
	}{
		{1024, 1},
		{0, 1025},
		{math.MaxUint32, 1}, // end offset overflows the address type
	}
	for _, tc := range cases {
		_, err := r.ReadBytes(tc.offset, tc.length)
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Kind != errors.KindOutOfBounds {
			t.Fatalf("ReadBytes(%d,%d): want out of bounds, got %v", tc.offset, tc.length, err)
		}
		if e.Offset != uint64(tc.offset) || e.Length != uint64(tc.length) {
			t.Fatalf("error context = {%d,%d}, want {%d,%d}", e.Offset, e.Length, tc.offset, tc.length)
		}
	}
}

func TestWriteFailureLeavesMemoryUnchanged(t *testing.T) {
	r := &byteRegion{buf: make([]byte, 16)}
	r.WriteBytes(0, []byte{1, 2, 3, 4})

	if err := r.WriteBytes(14, []byte{9, 9, 9}); err == nil {
		t.Fatal("overflowing write should fail")
	}
	got, _ := r.ReadBytes(0, 16)
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d changed by failed write: %v", i, got)
		}
	}
}

func TestProviderReadWriteRoundTrip(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if p.Len() != platform.PageSize {
				t.Fatalf("Len = %d", p.Len())
			}
			if p.IsEmpty() != (p.Len() == 0) {
				t.Fatal("IsEmpty disagrees with Len")
			}

			data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
			if err := p.WriteBytes(100, data); err != nil {
				t.Fatalf("WriteBytes: %v", err)
			}
			got, err := p.ReadBytes(100, 4)
			if err != nil {
				t.Fatalf("ReadBytes: %v", err)
			}
			for i := range data {
				if got[i] != data[i] {
					t.Fatalf("round trip mismatch: %v", got)
				}
			}

			// The returned slice is a copy, not a view.
			got[0] = 0xFF
			again, _ := p.ReadBytes(100, 1)
			if again[0] != 0xDE {
				t.Fatal("ReadBytes returned a mutable view")
			}
		})
	}
}

func TestProviderGrow(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			prev, err := p.Grow(2)
			if err != nil {
				t.Fatalf("Grow: %v", err)
			}
			if prev != 1 {
				t.Fatalf("prev = %d", prev)
			}
			if p.Pages() != 3 {
				t.Fatalf("Pages = %d", p.Pages())
			}
			// New pages read back as zero.
			b, err := p.ReadBytes(2*platform.PageSize, 8)
			if err != nil {
				t.Fatalf("read of grown page: %v", err)
			}
			for _, c := range b {
				if c != 0 {
					t.Fatal("grown pages not zeroed")
				}
			}

			// Growing past the max fails with sizes and without
			// changing the region.
			_, err = p.Grow(10)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindAllocationFailure {
				t.Fatalf("want allocation failure, got %v", err)
			}
			if p.Pages() != 3 {
				t.Fatal("failed grow changed page count")
			}
		})
	}
}

func TestShrinkTo(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			p.Grow(1)
			p.WriteBytes(platform.PageSize+10, []byte{0x77})

			s, ok := p.(Shrinker)
			if !ok {
				t.Fatal("provider should support rollback shrinking")
			}
			s.ShrinkTo(1)
			if p.Pages() != 1 {
				t.Fatalf("Pages = %d after shrink", p.Pages())
			}

			// Regrowing exposes zeroed pages, not the old contents.
			p.Grow(1)
			b, _ := p.ReadBytes(platform.PageSize+10, 1)
			if b[0] != 0 {
				t.Fatal("shrunk pages leaked previous contents")
			}
		})
	}
}

func TestTypedAccessors(t *testing.T) {
	p, _ := NewFixed(1, 1)

	if err := WriteU32(p, 0, 0x01020304); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	v, err := ReadU32(p, 0)
	if err != nil || v != 0x01020304 {
		t.Fatalf("ReadU32 = %x, %v", v, err)
	}
	// Little-endian layout.
	b, _ := p.ReadBytes(0, 4)
	if b[0] != 0x04 || b[3] != 0x01 {
		t.Fatalf("unexpected byte order: %v", b)
	}

	if err := WriteF64(p, 8, 3.5); err != nil {
		t.Fatalf("WriteF64: %v", err)
	}
	f, err := ReadF64(p, 8)
	if err != nil || f != 3.5 {
		t.Fatalf("ReadF64 = %v, %v", f, err)
	}

	// Accessors inherit the bounds contract.
	if _, err := ReadU64(p, platform.PageSize-4); err == nil {
		t.Fatal("straddling read should fail")
	}
}
