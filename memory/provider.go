package memory

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/wasm-engine/errors"
)

// Provider is a byte-addressable region with a bounds-checking contract.
type Provider interface {
	// Len returns the current size in bytes. O(1), stable until Grow.
	Len() uint32

	// IsEmpty reports Len() == 0.
	IsEmpty() bool

	// Pages returns the current size in 64 KiB pages.
	Pages() uint32

	// ReadBytes returns a copy of length bytes at offset. It succeeds
	// iff offset+length <= Len() with the sum computed without
	// overflow; it never mutates state.
	ReadBytes(offset, length uint32) ([]byte, error)

	// WriteBytes copies data to [offset, offset+len(data)). On failure
	// memory is byte-for-byte unchanged.
	WriteBytes(offset uint32, data []byte) error

	// Grow extends the region by delta pages and returns the previous
	// page count, or an allocation failure carrying requested versus
	// available size.
	Grow(delta uint32) (uint32, error)
}

// Shrinker is implemented by providers that can roll a Grow back. The
// engine's call journal uses it to restore the pre-call size when an
// execution fails after growing memory.
type Shrinker interface {
	ShrinkTo(pages uint32)
}

// checkBounds validates offset+length against size in 64-bit space so
// the sum cannot wrap.
func checkBounds(offset, length, size uint32) error {
	if uint64(offset)+uint64(length) > uint64(size) {
		return errors.OutOfBounds(uint64(offset), uint64(length))
	}
	return nil
}

// Typed accessors built on the Provider contract. All share its bounds
// and failure behavior; wider-than-available reads fail without
// touching memory.

// ReadU32 reads a little-endian uint32 at offset.
func ReadU32(p Provider, offset uint32) (uint32, error) {
	b, err := p.ReadBytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64 at offset.
func ReadU64(p Provider, offset uint32) (uint64, error) {
	b, err := p.ReadBytes(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadF32 reads a little-endian float32 at offset.
func ReadF32(p Provider, offset uint32) (float32, error) {
	bits, err := ReadU32(p, offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadF64 reads a little-endian float64 at offset.
func ReadF64(p Provider, offset uint32) (float64, error) {
	bits, err := ReadU64(p, offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// WriteU32 writes a little-endian uint32 at offset.
func WriteU32(p Provider, offset uint32, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return p.WriteBytes(offset, b[:])
}

// WriteU64 writes a little-endian uint64 at offset.
func WriteU64(p Provider, offset uint32, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return p.WriteBytes(offset, b[:])
}

// WriteF32 writes a little-endian float32 at offset.
func WriteF32(p Provider, offset uint32, v float32) error {
	return WriteU32(p, offset, math.Float32bits(v))
}

// WriteF64 writes a little-endian float64 at offset.
func WriteF64(p Provider, offset uint32, v float64) error {
	return WriteU64(p, offset, math.Float64bits(v))
}
