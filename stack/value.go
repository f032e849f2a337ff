package stack

import (
	"math"
	"strconv"
)

// ValueKind discriminates the value union.
type ValueKind uint8

const (
	KindI32 ValueKind = iota
	KindI64
	KindF32
	KindF64
)

// String returns the wasm type name.
func (k ValueKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Value is one operand: a kind tag plus the raw bit pattern. Values
// are immutable and freely copied. Floats are stored by their IEEE 754
// bits, so NaN payloads survive a round trip through the stack.
type Value struct {
	Bits uint64
	Kind ValueKind
}

// I32 makes an i32 value.
func I32(v int32) Value {
	return Value{Bits: uint64(uint32(v)), Kind: KindI32}
}

// I64 makes an i64 value.
func I64(v int64) Value {
	return Value{Bits: uint64(v), Kind: KindI64}
}

// F32 makes an f32 value.
func F32(v float32) Value {
	return Value{Bits: uint64(math.Float32bits(v)), Kind: KindF32}
}

// F64 makes an f64 value.
func F64(v float64) Value {
	return Value{Bits: math.Float64bits(v), Kind: KindF64}
}

// AsI32 reinterprets the low 32 bits as a signed integer.
func (v Value) AsI32() int32 { return int32(uint32(v.Bits)) }

// AsU32 reinterprets the low 32 bits as an unsigned integer.
func (v Value) AsU32() uint32 { return uint32(v.Bits) }

// AsI64 reinterprets the bits as a signed integer.
func (v Value) AsI64() int64 { return int64(v.Bits) }

// AsU64 returns the raw bits.
func (v Value) AsU64() uint64 { return v.Bits }

// AsF32 reinterprets the low 32 bits as a float.
func (v Value) AsF32() float32 { return math.Float32frombits(uint32(v.Bits)) }

// AsF64 reinterprets the bits as a float.
func (v Value) AsF64() float64 { return math.Float64frombits(v.Bits) }

// String renders the value with its type, e.g. "i32:42".
func (v Value) String() string {
	switch v.Kind {
	case KindI32:
		return "i32:" + strconv.FormatInt(int64(v.AsI32()), 10)
	case KindI64:
		return "i64:" + strconv.FormatInt(v.AsI64(), 10)
	case KindF32:
		return "f32:" + strconv.FormatFloat(float64(v.AsF32()), 'g', -1, 32)
	case KindF64:
		return "f64:" + strconv.FormatFloat(v.AsF64(), 'g', -1, 64)
	default:
		return "unknown"
	}
}
