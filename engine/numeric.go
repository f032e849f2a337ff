package engine

import (
	"math"
	"math/bits"

	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

func boolVal(b bool) stack.Value {
	if b {
		return stack.I32(1)
	}
	return stack.I32(0)
}

func (e *Engine) pop1() (stack.Value, error) {
	return e.stack.Pop()
}

// pop2 returns the two topmost operands in push order: a was pushed
// before b.
func (e *Engine) pop2() (a, b stack.Value, err error) {
	b, err = e.stack.Pop()
	if err != nil {
		return
	}
	a, err = e.stack.Pop()
	return
}

// execNumeric handles the dense comparison, arithmetic, conversion, and
// sign extension opcode range.
func (e *Engine) execNumeric(op byte) error {
	switch {
	case op >= wasm.OpI32Eqz && op <= wasm.OpI64GeU:
		return e.execIntCompare(op)
	case op >= wasm.OpF32Eq && op <= wasm.OpF64Ge:
		return e.execFloatCompare(op)
	case op >= wasm.OpI32Clz && op <= wasm.OpI32Rotr:
		return e.execI32Arith(op)
	case op >= wasm.OpI64Clz && op <= wasm.OpI64Rotr:
		return e.execI64Arith(op)
	case op >= wasm.OpF32Abs && op <= wasm.OpF64Copysign:
		return e.execFloatArith(op)
	case op >= wasm.OpI32WrapI64 && op <= wasm.OpF64ReinterpretI64:
		return e.execConvert(op)
	case op >= wasm.OpI32Extend8S && op <= wasm.OpI64Extend32S:
		return e.execSignExtend(op)
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
}

func (e *Engine) execIntCompare(op byte) error {
	if op == wasm.OpI32Eqz {
		v, err := e.pop1()
		if err != nil {
			return err
		}
		return e.stack.Push(boolVal(v.AsI32() == 0))
	}
	if op == wasm.OpI64Eqz {
		v, err := e.pop1()
		if err != nil {
			return err
		}
		return e.stack.Push(boolVal(v.AsI64() == 0))
	}

	a, b, err := e.pop2()
	if err != nil {
		return err
	}

	var r bool
	switch op {
	case wasm.OpI32Eq:
		r = a.AsI32() == b.AsI32()
	case wasm.OpI32Ne:
		r = a.AsI32() != b.AsI32()
	case wasm.OpI32LtS:
		r = a.AsI32() < b.AsI32()
	case wasm.OpI32LtU:
		r = a.AsU32() < b.AsU32()
	case wasm.OpI32GtS:
		r = a.AsI32() > b.AsI32()
	case wasm.OpI32GtU:
		r = a.AsU32() > b.AsU32()
	case wasm.OpI32LeS:
		r = a.AsI32() <= b.AsI32()
	case wasm.OpI32LeU:
		r = a.AsU32() <= b.AsU32()
	case wasm.OpI32GeS:
		r = a.AsI32() >= b.AsI32()
	case wasm.OpI32GeU:
		r = a.AsU32() >= b.AsU32()
	case wasm.OpI64Eq:
		r = a.AsI64() == b.AsI64()
	case wasm.OpI64Ne:
		r = a.AsI64() != b.AsI64()
	case wasm.OpI64LtS:
		r = a.AsI64() < b.AsI64()
	case wasm.OpI64LtU:
		r = a.AsU64() < b.AsU64()
	case wasm.OpI64GtS:
		r = a.AsI64() > b.AsI64()
	case wasm.OpI64GtU:
		r = a.AsU64() > b.AsU64()
	case wasm.OpI64LeS:
		r = a.AsI64() <= b.AsI64()
	case wasm.OpI64LeU:
		r = a.AsU64() <= b.AsU64()
	case wasm.OpI64GeS:
		r = a.AsI64() >= b.AsI64()
	case wasm.OpI64GeU:
		r = a.AsU64() >= b.AsU64()
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.stack.Push(boolVal(r))
}

func (e *Engine) execFloatCompare(op byte) error {
	a, b, err := e.pop2()
	if err != nil {
		return err
	}

	var x, y float64
	if op <= wasm.OpF32Ge {
		x, y = float64(a.AsF32()), float64(b.AsF32())
	} else {
		x, y = a.AsF64(), b.AsF64()
	}

	var r bool
	switch op {
	case wasm.OpF32Eq, wasm.OpF64Eq:
		r = x == y
	case wasm.OpF32Ne, wasm.OpF64Ne:
		r = x != y
	case wasm.OpF32Lt, wasm.OpF64Lt:
		r = x < y
	case wasm.OpF32Gt, wasm.OpF64Gt:
		r = x > y
	case wasm.OpF32Le, wasm.OpF64Le:
		r = x <= y
	case wasm.OpF32Ge, wasm.OpF64Ge:
		r = x >= y
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.stack.Push(boolVal(r))
}

func (e *Engine) execI32Arith(op byte) error {
	switch op {
	case wasm.OpI32Clz, wasm.OpI32Ctz, wasm.OpI32Popcnt:
		v, err := e.pop1()
		if err != nil {
			return err
		}
		x := v.AsU32()
		var r int
		switch op {
		case wasm.OpI32Clz:
			r = bits.LeadingZeros32(x)
		case wasm.OpI32Ctz:
			r = bits.TrailingZeros32(x)
		default:
			r = bits.OnesCount32(x)
		}
		return e.stack.Push(stack.I32(int32(r)))
	}

	a, b, err := e.pop2()
	if err != nil {
		return err
	}

	var r int32
	switch op {
	case wasm.OpI32Add:
		r = a.AsI32() + b.AsI32()
	case wasm.OpI32Sub:
		r = a.AsI32() - b.AsI32()
	case wasm.OpI32Mul:
		r = a.AsI32() * b.AsI32()
	case wasm.OpI32DivS:
		if b.AsI32() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		if a.AsI32() == math.MinInt32 && b.AsI32() == -1 {
			return errors.Trap(errors.TrapIntegerOverflow)
		}
		r = a.AsI32() / b.AsI32()
	case wasm.OpI32DivU:
		if b.AsU32() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		r = int32(a.AsU32() / b.AsU32())
	case wasm.OpI32RemS:
		if b.AsI32() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		// MinInt32 % -1 is 0, not a trap.
		if a.AsI32() == math.MinInt32 && b.AsI32() == -1 {
			r = 0
		} else {
			r = a.AsI32() % b.AsI32()
		}
	case wasm.OpI32RemU:
		if b.AsU32() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		r = int32(a.AsU32() % b.AsU32())
	case wasm.OpI32And:
		r = a.AsI32() & b.AsI32()
	case wasm.OpI32Or:
		r = a.AsI32() | b.AsI32()
	case wasm.OpI32Xor:
		r = a.AsI32() ^ b.AsI32()
	case wasm.OpI32Shl:
		r = int32(a.AsU32() << (b.AsU32() & 31))
	case wasm.OpI32ShrS:
		r = a.AsI32() >> (b.AsU32() & 31)
	case wasm.OpI32ShrU:
		r = int32(a.AsU32() >> (b.AsU32() & 31))
	case wasm.OpI32Rotl:
		r = int32(bits.RotateLeft32(a.AsU32(), int(b.AsU32()&31)))
	case wasm.OpI32Rotr:
		r = int32(bits.RotateLeft32(a.AsU32(), -int(b.AsU32()&31)))
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.stack.Push(stack.I32(r))
}

func (e *Engine) execI64Arith(op byte) error {
	switch op {
	case wasm.OpI64Clz, wasm.OpI64Ctz, wasm.OpI64Popcnt:
		v, err := e.pop1()
		if err != nil {
			return err
		}
		x := v.AsU64()
		var r int
		switch op {
		case wasm.OpI64Clz:
			r = bits.LeadingZeros64(x)
		case wasm.OpI64Ctz:
			r = bits.TrailingZeros64(x)
		default:
			r = bits.OnesCount64(x)
		}
		return e.stack.Push(stack.I64(int64(r)))
	}

	a, b, err := e.pop2()
	if err != nil {
		return err
	}

	var r int64
	switch op {
	case wasm.OpI64Add:
		r = a.AsI64() + b.AsI64()
	case wasm.OpI64Sub:
		r = a.AsI64() - b.AsI64()
	case wasm.OpI64Mul:
		r = a.AsI64() * b.AsI64()
	case wasm.OpI64DivS:
		if b.AsI64() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		if a.AsI64() == math.MinInt64 && b.AsI64() == -1 {
			return errors.Trap(errors.TrapIntegerOverflow)
		}
		r = a.AsI64() / b.AsI64()
	case wasm.OpI64DivU:
		if b.AsU64() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		r = int64(a.AsU64() / b.AsU64())
	case wasm.OpI64RemS:
		if b.AsI64() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		if a.AsI64() == math.MinInt64 && b.AsI64() == -1 {
			r = 0
		} else {
			r = a.AsI64() % b.AsI64()
		}
	case wasm.OpI64RemU:
		if b.AsU64() == 0 {
			return errors.Trap(errors.TrapDivideByZero)
		}
		r = int64(a.AsU64() % b.AsU64())
	case wasm.OpI64And:
		r = a.AsI64() & b.AsI64()
	case wasm.OpI64Or:
		r = a.AsI64() | b.AsI64()
	case wasm.OpI64Xor:
		r = a.AsI64() ^ b.AsI64()
	case wasm.OpI64Shl:
		r = int64(a.AsU64() << (b.AsU64() & 63))
	case wasm.OpI64ShrS:
		r = a.AsI64() >> (b.AsU64() & 63)
	case wasm.OpI64ShrU:
		r = int64(a.AsU64() >> (b.AsU64() & 63))
	case wasm.OpI64Rotl:
		r = int64(bits.RotateLeft64(a.AsU64(), int(b.AsU64()&63)))
	case wasm.OpI64Rotr:
		r = int64(bits.RotateLeft64(a.AsU64(), -int(b.AsU64()&63)))
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.stack.Push(stack.I64(r))
}

func (e *Engine) execFloatArith(op byte) error {
	switch op {
	case wasm.OpF32Abs, wasm.OpF32Neg, wasm.OpF32Ceil, wasm.OpF32Floor,
		wasm.OpF32Trunc, wasm.OpF32Nearest, wasm.OpF32Sqrt:
		v, err := e.pop1()
		if err != nil {
			return err
		}
		x := float64(v.AsF32())
		return e.stack.Push(stack.F32(float32(floatUnary(op-wasm.OpF32Abs, x))))

	case wasm.OpF64Abs, wasm.OpF64Neg, wasm.OpF64Ceil, wasm.OpF64Floor,
		wasm.OpF64Trunc, wasm.OpF64Nearest, wasm.OpF64Sqrt:
		v, err := e.pop1()
		if err != nil {
			return err
		}
		return e.stack.Push(stack.F64(floatUnary(op-wasm.OpF64Abs, v.AsF64())))

	case wasm.OpF32Add, wasm.OpF32Sub, wasm.OpF32Mul, wasm.OpF32Div,
		wasm.OpF32Min, wasm.OpF32Max, wasm.OpF32Copysign:
		a, b, err := e.pop2()
		if err != nil {
			return err
		}
		x, y := float64(a.AsF32()), float64(b.AsF32())
		return e.stack.Push(stack.F32(float32(floatBinary(op-wasm.OpF32Add, x, y))))

	case wasm.OpF64Add, wasm.OpF64Sub, wasm.OpF64Mul, wasm.OpF64Div,
		wasm.OpF64Min, wasm.OpF64Max, wasm.OpF64Copysign:
		a, b, err := e.pop2()
		if err != nil {
			return err
		}
		return e.stack.Push(stack.F64(floatBinary(op-wasm.OpF64Add, a.AsF64(), b.AsF64())))

	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
}

// floatUnary dispatches by offset from the family's abs opcode; f32 and
// f64 share the layout.
func floatUnary(off byte, x float64) float64 {
	switch off {
	case 0:
		return math.Abs(x)
	case 1:
		return -x
	case 2:
		return math.Ceil(x)
	case 3:
		return math.Floor(x)
	case 4:
		return math.Trunc(x)
	case 5:
		return math.RoundToEven(x)
	default:
		return math.Sqrt(x)
	}
}

func floatBinary(off byte, x, y float64) float64 {
	switch off {
	case 0:
		return x + y
	case 1:
		return x - y
	case 2:
		return x * y
	case 3:
		return x / y
	case 4:
		return math.Min(x, y)
	case 5:
		return math.Max(x, y)
	default:
		return math.Copysign(x, y)
	}
}

func (e *Engine) execConvert(op byte) error {
	v, err := e.pop1()
	if err != nil {
		return err
	}

	var out stack.Value
	switch op {
	case wasm.OpI32WrapI64:
		out = stack.I32(int32(v.AsI64()))
	case wasm.OpI32TruncF32S:
		r, err := truncToI64(float64(v.AsF32()), math.MinInt32)
		if err != nil {
			return err
		}
		out = stack.I32(int32(r))
	case wasm.OpI32TruncF32U:
		r, err := truncToU64(float64(v.AsF32()), math.MaxUint32)
		if err != nil {
			return err
		}
		out = stack.I32(int32(uint32(r)))
	case wasm.OpI32TruncF64S:
		r, err := truncToI64(v.AsF64(), math.MinInt32)
		if err != nil {
			return err
		}
		out = stack.I32(int32(r))
	case wasm.OpI32TruncF64U:
		r, err := truncToU64(v.AsF64(), math.MaxUint32)
		if err != nil {
			return err
		}
		out = stack.I32(int32(uint32(r)))
	case wasm.OpI64ExtendI32S:
		out = stack.I64(int64(v.AsI32()))
	case wasm.OpI64ExtendI32U:
		out = stack.I64(int64(v.AsU32()))
	case wasm.OpI64TruncF32S:
		r, err := truncToI64(float64(v.AsF32()), math.MinInt64)
		if err != nil {
			return err
		}
		out = stack.I64(r)
	case wasm.OpI64TruncF32U:
		r, err := truncToU64(float64(v.AsF32()), math.MaxUint64)
		if err != nil {
			return err
		}
		out = stack.I64(int64(r))
	case wasm.OpI64TruncF64S:
		r, err := truncToI64(v.AsF64(), math.MinInt64)
		if err != nil {
			return err
		}
		out = stack.I64(r)
	case wasm.OpI64TruncF64U:
		r, err := truncToU64(v.AsF64(), math.MaxUint64)
		if err != nil {
			return err
		}
		out = stack.I64(int64(r))
	case wasm.OpF32ConvertI32S:
		out = stack.F32(float32(v.AsI32()))
	case wasm.OpF32ConvertI32U:
		out = stack.F32(float32(v.AsU32()))
	case wasm.OpF32ConvertI64S:
		out = stack.F32(float32(v.AsI64()))
	case wasm.OpF32ConvertI64U:
		out = stack.F32(float32(v.AsU64()))
	case wasm.OpF32DemoteF64:
		out = stack.F32(float32(v.AsF64()))
	case wasm.OpF64ConvertI32S:
		out = stack.F64(float64(v.AsI32()))
	case wasm.OpF64ConvertI32U:
		out = stack.F64(float64(v.AsU32()))
	case wasm.OpF64ConvertI64S:
		out = stack.F64(float64(v.AsI64()))
	case wasm.OpF64ConvertI64U:
		out = stack.F64(float64(v.AsU64()))
	case wasm.OpF64PromoteF32:
		out = stack.F64(float64(v.AsF32()))
	case wasm.OpI32ReinterpretF32:
		out = stack.Value{Bits: v.Bits, Kind: stack.KindI32}
	case wasm.OpI64ReinterpretF64:
		out = stack.Value{Bits: v.Bits, Kind: stack.KindI64}
	case wasm.OpF32ReinterpretI32:
		out = stack.Value{Bits: v.Bits, Kind: stack.KindF32}
	case wasm.OpF64ReinterpretI64:
		out = stack.Value{Bits: v.Bits, Kind: stack.KindF64}
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.stack.Push(out)
}

// truncToI64 truncates toward zero into the signed range starting at
// min. NaN is an invalid conversion; a value outside the range is an
// overflow. The bounds are exact in float space: min is a power of two
// and -min is the first value above the range.
func truncToI64(f float64, min int64) (int64, error) {
	if math.IsNaN(f) {
		return 0, errors.Trap(errors.TrapInvalidConversion)
	}
	t := math.Trunc(f)
	if t < float64(min) || t >= -float64(min) {
		return 0, errors.Trap(errors.TrapIntegerOverflow)
	}
	return int64(t), nil
}

func truncToU64(f float64, max uint64) (uint64, error) {
	if math.IsNaN(f) {
		return 0, errors.Trap(errors.TrapInvalidConversion)
	}
	t := math.Trunc(f)
	limit := float64(max>>1+1) * 2 // max+1 as an exact power of two
	if t < 0 || t >= limit {
		return 0, errors.Trap(errors.TrapIntegerOverflow)
	}
	return uint64(t), nil
}

func (e *Engine) execSignExtend(op byte) error {
	v, err := e.pop1()
	if err != nil {
		return err
	}
	switch op {
	case wasm.OpI32Extend8S:
		return e.stack.Push(stack.I32(int32(int8(v.AsI32()))))
	case wasm.OpI32Extend16S:
		return e.stack.Push(stack.I32(int32(int16(v.AsI32()))))
	case wasm.OpI64Extend8S:
		return e.stack.Push(stack.I64(int64(int8(v.AsI64()))))
	case wasm.OpI64Extend16S:
		return e.stack.Push(stack.I64(int64(int16(v.AsI64()))))
	default:
		return e.stack.Push(stack.I64(int64(int32(v.AsI64()))))
	}
}
