package wasm

// Instruction represents a decoded WebAssembly instruction
type Instruction struct {
	Imm    any
	Opcode byte
}

// BlockImm holds the block type for block, loop, and if instructions.
type BlockImm struct {
	Type int32 // Block type: -64=void, -1=i32, -2=i64, -3=f32, -4=f64, >=0=type index
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call instruction.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect instruction.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Offset uint32
	Align  uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const instruction.
type I64Imm struct {
	Value int64
}

// F32Imm holds the constant value for f32.const instruction.
type F32Imm struct {
	Value float32
}

// F64Imm holds the constant value for f64.const instruction.
type F64Imm struct {
	Value float64
}

// GetCallTarget returns the call target if this is a call instruction
func (i Instruction) GetCallTarget() (uint32, bool) {
	if i.Opcode == OpCall {
		if imm, ok := i.Imm.(CallImm); ok {
			return imm.FuncIdx, true
		}
	}
	return 0, false
}

// IsIndirectCall returns true if this is a call_indirect instruction
func (i Instruction) IsIndirectCall() bool {
	return i.Opcode == OpCallIndirect
}

// Builders below assemble instruction sequences in Go, the way the
// decoder would produce them. Tests and the bundled sample programs are
// written with these.

// Op makes a bare instruction with no immediate.
func Op(opcode byte) Instruction {
	return Instruction{Opcode: opcode}
}

// End terminates a block, loop, if arm, or function body.
func End() Instruction { return Instruction{Opcode: OpEnd} }

// I32Const pushes a constant i32.
func I32Const(v int32) Instruction {
	return Instruction{Opcode: OpI32Const, Imm: I32Imm{Value: v}}
}

// I64Const pushes a constant i64.
func I64Const(v int64) Instruction {
	return Instruction{Opcode: OpI64Const, Imm: I64Imm{Value: v}}
}

// F32Const pushes a constant f32.
func F32Const(v float32) Instruction {
	return Instruction{Opcode: OpF32Const, Imm: F32Imm{Value: v}}
}

// F64Const pushes a constant f64.
func F64Const(v float64) Instruction {
	return Instruction{Opcode: OpF64Const, Imm: F64Imm{Value: v}}
}

// LocalGet reads a local.
func LocalGet(idx uint32) Instruction {
	return Instruction{Opcode: OpLocalGet, Imm: LocalImm{LocalIdx: idx}}
}

// LocalSet writes a local.
func LocalSet(idx uint32) Instruction {
	return Instruction{Opcode: OpLocalSet, Imm: LocalImm{LocalIdx: idx}}
}

// LocalTee writes a local, keeping the value on the stack.
func LocalTee(idx uint32) Instruction {
	return Instruction{Opcode: OpLocalTee, Imm: LocalImm{LocalIdx: idx}}
}

// GlobalGet reads a global.
func GlobalGet(idx uint32) Instruction {
	return Instruction{Opcode: OpGlobalGet, Imm: GlobalImm{GlobalIdx: idx}}
}

// GlobalSet writes a global.
func GlobalSet(idx uint32) Instruction {
	return Instruction{Opcode: OpGlobalSet, Imm: GlobalImm{GlobalIdx: idx}}
}

// Block opens a block with the given block type.
func Block(blockType int32) Instruction {
	return Instruction{Opcode: OpBlock, Imm: BlockImm{Type: blockType}}
}

// Loop opens a loop with the given block type.
func Loop(blockType int32) Instruction {
	return Instruction{Opcode: OpLoop, Imm: BlockImm{Type: blockType}}
}

// If opens a conditional with the given block type.
func If(blockType int32) Instruction {
	return Instruction{Opcode: OpIf, Imm: BlockImm{Type: blockType}}
}

// Br branches unconditionally to the label at relDepth.
func Br(relDepth uint32) Instruction {
	return Instruction{Opcode: OpBr, Imm: BranchImm{LabelIdx: relDepth}}
}

// BrIf branches to the label at relDepth if the top of stack is nonzero.
func BrIf(relDepth uint32) Instruction {
	return Instruction{Opcode: OpBrIf, Imm: BranchImm{LabelIdx: relDepth}}
}

// BrTable branches through a jump table.
func BrTable(labels []uint32, def uint32) Instruction {
	return Instruction{Opcode: OpBrTable, Imm: BrTableImm{Labels: labels, Default: def}}
}

// Call invokes a function by index.
func Call(funcIdx uint32) Instruction {
	return Instruction{Opcode: OpCall, Imm: CallImm{FuncIdx: funcIdx}}
}

// CallIndirect invokes through a table with a declared signature.
func CallIndirect(typeIdx, tableIdx uint32) Instruction {
	return Instruction{Opcode: OpCallIndirect, Imm: CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}}
}

// Load makes a memory load with the given opcode, alignment hint, and
// static offset.
func Load(opcode byte, align, offset uint32) Instruction {
	return Instruction{Opcode: opcode, Imm: MemoryImm{Align: align, Offset: offset}}
}

// Store makes a memory store with the given opcode, alignment hint, and
// static offset.
func Store(opcode byte, align, offset uint32) Instruction {
	return Instruction{Opcode: opcode, Imm: MemoryImm{Align: align, Offset: offset}}
}
