package engine

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"

	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

// Sentinel conditions Execute, Resume, and CompleteHostCall return when
// the call did not finish. They signal a state, not a failure; inspect
// State, Pending, and Capture to proceed.
var (
	// ErrHostCallPending means the engine reached an unbound import and
	// waits in the HostCall state.
	ErrHostCallPending = stderrors.New("engine: waiting on host call")

	// ErrSuspended means execution yielded and can be resumed or
	// checkpointed.
	ErrSuspended = stderrors.New("engine: execution suspended")
)

// errPending unwinds the dispatch loop internally when an unbound
// import is reached.
var errPending = stderrors.New("engine: pending host call")

// call transfers control to funcIdx in the combined index space.
// Arguments are expected on the operand stack.
func (e *Engine) call(funcIdx uint32) error {
	numImported := uint32(len(e.imports))
	if funcIdx < numImported {
		return e.hostCall(funcIdx)
	}

	meta := &e.funcs[funcIdx-numImported]

	locals := make([]stack.Value, meta.numLocals)
	args, err := e.stack.PopN(meta.numParams)
	if err != nil {
		return err
	}
	copy(locals, args)

	frame := stack.Frame{
		Func:        funcIdx,
		PC:          0,
		Locals:      locals,
		OperandBase: e.stack.Depth(),
		LabelBase:   e.stack.LabelDepth(),
		Results:     meta.numResults,
	}
	if err := e.stack.PushFrame(frame); err != nil {
		return err
	}
	// The implicit function label; its continuation is the final End,
	// so a branch to it flows into the normal return path.
	if err := e.stack.EnterBlock(stack.LabelFunc, meta.numResults, uint32(len(meta.body)-1)); err != nil {
		e.stack.PopFrame()
		return err
	}
	return nil
}

// hostCall invokes a bound import synchronously, or parks the engine in
// the HostCall state for an unbound one.
func (e *Engine) hostCall(importIdx uint32) error {
	meta := &e.imports[importIdx]
	ft := &e.module.Types[meta.typeIdx]

	args, err := e.stack.PopN(len(ft.Params))
	if err != nil {
		return err
	}

	if meta.fn == nil {
		shapes := make([]stack.Value, len(ft.Results))
		for i, r := range ft.Results {
			shapes[i] = zeroValue(r)
		}
		e.pending = &PendingCall{
			Module:  meta.module,
			Name:    meta.name,
			Args:    args,
			Results: shapes,
		}
		return errPending
	}

	results, err := meta.fn(&Env{e: e}, args)
	if err != nil {
		if stderrors.Is(err, ErrYield) {
			return e.yieldHostCall(args)
		}
		return errors.Wrap(errors.CategoryRuntime, errors.KindExecutionTrap, err,
			fmt.Sprintf("host %s.%s", meta.module, meta.name))
	}
	if len(results) != len(ft.Results) {
		return errors.TypeMismatch(
			fmt.Sprintf("%d results from %s.%s", len(ft.Results), meta.module, meta.name),
			fmt.Sprintf("%d results", len(results)))
	}
	for i, r := range results {
		if !kindMatches(r.Kind, ft.Results[i]) {
			return errors.TypeMismatch(ft.Results[i].String(), r.Kind.String())
		}
	}
	for _, r := range results {
		if err := e.stack.Push(r); err != nil {
			return err
		}
	}
	return nil
}

// yieldHostCall restores the pre-call operand state and rewinds the
// call instruction, so resuming re-invokes the host function.
func (e *Engine) yieldHostCall(args []stack.Value) error {
	for _, a := range args {
		if err := e.stack.Push(a); err != nil {
			return err
		}
	}
	frame, ok := e.stack.Frame()
	if !ok {
		return errors.InvalidState("yield from a direct host call")
	}
	frame.PC--
	return ErrYield
}

func zeroValue(vt wasm.ValType) stack.Value {
	switch vt {
	case wasm.ValI64:
		return stack.I64(0)
	case wasm.ValF32:
		return stack.F32(0)
	case wasm.ValF64:
		return stack.F64(0)
	default:
		return stack.I32(0)
	}
}

// run is the dispatch loop. It leaves in exactly one of the terminal
// conditions: Completed, Failed, HostCall, or Suspended.
func (e *Engine) run() (stack.Value, error) {
	numImported := uint32(len(e.imports))

	for {
		frame, ok := e.stack.Frame()
		if !ok {
			// Root call returned; its results sit on the operand stack.
			var v stack.Value
			if e.rootResults > 0 {
				popped, err := e.stack.Pop()
				if err != nil {
					return stack.Value{}, e.fail(err)
				}
				v = popped
			}
			return e.complete(v)
		}

		meta := &e.funcs[frame.Func-numImported]

		if e.yield.CompareAndSwap(true, false) {
			e.state = StateSuspended
			return stack.Value{}, ErrSuspended
		}
		if e.fuel.Add(-1) < 0 {
			e.fuel.Store(0)
			return stack.Value{}, e.fail(errors.Trap(errors.TrapFuelExhausted).At(meta.name, frame.PC))
		}

		if int(frame.PC) >= len(meta.body) {
			return stack.Value{}, e.fail(errors.Trap(errors.TrapCorruptState).At(meta.name, frame.PC))
		}
		instr := meta.body[frame.PC]
		pc := frame.PC
		frame.PC++

		if err := e.exec(frame, meta, instr, pc); err != nil {
			switch {
			case stderrors.Is(err, errPending):
				e.state = StateHostCall
				return stack.Value{}, ErrHostCallPending
			case stderrors.Is(err, ErrYield):
				e.state = StateSuspended
				return stack.Value{}, ErrSuspended
			default:
				var typed *errors.Error
				if stderrors.As(err, &typed) && typed.Function == "" {
					err = typed.At(meta.name, pc)
				}
				return stack.Value{}, e.fail(err)
			}
		}

		if e.stepping {
			e.stepping = false
			e.state = StateSuspended
			return stack.Value{}, ErrSuspended
		}
	}
}

// exec executes one instruction. frame is the current top frame; it is
// invalidated when exec pushes or pops a frame, which is why run
// re-fetches it every iteration.
func (e *Engine) exec(frame *stack.Frame, meta *funcMeta, instr wasm.Instruction, pc uint32) error {
	s := e.stack

	switch instr.Opcode {
	case wasm.OpUnreachable:
		return errors.Trap(errors.TrapUnreachable)

	case wasm.OpNop:
		return nil

	case wasm.OpBlock:
		imm := instr.Imm.(wasm.BlockImm)
		params, results, err := blockShape(e.module, imm.Type)
		if err != nil {
			return err
		}
		return s.EnterBlockAt(stack.LabelBlock, results, s.Depth()-params, meta.endOf[pc]+1)

	case wasm.OpLoop:
		imm := instr.Imm.(wasm.BlockImm)
		params, _, err := blockShape(e.module, imm.Type)
		if err != nil {
			return err
		}
		// Branching to a loop re-enters it at the instruction after the
		// header, carrying the loop parameters.
		return s.EnterBlockAt(stack.LabelLoop, params, s.Depth()-params, pc+1)

	case wasm.OpIf:
		cond, err := s.Pop()
		if err != nil {
			return err
		}
		imm := instr.Imm.(wasm.BlockImm)
		params, results, err := blockShape(e.module, imm.Type)
		if err != nil {
			return err
		}
		endPC := meta.endOf[pc]
		if cond.AsI32() != 0 {
			return s.EnterBlockAt(stack.LabelIf, results, s.Depth()-params, endPC+1)
		}
		if elsePC, ok := meta.elseOf[pc]; ok {
			frame.PC = elsePC + 1
			return s.EnterBlockAt(stack.LabelIf, results, s.Depth()-params, endPC+1)
		}
		// No else arm: skip the construct entirely.
		frame.PC = endPC + 1
		return nil

	case wasm.OpElse:
		// Falling into else means the true arm finished; jump past end.
		if _, err := s.ExitBlock(); err != nil {
			return err
		}
		frame.PC = meta.endOf[pc] + 1
		return nil

	case wasm.OpEnd:
		if _, err := s.ExitBlock(); err != nil {
			return err
		}
		if s.LabelDepth() == frame.LabelBase {
			return e.doReturn()
		}
		return nil

	case wasm.OpBr:
		return e.branch(frame, instr.Imm.(wasm.BranchImm).LabelIdx)

	case wasm.OpBrIf:
		cond, err := s.Pop()
		if err != nil {
			return err
		}
		if cond.AsI32() != 0 {
			return e.branch(frame, instr.Imm.(wasm.BranchImm).LabelIdx)
		}
		return nil

	case wasm.OpBrTable:
		imm := instr.Imm.(wasm.BrTableImm)
		idx, err := s.Pop()
		if err != nil {
			return err
		}
		target := imm.Default
		if i := idx.AsU32(); int(i) < len(imm.Labels) {
			target = imm.Labels[i]
		}
		return e.branch(frame, target)

	case wasm.OpReturn:
		return e.doReturn()

	case wasm.OpCall:
		return e.call(instr.Imm.(wasm.CallImm).FuncIdx)

	case wasm.OpCallIndirect:
		return e.callIndirect(instr.Imm.(wasm.CallIndirectImm))

	case wasm.OpDrop:
		_, err := s.Pop()
		return err

	case wasm.OpSelect:
		cond, err := s.Pop()
		if err != nil {
			return err
		}
		v2, err := s.Pop()
		if err != nil {
			return err
		}
		v1, err := s.Pop()
		if err != nil {
			return err
		}
		if cond.AsI32() != 0 {
			return s.Push(v1)
		}
		return s.Push(v2)

	case wasm.OpLocalGet:
		idx := instr.Imm.(wasm.LocalImm).LocalIdx
		if int(idx) >= len(frame.Locals) {
			return errors.InvalidState("local index %d out of range", idx)
		}
		return s.Push(frame.Locals[idx])

	case wasm.OpLocalSet:
		idx := instr.Imm.(wasm.LocalImm).LocalIdx
		if int(idx) >= len(frame.Locals) {
			return errors.InvalidState("local index %d out of range", idx)
		}
		v, err := s.Pop()
		if err != nil {
			return err
		}
		frame.Locals[idx] = v
		return nil

	case wasm.OpLocalTee:
		idx := instr.Imm.(wasm.LocalImm).LocalIdx
		if int(idx) >= len(frame.Locals) {
			return errors.InvalidState("local index %d out of range", idx)
		}
		v, err := s.Peek()
		if err != nil {
			return err
		}
		frame.Locals[idx] = v
		return nil

	case wasm.OpGlobalGet:
		v, err := e.globalGet(instr.Imm.(wasm.GlobalImm).GlobalIdx)
		if err != nil {
			return err
		}
		return s.Push(v)

	case wasm.OpGlobalSet:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		return e.globalSet(instr.Imm.(wasm.GlobalImm).GlobalIdx, v)

	case wasm.OpMemorySize:
		if e.mem == nil {
			return errors.Protection("module declares no memory")
		}
		return s.Push(stack.I32(int32(e.mem.Pages())))

	case wasm.OpMemoryGrow:
		if e.mem == nil {
			return errors.Protection("module declares no memory")
		}
		delta, err := s.Pop()
		if err != nil {
			return err
		}
		prev, growErr := e.journaledGrow(delta.AsU32())
		if growErr != nil {
			// Guest-visible grow failure is the -1 sentinel, not a trap.
			return s.Push(stack.I32(-1))
		}
		return s.Push(stack.I32(int32(prev)))

	case wasm.OpI32Const:
		return s.Push(stack.I32(instr.Imm.(wasm.I32Imm).Value))
	case wasm.OpI64Const:
		return s.Push(stack.I64(instr.Imm.(wasm.I64Imm).Value))
	case wasm.OpF32Const:
		return s.Push(stack.F32(instr.Imm.(wasm.F32Imm).Value))
	case wasm.OpF64Const:
		return s.Push(stack.F64(instr.Imm.(wasm.F64Imm).Value))

	default:
		if instr.Opcode >= wasm.OpI32Load && instr.Opcode <= wasm.OpI64Store32 {
			return e.execMemoryAccess(instr)
		}
		return e.execNumeric(instr.Opcode)
	}
}

// branch unwinds to the label at relDepth and redirects the pc. Loop
// and function labels survive the branch; block and if labels are left
// behind along with the code after the branch point.
func (e *Engine) branch(frame *stack.Frame, relDepth uint32) error {
	target, err := e.stack.Branch(int(relDepth))
	if err != nil {
		return err
	}
	switch target.Kind {
	case stack.LabelLoop, stack.LabelFunc:
		frame.PC = target.Continuation
	default:
		if _, err := e.stack.ExitBlock(); err != nil {
			return err
		}
		frame.PC = target.Continuation
	}
	return nil
}

// doReturn pops the top frame, moves its results down to the caller's
// operand region, and discards everything else the call accumulated.
func (e *Engine) doReturn() error {
	frame, err := e.stack.PopFrame()
	if err != nil {
		return err
	}
	results, err := e.stack.PopN(frame.Results)
	if err != nil {
		return err
	}
	e.stack.Truncate(frame.OperandBase)
	e.stack.TruncateLabels(frame.LabelBase)
	for _, r := range results {
		if err := e.stack.Push(r); err != nil {
			return err
		}
	}
	return nil
}

// callIndirect resolves a function through the funcref table, checks
// the declared signature against the actual one, and calls it.
func (e *Engine) callIndirect(imm wasm.CallIndirectImm) error {
	idx, err := e.stack.Pop()
	if err != nil {
		return err
	}
	i := idx.AsU32()
	if int(i) >= len(e.table) {
		return errors.Trap(errors.TrapNullTableEntry)
	}
	entry := e.table[i]
	if entry == nullFuncref {
		return errors.Trap(errors.TrapNullTableEntry)
	}

	funcIdx := uint32(entry)
	actual := e.module.FuncTypeOf(funcIdx)
	if actual == nil {
		return errors.Trap(errors.TrapCorruptState)
	}
	if int(imm.TypeIdx) >= len(e.module.Types) {
		return errors.Trap(errors.TrapCorruptState)
	}
	expected := &e.module.Types[imm.TypeIdx]
	if !expected.Equal(*actual) {
		return errors.TypeMismatch(expected.String(), actual.String())
	}
	return e.call(funcIdx)
}

// execMemoryAccess handles the dense load/store opcode range. Effective
// addresses are computed in 64 bits so base+offset cannot wrap.
func (e *Engine) execMemoryAccess(instr wasm.Instruction) error {
	if e.mem == nil {
		return errors.Protection("module declares no memory")
	}
	imm := instr.Imm.(wasm.MemoryImm)

	if instr.Opcode <= wasm.OpI64Load32U {
		base, err := e.stack.Pop()
		if err != nil {
			return err
		}
		return e.execLoad(instr.Opcode, base.AsU32(), imm.Offset)
	}

	val, err := e.stack.Pop()
	if err != nil {
		return err
	}
	base, err := e.stack.Pop()
	if err != nil {
		return err
	}
	return e.execStore(instr.Opcode, base.AsU32(), imm.Offset, val)
}

// effectiveAddr folds base+offset, rejecting address-space wraparound
// with the caller's full coordinates.
func effectiveAddr(base, offset, size uint32) (uint32, error) {
	eff := uint64(base) + uint64(offset)
	if eff+uint64(size) > uint64(^uint32(0))+1 {
		return 0, errors.OutOfBounds(eff, uint64(size))
	}
	return uint32(eff), nil
}

func (e *Engine) execLoad(op byte, base, offset uint32) error {
	size := loadSize(op)
	addr, err := effectiveAddr(base, offset, size)
	if err != nil {
		return err
	}
	b, err := e.mem.ReadBytes(addr, size)
	if err != nil {
		return err
	}

	var v stack.Value
	switch op {
	case wasm.OpI32Load:
		v = stack.I32(int32(binary.LittleEndian.Uint32(b)))
	case wasm.OpI64Load:
		v = stack.I64(int64(binary.LittleEndian.Uint64(b)))
	case wasm.OpF32Load:
		v = stack.Value{Bits: uint64(binary.LittleEndian.Uint32(b)), Kind: stack.KindF32}
	case wasm.OpF64Load:
		v = stack.Value{Bits: binary.LittleEndian.Uint64(b), Kind: stack.KindF64}
	case wasm.OpI32Load8S:
		v = stack.I32(int32(int8(b[0])))
	case wasm.OpI32Load8U:
		v = stack.I32(int32(uint32(b[0])))
	case wasm.OpI32Load16S:
		v = stack.I32(int32(int16(binary.LittleEndian.Uint16(b))))
	case wasm.OpI32Load16U:
		v = stack.I32(int32(uint32(binary.LittleEndian.Uint16(b))))
	case wasm.OpI64Load8S:
		v = stack.I64(int64(int8(b[0])))
	case wasm.OpI64Load8U:
		v = stack.I64(int64(uint64(b[0])))
	case wasm.OpI64Load16S:
		v = stack.I64(int64(int16(binary.LittleEndian.Uint16(b))))
	case wasm.OpI64Load16U:
		v = stack.I64(int64(uint64(binary.LittleEndian.Uint16(b))))
	case wasm.OpI64Load32S:
		v = stack.I64(int64(int32(binary.LittleEndian.Uint32(b))))
	case wasm.OpI64Load32U:
		v = stack.I64(int64(uint64(binary.LittleEndian.Uint32(b))))
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.stack.Push(v)
}

func (e *Engine) execStore(op byte, base, offset uint32, val stack.Value) error {
	size := storeSize(op)
	addr, err := effectiveAddr(base, offset, size)
	if err != nil {
		return err
	}

	buf := make([]byte, size)
	switch op {
	case wasm.OpI32Store:
		binary.LittleEndian.PutUint32(buf, val.AsU32())
	case wasm.OpI64Store:
		binary.LittleEndian.PutUint64(buf, val.AsU64())
	case wasm.OpF32Store:
		binary.LittleEndian.PutUint32(buf, uint32(val.Bits))
	case wasm.OpF64Store:
		binary.LittleEndian.PutUint64(buf, val.Bits)
	case wasm.OpI32Store8, wasm.OpI64Store8:
		buf[0] = byte(val.Bits)
	case wasm.OpI32Store16, wasm.OpI64Store16:
		binary.LittleEndian.PutUint16(buf, uint16(val.Bits))
	case wasm.OpI64Store32:
		binary.LittleEndian.PutUint32(buf, uint32(val.Bits))
	default:
		return errors.Trap(errors.TrapUnsupportedOpcode)
	}
	return e.journaledWrite(addr, buf)
}

func loadSize(op byte) uint32 {
	switch op {
	case wasm.OpI32Load, wasm.OpF32Load:
		return 4
	case wasm.OpI64Load, wasm.OpF64Load:
		return 8
	case wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI64Load8S, wasm.OpI64Load8U:
		return 1
	case wasm.OpI32Load16S, wasm.OpI32Load16U, wasm.OpI64Load16S, wasm.OpI64Load16U:
		return 2
	default: // i64.load32_*
		return 4
	}
}

func storeSize(op byte) uint32 {
	switch op {
	case wasm.OpI32Store, wasm.OpF32Store, wasm.OpI64Store32:
		return 4
	case wasm.OpI64Store, wasm.OpF64Store:
		return 8
	case wasm.OpI32Store8, wasm.OpI64Store8:
		return 1
	default: // *.store16
		return 2
	}
}
