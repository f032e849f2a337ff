package engine

import (
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/memory"
	"github.com/wippyai/wasm-engine/platform"
	"github.com/wippyai/wasm-engine/resource"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

// nullFuncref marks an uninitialized funcref table slot.
const nullFuncref = int64(-1)

// Engine executes one instantiated module. It is single-goroutine state
// except for the fuel counter and yield flag, which may be touched from
// anywhere.
type Engine struct {
	module    *wasm.Module
	funcs     []funcMeta
	imports   []importMeta
	mem       memory.Provider
	resources *resource.Table
	stack     *stack.Stack
	globals   []stack.Value
	table     []int64 // funcref entries, nullFuncref when empty

	state       State
	result      stack.Value
	failure     error
	pending     *PendingCall
	rootResults int
	journal     journal

	fuel  atomic.Int64
	yield atomic.Bool

	// stepping makes the dispatch loop suspend again after one
	// instruction. Only the executing goroutine touches it.
	stepping bool

	cfg Config
	log *zap.Logger
}

// New instantiates module against the given import bindings. The module
// is checked structurally, globals and tables are initialized from
// their segments, and control side tables are precomputed.
func New(module *wasm.Module, hosts *HostTable, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := module.Check(); err != nil {
		return nil, err
	}

	funcs, err := prepare(module)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		module: module,
		funcs:  funcs,
		state:  StateIdle,
		cfg:    cfg,
		log:    Logger(),
	}

	if err := e.resolveImports(hosts); err != nil {
		return nil, err
	}
	if err := e.buildMemory(); err != nil {
		return nil, err
	}
	if err := e.buildResources(); err != nil {
		return nil, err
	}
	e.buildStack()
	if err := e.buildGlobals(); err != nil {
		return nil, err
	}
	if err := e.buildTable(); err != nil {
		return nil, err
	}
	if err := e.copyData(); err != nil {
		return nil, err
	}

	e.fuel.Store(cfg.Fuel)
	return e, nil
}

func (e *Engine) resolveImports(hosts *HostTable) error {
	for _, imp := range e.module.Imports {
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			meta := importMeta{
				module:  imp.Module,
				name:    imp.Name,
				typeIdx: imp.Desc.TypeIdx,
			}
			if hosts != nil {
				if fn, ok := hosts.Lookup(imp.Module, imp.Name); ok {
					meta.fn = fn
				}
			}
			e.imports = append(e.imports, meta)
		default:
			return errors.Instantiation(
				fmt.Sprintf("unsupported import kind %d for %s.%s", imp.Desc.Kind, imp.Module, imp.Name), nil)
		}
	}
	return nil
}

func (e *Engine) buildMemory() error {
	if len(e.module.Memories) == 0 {
		return nil
	}
	limits := e.module.Memories[0].Limits
	initial := uint32(limits.Min)
	max := e.cfg.MaxPages
	if limits.Max != nil && uint32(*limits.Max) < max {
		max = uint32(*limits.Max)
	}

	var err error
	if e.cfg.Fixed {
		e.mem, err = memory.NewFixed(initial, max)
	} else {
		e.mem, err = memory.NewDynamic(platform.NewHeapAllocator(), initial, max)
	}
	return err
}

func (e *Engine) buildResources() error {
	var backend resource.Backend
	if e.cfg.Fixed {
		backend = resource.NewSlotBackend(e.cfg.ResourceLimit)
	} else {
		backend = resource.NewCounterBackend(e.cfg.ResourceLimit)
	}
	e.resources = resource.NewTable(backend)
	e.resources.Subscribe(&e.journal)
	return nil
}

func (e *Engine) buildStack() {
	if e.cfg.Fixed {
		e.stack = stack.NewFixed(e.cfg.Stack)
	} else {
		e.stack = stack.New(e.cfg.Stack)
	}
}

func (e *Engine) buildGlobals() error {
	e.globals = make([]stack.Value, len(e.module.Globals))
	for i, g := range e.module.Globals {
		v, err := e.evalConstExpr(g.Init)
		if err != nil {
			return errors.Instantiation(fmt.Sprintf("global %d initializer", i), err)
		}
		e.globals[i] = v
	}
	return nil
}

func (e *Engine) buildTable() error {
	if len(e.module.Tables) == 0 {
		return nil
	}
	size := e.module.Tables[0].Limits.Min
	e.table = make([]int64, size)
	for i := range e.table {
		e.table[i] = nullFuncref
	}

	for si, seg := range e.module.Elements {
		off, err := e.evalConstExpr(seg.Offset)
		if err != nil {
			return errors.Instantiation(fmt.Sprintf("element %d offset", si), err)
		}
		base := int(off.AsU32())
		if base+len(seg.FuncIdxs) > len(e.table) {
			return errors.Instantiation(fmt.Sprintf("element %d overruns table", si), nil)
		}
		for j, fi := range seg.FuncIdxs {
			e.table[base+j] = int64(fi)
		}
	}
	return nil
}

func (e *Engine) copyData() error {
	for si, seg := range e.module.Data {
		off, err := e.evalConstExpr(seg.Offset)
		if err != nil {
			return errors.Instantiation(fmt.Sprintf("data %d offset", si), err)
		}
		if e.mem == nil {
			return errors.Instantiation(fmt.Sprintf("data %d targets absent memory", si), nil)
		}
		if err := e.mem.WriteBytes(off.AsU32(), seg.Init); err != nil {
			return errors.Instantiation(fmt.Sprintf("data %d out of range", si), err)
		}
	}
	return nil
}

// evalConstExpr evaluates a constant initializer: a single const
// instruction followed by End.
func (e *Engine) evalConstExpr(expr []wasm.Instruction) (stack.Value, error) {
	if len(expr) != 2 || expr[1].Opcode != wasm.OpEnd {
		return stack.Value{}, errors.Validation("constant expression must be a single const")
	}
	switch imm := expr[0].Imm.(type) {
	case wasm.I32Imm:
		return stack.I32(imm.Value), nil
	case wasm.I64Imm:
		return stack.I64(imm.Value), nil
	case wasm.F32Imm:
		return stack.F32(imm.Value), nil
	case wasm.F64Imm:
		return stack.F64(imm.Value), nil
	default:
		return stack.Value{}, errors.Validation("unsupported constant expression opcode")
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Memory returns the instance's linear memory, or nil when the module
// declares none.
func (e *Engine) Memory() memory.Provider { return e.mem }

// Resources returns the instance's resource table.
func (e *Engine) Resources() *resource.Table { return e.resources }

// Stack exposes the execution stack for inspection. Mutating it outside
// the engine corrupts execution.
func (e *Engine) Stack() *stack.Stack { return e.stack }

// Fuel returns the remaining instruction budget.
func (e *Engine) Fuel() int64 { return e.fuel.Load() }

// SetFuel replaces the instruction budget. Safe from any goroutine.
func (e *Engine) SetFuel(n int64) { e.fuel.Store(n) }

// Deplete drains the fuel budget, interrupting a running call at its
// next instruction boundary. Safe from any goroutine.
func (e *Engine) Deplete() { e.fuel.Store(0) }

// RequestYield asks a running call to suspend at its next instruction
// boundary. Safe from any goroutine.
func (e *Engine) RequestYield() { e.yield.Store(true) }

// Result returns the value of the last completed call.
func (e *Engine) Result() (stack.Value, error) {
	if e.state != StateCompleted {
		return stack.Value{}, errors.InvalidState("no result in state %s", e.state)
	}
	return e.result, nil
}

// Failure returns the error of the last failed call.
func (e *Engine) Failure() error {
	if e.state != StateFailed {
		return nil
	}
	return e.failure
}

// Pending returns the pending host call while in the HostCall state.
func (e *Engine) Pending() *PendingCall {
	if e.state != StateHostCall {
		return nil
	}
	return e.pending
}

func (e *Engine) transition(to State) error {
	if !canTransition(e.state, to) {
		return errors.InvalidState("cannot move from %s to %s", e.state, to)
	}
	e.state = to
	return nil
}

// Execute runs the exported function name to completion, or to the
// first host-call or suspension point. It is legal from Idle and from
// Completed; a Failed engine must be Reset first.
func (e *Engine) Execute(name string, args ...stack.Value) (stack.Value, error) {
	if e.state != StateIdle && e.state != StateCompleted {
		return stack.Value{}, errors.InvalidState("execute in state %s", e.state)
	}

	funcIdx, ok := e.module.ExportedFunc(name)
	if !ok {
		return stack.Value{}, errors.FunctionNotFound(name)
	}
	ft := e.module.FuncTypeOf(funcIdx)
	if len(args) != len(ft.Params) {
		return stack.Value{}, errors.TypeMismatch(
			fmt.Sprintf("%d arguments", len(ft.Params)),
			fmt.Sprintf("%d arguments", len(args)))
	}
	for i, p := range ft.Params {
		if !kindMatches(args[i].Kind, p) {
			return stack.Value{}, errors.TypeMismatch(p.String(), args[i].Kind.String())
		}
	}
	if len(ft.Results) > 1 {
		return stack.Value{}, errors.Validation("multi-value results are not supported at the boundary")
	}
	e.rootResults = len(ft.Results)

	if err := e.transition(StateExecuting); err != nil {
		return stack.Value{}, err
	}
	e.stack.Reset()
	var pages uint32
	if e.mem != nil {
		pages = e.mem.Pages()
	}
	e.journal.open(pages)

	for _, a := range args {
		if err := e.stack.Push(a); err != nil {
			return stack.Value{}, e.fail(err)
		}
	}
	if err := e.call(funcIdx); err != nil {
		// An exported name may resolve to an unbound import directly.
		if stderrors.Is(err, errPending) {
			e.state = StateHostCall
			return stack.Value{}, ErrHostCallPending
		}
		return stack.Value{}, e.fail(err)
	}
	return e.run()
}

// Resume continues a suspended execution.
func (e *Engine) Resume() (stack.Value, error) {
	if e.state != StateSuspended {
		return stack.Value{}, errors.InvalidState("resume in state %s", e.state)
	}
	e.state = StateExecuting
	return e.run()
}

// Step executes exactly one instruction of a suspended execution, then
// suspends again with ErrSuspended unless the call finished or failed.
func (e *Engine) Step() (stack.Value, error) {
	if e.state != StateSuspended {
		return stack.Value{}, errors.InvalidState("step in state %s", e.state)
	}
	e.stepping = true
	return e.Resume()
}

// CompleteHostCall supplies the results of the pending import call and
// continues execution.
func (e *Engine) CompleteHostCall(results ...stack.Value) (stack.Value, error) {
	if e.state != StateHostCall {
		return stack.Value{}, errors.InvalidState("complete host call in state %s", e.state)
	}
	want := e.pending.Results
	if len(results) != len(want) {
		return stack.Value{}, errors.TypeMismatch(
			fmt.Sprintf("%d results", len(want)),
			fmt.Sprintf("%d results", len(results)))
	}
	for i := range results {
		if results[i].Kind != want[i].Kind {
			return stack.Value{}, errors.TypeMismatch(want[i].Kind.String(), results[i].Kind.String())
		}
	}

	e.pending = nil
	e.state = StateExecuting
	for _, r := range results {
		if err := e.stack.Push(r); err != nil {
			return stack.Value{}, e.fail(err)
		}
	}
	return e.run()
}

// FailHostCall fails the pending import call. The call journal is
// rolled back as for any other failure.
func (e *Engine) FailHostCall(cause error) error {
	if e.state != StateHostCall {
		return errors.InvalidState("fail host call in state %s", e.state)
	}
	e.pending = nil
	e.state = StateExecuting
	e.fail(errors.Wrap(errors.CategoryRuntime, errors.KindExecutionTrap, cause, "host call failed"))
	return nil
}

// Reset returns the engine to Idle, clearing the execution stack, any
// pending call, and the last result or failure. It is idempotent from
// Idle and legal from Completed and Failed.
func (e *Engine) Reset() error {
	switch e.state {
	case StateIdle, StateCompleted, StateFailed:
	default:
		return errors.InvalidState("reset in state %s", e.state)
	}
	e.state = StateIdle
	e.stack.Reset()
	e.pending = nil
	e.result = stack.Value{}
	e.failure = nil
	e.yield.Store(false)
	e.stepping = false
	e.journal.close()
	return nil
}

// fail moves to Failed, rolls back the call journal, and returns the
// stored error.
func (e *Engine) fail(err error) error {
	e.journal.rollback(e.mem, e.resources, e.globals)
	e.state = StateFailed
	e.failure = err
	e.stepping = false
	e.log.Debug("call failed", zap.Error(err))
	return err
}

// complete commits the journal and stores the result.
func (e *Engine) complete(v stack.Value) (stack.Value, error) {
	e.journal.close()
	e.state = StateCompleted
	e.result = v
	e.stepping = false
	return v, nil
}

func kindMatches(k stack.ValueKind, vt wasm.ValType) bool {
	switch vt {
	case wasm.ValI32:
		return k == stack.KindI32
	case wasm.ValI64:
		return k == stack.KindI64
	case wasm.ValF32:
		return k == stack.KindF32
	case wasm.ValF64:
		return k == stack.KindF64
	default:
		return false
	}
}

// globalGet reads a global by index.
func (e *Engine) globalGet(idx uint32) (stack.Value, error) {
	if int(idx) >= len(e.globals) {
		return stack.Value{}, errors.InvalidState("global index %d out of range", idx)
	}
	return e.globals[idx], nil
}

// globalSet writes a global by index, journaled.
func (e *Engine) globalSet(idx uint32, v stack.Value) error {
	if int(idx) >= len(e.globals) {
		return errors.InvalidState("global index %d out of range", idx)
	}
	e.journal.recordGlobal(idx, e.globals[idx])
	e.globals[idx] = v
	return nil
}

// journaledWrite records prior bytes then writes. The read and the
// write share one bounds check; a failed read means the write would
// fail identically, with the same error context.
func (e *Engine) journaledWrite(offset uint32, data []byte) error {
	if e.mem == nil {
		return errors.Protection("module declares no memory")
	}
	prior, err := e.mem.ReadBytes(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	if err := e.mem.WriteBytes(offset, data); err != nil {
		return err
	}
	e.journal.recordWrite(offset, prior)
	return nil
}

// journaledGrow grows memory and records the growth for rollback.
func (e *Engine) journaledGrow(delta uint32) (uint32, error) {
	prev, err := e.mem.Grow(delta)
	if err != nil {
		return 0, err
	}
	if delta > 0 {
		e.journal.recordGrow()
	}
	return prev, nil
}
