package engine_test

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

// importingModule declares one import env.helper (i32) -> i32 and an
// exported run(x) = helper(x) + 1.
func importingModule() *wasm.Module {
	m := &wasm.Module{}
	ti := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}})
	m.Imports = []wasm.Import{{
		Module: "env",
		Name:   "helper",
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: ti},
	}}
	m.Funcs = append(m.Funcs, ti)
	m.Code = append(m.Code, wasm.FuncBody{Body: []wasm.Instruction{
		wasm.LocalGet(0),
		wasm.Call(0),
		wasm.I32Const(1), wasm.Op(wasm.OpI32Add),
		wasm.End(),
	}})
	m.Exports = []wasm.Export{{Name: "run", Kind: wasm.KindFunc, Idx: 1}}
	m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}}
	return m
}

func TestBoundHostCallSynchronous(t *testing.T) {
	hosts := engine.NewHostTable()
	hosts.Bind("env", "helper", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		return []stack.Value{stack.I32(args[0].AsI32() * 2)}, nil
	})
	e := newEngine(t, importingModule(), hosts, engine.Config{})

	v, err := e.Execute("run", stack.I32(20))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if v.AsI32() != 41 {
		t.Fatalf("expected 41, got %s", v)
	}
	if e.State() != engine.StateCompleted {
		t.Fatalf("expected Completed, got %s", e.State())
	}
}

func TestUnboundImportSurfacesPendingCall(t *testing.T) {
	e := newEngine(t, importingModule(), nil, engine.Config{})

	_, err := e.Execute("run", stack.I32(5))
	if !stderrors.Is(err, engine.ErrHostCallPending) {
		t.Fatalf("expected ErrHostCallPending, got %v", err)
	}
	if e.State() != engine.StateHostCall {
		t.Fatalf("expected HostCall, got %s", e.State())
	}

	p := e.Pending()
	if p == nil {
		t.Fatal("expected a pending call record")
	}
	if p.Module != "env" || p.Name != "helper" {
		t.Fatalf("wrong pending target: %s.%s", p.Module, p.Name)
	}
	if len(p.Args) != 1 || p.Args[0].AsI32() != 5 {
		t.Fatalf("wrong pending args: %v", p.Args)
	}
	if len(p.Results) != 1 || p.Results[0].Kind != stack.KindI32 {
		t.Fatalf("wrong result shape: %v", p.Results)
	}

	v, err := e.CompleteHostCall(stack.I32(100))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if v.AsI32() != 101 {
		t.Fatalf("expected 101, got %s", v)
	}
}

func TestCompleteHostCallValidatesShape(t *testing.T) {
	e := newEngine(t, importingModule(), nil, engine.Config{})

	if _, err := e.Execute("run", stack.I32(5)); !stderrors.Is(err, engine.ErrHostCallPending) {
		t.Fatalf("expected pending call, got %v", err)
	}

	var ee *errors.Error
	if _, err := e.CompleteHostCall(); !stderrors.As(err, &ee) || ee.Kind != errors.KindTypeMismatch {
		t.Fatalf("missing result should be TypeMismatch, got %v", err)
	}
	if _, err := e.CompleteHostCall(stack.I64(1)); !stderrors.As(err, &ee) || ee.Kind != errors.KindTypeMismatch {
		t.Fatalf("wrong kind should be TypeMismatch, got %v", err)
	}
	// Rejected completions leave the call pending.
	if e.State() != engine.StateHostCall {
		t.Fatalf("expected HostCall, got %s", e.State())
	}

	if _, err := e.CompleteHostCall(stack.I32(1)); err != nil {
		t.Fatalf("valid completion: %v", err)
	}
}

func TestFailHostCall(t *testing.T) {
	e := newEngine(t, importingModule(), nil, engine.Config{})

	if _, err := e.Execute("run", stack.I32(5)); !stderrors.Is(err, engine.ErrHostCallPending) {
		t.Fatalf("expected pending call, got %v", err)
	}

	cause := stderrors.New("database offline")
	if err := e.FailHostCall(cause); err != nil {
		t.Fatalf("fail host call: %v", err)
	}
	if e.State() != engine.StateFailed {
		t.Fatalf("expected Failed, got %s", e.State())
	}
	if !stderrors.Is(e.Failure(), cause) {
		t.Fatal("failure should wrap the host cause")
	}
	if e.Pending() != nil {
		t.Fatal("pending record should be cleared")
	}
}

func TestHostErrorFailsAndRollsBack(t *testing.T) {
	hosts := engine.NewHostTable()
	hosts.Bind("env", "helper", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		if err := env.WriteMemory(0, []byte{0xEE}); err != nil {
			return nil, err
		}
		return nil, stderrors.New("midway failure")
	})
	e := newEngine(t, importingModule(), hosts, engine.Config{})

	before, _ := e.Memory().ReadBytes(0, 1)

	if _, err := e.Execute("run", stack.I32(1)); err == nil {
		t.Fatal("expected failure")
	}
	if e.State() != engine.StateFailed {
		t.Fatalf("expected Failed, got %s", e.State())
	}

	after, _ := e.Memory().ReadBytes(0, 1)
	if after[0] != before[0] {
		t.Fatalf("journaled host write survived the failure: %x -> %x", before, after)
	}
}

func TestHostYieldReinvokesOnResume(t *testing.T) {
	calls := 0
	hosts := engine.NewHostTable()
	hosts.Bind("env", "helper", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		calls++
		if calls == 1 {
			return nil, engine.ErrYield
		}
		return []stack.Value{stack.I32(args[0].AsI32() + 7)}, nil
	})
	e := newEngine(t, importingModule(), hosts, engine.Config{})

	_, err := e.Execute("run", stack.I32(10))
	if !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("expected suspension, got %v", err)
	}
	if e.State() != engine.StateSuspended {
		t.Fatalf("expected Suspended, got %s", e.State())
	}

	v, err := e.Resume()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v.AsI32() != 18 {
		t.Fatalf("expected 18, got %s", v)
	}
	if calls != 2 {
		t.Fatalf("yielding host should be re-invoked, calls=%d", calls)
	}
}

func TestHostResultShapeChecked(t *testing.T) {
	hosts := engine.NewHostTable()
	hosts.Bind("env", "helper", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		return []stack.Value{stack.F64(1.5)}, nil
	})
	e := newEngine(t, importingModule(), hosts, engine.Config{})

	_, err := e.Execute("run", stack.I32(1))
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Kind != errors.KindTypeMismatch {
		t.Fatalf("host kind mismatch should be TypeMismatch, got %v", err)
	}
	if e.State() != engine.StateFailed {
		t.Fatalf("expected Failed, got %s", e.State())
	}
}

func TestHostResourceAllocationJournaled(t *testing.T) {
	const typeFile = uint32(3)
	hosts := engine.NewHostTable()
	step := 0
	hosts.Bind("env", "helper", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		step++
		if _, err := env.Resources().Allocate(typeFile, 1, "scratch"); err != nil {
			return nil, err
		}
		if step == 1 {
			return nil, stderrors.New("abort after allocate")
		}
		return []stack.Value{stack.I32(0)}, nil
	})
	e := newEngine(t, importingModule(), hosts, engine.Config{})

	if _, err := e.Execute("run", stack.I32(0)); err == nil {
		t.Fatal("expected failure")
	}
	if e.Resources().Len() != 0 {
		t.Fatalf("failed call should undo allocations, len=%d", e.Resources().Len())
	}

	if err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := e.Execute("run", stack.I32(0)); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if e.Resources().Len() != 1 {
		t.Fatalf("committed call should keep its allocation, len=%d", e.Resources().Len())
	}
}
