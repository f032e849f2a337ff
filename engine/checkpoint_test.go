package engine_test

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-engine/checkpoint"
	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

// pausingModule computes f(n) = sum(1..n) with a host pause call in the
// middle, so the suspension happens with live frames, locals, and
// labels.
func pausingModule() *wasm.Module {
	m := &wasm.Module{}
	tPause := m.AddType(wasm.FuncType{})
	tSum := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}})

	m.Imports = []wasm.Import{{
		Module: "env",
		Name:   "pause",
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: tPause},
	}}
	m.Funcs = append(m.Funcs, tSum)
	m.Code = append(m.Code, wasm.FuncBody{
		Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}},
		Body: []wasm.Instruction{
			wasm.Call(0),
			wasm.Loop(wasm.BlockTypeVoid),
			wasm.LocalGet(0), wasm.LocalGet(1), wasm.Op(wasm.OpI32Add), wasm.LocalSet(1),
			wasm.LocalGet(0), wasm.I32Const(1), wasm.Op(wasm.OpI32Sub), wasm.LocalTee(0),
			wasm.BrIf(0),
			wasm.End(),
			wasm.LocalGet(1),
			wasm.End(),
		},
	})
	m.Exports = []wasm.Export{{Name: "sum", Kind: wasm.KindFunc, Idx: 1}}
	return m
}

// pauseHosts binds env.pause to request a yield on the given engine
// pointer, resolved at call time.
func pauseHosts(target **engine.Engine) *engine.HostTable {
	hosts := engine.NewHostTable()
	hosts.Bind("env", "pause", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		(*target).RequestYield()
		return nil, nil
	})
	return hosts
}

func TestCheckpointRoundTripResumesIdentically(t *testing.T) {
	m := pausingModule()

	var e *engine.Engine
	e = newEngine(t, m, pauseHosts(&e), engine.Config{})

	_, err := e.Execute("sum", stack.I32(100))
	if !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("expected suspension, got %v", err)
	}

	cp, err := e.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if cp.Function != "sum" {
		t.Fatalf("expected suspension in sum, got %q", cp.Function)
	}

	data, err := checkpoint.Marshal(cp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := checkpoint.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var fresh *engine.Engine
	fresh = newEngine(t, m, pauseHosts(&fresh), engine.Config{})
	if err := fresh.RestoreCheckpoint(restored); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, err := fresh.Resume()
	if err != nil {
		t.Fatalf("resume restored: %v", err)
	}
	want, err := e.Resume()
	if err != nil {
		t.Fatalf("resume original: %v", err)
	}
	if got != want || got.AsI32() != 5050 {
		t.Fatalf("restored run diverged: got %s, want %s", got, want)
	}
}

func TestCaptureRequiresSuspended(t *testing.T) {
	m := newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	})
	e := newEngine(t, m, nil, engine.Config{})

	if _, err := e.Capture(); err == nil {
		t.Fatal("capture from Idle should fail")
	}
	if _, err := e.Execute("answer"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := e.Capture(); err == nil {
		t.Fatal("capture from Completed should fail")
	}
}

func TestRestoreRejectsMismatchedModule(t *testing.T) {
	var e *engine.Engine
	e = newEngine(t, pausingModule(), pauseHosts(&e), engine.Config{})
	if _, err := e.Execute("sum", stack.I32(3)); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatal("expected suspension")
	}
	cp, err := e.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	other := newEngine(t, newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	}), nil, engine.Config{})
	if err := other.RestoreCheckpoint(cp); err == nil {
		t.Fatal("restoring onto an unrelated module should fail")
	}
}

func TestCheckpointSurvivesStore(t *testing.T) {
	m := pausingModule()

	var e *engine.Engine
	e = newEngine(t, m, pauseHosts(&e), engine.Config{})
	if _, err := e.Execute("sum", stack.I32(10)); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatal("expected suspension")
	}
	cp, err := e.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	store, err := checkpoint.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Save("paused", cp); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load("paused")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var fresh *engine.Engine
	fresh = newEngine(t, m, pauseHosts(&fresh), engine.Config{})
	if err := fresh.RestoreCheckpoint(loaded); err != nil {
		t.Fatalf("restore: %v", err)
	}
	v, err := fresh.Resume()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v.AsI32() != 55 {
		t.Fatalf("expected 55, got %s", v)
	}
}
