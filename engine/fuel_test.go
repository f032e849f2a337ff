package engine_test

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/wasm"
)

func spinModule() *wasm.Module {
	return newModule(testFunc{
		name: "spin",
		body: []wasm.Instruction{
			wasm.Loop(wasm.BlockTypeVoid),
			wasm.Br(0),
			wasm.End(),
			wasm.End(),
		},
	})
}

func TestFuelBudgetRespected(t *testing.T) {
	m := newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	})
	e := newEngine(t, m, nil, engine.Config{Fuel: 100})

	if _, err := e.Execute("answer"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// Two instructions plus the implicit return path.
	if got := e.Fuel(); got < 95 || got >= 100 {
		t.Fatalf("unexpected fuel remaining: %d", got)
	}
}

func TestFuelExhaustionRecordsLocation(t *testing.T) {
	e := newEngine(t, spinModule(), nil, engine.Config{Fuel: 10})

	_, err := e.Execute("spin")
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Trap != errors.TrapFuelExhausted {
		t.Fatalf("expected fuel exhaustion, got %v", err)
	}
	if ee.Function != "spin" {
		t.Fatalf("expected the exhausting function, got %q", ee.Function)
	}
	if e.State() != engine.StateFailed {
		t.Fatalf("expected Failed, got %s", e.State())
	}
	if e.Fuel() != 0 {
		t.Fatalf("expected empty tank, got %d", e.Fuel())
	}
	if !stderrors.Is(e.Failure(), err) {
		t.Fatal("Failure should return the stored error")
	}

	if err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if e.State() != engine.StateIdle {
		t.Fatalf("expected Idle after reset, got %s", e.State())
	}
}

func TestFuelExhaustionMidSequence(t *testing.T) {
	// Ten constants, fuel for five: the failure lands inside the body,
	// not at the boundary.
	body := make([]wasm.Instruction, 0, 12)
	for i := 0; i < 10; i++ {
		body = append(body, wasm.I32Const(int32(i)), wasm.Op(wasm.OpDrop))
	}
	body = append(body, wasm.End())
	e := newEngine(t, newModule(testFunc{name: "seq", body: body}), nil, engine.Config{Fuel: 5})

	_, err := e.Execute("seq")
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Trap != errors.TrapFuelExhausted {
		t.Fatalf("expected fuel exhaustion, got %v", err)
	}
	if ee.PC != 5 {
		t.Fatalf("expected exhaustion at pc 5, got %d", ee.PC)
	}
}

func TestDepleteFromAnotherGoroutine(t *testing.T) {
	e := newEngine(t, spinModule(), nil, engine.Config{Fuel: 1 << 40})

	go func() {
		time.Sleep(10 * time.Millisecond)
		e.Deplete()
	}()

	_, err := e.Execute("spin")
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Trap != errors.TrapFuelExhausted {
		t.Fatalf("expected fuel exhaustion, got %v", err)
	}
}

func TestSetFuelRefills(t *testing.T) {
	e := newEngine(t, spinModule(), nil, engine.Config{Fuel: 10})

	if _, err := e.Execute("spin"); err == nil {
		t.Fatal("expected exhaustion")
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	e.SetFuel(25)
	if e.Fuel() != 25 {
		t.Fatalf("expected 25 fuel, got %d", e.Fuel())
	}
}

func TestRequestYieldSuspendsAndResumes(t *testing.T) {
	m := newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	})
	e := newEngine(t, m, nil, engine.Config{})

	e.RequestYield()
	_, err := e.Execute("answer")
	if !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("expected ErrSuspended, got %v", err)
	}
	if e.State() != engine.StateSuspended {
		t.Fatalf("expected Suspended, got %s", e.State())
	}

	v, err := e.Resume()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v.AsI32() != 42 {
		t.Fatalf("expected 42, got %s", v)
	}
	if e.State() != engine.StateCompleted {
		t.Fatalf("expected Completed, got %s", e.State())
	}
	res, err := e.Result()
	if err != nil || res != v {
		t.Fatalf("Result should return the completed value, got %s, %v", res, err)
	}
}

func TestYieldDoesNotConsumeFuel(t *testing.T) {
	m := newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	})
	e := newEngine(t, m, nil, engine.Config{Fuel: 100})

	e.RequestYield()
	if _, err := e.Execute("answer"); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("expected suspension, got %v", err)
	}
	if e.Fuel() != 100 {
		t.Fatalf("suspension should precede the fuel charge, got %d", e.Fuel())
	}
	if _, err := e.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
}

func TestStackDepthAccessorsDuringSuspension(t *testing.T) {
	m := newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	})
	e := newEngine(t, m, nil, engine.Config{})

	e.RequestYield()
	if _, err := e.Execute("answer"); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatal("expected suspension")
	}
	if e.Stack().FrameDepth() != 1 {
		t.Fatalf("expected one live frame, got %d", e.Stack().FrameDepth())
	}
	if _, err := e.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if e.Stack().FrameDepth() != 0 {
		t.Fatalf("expected empty call stack, got %d", e.Stack().FrameDepth())
	}
}

func TestStepRunsOneInstructionAtATime(t *testing.T) {
	m := newModule(testFunc{
		name:    "three",
		results: i32s(),
		body: []wasm.Instruction{
			wasm.I32Const(1), wasm.I32Const(2), wasm.Op(wasm.OpI32Add), wasm.End(),
		},
	})
	e := newEngine(t, m, nil, engine.Config{Fuel: 100})

	e.RequestYield()
	if _, err := e.Execute("three"); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("expected suspension, got %v", err)
	}

	wantDepths := []int{1, 2, 1}
	for i, want := range wantDepths {
		if _, err := e.Step(); !stderrors.Is(err, engine.ErrSuspended) {
			t.Fatalf("step %d: expected suspension, got %v", i, err)
		}
		if got := e.Stack().Depth(); got != want {
			t.Fatalf("step %d: expected operand depth %d, got %d", i, want, got)
		}
	}

	// The final End pops the frame; one more step sees the empty call
	// stack and completes.
	if _, err := e.Step(); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("return step: expected suspension, got %v", err)
	}
	v, err := e.Step()
	if err != nil {
		t.Fatalf("completing step: %v", err)
	}
	if v.AsI32() != 3 {
		t.Fatalf("expected 3, got %s", v)
	}
	if e.State() != engine.StateCompleted {
		t.Fatalf("expected Completed, got %s", e.State())
	}
	if got := e.Fuel(); got != 96 {
		t.Fatalf("expected four instructions charged, got fuel %d", got)
	}
}

func TestStepRequiresSuspension(t *testing.T) {
	m := newModule(testFunc{
		name:    "answer",
		results: i32s(),
		body:    []wasm.Instruction{wasm.I32Const(42), wasm.End()},
	})
	e := newEngine(t, m, nil, engine.Config{})

	if _, err := e.Step(); err == nil {
		t.Fatal("step from Idle should fail")
	}
}
