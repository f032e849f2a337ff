package runtime

import (
	"github.com/wippyai/wasm-engine/checkpoint"
	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/memory"
	"github.com/wippyai/wasm-engine/resource"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

// Instance is a live module. It mirrors the engine's surface and adds
// checkpoint persistence.
type Instance struct {
	engine *engine.Engine
	module *wasm.Module
}

// Execute runs an exported function. The sentinel returns
// engine.ErrSuspended and engine.ErrHostCallPending mean the call did
// not finish; inspect State and Pending.
func (i *Instance) Execute(name string, args ...stack.Value) (stack.Value, error) {
	return i.engine.Execute(name, args...)
}

// Resume continues a suspended execution.
func (i *Instance) Resume() (stack.Value, error) {
	return i.engine.Resume()
}

// Step executes one instruction of a suspended call, then suspends
// again unless the call finished.
func (i *Instance) Step() (stack.Value, error) {
	return i.engine.Step()
}

// Stack exposes the execution stack for inspection.
func (i *Instance) Stack() *stack.Stack { return i.engine.Stack() }

// CompleteHostCall answers a pending import call.
func (i *Instance) CompleteHostCall(results ...stack.Value) (stack.Value, error) {
	return i.engine.CompleteHostCall(results...)
}

// FailHostCall fails a pending import call.
func (i *Instance) FailHostCall(cause error) error {
	return i.engine.FailHostCall(cause)
}

// State returns the engine lifecycle state.
func (i *Instance) State() engine.State { return i.engine.State() }

// Pending returns the pending host call, if any.
func (i *Instance) Pending() *engine.PendingCall { return i.engine.Pending() }

// Memory returns the instance's linear memory, nil when absent.
func (i *Instance) Memory() memory.Provider { return i.engine.Memory() }

// Resources returns the instance's resource table.
func (i *Instance) Resources() *resource.Table { return i.engine.Resources() }

// Fuel returns the remaining instruction budget.
func (i *Instance) Fuel() int64 { return i.engine.Fuel() }

// SetFuel replaces the instruction budget. Safe from any goroutine.
func (i *Instance) SetFuel(n int64) { i.engine.SetFuel(n) }

// RequestYield asks a running call to suspend at its next instruction
// boundary. Safe from any goroutine.
func (i *Instance) RequestYield() { i.engine.RequestYield() }

// Reset returns the instance to Idle after completion or failure.
func (i *Instance) Reset() error { return i.engine.Reset() }

// Failure returns the error of the last failed call.
func (i *Instance) Failure() error { return i.engine.Failure() }

// Exports lists the module's exported function names.
func (i *Instance) Exports() []string {
	var names []string
	for _, exp := range i.module.Exports {
		if exp.Kind == wasm.KindFunc {
			names = append(names, exp.Name)
		}
	}
	return names
}

// Signature returns the type of an exported function.
func (i *Instance) Signature(name string) (*wasm.FuncType, bool) {
	idx, ok := i.module.ExportedFunc(name)
	if !ok {
		return nil, false
	}
	return i.module.FuncTypeOf(idx), true
}

// Suspend captures the suspended execution and persists it under id.
func (i *Instance) Suspend(store *checkpoint.Store, id string) error {
	cp, err := i.engine.Capture()
	if err != nil {
		return err
	}
	return store.Save(id, cp)
}

// RestoreFrom loads the checkpoint stored under id into this Idle
// instance; Resume then continues the captured execution.
func (i *Instance) RestoreFrom(store *checkpoint.Store, id string) error {
	cp, err := store.Load(id)
	if err != nil {
		return err
	}
	return i.engine.RestoreCheckpoint(cp)
}
