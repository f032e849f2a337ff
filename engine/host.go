package engine

import (
	stderrors "errors"

	"github.com/wippyai/wasm-engine/memory"
	"github.com/wippyai/wasm-engine/resource"
	"github.com/wippyai/wasm-engine/stack"
)

// ErrYield is returned by a host function to suspend the engine instead
// of producing results. The call instruction is not consumed: when the
// suspended execution resumes, the host function is invoked again.
var ErrYield = stderrors.New("engine: host function yielded")

// HostFunc is a synchronous import binding. Mutations of guest state
// must go through env so they land in the call journal.
type HostFunc func(env *Env, args []stack.Value) ([]stack.Value, error)

// HostTable resolves imports at instantiation. It is an explicit
// context object; nothing global.
type HostTable struct {
	funcs map[string]HostFunc
}

// NewHostTable creates an empty import table.
func NewHostTable() *HostTable {
	return &HostTable{funcs: make(map[string]HostFunc)}
}

// Bind registers fn for the import module.name. Binding the same import
// twice replaces the earlier function.
func (t *HostTable) Bind(module, name string, fn HostFunc) {
	t.funcs[importKey(module, name)] = fn
}

// Lookup returns the binding for module.name.
func (t *HostTable) Lookup(module, name string) (HostFunc, bool) {
	fn, ok := t.funcs[importKey(module, name)]
	return fn, ok
}

// Len returns the number of bound imports.
func (t *HostTable) Len() int { return len(t.funcs) }

func importKey(module, name string) string {
	return module + "." + name
}

// PendingCall describes an import the engine reached without a binding.
// The engine sits in the HostCall state until the host answers with
// CompleteHostCall or FailHostCall.
type PendingCall struct {
	Module  string
	Name    string
	Args    []stack.Value
	Results []stack.Value // expected result shapes, kinds prefilled
}

// Env is the view of engine state handed to host functions. Writes are
// journaled like guest instructions, so a failed call undoes host
// effects too.
type Env struct {
	e *Engine
}

// ReadMemory reads length bytes at offset from guest memory.
func (env *Env) ReadMemory(offset, length uint32) ([]byte, error) {
	return env.e.mem.ReadBytes(offset, length)
}

// WriteMemory writes data into guest memory at offset, journaled.
func (env *Env) WriteMemory(offset uint32, data []byte) error {
	return env.e.journaledWrite(offset, data)
}

// Memory exposes the provider for read-heavy hosts. Direct writes
// through it bypass the journal; prefer WriteMemory.
func (env *Env) Memory() memory.Provider {
	return env.e.mem
}

// Resources returns the instance's resource table. Create and Remove
// through it are journaled automatically.
func (env *Env) Resources() *resource.Table {
	return env.e.resources
}

// Global reads a global by index.
func (env *Env) Global(idx uint32) (stack.Value, error) {
	return env.e.globalGet(idx)
}

// SetGlobal writes a global by index, journaled.
func (env *Env) SetGlobal(idx uint32, v stack.Value) error {
	return env.e.globalSet(idx, v)
}
