package engine

import (
	"github.com/wippyai/wasm-engine/checkpoint"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
)

// Capture snapshots a suspended execution. The engine stays Suspended;
// the snapshot holds deep copies, so resuming this engine does not
// mutate it.
func (e *Engine) Capture() (*checkpoint.Checkpoint, error) {
	if e.state != StateSuspended {
		return nil, errors.InvalidState("capture in state %s", e.state)
	}

	frames := make([]stack.Frame, len(e.stack.Frames()))
	for i, f := range e.stack.Frames() {
		f.Locals = append([]stack.Value(nil), f.Locals...)
		frames[i] = f
	}

	cp := &checkpoint.Checkpoint{
		Operands: append([]stack.Value(nil), e.stack.Operands()...),
		Frames:   frames,
		Labels:   append([]stack.Label(nil), e.stack.Labels()...),
		Globals:  append([]stack.Value(nil), e.globals...),
		Fuel:     e.fuel.Load(),
	}
	if f, ok := e.stack.Frame(); ok {
		cp.PC = f.PC
		if meta := e.metaOf(f.Func); meta != nil {
			cp.Function = meta.name
		}
	}
	return cp, nil
}

// RestoreCheckpoint loads a snapshot into an Idle engine instantiated
// over the same module, leaving it Suspended so Resume continues where
// the captured execution stopped.
func (e *Engine) RestoreCheckpoint(cp *checkpoint.Checkpoint) error {
	if e.state != StateIdle {
		return errors.InvalidState("restore checkpoint in state %s", e.state)
	}
	if len(cp.Globals) != len(e.globals) {
		return errors.InvalidState("checkpoint has %d globals, module has %d", len(cp.Globals), len(e.globals))
	}
	numImported := uint32(len(e.imports))
	for _, f := range cp.Frames {
		if f.Func < numImported || int(f.Func-numImported) >= len(e.funcs) {
			return errors.InvalidState("checkpoint frame references function %d", f.Func)
		}
	}

	if err := e.stack.Restore(cp.Operands, cp.Frames, cp.Labels); err != nil {
		return err
	}
	copy(e.globals, cp.Globals)
	e.fuel.Store(cp.Fuel)

	// The suspended call's root frame carries its result count.
	if len(cp.Frames) > 0 {
		e.rootResults = cp.Frames[0].Results
	}

	var pages uint32
	if e.mem != nil {
		pages = e.mem.Pages()
	}
	e.journal.open(pages)
	e.state = StateSuspended
	return nil
}

func (e *Engine) metaOf(funcIdx uint32) *funcMeta {
	numImported := uint32(len(e.imports))
	if funcIdx < numImported || int(funcIdx-numImported) >= len(e.funcs) {
		return nil
	}
	return &e.funcs[funcIdx-numImported]
}
