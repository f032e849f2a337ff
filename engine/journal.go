package engine

import (
	"github.com/wippyai/wasm-engine/memory"
	"github.com/wippyai/wasm-engine/resource"
	"github.com/wippyai/wasm-engine/stack"
)

// journal records the reversible effects of one external call so a
// failure can restore engine-owned state exactly. Entries are undone in
// reverse order.
type journal struct {
	memWrites  []memWrite
	globals    []globalWrite
	resources  []resourceOp
	pagesPrior uint32
	grew       bool
	active     bool
}

type memWrite struct {
	prior  []byte
	offset uint32
}

type globalWrite struct {
	prior stack.Value
	idx   uint32
}

type resourceOp struct {
	entry   resource.Entry
	handle  resource.Handle
	removed bool
}

func (j *journal) open(pages uint32) {
	j.memWrites = j.memWrites[:0]
	j.globals = j.globals[:0]
	j.resources = j.resources[:0]
	j.pagesPrior = pages
	j.grew = false
	j.active = true
}

func (j *journal) close() {
	j.active = false
}

func (j *journal) recordWrite(offset uint32, prior []byte) {
	if !j.active {
		return
	}
	j.memWrites = append(j.memWrites, memWrite{offset: offset, prior: prior})
}

func (j *journal) recordGrow() {
	if !j.active {
		return
	}
	j.grew = true
}

func (j *journal) recordGlobal(idx uint32, prior stack.Value) {
	if !j.active {
		return
	}
	j.globals = append(j.globals, globalWrite{idx: idx, prior: prior})
}

// OnResourceEvent implements resource.Observer. Only creation and
// removal are reversible effects; ownership transfers inside a call are
// undone by the paired transfer the host performs, not by the journal.
func (j *journal) OnResourceEvent(ev resource.Event) {
	if !j.active {
		return
	}
	switch ev.Type {
	case resource.EventCreated:
		j.resources = append(j.resources, resourceOp{handle: ev.Handle})
	case resource.EventRemoved:
		j.resources = append(j.resources, resourceOp{
			handle:  ev.Handle,
			removed: true,
			entry:   resource.Entry{Value: ev.Value, TypeID: ev.TypeID, Owner: ev.Owner},
		})
	}
}

// rollback undoes everything recorded since open, in reverse order.
// Memory shrinks before byte restores would be wrong: writes that
// landed on grown pages vanish with the pages, so bytes are restored
// first only for offsets still in range afterwards. Restoring bytes
// first and then shrinking is always correct, since shrink zeroes the
// dropped span.
func (j *journal) rollback(mem memory.Provider, table *resource.Table, globals []stack.Value) {
	j.active = false

	for i := len(j.resources) - 1; i >= 0; i-- {
		op := j.resources[i]
		if op.removed {
			// Best effort: the slot may have been reused later in the
			// same call, in which case the later create's own undo
			// already freed it.
			table.Restore(op.handle, op.entry)
		} else {
			table.Remove(op.handle)
		}
	}

	for i := len(j.globals) - 1; i >= 0; i-- {
		w := j.globals[i]
		globals[w.idx] = w.prior
	}

	for i := len(j.memWrites) - 1; i >= 0; i-- {
		w := j.memWrites[i]
		mem.WriteBytes(w.offset, w.prior)
	}
	if j.grew {
		if s, ok := mem.(memory.Shrinker); ok {
			s.ShrinkTo(j.pagesPrior)
		}
	}
}
