package resource

import (
	"fmt"
	"strconv"

	"github.com/wippyai/wasm-engine/errors"
)

// Table is the typed capability table. It layers type checking,
// ownership accounting, and lifecycle events over a Backend.
//
// Table is not safe for concurrent use; wrap it in Shared when
// multiple goroutines touch the same table.
type Table struct {
	backend   Backend
	observers []Observer
}

// NewTable creates a table over the given backend.
func NewTable(backend Backend) *Table {
	return &Table{backend: backend}
}

// Subscribe registers an observer for lifecycle events. Observers are
// notified synchronously, in registration order.
func (t *Table) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

func (t *Table) notify(typ EventType, h Handle, e Entry) {
	if len(t.observers) == 0 {
		return
	}
	ev := Event{
		Value:  e.Value,
		Handle: h,
		TypeID: e.TypeID,
		Owner:  e.Owner,
		Type:   typ,
	}
	for _, o := range t.observers {
		o.OnResourceEvent(ev)
	}
}

// Allocate stores value under a fresh handle tagged with typeID and
// owner. On capacity exhaustion it fails without side effects.
func (t *Table) Allocate(typeID, owner uint32, value any) (Handle, error) {
	h, err := t.backend.Create(Entry{Value: value, TypeID: typeID, Owner: owner})
	if err != nil {
		return 0, err
	}
	t.notify(EventCreated, h, Entry{Value: value, TypeID: typeID, Owner: owner})
	return h, nil
}

// Get returns the value stored under h, checked against typeID.
// An absent or stale handle reports not_found; a live handle with a
// different type tag reports type_mismatch. The two are never
// conflated: a stale handle is absent even when its slot was reused
// for another type.
func (t *Table) Get(h Handle, typeID uint32) (any, error) {
	e, ok := t.backend.Lookup(h)
	if !ok {
		return nil, errors.NotFound("no resource for handle")
	}
	if e.TypeID != typeID {
		return nil, errors.ResourceTypeMismatch(typeName(typeID), typeName(e.TypeID))
	}
	return e.Value, nil
}

// Entry returns the full entry for h without a type check. Engine
// internals use it; guest-facing paths go through Get.
func (t *Table) Entry(h Handle) (Entry, error) {
	e, ok := t.backend.Lookup(h)
	if !ok {
		return Entry{}, errors.NotFound("no resource for handle")
	}
	return e, nil
}

// Remove deletes h and returns its value. The handle is invalid from
// this point on, including against slot reuse.
func (t *Table) Remove(h Handle) (any, error) {
	e, ok := t.backend.Remove(h)
	if !ok {
		return nil, errors.NotFound("no resource for handle")
	}
	t.notify(EventRemoved, h, e)
	return e.Value, nil
}

// Owner returns the logical owner of h.
func (t *Table) Owner(h Handle) (uint32, error) {
	e, ok := t.backend.Lookup(h)
	if !ok {
		return 0, errors.NotFound("no resource for handle")
	}
	return e.Owner, nil
}

// TransferOwnership moves h to a new owner. The value and the handle
// are untouched; only the ownership record changes.
func (t *Table) TransferOwnership(h Handle, newOwner uint32) error {
	e, ok := t.backend.Lookup(h)
	if !ok {
		return errors.NotFound("no resource for handle")
	}
	if !t.backend.SetOwner(h, newOwner) {
		return errors.NotFound("no resource for handle")
	}
	e.Owner = newOwner
	t.notify(EventTransferred, h, e)
	return nil
}

// Restore re-inserts an entry at a handle that was just removed.
// Rollback support; it fails once the handle could alias a later
// allocation.
func (t *Table) Restore(h Handle, e Entry) error {
	return t.backend.Restore(h, e)
}

// Len returns the number of live resources.
func (t *Table) Len() int { return t.backend.Len() }

// IsEmpty reports whether the table holds no resources.
func (t *Table) IsEmpty() bool { return t.backend.Len() == 0 }

// Cap returns the table capacity.
func (t *Table) Cap() int { return t.backend.Cap() }

// Each visits live entries in the backend's deterministic order until
// fn returns false.
func (t *Table) Each(fn func(Handle, Entry) bool) {
	t.backend.Each(fn)
}

// Clear drops every resource and invalidates all outstanding handles.
// Values implementing Dropper are dropped in iteration order.
func (t *Table) Clear() {
	t.backend.Each(func(h Handle, e Entry) bool {
		if d, ok := e.Value.(Dropper); ok {
			d.Drop()
		}
		t.notify(EventRemoved, h, e)
		return true
	})
	t.backend.Reset()
}

// Close clears the table. After Close the table is empty but usable;
// it exists so a Table satisfies the usual closer shape.
func (t *Table) Close() error {
	t.Clear()
	return nil
}

func typeName(id uint32) string {
	return "type#" + strconv.FormatUint(uint64(id), 10)
}

// Get fetches the value for h from t with the given type tag and
// asserts it to T. A stored value of the wrong Go type reports a
// type mismatch even when the tag matches.
func Get[T any](t *Table, h Handle, typeID uint32) (T, error) {
	var zero T
	v, err := t.Get(h, typeID)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.ResourceTypeMismatch(fmt.Sprintf("%T", zero), fmt.Sprintf("%T", v))
	}
	return typed, nil
}
