// Package resource provides the typed capability table resources are
// referenced through.
//
// A resource is an opaque, typed, owned value referenced only by
// Handle, never by pointer. Handle 0 is reserved and always invalid. A
// handle becomes invalid the instant its entry is removed; stale
// handles are detected, never silently tolerated.
//
// Two backends implement id generation behind the same contract,
// selected at construction:
//
//	resource.NewTable(resource.NewCounterBackend(256)) // monotonic ids, never reused
//	resource.NewTable(resource.NewSlotBackend(256))    // fixed slots + generation tags
//
// The counter backend suits the dynamic-allocation regime. The slot
// backend allocates all storage up front and reuses slots under a
// per-slot generation tag; a stale handle fails the generation check
// and surfaces as NotFound, never as a wrong-type read. A table reset
// bumps every generation, so handles held across a reset are also
// NotFound.
//
// Type safety: every entry carries a type tag. Lookup with the wrong
// tag reports a type mismatch, reported distinctly from absence:
//
//	h, _ := table.Allocate(FileType, owner, f)
//	v, err := table.Get(h, FileType)   // ok
//	_, err = table.Get(h, SocketType)  // resource type_mismatch
//	table.Remove(h)
//	_, err = table.Get(h, FileType)    // resource not_found
//
// Ownership: entries record a logical owner; TransferOwnership moves an
// entry between owners without touching the value or its handle, and is
// the only sanctioned way to move a resource across engine instances
// without copying. Wrap the table in Shared when instances on different
// goroutines share it.
package resource
