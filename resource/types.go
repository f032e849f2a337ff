package resource

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint64

// Entry is a stored resource: a type tag, a logical owner, and the
// owned payload. Entries are exclusively owned by their table.
type Entry struct {
	Value  any
	TypeID uint32
	Owner  uint32
}

// Backend provides id generation and storage for a table. Both
// implementations enforce the same capacity discipline; they differ in
// how handles are minted and whether storage is preallocated.
type Backend interface {
	// Create stores an entry under a freshly minted handle. It fails
	// without side effects when capacity is exhausted.
	Create(e Entry) (Handle, error)

	// Lookup returns the entry for a live handle.
	Lookup(h Handle) (Entry, bool)

	// Remove deletes a live handle and returns its entry. The handle is
	// invalid from this point on.
	Remove(h Handle) (Entry, bool)

	// SetOwner rewrites the owner of a live handle in place.
	SetOwner(h Handle, owner uint32) bool

	// Restore re-occupies a handle that was just removed, with exactly
	// the given entry. Used for rollback; it fails if the handle was
	// reused in the meantime.
	Restore(h Handle, e Entry) error

	// Len returns the number of live entries.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Each visits live entries in a deterministic order until fn
	// returns false.
	Each(fn func(Handle, Entry) bool)

	// Reset removes all entries and invalidates every outstanding
	// handle, including against later reuse.
	Reset()
}

// EventType identifies a resource lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRemoved
	EventTransferred
)

// Event is a resource lifecycle notification.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Owner  uint32
	Type   EventType
}

// Observer receives resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by resource values that need
// cleanup when the table is cleared or closed.
type Dropper interface {
	Drop()
}
