package container

// Map is a bounded association map with deterministic, insertion-ordered
// iteration. Lookup is O(n); the engine only keeps small metadata maps
// (export names, import bindings), where determinism and the no-growth
// guarantee matter more than asymptotics.
type Map[K comparable, V any] struct {
	entries *Vec[mapEntry[K, V]]
}

type mapEntry[K comparable, V any] struct {
	key K
	val V
}

// NewMap creates a map backed by dynamic storage bounded at capacity.
func NewMap[K comparable, V any](capacity int) *Map[K, V] {
	return &Map[K, V]{entries: NewVec[mapEntry[K, V]](capacity)}
}

// NewFixedMap creates a map whose backing is fully allocated up front.
func NewFixedMap[K comparable, V any](capacity int) *Map[K, V] {
	return &Map[K, V]{entries: NewFixedVec[mapEntry[K, V]](capacity)}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.entries.Len() }

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool { return m.entries.IsEmpty() }

// Cap returns the configured capacity.
func (m *Map[K, V]) Cap() int { return m.entries.Cap() }

// Put inserts or replaces the value for key. Inserting a new key beyond
// capacity returns a capacity error and leaves the map unchanged.
func (m *Map[K, V]) Put(key K, val V) error {
	for i, e := range m.entries.Slice() {
		if e.key == key {
			m.entries.Set(i, mapEntry[K, V]{key: key, val: val})
			return nil
		}
	}
	return m.entries.Push(mapEntry[K, V]{key: key, val: val})
}

// Get returns the value for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	for _, e := range m.entries.Slice() {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Delete removes the entry for key, preserving the order of the rest.
func (m *Map[K, V]) Delete(key K) bool {
	for i, e := range m.entries.Slice() {
		if e.key == key {
			m.entries.RemoveAt(i)
			return true
		}
	}
	return false
}

// Each calls fn for every entry in insertion order until fn returns
// false.
func (m *Map[K, V]) Each(fn func(K, V) bool) {
	for _, e := range m.entries.Slice() {
		if !fn(e.key, e.val) {
			return
		}
	}
}
