// Package platform defines the page allocation contract the dynamic
// memory provider is built on.
//
// The engine never allocates pages directly; it goes through a
// PageAllocator supplied at construction. The default HeapAllocator is
// backed by the Go heap. Ports that need OS-level page protection or
// guard pages implement the same interface and inject it through the
// engine configuration.
package platform
