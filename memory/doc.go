// Package memory provides the bounds-checked linear memory contract the
// engine executes against.
//
// Two interchangeable implementations exist behind the Provider
// interface, selected at construction:
//
//	dyn, _ := memory.NewDynamic(alloc, 1, 16)  // grows through a PageAllocator
//	fix, _ := memory.NewFixed(1, 16)           // max preallocated, never allocates again
//
// Every access is checked before any byte is touched: a read or write
// whose end offset overflows or exceeds Len fails with an out-of-bounds
// error and leaves memory byte-for-byte unchanged. Growth is an explicit
// operation, never a side effect of a write.
//
// A provider is either read by any number of goroutines or written by
// exactly one; that discipline is the caller's. Shared wraps a provider
// in a reader/writer lock for the explicit cross-instance sharing case.
package memory
