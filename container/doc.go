// Package container provides the bounded containers the execution
// stacks, tables, and metadata are built from.
//
// Every container shares one failure contract: a mutation that would
// exceed the configured capacity returns a capacity error instead of
// growing without limit or aborting the process. Two capacity
// disciplines exist behind the same API, chosen at construction:
//
//	v := container.NewVec[int](64)      // dynamic backing, bounded at 64
//	v := container.NewFixedVec[int](64) // backing fully allocated up front
//
// The fixed variant never allocates after construction, which is what
// the heap-free regime runs on. Shared logic never branches on the
// regime; the difference lives entirely in the Storage strategy.
//
// Iteration is lazy, restartable, and finite:
//
//	it := v.Iter()
//	for x, ok := it.Next(); ok; x, ok = it.Next() { ... }
//	it.Reset()
package container
