// Package engine provides the stackless, fuel-metered WebAssembly
// interpreter at the core of the runtime.
//
// # Architecture
//
// An Engine is built over a validated wasm.Module plus an explicit
// HostTable of import bindings. Instantiation evaluates global
// initializers, materializes the funcref table from element segments,
// copies data segments into linear memory, and precomputes per-function
// control side tables so branches resolve in constant time.
//
// Wasm-to-wasm calls push interpreter frames onto the bounded execution
// stack and continue the same Go-level dispatch loop; Go recursion depth
// stays constant no matter how deep the guest call tree goes.
//
// # State machine
//
// An engine is always in exactly one of six states:
//
//	Idle       ready to accept Execute
//	Executing  inside the dispatch loop
//	HostCall   waiting on CompleteHostCall / FailHostCall
//	Suspended  yielded with a capturable checkpoint
//	Completed  last call finished, result available
//	Failed     last call failed, error available
//
// Operations invalid in the current state return an invalid_state error
// and change nothing. Reset returns to Idle from Idle, Completed, or
// Failed and clears the execution stack.
//
// # Fuel
//
// Every instruction costs one unit of fuel. The fuel counter is atomic,
// so any goroutine can drain it to interrupt a running call; exhaustion
// surfaces as a recoverable execution trap recording the function and
// pc where it struck.
//
// # Atomicity
//
// Each call runs under a journal of memory writes, memory growth,
// global writes, and resource creation/removal. A failed call rolls the
// journal back, so observable engine state after a failure is exactly
// the state before the call.
package engine
