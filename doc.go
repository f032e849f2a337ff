// Package wasmengine provides a safety-critical WebAssembly execution
// core: a stackless interpreter with explicit state, bounded resources,
// and checkpointable executions.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	wasmengine/          Root package (documentation only)
//	├── runtime/         High-level facade: load, prepare, instantiate
//	├── engine/          Stackless dispatch loop, state machine, fuel,
//	│                    host calls, rollback journal
//	├── checkpoint/      Serialized execution snapshots and a file store
//	├── stack/           Operand, call-frame, and label stacks
//	├── memory/          Bounds-checked linear memory providers
//	├── resource/        Typed handle table with ownership tracking
//	├── container/       Capacity-bounded vectors and maps
//	├── platform/        Page allocation contract
//	├── wasm/            Module IR, opcodes, instruction builders, encoder
//	└── errors/          Structured error types for debugging
//
// The engine interprets decoded instruction sequences; parsing and
// validating binaries is a decoder's job, not this library's. Modules
// arrive as wasm.Module IR, built programmatically or by an external
// decoder.
//
// # Quick Start
//
// Load and run a module:
//
//	prepared, err := runtime.Load(module, nil, runtime.Config{}).Prepare()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst, err := prepared.Instantiate()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := inst.Execute("sum", stack.I32(100))
//	fmt.Println(result) // "i32:5050"
//
// # Host Functions
//
// Register Go functions as host implementations:
//
//	registry := runtime.NewHostRegistry()
//	registry.RegisterFunc("env", "current-time", func() int64 {
//	    return time.Now().Unix()
//	})
//
// Imports left unbound surface as pending host calls: Execute returns
// engine.ErrHostCallPending and the caller answers with
// CompleteHostCall or FailHostCall.
//
// # Suspension and Checkpoints
//
// A running call can be suspended at an instruction boundary, from the
// guest side (a host function returning engine.ErrYield) or externally
// (RequestYield from any goroutine). Suspended executions capture to a
// checkpoint.Checkpoint, serialize to canonical CBOR, and resume on a
// fresh instance of the same module.
//
// # Execution Discipline
//
// Every call is metered by a fuel budget and bounded by configured
// stack depths. Failed calls roll back their memory writes, memory
// growth, and resource table changes, so an instance is never left in
// a partially mutated state.
//
// # Thread Safety
//
// An engine executes on a single goroutine. SetFuel, Deplete, and
// RequestYield are safe to call concurrently with a running execution;
// everything else must be externally synchronized.
package wasmengine
