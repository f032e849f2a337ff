// Package wasm defines the validated-module intermediate representation
// the engine executes, and its encoding to the standard binary format.
//
// A Module arrives from an external decoder with function bodies already
// decoded into Instruction sequences, each terminated by an explicit End.
// The package covers the core numeric, control, parametric, variable, and
// memory instruction set; vector, reference-typed, atomic, and exception
// instructions are outside the supported set and are rejected at
// instantiation.
//
// Check performs the structural index checks that do not require type
// inference: index spaces, export uniqueness, memory limits, start
// function shape. Full operand typing is the decoder's responsibility
// and is not repeated here.
//
// Encode serializes a Module back to the binary format. Its main consumer
// is differential testing, where the same program is handed to a second
// runtime in binary form.
package wasm
