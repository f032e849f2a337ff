package main

import (
	"github.com/wippyai/wasm-engine/wasm"
)

// program is a built-in sample module. The engine executes decoded
// instruction sequences, so the samples are built directly as IR.
type program struct {
	name   string
	desc   string
	module *wasm.Module
}

func builtinPrograms() []program {
	return []program{
		{name: "arith", desc: "integer arithmetic and branching", module: arithModule()},
		{name: "loops", desc: "bounded iteration, good for stepping and fuel budgets", module: loopsModule()},
		{name: "memory", desc: "linear memory bytes with a preloaded data segment", module: memoryModule()},
		{name: "floats", desc: "f64 math", module: floatsModule()},
	}
}

func findProgram(name string) (program, bool) {
	for _, p := range builtinPrograms() {
		if p.name == name {
			return p, true
		}
	}
	return program{}, false
}

func arithModule() *wasm.Module {
	m := &wasm.Module{}
	binOp := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})
	unOp := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})

	m.Funcs = []uint32{binOp, unOp, unOp}
	m.Code = []wasm.FuncBody{
		// add
		{Body: []wasm.Instruction{
			wasm.LocalGet(0), wasm.LocalGet(1), wasm.Op(wasm.OpI32Add), wasm.End(),
		}},
		// abs
		{Body: []wasm.Instruction{
			wasm.LocalGet(0), wasm.I32Const(0), wasm.Op(wasm.OpI32LtS),
			wasm.If(wasm.BlockTypeI32),
			wasm.I32Const(0), wasm.LocalGet(0), wasm.Op(wasm.OpI32Sub),
			wasm.Op(wasm.OpElse),
			wasm.LocalGet(0),
			wasm.End(),
			wasm.End(),
		}},
		// classify: 0 -> 100, 1 -> 200, anything else -> 300
		{Body: []wasm.Instruction{
			wasm.Block(wasm.BlockTypeVoid),
			wasm.Block(wasm.BlockTypeVoid),
			wasm.Block(wasm.BlockTypeVoid),
			wasm.LocalGet(0),
			wasm.BrTable([]uint32{0, 1}, 2),
			wasm.End(),
			wasm.I32Const(100), wasm.Op(wasm.OpReturn),
			wasm.End(),
			wasm.I32Const(200), wasm.Op(wasm.OpReturn),
			wasm.End(),
			wasm.I32Const(300),
			wasm.End(),
		}},
	}
	m.Exports = []wasm.Export{
		{Name: "add", Kind: wasm.KindFunc, Idx: 0},
		{Name: "abs", Kind: wasm.KindFunc, Idx: 1},
		{Name: "classify", Kind: wasm.KindFunc, Idx: 2},
	}
	return m
}

func loopsModule() *wasm.Module {
	m := &wasm.Module{}
	unOp := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})

	m.Funcs = []uint32{unOp, unOp}
	m.Code = []wasm.FuncBody{
		// sum: 1 + 2 + ... + n, locals are i and acc
		{
			Locals: []wasm.LocalEntry{{Count: 2, ValType: wasm.ValI32}},
			Body: []wasm.Instruction{
				wasm.LocalGet(0), wasm.I32Const(1), wasm.Op(wasm.OpI32LtS),
				wasm.If(wasm.BlockTypeVoid),
				wasm.I32Const(0), wasm.Op(wasm.OpReturn),
				wasm.End(),
				wasm.Loop(wasm.BlockTypeVoid),
				wasm.LocalGet(1), wasm.I32Const(1), wasm.Op(wasm.OpI32Add), wasm.LocalSet(1),
				wasm.LocalGet(2), wasm.LocalGet(1), wasm.Op(wasm.OpI32Add), wasm.LocalSet(2),
				wasm.LocalGet(1), wasm.LocalGet(0), wasm.Op(wasm.OpI32LtS), wasm.BrIf(0),
				wasm.End(),
				wasm.LocalGet(2),
				wasm.End(),
			},
		},
		// fib, iterative; locals are a, b, i
		{
			Locals: []wasm.LocalEntry{{Count: 3, ValType: wasm.ValI32}},
			Body: []wasm.Instruction{
				wasm.I32Const(1), wasm.LocalSet(2),
				wasm.Block(wasm.BlockTypeVoid),
				wasm.Loop(wasm.BlockTypeVoid),
				wasm.LocalGet(3), wasm.LocalGet(0), wasm.Op(wasm.OpI32GeS), wasm.BrIf(1),
				wasm.LocalGet(1), wasm.LocalGet(2), wasm.Op(wasm.OpI32Add),
				wasm.LocalGet(2), wasm.LocalSet(1),
				wasm.LocalSet(2),
				wasm.LocalGet(3), wasm.I32Const(1), wasm.Op(wasm.OpI32Add), wasm.LocalSet(3),
				wasm.Br(0),
				wasm.End(),
				wasm.End(),
				wasm.LocalGet(1),
				wasm.End(),
			},
		},
	}
	m.Exports = []wasm.Export{
		{Name: "sum", Kind: wasm.KindFunc, Idx: 0},
		{Name: "fib", Kind: wasm.KindFunc, Idx: 1},
	}
	return m
}

func memoryModule() *wasm.Module {
	maxPages := uint64(4)

	m := &wasm.Module{}
	poke := m.AddType(wasm.FuncType{
		Params: []wasm.ValType{wasm.ValI32, wasm.ValI32},
	})
	peek := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})
	size := m.AddType(wasm.FuncType{
		Results: []wasm.ValType{wasm.ValI32},
	})

	m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &maxPages}}}
	m.Data = []wasm.DataSegment{{
		Offset: []wasm.Instruction{wasm.I32Const(0), wasm.End()},
		Init:   []byte("wasm-engine"),
	}}

	m.Funcs = []uint32{poke, peek, size, peek}
	m.Code = []wasm.FuncBody{
		{Body: []wasm.Instruction{
			wasm.LocalGet(0), wasm.LocalGet(1), wasm.Store(wasm.OpI32Store8, 0, 0), wasm.End(),
		}},
		{Body: []wasm.Instruction{
			wasm.LocalGet(0), wasm.Load(wasm.OpI32Load8U, 0, 0), wasm.End(),
		}},
		{Body: []wasm.Instruction{
			wasm.Op(wasm.OpMemorySize), wasm.End(),
		}},
		// grow: returns the previous page count, or -1 past the ceiling
		{Body: []wasm.Instruction{
			wasm.LocalGet(0), wasm.Op(wasm.OpMemoryGrow), wasm.End(),
		}},
	}
	m.Exports = []wasm.Export{
		{Name: "poke", Kind: wasm.KindFunc, Idx: 0},
		{Name: "peek", Kind: wasm.KindFunc, Idx: 1},
		{Name: "size", Kind: wasm.KindFunc, Idx: 2},
		{Name: "grow", Kind: wasm.KindFunc, Idx: 3},
	}
	return m
}

func floatsModule() *wasm.Module {
	m := &wasm.Module{}
	binOp := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValF64, wasm.ValF64},
		Results: []wasm.ValType{wasm.ValF64},
	})
	triOp := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValF64, wasm.ValF64, wasm.ValF64},
		Results: []wasm.ValType{wasm.ValF64},
	})

	m.Funcs = []uint32{binOp, triOp}
	m.Code = []wasm.FuncBody{
		// hypot: sqrt(x*x + y*y)
		{Body: []wasm.Instruction{
			wasm.LocalGet(0), wasm.LocalGet(0), wasm.Op(wasm.OpF64Mul),
			wasm.LocalGet(1), wasm.LocalGet(1), wasm.Op(wasm.OpF64Mul),
			wasm.Op(wasm.OpF64Add),
			wasm.Op(wasm.OpF64Sqrt),
			wasm.End(),
		}},
		// lerp: a + (b-a)*t
		{Body: []wasm.Instruction{
			wasm.LocalGet(0),
			wasm.LocalGet(1), wasm.LocalGet(0), wasm.Op(wasm.OpF64Sub),
			wasm.LocalGet(2), wasm.Op(wasm.OpF64Mul),
			wasm.Op(wasm.OpF64Add),
			wasm.End(),
		}},
	}
	m.Exports = []wasm.Export{
		{Name: "hypot", Kind: wasm.KindFunc, Idx: 0},
		{Name: "lerp", Kind: wasm.KindFunc, Idx: 1},
	}
	return m
}
