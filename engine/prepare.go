package engine

import (
	"fmt"

	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/wasm"
)

// funcMeta is the precomputed execution form of one declared function:
// its signature, local layout, body, and the control side tables that
// make every branch target a constant-time lookup.
type funcMeta struct {
	name       string
	body       []wasm.Instruction
	endOf      map[uint32]uint32 // block/loop/if/else pc -> matching end pc
	elseOf     map[uint32]uint32 // if pc -> else pc, when an else arm exists
	typeIdx    uint32
	numParams  int
	numResults int
	numLocals  int // params included
}

// importMeta is one imported function: its resolution key and
// signature. fn stays nil for imports the host left unbound; calling
// one surfaces as a pending host call.
type importMeta struct {
	fn      HostFunc
	module  string
	name    string
	typeIdx uint32
}

// prepare walks every declared function once, rejecting opcodes outside
// the supported set and recording end/else targets.
func prepare(m *wasm.Module) ([]funcMeta, error) {
	metas := make([]funcMeta, len(m.Funcs))
	numImported := uint32(m.NumImportedFuncs())

	for i := range m.Funcs {
		typeIdx := m.Funcs[i]
		ft := &m.Types[typeIdx]
		body := m.Code[i].Body

		numLocals := len(ft.Params)
		for _, le := range m.Code[i].Locals {
			numLocals += int(le.Count)
		}

		name := fmt.Sprintf("func[%d]", numImported+uint32(i))
		for _, exp := range m.Exports {
			if exp.Kind == wasm.KindFunc && exp.Idx == numImported+uint32(i) {
				name = exp.Name
				break
			}
		}

		endOf, elseOf, err := controlTargets(name, body)
		if err != nil {
			return nil, err
		}

		metas[i] = funcMeta{
			name:       name,
			body:       body,
			endOf:      endOf,
			elseOf:     elseOf,
			typeIdx:    typeIdx,
			numParams:  len(ft.Params),
			numResults: len(ft.Results),
			numLocals:  numLocals,
		}
	}
	return metas, nil
}

// controlTargets matches every structured opener to its end (and if to
// its else) in a single pass, and rejects unsupported opcodes.
func controlTargets(name string, body []wasm.Instruction) (map[uint32]uint32, map[uint32]uint32, error) {
	endOf := make(map[uint32]uint32)
	elseOf := make(map[uint32]uint32)

	// Openers awaiting their end; the second slot remembers a pending
	// else so it can share the end target.
	type opener struct {
		pc      uint32
		elsePC  uint32
		hasElse bool
	}
	var stack []opener

	for pc := range body {
		instr := body[pc]
		if !supported(instr.Opcode) {
			return nil, nil, errors.Trap(errors.TrapUnsupportedOpcode).At(name, uint32(pc))
		}

		switch instr.Opcode {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			stack = append(stack, opener{pc: uint32(pc)})

		case wasm.OpElse:
			if len(stack) == 0 {
				return nil, nil, errors.Validation("else outside of if")
			}
			top := &stack[len(stack)-1]
			if body[top.pc].Opcode != wasm.OpIf || top.hasElse {
				return nil, nil, errors.Validation("else does not match an if")
			}
			top.elsePC = uint32(pc)
			top.hasElse = true

		case wasm.OpEnd:
			if len(stack) == 0 {
				// Function-level terminator.
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			endOf[top.pc] = uint32(pc)
			if top.hasElse {
				elseOf[top.pc] = top.elsePC
				endOf[top.elsePC] = uint32(pc)
			}
		}
	}

	if len(stack) != 0 {
		return nil, nil, errors.Validation("unterminated block structure")
	}
	if len(body) == 0 || body[len(body)-1].Opcode != wasm.OpEnd {
		return nil, nil, errors.Validation("function body does not end with end")
	}
	return endOf, elseOf, nil
}

// supported reports whether the opcode is in the executable core set.
// Prefixed instruction families (vector, bulk memory, atomics, GC) and
// reference-typed opcodes fall outside it.
func supported(op byte) bool {
	switch {
	case op <= wasm.OpIf: // unreachable..if
		return true
	case op == wasm.OpElse || op == wasm.OpEnd:
		return true
	case op >= wasm.OpBr && op <= wasm.OpCallIndirect:
		return true
	case op == wasm.OpDrop || op == wasm.OpSelect:
		return true
	case op >= wasm.OpLocalGet && op <= wasm.OpGlobalSet:
		return true
	case op >= wasm.OpI32Load && op <= wasm.OpI64Extend32S:
		// loads, stores, size/grow, consts, comparisons, numerics,
		// conversions, sign extensions: a dense range.
		return true
	default:
		return false
	}
}

// blockShape returns the operand counts a block type consumes and
// produces. Type-indexed block types resolve against the module's type
// section.
func blockShape(m *wasm.Module, blockType int32) (params, results int, err error) {
	switch blockType {
	case wasm.BlockTypeVoid:
		return 0, 0, nil
	case wasm.BlockTypeI32, wasm.BlockTypeI64, wasm.BlockTypeF32, wasm.BlockTypeF64:
		return 0, 1, nil
	default:
		if blockType < 0 || int(blockType) >= len(m.Types) {
			return 0, 0, errors.Validation(fmt.Sprintf("invalid block type %d", blockType))
		}
		ft := &m.Types[blockType]
		return len(ft.Params), len(ft.Results), nil
	}
}
