package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-engine/errors"
)

// Check verifies the module's structural validity: every index refers
// into its index space, exports are unique, memory limits are sane, and
// bodies carry their End terminator. Operand typing is the decoder's
// job and is not repeated.
func (m *Module) Check() error {
	if err := m.checkTypeIndices(); err != nil {
		return err
	}
	if err := m.checkFunctionIndices(); err != nil {
		return err
	}
	if err := m.checkTableIndices(); err != nil {
		return err
	}
	if err := m.checkMemoryIndices(); err != nil {
		return err
	}
	if err := m.checkGlobalIndices(); err != nil {
		return err
	}
	if err := m.checkExports(); err != nil {
		return err
	}
	if err := m.checkStart(); err != nil {
		return err
	}
	if err := m.checkCode(); err != nil {
		return err
	}
	return m.checkMemoryLimits()
}

func (m *Module) checkTypeIndices() error {
	numTypes := uint32(len(m.Types))
	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return errors.Validation(fmt.Sprintf("function %d references invalid type index %d", i, typeIdx))
		}
	}
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return errors.Validation(fmt.Sprintf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx))
		}
	}
	return nil
}

func (m *Module) checkFunctionIndices() error {
	numFuncs := uint32(m.NumFuncs())

	if m.Start != nil && *m.Start >= numFuncs {
		return errors.Validation(fmt.Sprintf("start function index %d exceeds function count %d", *m.Start, numFuncs))
	}
	for i, elem := range m.Elements {
		for j, funcIdx := range elem.FuncIdxs {
			if funcIdx >= numFuncs {
				return errors.Validation(fmt.Sprintf("element %d, entry %d references invalid function index %d", i, j, funcIdx))
			}
		}
	}
	for i, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Idx >= numFuncs {
			return errors.Validation(fmt.Sprintf("export %d (%s) references invalid function index %d", i, exp.Name, exp.Idx))
		}
	}
	return nil
}

func (m *Module) checkTableIndices() error {
	numTables := uint32(m.NumImportedTables() + len(m.Tables))
	for i, elem := range m.Elements {
		if elem.TableIdx >= numTables {
			return errors.Validation(fmt.Sprintf("element %d references invalid table index %d", i, elem.TableIdx))
		}
	}
	for i, exp := range m.Exports {
		if exp.Kind == KindTable && exp.Idx >= numTables {
			return errors.Validation(fmt.Sprintf("export %d (%s) references invalid table index %d", i, exp.Name, exp.Idx))
		}
	}
	return nil
}

func (m *Module) checkMemoryIndices() error {
	numMemories := uint32(m.NumImportedMemories() + len(m.Memories))
	for i, data := range m.Data {
		if data.MemIdx >= numMemories {
			return errors.Validation(fmt.Sprintf("data segment %d references invalid memory index %d", i, data.MemIdx))
		}
	}
	for i, exp := range m.Exports {
		if exp.Kind == KindMemory && exp.Idx >= numMemories {
			return errors.Validation(fmt.Sprintf("export %d (%s) references invalid memory index %d", i, exp.Name, exp.Idx))
		}
	}
	return nil
}

func (m *Module) checkGlobalIndices() error {
	numGlobals := uint32(m.NumImportedGlobals() + len(m.Globals))
	for i, exp := range m.Exports {
		if exp.Kind == KindGlobal && exp.Idx >= numGlobals {
			return errors.Validation(fmt.Sprintf("export %d (%s) references invalid global index %d", i, exp.Name, exp.Idx))
		}
	}
	return nil
}

func (m *Module) checkExports() error {
	seen := make(map[string]bool)
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return errors.Validation(fmt.Sprintf("duplicate export name %q at index %d", exp.Name, i))
		}
		seen[exp.Name] = true
	}
	return nil
}

func (m *Module) checkStart() error {
	if m.Start == nil {
		return nil
	}
	funcType := m.FuncTypeOf(*m.Start)
	if funcType == nil {
		return errors.Validation(fmt.Sprintf("start function %d has no type", *m.Start))
	}
	if len(funcType.Params) != 0 || len(funcType.Results) != 0 {
		return errors.Validation(fmt.Sprintf("start function must have signature [] -> [], got %s", funcType))
	}
	return nil
}

func (m *Module) checkCode() error {
	if len(m.Code) != len(m.Funcs) {
		return errors.Validation(fmt.Sprintf("code section has %d entries but function section has %d", len(m.Code), len(m.Funcs)))
	}
	for i, body := range m.Code {
		if len(body.Body) == 0 || body.Body[len(body.Body)-1].Opcode != OpEnd {
			return errors.Validation(fmt.Sprintf("function %d body does not end with end", i))
		}
	}
	for i, g := range m.Globals {
		if len(g.Init) == 0 || g.Init[len(g.Init)-1].Opcode != OpEnd {
			return errors.Validation(fmt.Sprintf("global %d initializer does not end with end", i))
		}
	}
	return nil
}

func (m *Module) checkMemoryLimits() error {
	check := func(mem *MemoryType, idx int, prefix string) error {
		if mem.Limits.Min > MemoryMaxPages {
			return errors.Validation(fmt.Sprintf("%s %d: min pages %d exceeds maximum %d", prefix, idx, mem.Limits.Min, MemoryMaxPages))
		}
		if mem.Limits.Max != nil {
			if *mem.Limits.Max > MemoryMaxPages {
				return errors.Validation(fmt.Sprintf("%s %d: max pages %d exceeds maximum %d", prefix, idx, *mem.Limits.Max, MemoryMaxPages))
			}
			if *mem.Limits.Max < mem.Limits.Min {
				return errors.Validation(fmt.Sprintf("%s %d: max pages %d below min %d", prefix, idx, *mem.Limits.Max, mem.Limits.Min))
			}
		}
		return nil
	}

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory && imp.Desc.Memory != nil {
			if err := check(imp.Desc.Memory, i, "imported memory"); err != nil {
				return err
			}
		}
	}
	for i := range m.Memories {
		if err := check(&m.Memories[i], i, "memory"); err != nil {
			return err
		}
	}
	return nil
}
