package runtime

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/wasm-engine/checkpoint"
	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

func addModule() *wasm.Module {
	m := &wasm.Module{}
	ti := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})
	m.Funcs = []uint32{ti}
	m.Code = []wasm.FuncBody{{Body: []wasm.Instruction{
		wasm.LocalGet(0), wasm.LocalGet(1), wasm.Op(wasm.OpI32Add), wasm.End(),
	}}}
	m.Exports = []wasm.Export{{Name: "add", Kind: wasm.KindFunc, Idx: 0}}
	return m
}

func TestLifecycleHappyPath(t *testing.T) {
	loaded := Load(addModule(), nil, Config{})
	prepared, err := loaded.Prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	inst, err := prepared.Instantiate()
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	v, err := inst.Execute("add", stack.I32(2), stack.I32(40))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if v.AsI32() != 42 {
		t.Fatalf("expected 42, got %s", v)
	}
	if got := inst.Exports(); len(got) != 1 || got[0] != "add" {
		t.Fatalf("unexpected exports: %v", got)
	}
}

func TestConsumedStatesRefuseReuse(t *testing.T) {
	loaded := Load(addModule(), nil, Config{})
	prepared, err := loaded.Prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := loaded.Prepare(); err == nil {
		t.Fatal("second Prepare should fail")
	}

	if _, err := prepared.Instantiate(); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if _, err := prepared.Instantiate(); err == nil {
		t.Fatal("second Instantiate should fail")
	}
}

func TestPrepareRejectsMalformedModule(t *testing.T) {
	m := addModule()
	m.Exports = append(m.Exports, wasm.Export{Name: "ghost", Kind: wasm.KindFunc, Idx: 99})
	if _, err := Load(m, nil, Config{}).Prepare(); err == nil {
		t.Fatal("dangling export index should fail Prepare")
	}
}

func TestInstanceWithHostRegistry(t *testing.T) {
	m := &wasm.Module{}
	ti := m.AddType(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})
	m.Imports = []wasm.Import{{
		Module: "env",
		Name:   "scale",
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: ti},
	}}
	m.Funcs = []uint32{ti}
	m.Code = []wasm.FuncBody{{Body: []wasm.Instruction{
		wasm.LocalGet(0), wasm.Call(0), wasm.End(),
	}}}
	m.Exports = []wasm.Export{{Name: "run", Kind: wasm.KindFunc, Idx: 1}}

	reg := NewHostRegistry()
	if err := reg.RegisterFunc("env", "scale", func(v int32) int32 { return v * 3 }); err != nil {
		t.Fatalf("register: %v", err)
	}

	prepared, err := Load(m, reg, Config{}).Prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	inst, err := prepared.Instantiate()
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	v, err := inst.Execute("run", stack.I32(14))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if v.AsI32() != 42 {
		t.Fatalf("expected 42, got %s", v)
	}
}

func TestConfigLimitsReachEngine(t *testing.T) {
	m := &wasm.Module{}
	ti := m.AddType(wasm.FuncType{})
	m.Funcs = []uint32{ti}
	m.Code = []wasm.FuncBody{{Body: []wasm.Instruction{
		wasm.Loop(wasm.BlockTypeVoid), wasm.Br(0), wasm.End(), wasm.End(),
	}}}
	m.Exports = []wasm.Export{{Name: "spin", Kind: wasm.KindFunc, Idx: 0}}

	prepared, err := Load(m, nil, Config{Fuel: 10}).Prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	inst, err := prepared.Instantiate()
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if _, err := inst.Execute("spin"); err == nil {
		t.Fatal("expected fuel exhaustion")
	}
	if inst.State() != engine.StateFailed {
		t.Fatalf("expected Failed, got %s", inst.State())
	}
	if err := inst.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	content := "fuel = 50000\nmax_pages = 16\ncall_depth = 32\nfixed = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fuel != 50000 || cfg.MaxPages != 16 || cfg.CallDepth != 32 || !cfg.Fixed {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	if err := os.WriteFile(path, []byte("fule = 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("typo key should be rejected")
	}
}

func TestLoadConfigRejectsNegative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	if err := os.WriteFile(path, []byte("fuel = -5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("negative fuel should be rejected")
	}
}

func TestSuspendRestoreThroughStore(t *testing.T) {
	m := &wasm.Module{}
	tPause := m.AddType(wasm.FuncType{})
	tWork := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	m.Imports = []wasm.Import{{
		Module: "env",
		Name:   "pause",
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: tPause},
	}}
	m.Funcs = []uint32{tWork}
	m.Code = []wasm.FuncBody{{Body: []wasm.Instruction{
		wasm.Call(0),
		wasm.I32Const(42),
		wasm.End(),
	}}}
	m.Exports = []wasm.Export{{Name: "work", Kind: wasm.KindFunc, Idx: 1}}

	build := func() *Instance {
		var inst *Instance
		reg := NewHostRegistry()
		err := reg.RegisterRaw("env", "pause", func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
			inst.RequestYield()
			return nil, nil
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		prepared, err := Load(m, reg, Config{}).Prepare()
		if err != nil {
			t.Fatalf("prepare: %v", err)
		}
		inst, err = prepared.Instantiate()
		if err != nil {
			t.Fatalf("instantiate: %v", err)
		}
		return inst
	}

	first := build()
	if _, err := first.Execute("work"); !stderrors.Is(err, engine.ErrSuspended) {
		t.Fatalf("expected suspension, got %v", err)
	}

	store, err := checkpoint.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := first.Suspend(store, "job-1"); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	second := build()
	if err := second.RestoreFrom(store, "job-1"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	v, err := second.Resume()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v.AsI32() != 42 {
		t.Fatalf("expected 42, got %s", v)
	}
}
