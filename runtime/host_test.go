package runtime

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/stack"
)

func TestToKebabCase(t *testing.T) {
	cases := map[string]string{
		"GetValue":      "get-value",
		"GetHTTPStatus": "get-http-status",
		// A trailing uppercase run is one segment; adjacent acronyms
		// are not separable without a dictionary.
		"GetHTTPURL": "get-httpurl",
		"Read":       "read",
		"ParseJSON":  "parse-json",
		"A":          "a",
	}
	for in, want := range cases {
		if got := toKebabCase(in); got != want {
			t.Fatalf("toKebabCase(%q) = %q, want %q", in, got, want)
		}
	}
}

type clockHost struct {
	now int64
}

func (h *clockHost) Namespace() string { return "env" }

func (h *clockHost) CurrentTime() int64 { return h.now }

func (h *clockHost) AddOffset(offset int64) int64 { return h.now + offset }

func TestRegisterHostMethods(t *testing.T) {
	reg := NewHostRegistry()
	if err := reg.RegisterHost(&clockHost{now: 1000}); err != nil {
		t.Fatalf("register host: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 functions, got %d", reg.Len())
	}

	table := engine.NewHostTable()
	reg.Bind(table)
	fn, ok := table.Lookup("env", "current-time")
	if !ok {
		t.Fatal("current-time should be bound")
	}
	res, err := fn(nil, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(res) != 1 || res[0].AsI64() != 1000 {
		t.Fatalf("unexpected result: %v", res)
	}

	fn, ok = table.Lookup("env", "add-offset")
	if !ok {
		t.Fatal("add-offset should be bound")
	}
	res, err = fn(nil, []stack.Value{stack.I64(24)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res[0].AsI64() != 1024 {
		t.Fatalf("unexpected result: %v", res)
	}
}

func TestRegisterFuncTyped(t *testing.T) {
	reg := NewHostRegistry()
	err := reg.RegisterFunc("math", "hypot2", func(a, b int32) int32 {
		return a*a + b*b
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	table := engine.NewHostTable()
	reg.Bind(table)
	fn, _ := table.Lookup("math", "hypot2")
	res, err := fn(nil, []stack.Value{stack.I32(3), stack.I32(4)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res[0].AsI32() != 25 {
		t.Fatalf("expected 25, got %s", res[0])
	}
}

func TestRegisterFuncWithEnvAndError(t *testing.T) {
	reg := NewHostRegistry()
	boom := stderrors.New("boom")
	err := reg.RegisterFunc("env", "fail", func(env *engine.Env, code int32) (int32, error) {
		if code != 0 {
			return 0, boom
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	table := engine.NewHostTable()
	reg.Bind(table)
	fn, _ := table.Lookup("env", "fail")

	res, err := fn(nil, []stack.Value{stack.I32(0)})
	if err != nil || res[0].AsI32() != 7 {
		t.Fatalf("success path: %v %v", res, err)
	}
	if _, err := fn(nil, []stack.Value{stack.I32(1)}); !stderrors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRegisterFuncRejectsBadSignatures(t *testing.T) {
	reg := NewHostRegistry()
	if err := reg.RegisterFunc("env", "s", func(s string) {}); err == nil {
		t.Fatal("string parameter should be rejected")
	}
	if err := reg.RegisterFunc("env", "multi", func() (int32, int32) { return 0, 0 }); err == nil {
		t.Fatal("two result values should be rejected")
	}
	if err := reg.RegisterFunc("env", "notfn", 42); err == nil {
		t.Fatal("non-function should be rejected")
	}
	if err := reg.RegisterFunc("", "x", func() {}); err == nil {
		t.Fatal("empty namespace should be rejected")
	}
}

func TestTypedArgumentKindChecked(t *testing.T) {
	reg := NewHostRegistry()
	if err := reg.RegisterFunc("env", "want32", func(v int32) int32 { return v }); err != nil {
		t.Fatalf("register: %v", err)
	}
	table := engine.NewHostTable()
	reg.Bind(table)
	fn, _ := table.Lookup("env", "want32")

	if _, err := fn(nil, []stack.Value{stack.I64(1)}); err == nil {
		t.Fatal("i64 into int32 should be rejected")
	}
	if _, err := fn(nil, nil); err == nil {
		t.Fatal("missing argument should be rejected")
	}
}
