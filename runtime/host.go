package runtime

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
)

// Host is the interface for struct-based host modules. All exported
// methods except Namespace are registered as host functions under the
// kebab-case form of their Go names.
type Host interface {
	// Namespace returns the import module name (e.g. "env" or
	// "app:storage").
	Namespace() string
}

// HostRegistry collects host functions ahead of instantiation. It
// accepts struct hosts and plain typed Go funcs; Bind converts both
// into the engine's calling convention.
type HostRegistry struct {
	funcs map[string]map[string]engine.HostFunc
	mu    sync.RWMutex
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		funcs: make(map[string]map[string]engine.HostFunc),
	}
}

// RegisterHost registers all exported methods of h as host functions.
// Method names are converted from PascalCase to kebab-case
// (GetValue -> get-value, GetHTTPStatus -> get-http-status).
func (r *HostRegistry) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.Validation("host namespace cannot be empty")
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs[ns] == nil {
		r.funcs[ns] = make(map[string]engine.HostFunc)
	}

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		fn, err := wrapTyped(rv.Method(i).Interface())
		if err != nil {
			return errors.Wrap(errors.CategoryComponent, errors.KindValidation, err,
				"host method "+ns+"."+method.Name)
		}
		r.funcs[ns][toKebabCase(method.Name)] = fn
	}
	return nil
}

// RegisterFunc registers a single typed Go func under namespace.name.
// Supported signatures take an optional leading *engine.Env, then
// int32/uint32/int64/uint64/float32/float64 parameters, and return up
// to one such value plus an optional trailing error.
func (r *HostRegistry) RegisterFunc(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.Validation("namespace cannot be empty")
	}
	if name == "" {
		return errors.Validation("function name cannot be empty")
	}
	wrapped, err := wrapTyped(fn)
	if err != nil {
		return errors.Wrap(errors.CategoryComponent, errors.KindValidation, err,
			"host func "+namespace+"."+name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]engine.HostFunc)
	}
	r.funcs[namespace][name] = wrapped
	return nil
}

// RegisterRaw registers an engine-convention host function directly,
// for hosts that need the raw value slice or the yield protocol.
func (r *HostRegistry) RegisterRaw(namespace, name string, fn engine.HostFunc) error {
	if namespace == "" {
		return errors.Validation("namespace cannot be empty")
	}
	if name == "" {
		return errors.Validation("function name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]engine.HostFunc)
	}
	r.funcs[namespace][name] = fn
	return nil
}

// Bind pours the registry into an engine host table.
func (r *HostRegistry) Bind(table *engine.HostTable) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for namespace, funcs := range r.funcs {
		for name, fn := range funcs {
			table.Bind(namespace, name, fn)
		}
	}
}

// Len returns the number of registered functions.
func (r *HostRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, funcs := range r.funcs {
		n += len(funcs)
	}
	return n
}

var (
	envType   = reflect.TypeOf((*engine.Env)(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// wrapTyped adapts a typed Go func to the engine calling convention,
// marshalling stack values to and from the declared parameter types.
func wrapTyped(fn any) (engine.HostFunc, error) {
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, errors.Validation("handler must be a function, got " + rt.String())
	}

	wantsEnv := rt.NumIn() > 0 && rt.In(0) == envType
	paramStart := 0
	if wantsEnv {
		paramStart = 1
	}
	for i := paramStart; i < rt.NumIn(); i++ {
		if _, ok := kindOfType(rt.In(i)); !ok {
			return nil, errors.Validation("unsupported parameter type " + rt.In(i).String())
		}
	}

	numOut := rt.NumOut()
	returnsErr := numOut > 0 && rt.Out(numOut-1) == errorType
	numVals := numOut
	if returnsErr {
		numVals--
	}
	if numVals > 1 {
		return nil, errors.Validation("at most one result value is supported")
	}
	if numVals == 1 {
		if _, ok := kindOfType(rt.Out(0)); !ok {
			return nil, errors.Validation("unsupported result type " + rt.Out(0).String())
		}
	}
	numParams := rt.NumIn() - paramStart

	return func(env *engine.Env, args []stack.Value) ([]stack.Value, error) {
		if len(args) != numParams {
			return nil, errors.TypeMismatch(
				rt.String(), "call with wrong argument count")
		}
		in := make([]reflect.Value, 0, rt.NumIn())
		if wantsEnv {
			in = append(in, reflect.ValueOf(env))
		}
		for i, a := range args {
			gv, err := toGoValue(rt.In(paramStart+i), a)
			if err != nil {
				return nil, err
			}
			in = append(in, gv)
		}

		out := rv.Call(in)
		if returnsErr {
			if errVal := out[numOut-1]; !errVal.IsNil() {
				return nil, errVal.Interface().(error)
			}
		}
		if numVals == 0 {
			return nil, nil
		}
		return []stack.Value{fromGoValue(out[0])}, nil
	}, nil
}

func kindOfType(t reflect.Type) (stack.ValueKind, bool) {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return stack.KindI32, true
	case reflect.Int64, reflect.Uint64:
		return stack.KindI64, true
	case reflect.Float32:
		return stack.KindF32, true
	case reflect.Float64:
		return stack.KindF64, true
	default:
		return 0, false
	}
}

func toGoValue(t reflect.Type, v stack.Value) (reflect.Value, error) {
	want, _ := kindOfType(t)
	if v.Kind != want {
		return reflect.Value{}, errors.TypeMismatch(want.String(), v.Kind.String())
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int32, reflect.Int64:
		out.SetInt(v.AsI64())
	case reflect.Uint32, reflect.Uint64:
		out.SetUint(v.AsU64())
	case reflect.Float32:
		out.SetFloat(float64(v.AsF32()))
	case reflect.Float64:
		out.SetFloat(v.AsF64())
	}
	return out, nil
}

func fromGoValue(v reflect.Value) stack.Value {
	switch v.Kind() {
	case reflect.Int32:
		return stack.I32(int32(v.Int()))
	case reflect.Uint32:
		return stack.I32(int32(uint32(v.Uint())))
	case reflect.Int64:
		return stack.I64(v.Int())
	case reflect.Uint64:
		return stack.I64(int64(v.Uint()))
	case reflect.Float32:
		return stack.F32(float32(v.Float()))
	default:
		return stack.F64(v.Float())
	}
}

// toKebabCase converts PascalCase to kebab-case. An uppercase run
// followed by a word is treated as one acronym (GetHTTPStatus ->
// get-http-status); a trailing run stays a single segment, since
// adjacent acronyms cannot be told apart (GetHTTPURL -> get-httpurl).
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('-')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1 // -1 because loop will increment
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
