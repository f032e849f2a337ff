package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-engine/runtime"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

func main() {
	var (
		progName    = flag.String("prog", "", "Built-in program to run (see -list)")
		funcName    = flag.String("func", "", "Function to call")
		argsStr     = flag.String("args", "", "Comma-separated arguments, parsed per the function signature")
		fuel        = flag.Int64("fuel", 0, "Instruction budget (0 uses the default)")
		configFile  = flag.String("config", "", "Path to a TOML engine config")
		list        = flag.Bool("list", false, "List programs and their exports, then exit")
		interactive = flag.Bool("i", false, "Interactive step-debugger TUI")
	)
	flag.Parse()

	if *list {
		listPrograms()
		return
	}

	if *progName == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -prog <name> -func <name> [-args 1,2] [-fuel n]")
		fmt.Fprintln(os.Stderr, "       run -list")
		fmt.Fprintln(os.Stderr, "       run -prog <name> -i  (interactive step debugger)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *fuel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*progName, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*progName, *funcName, *argsStr, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, fuel int64) (runtime.Config, error) {
	cfg := runtime.Config{}
	if path != "" {
		loaded, err := runtime.LoadConfig(path)
		if err != nil {
			return runtime.Config{}, err
		}
		cfg = loaded
	}
	if fuel > 0 {
		cfg.Fuel = fuel
	}
	return cfg, nil
}

func listPrograms() {
	for _, p := range builtinPrograms() {
		fmt.Printf("%s: %s\n", p.name, p.desc)
		for _, exp := range p.module.Exports {
			if exp.Kind != wasm.KindFunc {
				continue
			}
			ft := p.module.FuncTypeOf(exp.Idx)
			fmt.Printf("  %s %s\n", exp.Name, ft)
		}
	}
}

func run(progName, funcName, argsStr string, cfg runtime.Config) error {
	prog, ok := findProgram(progName)
	if !ok {
		return fmt.Errorf("unknown program %q, see -list", progName)
	}

	prepared, err := runtime.Load(prog.module, nil, cfg).Prepare()
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	inst, err := prepared.Instantiate()
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	if funcName == "" {
		exports := inst.Exports()
		if len(exports) == 1 {
			funcName = exports[0]
		} else {
			fmt.Printf("Program %s exports: %s\n", progName, strings.Join(exports, ", "))
			fmt.Println("Use -func to pick one.")
			return nil
		}
	}

	ft, ok := inst.Signature(funcName)
	if !ok {
		return fmt.Errorf("program %s has no export %q", progName, funcName)
	}
	args, err := parseArgs(argsStr, ft)
	if err != nil {
		return err
	}

	startFuel := inst.Fuel()
	result, err := inst.Execute(funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	if len(ft.Results) > 0 {
		fmt.Printf("Result: %s\n", result)
	} else {
		fmt.Println("Result: (none)")
	}
	fmt.Printf("Fuel used: %d\n", startFuel-inst.Fuel())
	return nil
}

// parseArgs converts a comma-separated argument string into typed
// operand values matching the function signature.
func parseArgs(argsStr string, ft *wasm.FuncType) ([]stack.Value, error) {
	var fields []string
	if argsStr != "" {
		fields = strings.Split(argsStr, ",")
	}
	if len(fields) != len(ft.Params) {
		return nil, fmt.Errorf("expected %d arguments %s, got %d", len(ft.Params), ft, len(fields))
	}

	args := make([]stack.Value, len(fields))
	for i, field := range fields {
		v, err := parseValue(strings.TrimSpace(field), ft.Params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseValue(s string, t wasm.ValType) (stack.Value, error) {
	switch t {
	case wasm.ValI32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return stack.Value{}, fmt.Errorf("%q is not an i32", s)
		}
		return stack.I32(int32(v)), nil
	case wasm.ValI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return stack.Value{}, fmt.Errorf("%q is not an i64", s)
		}
		return stack.I64(v), nil
	case wasm.ValF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return stack.Value{}, fmt.Errorf("%q is not an f32", s)
		}
		return stack.F32(float32(v)), nil
	case wasm.ValF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return stack.Value{}, fmt.Errorf("%q is not an f64", s)
		}
		return stack.F64(v), nil
	default:
		return stack.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
}
