package errors

import (
	"fmt"
	"strings"
)

// Category indicates which subsystem produced the error.
type Category string

const (
	CategoryMemory    Category = "memory"    // memory provider and page allocation
	CategoryRuntime   Category = "runtime"   // execution engine and stacks
	CategoryResource  Category = "resource"  // resource table
	CategoryComponent Category = "component" // module lifecycle
)

// Kind categorizes the error within its category.
type Kind string

const (
	KindOutOfBounds       Kind = "out_of_bounds"
	KindAllocationFailure Kind = "allocation_failure"
	KindProtection        Kind = "protection_violation"
	KindStackOverflow     Kind = "stack_overflow"
	KindFunctionNotFound  Kind = "function_not_found"
	KindTypeMismatch      Kind = "type_mismatch"
	KindExecutionTrap     Kind = "execution_trap"
	KindOutOfMemory       Kind = "out_of_memory"
	KindLimitExceeded     Kind = "limit_exceeded"
	KindNotFound          Kind = "not_found"
	KindParse             Kind = "parse"
	KindValidation        Kind = "validation"
	KindInstantiation     Kind = "instantiation"
	KindCapacity          Kind = "capacity"
	KindInvalidState      Kind = "invalid_state"
)

// TrapCode identifies the cause of an execution trap.
type TrapCode uint8

const (
	TrapNone TrapCode = iota
	TrapUnreachable
	TrapDivideByZero
	TrapIntegerOverflow
	TrapInvalidConversion
	TrapNullTableEntry
	TrapFuelExhausted
	TrapUnsupportedOpcode
	TrapCorruptState
)

var trapNames = map[TrapCode]string{
	TrapNone:              "none",
	TrapUnreachable:       "unreachable",
	TrapDivideByZero:      "divide_by_zero",
	TrapIntegerOverflow:   "integer_overflow",
	TrapInvalidConversion: "invalid_conversion",
	TrapNullTableEntry:    "null_table_entry",
	TrapFuelExhausted:     "fuel_exhausted",
	TrapUnsupportedOpcode: "unsupported_opcode",
	TrapCorruptState:      "corrupt_state",
}

// String returns the trap code name.
func (c TrapCode) String() string {
	if s, ok := trapNames[c]; ok {
		return s
	}
	return fmt.Sprintf("trap(%d)", uint8(c))
}

// Error is the structured error type used throughout the engine.
// Exactly one Category and Kind are set; the context fields that are
// meaningful for the Kind are populated by the constructors below.
type Error struct {
	Cause    error
	Category Category
	Kind     Kind
	Detail   string

	// Memory context.
	Offset    uint64
	Length    uint64
	Requested uint64
	Available uint64

	// Stack context.
	Current int
	Max     int

	// Type context.
	Expected string
	Actual   string

	// Execution location, filled in by At as the error crosses the
	// engine boundary.
	Trap     TrapCode
	Function string
	PC       uint32
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Category))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	switch e.Kind {
	case KindOutOfBounds:
		fmt.Fprintf(&b, ": offset=%d length=%d", e.Offset, e.Length)
	case KindAllocationFailure, KindCapacity:
		fmt.Fprintf(&b, ": requested=%d available=%d", e.Requested, e.Available)
	case KindStackOverflow:
		fmt.Fprintf(&b, ": depth=%d max=%d", e.Current, e.Max)
	case KindTypeMismatch:
		if e.Expected != "" || e.Actual != "" {
			fmt.Fprintf(&b, ": expected %s, got %s", e.Expected, e.Actual)
		}
	case KindExecutionTrap:
		fmt.Fprintf(&b, ": %s", e.Trap)
	}

	if e.Function != "" {
		fmt.Fprintf(&b, " in %q", e.Function)
		fmt.Fprintf(&b, " at pc=%d", e.PC)
	}

	if e.Detail != "" {
		b.WriteString(" - ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by category and kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Category == t.Category && e.Kind == t.Kind
	}
	return false
}

// At returns a copy of the error annotated with the execution location.
// Typed context fields and the cause chain are preserved; lower-layer
// context is never discarded or re-typed.
func (e *Error) At(function string, pc uint32) *Error {
	annotated := *e
	annotated.Function = function
	annotated.PC = pc
	return &annotated
}

// Recoverable reports whether the engine can return to Idle after this
// error. Everything in the closed taxonomy is recoverable except a
// detected invariant violation (corrupt engine state).
func (e *Error) Recoverable() bool {
	return e.Trap != TrapCorruptState
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(category Category, kind Kind) *Builder {
	return &Builder{err: Error{Category: category, Kind: kind}}
}

// Bounds sets the offending offset and length.
func (b *Builder) Bounds(offset, length uint64) *Builder {
	b.err.Offset = offset
	b.err.Length = length
	return b
}

// Sizes sets the requested and available sizes.
func (b *Builder) Sizes(requested, available uint64) *Builder {
	b.err.Requested = requested
	b.err.Available = available
	return b
}

// Depth sets the current and maximum stack depth.
func (b *Builder) Depth(current, max int) *Builder {
	b.err.Current = current
	b.err.Max = max
	return b
}

// Expected sets the expected type description.
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Actual sets the actual type description.
func (b *Builder) Actual(t string) *Builder {
	b.err.Actual = t
	return b
}

// Trap sets the trap code.
func (b *Builder) Trap(code TrapCode) *Builder {
	b.err.Trap = code
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the closed taxonomy.

// OutOfBounds creates a memory bounds error. The offset and length are
// the ones the caller asked for, not clamped values.
func OutOfBounds(offset, length uint64) *Error {
	return &Error{
		Category: CategoryMemory,
		Kind:     KindOutOfBounds,
		Offset:   offset,
		Length:   length,
	}
}

// AllocationFailure creates a memory growth/allocation error carrying
// requested versus available byte counts.
func AllocationFailure(requested, available uint64) *Error {
	return &Error{
		Category:  CategoryMemory,
		Kind:      KindAllocationFailure,
		Requested: requested,
		Available: available,
	}
}

// Protection creates a protection violation error.
func Protection(detail string) *Error {
	return &Error{
		Category: CategoryMemory,
		Kind:     KindProtection,
		Detail:   detail,
	}
}

// StackOverflow creates a recoverable stack depth error.
func StackOverflow(current, max int) *Error {
	return &Error{
		Category: CategoryRuntime,
		Kind:     KindStackOverflow,
		Current:  current,
		Max:      max,
	}
}

// FunctionNotFound creates an unknown-function error.
func FunctionNotFound(name string) *Error {
	return &Error{
		Category: CategoryRuntime,
		Kind:     KindFunctionNotFound,
		Detail:   fmt.Sprintf("function %q not found", name),
	}
}

// TypeMismatch creates a runtime type mismatch error.
func TypeMismatch(expected, actual string) *Error {
	return &Error{
		Category: CategoryRuntime,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Actual:   actual,
	}
}

// Trap creates an execution trap error.
func Trap(code TrapCode) *Error {
	return &Error{
		Category: CategoryRuntime,
		Kind:     KindExecutionTrap,
		Trap:     code,
	}
}

// ResourceOutOfMemory creates a resource storage exhaustion error.
func ResourceOutOfMemory(detail string) *Error {
	return &Error{
		Category: CategoryResource,
		Kind:     KindOutOfMemory,
		Detail:   detail,
	}
}

// LimitExceeded creates a resource capacity error.
func LimitExceeded(requested, limit uint64) *Error {
	return &Error{
		Category:  CategoryResource,
		Kind:      KindLimitExceeded,
		Requested: requested,
		Available: limit,
	}
}

// NotFound creates a resource lookup error. Stale handles (removed or
// generation-mismatched) report NotFound, never a wrong-type read.
func NotFound(detail string) *Error {
	return &Error{
		Category: CategoryResource,
		Kind:     KindNotFound,
		Detail:   detail,
	}
}

// ResourceTypeMismatch creates a resource type tag mismatch error,
// reported distinctly from absence.
func ResourceTypeMismatch(expected, actual string) *Error {
	return &Error{
		Category: CategoryResource,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Actual:   actual,
	}
}

// Capacity creates a bounded container capacity error.
func Capacity(requested, available uint64) *Error {
	return &Error{
		Category:  CategoryRuntime,
		Kind:      KindCapacity,
		Requested: requested,
		Available: available,
	}
}

// Parse creates a component parse error.
func Parse(detail string, cause error) *Error {
	return &Error{
		Category: CategoryComponent,
		Kind:     KindParse,
		Detail:   detail,
		Cause:    cause,
	}
}

// Validation creates a component validation error.
func Validation(detail string) *Error {
	return &Error{
		Category: CategoryComponent,
		Kind:     KindValidation,
		Detail:   detail,
	}
}

// Instantiation creates a component instantiation error.
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Category: CategoryComponent,
		Kind:     KindInstantiation,
		Detail:   detail,
		Cause:    cause,
	}
}

// InvalidState creates a state-machine misuse error.
func InvalidState(detail string, args ...any) *Error {
	return &Error{
		Category: CategoryRuntime,
		Kind:     KindInvalidState,
		Detail:   fmt.Sprintf(detail, args...),
	}
}

// Wrap wraps an existing error with a category, kind, and detail.
func Wrap(category Category, kind Kind, cause error, detail string) *Error {
	return &Error{
		Category: category,
		Kind:     kind,
		Detail:   detail,
		Cause:    cause,
	}
}
