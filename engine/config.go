package engine

import (
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
)

// Default execution limits. Callers override them per engine through
// Config; zero fields take these values.
const (
	DefaultFuel          = int64(1_000_000)
	DefaultOperandDepth  = 4096
	DefaultCallDepth     = 256
	DefaultLabelDepth    = 1024
	DefaultResourceLimit = 256
	DefaultMaxPages      = 64
)

// Config bounds one engine instance.
type Config struct {
	// Fuel is the instruction budget for the first call. Refill with
	// SetFuel between calls.
	Fuel int64

	// MaxPages caps linear memory growth when the module itself
	// declares no maximum.
	MaxPages uint32

	// Stack bounds the operand, call, and label regions.
	Stack stack.Limits

	// ResourceLimit caps the number of live resources.
	ResourceLimit int

	// Fixed selects the preallocated regime: memory, stack, and
	// resource slots are fully allocated at instantiation and nothing
	// allocates afterwards. The default regime grows on demand up to
	// the same bounds.
	Fixed bool
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Fuel == 0 {
		c.Fuel = DefaultFuel
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Stack.Operands == 0 {
		c.Stack.Operands = DefaultOperandDepth
	}
	if c.Stack.Frames == 0 {
		c.Stack.Frames = DefaultCallDepth
	}
	if c.Stack.Labels == 0 {
		c.Stack.Labels = DefaultLabelDepth
	}
	if c.ResourceLimit == 0 {
		c.ResourceLimit = DefaultResourceLimit
	}
	return c
}

// validate rejects configurations no engine could honor.
func (c Config) validate() error {
	if c.Fuel < 0 {
		return errors.Validation("fuel budget must not be negative")
	}
	if c.Stack.Operands < 0 || c.Stack.Frames < 0 || c.Stack.Labels < 0 {
		return errors.Validation("stack limits must not be negative")
	}
	if c.ResourceLimit < 0 {
		return errors.Validation("resource limit must not be negative")
	}
	return nil
}
