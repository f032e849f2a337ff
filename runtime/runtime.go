package runtime

import (
	"sync/atomic"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/wasm"
)

// Loaded is a module that has been handed to the runtime but not yet
// validated. Prepare consumes it.
type Loaded struct {
	module   *wasm.Module
	hosts    *HostRegistry
	cfg      Config
	consumed atomic.Bool
}

// Prepared is a validated module ready to instantiate. Instantiate
// consumes it.
type Prepared struct {
	module   *wasm.Module
	hosts    *HostRegistry
	cfg      Config
	consumed atomic.Bool
}

// Load starts the lifecycle for a decoded module. The host registry may
// be nil for modules without imports.
func Load(module *wasm.Module, hosts *HostRegistry, cfg Config) *Loaded {
	return &Loaded{module: module, hosts: hosts, cfg: cfg}
}

// Prepare validates the module structurally and checks the config,
// consuming the Loaded state.
func (l *Loaded) Prepare() (*Prepared, error) {
	if l.consumed.Swap(true) {
		return nil, errors.InvalidState("module already prepared")
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := l.module.Check(); err != nil {
		return nil, err
	}
	return &Prepared{module: l.module, hosts: l.hosts, cfg: l.cfg}, nil
}

// Instantiate builds a live instance, consuming the Prepared state.
// Host bindings are snapshotted here; functions registered afterwards
// do not reach this instance.
func (p *Prepared) Instantiate() (*Instance, error) {
	if p.consumed.Swap(true) {
		return nil, errors.InvalidState("module already instantiated")
	}

	table := engine.NewHostTable()
	if p.hosts != nil {
		p.hosts.Bind(table)
	}
	e, err := engine.New(p.module, table, p.cfg.engineConfig())
	if err != nil {
		return nil, err
	}
	return &Instance{engine: e, module: p.module}, nil
}
