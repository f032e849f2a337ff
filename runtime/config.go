package runtime

import (
	"github.com/BurntSushi/toml"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/errors"
	"github.com/wippyai/wasm-engine/stack"
)

// Config carries the engine limits in a flat, serializable form.
// Zero fields take the engine defaults.
type Config struct {
	Fuel          int64  `toml:"fuel"`
	MaxPages      uint32 `toml:"max_pages"`
	OperandDepth  int    `toml:"operand_depth"`
	CallDepth     int    `toml:"call_depth"`
	LabelDepth    int    `toml:"label_depth"`
	ResourceLimit int    `toml:"resource_limit"`
	Fixed         bool   `toml:"fixed"`
}

// LoadConfig reads a TOML config file. Unknown keys are rejected so a
// typo does not silently fall back to a default.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Parse("config "+path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Validation("config " + path + ": unknown key " + undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative limits. Zero means default, so only
// explicitly negative values are errors.
func (c Config) Validate() error {
	if c.Fuel < 0 {
		return errors.Validation("fuel must not be negative")
	}
	if c.OperandDepth < 0 || c.CallDepth < 0 || c.LabelDepth < 0 {
		return errors.Validation("stack depths must not be negative")
	}
	if c.ResourceLimit < 0 {
		return errors.Validation("resource limit must not be negative")
	}
	return nil
}

func (c Config) engineConfig() engine.Config {
	return engine.Config{
		Fuel:     c.Fuel,
		MaxPages: c.MaxPages,
		Stack: stack.Limits{
			Operands: c.OperandDepth,
			Frames:   c.CallDepth,
			Labels:   c.LabelDepth,
		},
		ResourceLimit: c.ResourceLimit,
		Fixed:         c.Fixed,
	}
}
