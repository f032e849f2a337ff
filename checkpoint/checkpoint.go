package checkpoint

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/wasm-engine/stack"
)

// cbor encoding uses canonical mode so the same checkpoint always
// produces the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("checkpoint: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Checkpoint is the complete execution state of a suspended call:
// restoring it into a fresh engine over the same module continues
// exactly where the suspended one stopped. Function and PC locate the
// suspension point for display; the frames carry the authoritative
// per-call program counters.
type Checkpoint struct {
	Operands []stack.Value `cbor:"1,keyasint"`
	Frames   []stack.Frame `cbor:"2,keyasint"`
	Labels   []stack.Label `cbor:"3,keyasint"`
	Globals  []stack.Value `cbor:"4,keyasint"`
	Function string        `cbor:"5,keyasint"`
	PC       uint32        `cbor:"6,keyasint"`
	Fuel     int64         `cbor:"7,keyasint"`
}

// Marshal serializes the checkpoint to canonical CBOR bytes.
func Marshal(c *Checkpoint) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// Unmarshal deserializes a checkpoint from CBOR bytes.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal: %w", err)
	}
	return &c, nil
}
