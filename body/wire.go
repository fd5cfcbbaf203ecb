package body

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the capture format version written by MarshalCapture.
const WireVersion = 1

// Capture is a batch of method bodies dumped from one module.
type Capture struct {
	Version byte      `cbor:"1,keyasint"`
	Module  string    `cbor:"2,keyasint,omitempty"`
	Methods []*Method `cbor:"3,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("body: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalMethod serializes a Method to canonical CBOR.
func MarshalMethod(m *Method) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

func UnmarshalMethod(data []byte) (*Method, error) {
	var m Method
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("body: unmarshal method: %w", err)
	}
	return &m, nil
}

// MarshalCapture serializes a Capture, stamping the current wire version.
func MarshalCapture(c *Capture) ([]byte, error) {
	out := *c
	out.Version = WireVersion
	return cborEncMode.Marshal(&out)
}

// UnmarshalCapture deserializes a Capture and checks its version.
func UnmarshalCapture(data []byte) (*Capture, error) {
	var c Capture
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("body: unmarshal capture: %w", err)
	}
	if c.Version != WireVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedWire, c.Version)
	}
	return &c, nil
}
