// Package body ties the instruction and exception-section codecs together
// at the granularity a JIT hook works with: one captured method body.
package body

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/ilhook/cil"
	"github.com/chazu/ilhook/eh"
)

var log = commonlog.GetLogger("ilhook.body")

var (
	ErrLayout          = errors.New("invalid body layout")
	ErrNotInBody       = errors.New("instruction not in body")
	ErrUnsupportedWire = errors.New("unsupported wire version")
)

// Method is a method body as captured from the runtime: the IL code and
// the raw exception section that followed it.
type Method struct {
	Token uint32 `cbor:"1,keyasint"`
	Name  string `cbor:"2,keyasint,omitempty"`
	IL    []byte `cbor:"3,keyasint"`
	EH    []byte `cbor:"4,keyasint,omitempty"`
}

func (m *Method) String() string {
	if m.Name != "" {
		return fmt.Sprintf("%s (0x%08X)", m.Name, m.Token)
	}
	return fmt.Sprintf("0x%08X", m.Token)
}

// Body is a decoded method. Clause refs index Insts.
type Body struct {
	Insts   []*cil.Instruction
	Clauses []eh.Clause
}

// Decode parses the method's code and exception section.
func (m *Method) Decode() (*Body, error) {
	insts, err := cil.Decode(m.IL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	clauses, err := eh.Decode(m.EH, insts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	return &Body{Insts: insts, Clauses: clauses}, nil
}

// Bytes returns the code and exception section in method-body layout.
func (m *Method) Bytes() []byte {
	return Join(m.IL, m.EH)
}

// Join lays out code followed by the exception section, which starts at
// the next 4-byte boundary. The gap is zero-filled.
func Join(il, section []byte) []byte {
	if len(section) == 0 {
		return append([]byte(nil), il...)
	}
	start := eh.Align(len(il), 4)
	out := make([]byte, start+len(section))
	copy(out, il)
	copy(out[start:], section)
	return out
}

// Split reverses Join given the code size. Trailing bytes after the
// section chain are ignored.
func Split(buf []byte, codeSize int) (il, section []byte, err error) {
	if codeSize < 0 || codeSize > len(buf) {
		return nil, nil, fmt.Errorf("%w: code size %d exceeds %d bytes", ErrLayout, codeSize, len(buf))
	}
	il = append([]byte(nil), buf[:codeSize]...)
	start := eh.Align(codeSize, 4)
	if start >= len(buf) {
		return il, nil, nil
	}
	n, err := eh.SectionSize(buf[start:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: section at %d: %w", ErrLayout, start, err)
	}
	section = append([]byte(nil), buf[start:start+n]...)
	return il, section, nil
}

// FromBytes builds a Method from a joined body.
func FromBytes(token uint32, buf []byte, codeSize int) (*Method, error) {
	il, section, err := Split(buf, codeSize)
	if err != nil {
		return nil, err
	}
	return &Method{Token: token, IL: il, EH: section}, nil
}
