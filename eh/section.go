package eh

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ilhook.eh")

var (
	ErrInvalidSectionFlags   = errors.New("invalid section flags")
	ErrInvalidClauseOrdering = errors.New("invalid clause ordering")
	ErrUnresolvedOffset      = errors.New("unresolved offset")
	ErrTruncatedSection      = errors.New("truncated section")
	ErrTooManyClauses        = errors.New("too many clauses")
)

// Section header flag bits.
const (
	FlagEHTable   byte = 0x01
	FlagFatFormat byte = 0x40
	FlagMoreSects byte = 0x80

	flagReserved byte = 0x3E
)

const (
	headerSize     = 4
	smallClauseLen = 12
	fatClauseLen   = 24

	// MaxSmallClauses is the largest set whose size fits the small header's
	// one-byte length.
	MaxSmallClauses = (0xFF - headerSize) / smallClauseLen
	// MaxFatClauses is the largest set whose size fits the fat header's
	// 24-bit length.
	MaxFatClauses = (0xFFFFFF - headerSize) / fatClauseLen
)

// Header is a parsed section header.
type Header struct {
	Flags byte
	// DataSize is the declared size including the 4-byte header.
	DataSize int
	// Count is the number of whole clauses DataSize holds.
	Count int
}

// Fat reports whether clauses use the 24-byte layout.
func (h Header) Fat() bool { return h.Flags&FlagFatFormat != 0 }

// More reports whether another section follows.
func (h Header) More() bool { return h.Flags&FlagMoreSects != 0 }

// Len returns the number of bytes occupied by the header and its clauses.
func (h Header) Len() int {
	if h.Fat() {
		return headerSize + h.Count*fatClauseLen
	}
	return headerSize + h.Count*smallClauseLen
}

// ParseHeader reads the 4-byte header at the start of buf. It does not
// require FlagEHTable; callers decide what a non-EH section means.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedSection, headerSize, len(buf))
	}
	h := Header{Flags: buf[0]}
	if h.Flags&flagReserved != 0 {
		return Header{}, fmt.Errorf("%w: 0x%02X", ErrInvalidSectionFlags, h.Flags)
	}
	if h.Fat() {
		h.DataSize = int(binary.LittleEndian.Uint32(buf) >> 8)
		h.Count = h.DataSize / fatClauseLen
	} else {
		h.DataSize = int(buf[1])
		h.Count = h.DataSize / smallClauseLen
	}
	return h, nil
}

// Align rounds n up to a multiple of alignment, which must be a power of two.
func Align(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// SectionSize returns the number of bytes taken by the chain of sections at
// the start of buf. Each section begins on a 4-byte boundary relative to
// buf and every section in the chain must be an EH table.
func SectionSize(buf []byte) (int, error) {
	p := 0
	for {
		p = Align(p, 4)
		if p >= len(buf) {
			return 0, fmt.Errorf("%w: section expected at %d", ErrTruncatedSection, p)
		}
		if buf[p]&FlagEHTable == 0 {
			return 0, fmt.Errorf("%w: section at %d is not an exception table (0x%02X)", ErrInvalidSectionFlags, p, buf[p])
		}
		h, err := ParseHeader(buf[p:])
		if err != nil {
			return 0, fmt.Errorf("section at %d: %w", p, err)
		}
		p += h.Len()
		if p > len(buf) {
			return 0, fmt.Errorf("%w: section needs %d bytes, have %d", ErrTruncatedSection, p, len(buf))
		}
		if !h.More() {
			return p, nil
		}
	}
}
