package eh

import (
	"fmt"

	"github.com/chazu/ilhook/cil"
)

// Format is the section layout chosen by Encode.
type Format int

const (
	Small Format = iota
	Fat
)

func (f Format) String() string {
	if f == Fat {
		return "fat"
	}
	return "small"
}

// Options control EncodeReport.
type Options struct {
	// Strict rejects clauses whose boundary instruction is missing from
	// the rewritten sequence instead of falling back to its old offset.
	Strict bool
}

// Report describes a successful encode.
type Report struct {
	Format    Format
	Fallbacks []Fallback
}

// Encode serialises clauses, whose refs index original, against the
// rewritten sequence. An empty clause set encodes to no section.
//
// A boundary whose instruction was removed from rewritten keeps its offset
// from original, which most likely points at the wrong instruction. Encode
// only logs a warning when that happens. Use EncodeReport to see the
// affected boundaries, or set Options.Strict to reject them.
func Encode(clauses []Clause, original, rewritten []*cil.Instruction) ([]byte, error) {
	section, _, err := EncodeReport(clauses, original, rewritten, Options{})
	return section, err
}

// EncodeReport is Encode with options, also reporting the chosen format and
// any boundaries that fell back to original offsets.
func EncodeReport(clauses []Clause, original, rewritten []*cil.Instruction, opts Options) ([]byte, *Report, error) {
	if len(clauses) == 0 {
		return nil, &Report{Format: Small}, nil
	}
	if len(clauses) > MaxFatClauses {
		return nil, nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyClauses, len(clauses), MaxFatClauses)
	}

	r, err := NewRecalculator(original, rewritten)
	if err != nil {
		return nil, nil, err
	}
	r.Strict = opts.Strict

	spans, err := resolve(clauses, r)
	if err != nil {
		return nil, nil, err
	}

	format := chooseFormat(spans)
	var section []byte
	if format == Fat {
		section = writeFat(spans)
	} else {
		section = writeSmall(spans)
	}

	report := &Report{Format: format, Fallbacks: r.Fallbacks()}
	if len(report.Fallbacks) > 0 {
		log.Warningf("encoded %d clauses with %d fallback boundaries", len(spans), len(report.Fallbacks))
	}
	log.Debugf("encoded %d clauses as %s section of %d bytes", len(spans), format, len(section))
	return section, report, nil
}

func chooseFormat(spans []span) Format {
	if len(spans) > MaxSmallClauses {
		return Fat
	}
	for _, s := range spans {
		if !s.fitsSmall() {
			return Fat
		}
	}
	return Small
}

func writeSmall(spans []span) []byte {
	size := headerSize + len(spans)*smallClauseLen
	w := cil.NewWriter(size)
	w.PutUint32(uint32(size)<<8 | uint32(FlagEHTable))
	for _, s := range spans {
		w.PutUint16(uint16(s.kind))
		w.PutUint16(uint16(s.tryStart))
		w.PutUint8(uint8(s.tryEnd - s.tryStart))
		w.PutUint16(uint16(s.handlerStart))
		w.PutUint8(uint8(s.handlerEnd - s.handlerStart))
		w.PutUint32(s.extra)
	}
	return w.Bytes()
}

func writeFat(spans []span) []byte {
	size := headerSize + len(spans)*fatClauseLen
	w := cil.NewWriter(size)
	w.PutUint32(uint32(size)<<8 | uint32(FlagEHTable|FlagFatFormat))
	for _, s := range spans {
		w.PutUint32(uint32(s.kind))
		w.PutUint32(s.tryStart)
		w.PutUint32(s.tryEnd - s.tryStart)
		w.PutUint32(s.handlerStart)
		w.PutUint32(s.handlerEnd - s.handlerStart)
		w.PutUint32(s.extra)
	}
	return w.Bytes()
}
