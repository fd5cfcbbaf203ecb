package eh

import (
	"fmt"

	"github.com/chazu/ilhook/cil"
)

// Decode parses the exception section against insts, the instruction
// sequence decoded from the same method body, in offset order. A section without the EH
// table flag yields no clauses. Only the first section of a chain is read.
//
// An end offset with no instruction becomes End. A start or filter offset
// with no instruction is an error.
func Decode(section []byte, insts []*cil.Instruction) ([]Clause, error) {
	if len(section) == 0 || section[0]&FlagEHTable == 0 {
		return nil, nil
	}
	h, err := ParseHeader(section)
	if err != nil {
		return nil, err
	}
	if h.Len() > len(section) {
		return nil, fmt.Errorf("%w: %d clauses need %d bytes, have %d", ErrTruncatedSection, h.Count, h.Len(), len(section))
	}

	r := cil.NewReader(section)
	r.Seek(headerSize)
	clauses := make([]Clause, 0, h.Count)
	for n := 0; n < h.Count; n++ {
		raw, err := readClause(r, h.Fat())
		if err != nil {
			return nil, fmt.Errorf("%w: clause %d: %v", ErrTruncatedSection, n, err)
		}
		c, err := raw.resolve(insts)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", n, err)
		}
		clauses = append(clauses, c)
	}
	if h.More() {
		log.Debugf("ignoring sections chained after %d clauses", len(clauses))
	}
	log.Debugf("decoded %d clauses (fat=%t)", len(clauses), h.Fat())
	return clauses, nil
}

// rawClause is a clause as stored, with byte offsets.
type rawClause struct {
	kind          Kind
	tryOffset     uint32
	tryLength     uint32
	handlerOffset uint32
	handlerLength uint32
	extra         uint32
}

func readClause(r *cil.Reader, fat bool) (rawClause, error) {
	var c rawClause
	var err error
	if fat {
		var fields [6]uint32
		for i := range fields {
			if fields[i], err = r.ReadUint32(); err != nil {
				return c, err
			}
		}
		return rawClause{Kind(fields[0]), fields[1], fields[2], fields[3], fields[4], fields[5]}, nil
	}

	var kind, tryOff, hOff uint16
	var tryLen, hLen byte
	if kind, err = r.ReadUint16(); err != nil {
		return c, err
	}
	if tryOff, err = r.ReadUint16(); err != nil {
		return c, err
	}
	if tryLen, err = r.ReadByte(); err != nil {
		return c, err
	}
	if hOff, err = r.ReadUint16(); err != nil {
		return c, err
	}
	if hLen, err = r.ReadByte(); err != nil {
		return c, err
	}
	if c.extra, err = r.ReadUint32(); err != nil {
		return c, err
	}
	c.kind = Kind(kind)
	c.tryOffset, c.tryLength = uint32(tryOff), uint32(tryLen)
	c.handlerOffset, c.handlerLength = uint32(hOff), uint32(hLen)
	return c, nil
}

func (rc rawClause) resolve(insts []*cil.Instruction) (Clause, error) {
	start := func(what string, off uint32) (Ref, error) {
		if i := cil.FindAt(insts, off); i >= 0 {
			return Ref(i), nil
		}
		return End, fmt.Errorf("%w: %s at IL_%04X", ErrUnresolvedOffset, what, off)
	}
	end := func(off uint32) Ref {
		if i := cil.FindAt(insts, off); i >= 0 {
			return Ref(i)
		}
		return End
	}

	c := Clause{Kind: rc.kind, FilterStart: End}
	var err error
	if c.TryStart, err = start("try start", rc.tryOffset); err != nil {
		return Clause{}, err
	}
	c.TryEnd = end(rc.tryOffset + rc.tryLength)
	if c.HandlerStart, err = start("handler start", rc.handlerOffset); err != nil {
		return Clause{}, err
	}
	c.HandlerEnd = end(rc.handlerOffset + rc.handlerLength)

	switch rc.kind.Base() {
	case Catch:
		c.CatchType = rc.extra
	case Filter:
		if c.FilterStart, err = start("filter start", rc.extra); err != nil {
			return Clause{}, err
		}
	}
	return c, nil
}
