package cil

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ilhook.cil")

// ---------------------------------------------------------------------------
// Codec Error Types
// ---------------------------------------------------------------------------

var (
	ErrUnknownOpcode       = errors.New("unknown opcode")
	ErrTruncatedOperand    = errors.New("truncated operand")
	ErrOperandTypeMismatch = errors.New("operand type mismatch")
)

// ---------------------------------------------------------------------------
// Decode
// ---------------------------------------------------------------------------

// Decode parses an instruction stream. Each returned instruction carries
// its offset in code. The result is freshly allocated and owned by the
// caller.
func Decode(code []byte) ([]*Instruction, error) {
	r := NewReader(code)
	insts := make([]*Instruction, 0, len(code)/2)
	for r.HasMore() {
		inst, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	log.Debugf("decoded %d instructions from %d bytes", len(insts), len(code))
	return insts, nil
}

func decodeInstruction(r *Reader) (*Instruction, error) {
	offset := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	code := Code(b)
	if b == Prefix {
		second, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: opcode prefix at IL_%04X has no second byte", ErrTruncatedOperand, offset)
		}
		code = Code(uint16(Prefix)<<8 | uint16(second))
	}

	info, err := Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("%w at IL_%04X", err, offset)
	}

	operand, err := readOperand(r, info.Operand)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at IL_%04X", ErrTruncatedOperand, info.Name, offset)
	}
	return &Instruction{Offset: uint32(offset), Op: info, Operand: operand}, nil
}

func readOperand(r *Reader, kind OperandKind) (any, error) {
	switch kind {
	case InlineNone:
		return nil, nil
	case InlineBrTarget, InlineField, InlineI, InlineMethod, InlineSig, InlineString, InlineTok, InlineType:
		return r.ReadInt32()
	case InlineI8:
		return r.ReadInt64()
	case InlineR:
		return r.ReadFloat64()
	case InlineSwitch:
		count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if uint64(count)*4 > uint64(r.Remaining()) {
			return nil, fmt.Errorf("switch table of %d targets exceeds %d remaining bytes", count, r.Remaining())
		}
		return r.ReadBytes(int(count) * 4)
	case InlineVar:
		b, err := r.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		return [2]byte{b[0], b[1]}, nil
	case ShortInlineBrTarget, ShortInlineI:
		return r.ReadInt8()
	case ShortInlineR:
		return r.ReadFloat32()
	case ShortInlineVar:
		return r.ReadByte()
	default:
		return nil, fmt.Errorf("operand kind %s not supported", kind)
	}
}

// ---------------------------------------------------------------------------
// Encode
// ---------------------------------------------------------------------------

// Encode serialises insts and refreshes every instruction's Offset to its
// position in the returned bytes. An unmodified decoded sequence encodes to
// the exact input bytes.
func Encode(insts []*Instruction) ([]byte, error) {
	w := NewWriter(encodedSize(insts))
	for _, inst := range insts {
		offset := uint32(w.Len())
		if err := encodeInstruction(w, inst); err != nil {
			return nil, fmt.Errorf("%w at IL_%04X", err, offset)
		}
		inst.Offset = offset
	}
	return w.Bytes(), nil
}

func encodeInstruction(w *Writer, inst *Instruction) error {
	if err := checkOperand(inst.Op, inst.Operand); err != nil {
		return err
	}
	if inst.Op.TwoByte() {
		w.PutUint8(Prefix)
	}
	w.PutUint8(uint8(inst.Op.Code))

	switch v := inst.Operand.(type) {
	case nil:
	case int32:
		w.PutInt32(v)
	case int64:
		w.PutInt64(v)
	case float64:
		w.PutFloat64(v)
	case []byte:
		w.PutUint32(uint32(len(v) / 4))
		w.PutBytes(v)
	case [2]byte:
		w.PutBytes(v[:])
	case int8:
		w.PutInt8(v)
	case float32:
		w.PutFloat32(v)
	case uint8:
		w.PutUint8(v)
	}
	return nil
}

func encodedSize(insts []*Instruction) int {
	n := 0
	for _, inst := range insts {
		n += inst.Size()
	}
	return n
}

// ComputeOffsets assigns Offset on every instruction as Encode would,
// without producing bytes, and returns the total length.
func ComputeOffsets(insts []*Instruction) uint32 {
	var offset uint32
	for _, inst := range insts {
		inst.Offset = offset
		offset += uint32(inst.Size())
	}
	return offset
}

// FindAt returns the index of the instruction starting at offset, or -1.
// insts must be ordered by offset, as Decode produces them.
func FindAt(insts []*Instruction, offset uint32) int {
	lo, hi := 0, len(insts)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if insts[mid].Offset < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(insts) && insts[lo].Offset == offset {
		return lo
	}
	return -1
}
