package cil

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instruction is one decoded opcode and its operand.
//
// Operand holds a value whose Go type is fixed by Op.Operand:
//
//	InlineNone                                   nil
//	InlineBrTarget, InlineField, InlineI,
//	InlineMethod, InlineSig, InlineString,
//	InlineTok, InlineType                        int32
//	InlineI8                                     int64
//	InlineR                                      float64
//	InlineSwitch                                 []byte (raw 4·N jump table, N >= 0)
//	InlineVar                                    [2]byte
//	ShortInlineBrTarget, ShortInlineI            int8
//	ShortInlineR                                 float32
//	ShortInlineVar                               uint8
//
// Offset is only meaningful right after Decode or Encode.
type Instruction struct {
	Offset  uint32
	Op      OpcodeInfo
	Operand any
}

// New builds an instruction for code, checking the operand type.
func New(code Code, operand any) (*Instruction, error) {
	info, err := Lookup(code)
	if err != nil {
		return nil, err
	}
	if err := checkOperand(info, operand); err != nil {
		return nil, err
	}
	return &Instruction{Op: info, Operand: operand}, nil
}

// MustNew is like New but panics on error.
func MustNew(code Code, operand any) *Instruction {
	inst, err := New(code, operand)
	if err != nil {
		panic(err)
	}
	return inst
}

// Clone returns a copy that does not share the switch table.
func (i *Instruction) Clone() *Instruction {
	c := *i
	if table, ok := i.Operand.([]byte); ok {
		c.Operand = append([]byte(nil), table...)
	}
	return &c
}

// Size returns the encoded length of the instruction in bytes.
func (i *Instruction) Size() int {
	n := i.Op.Size
	if i.Op.Operand == InlineSwitch {
		table, _ := i.Operand.([]byte)
		return n + 4 + len(table)
	}
	return n + i.Op.Operand.FixedLen()
}

// End returns the offset one past the instruction.
func (i *Instruction) End() uint32 {
	return i.Offset + uint32(i.Size())
}

// IsBranch reports whether the operand is a relative branch displacement.
func (i *Instruction) IsBranch() bool {
	return i.Op.Operand == InlineBrTarget || i.Op.Operand == ShortInlineBrTarget
}

// BranchTarget returns the absolute target offset of a branch instruction,
// computed from the current Offset.
func (i *Instruction) BranchTarget() (int64, bool) {
	next := int64(i.End())
	switch d := i.Operand.(type) {
	case int32:
		if i.Op.Operand == InlineBrTarget {
			return next + int64(d), true
		}
	case int8:
		if i.Op.Operand == ShortInlineBrTarget {
			return next + int64(d), true
		}
	}
	return 0, false
}

// SwitchTargets returns the absolute targets of a switch instruction.
func (i *Instruction) SwitchTargets() ([]int64, bool) {
	table, ok := i.Operand.([]byte)
	if !ok || i.Op.Operand != InlineSwitch {
		return nil, false
	}
	next := int64(i.End())
	targets := make([]int64, 0, len(table)/4)
	for p := 0; p+4 <= len(table); p += 4 {
		targets = append(targets, next+int64(int32(binary.LittleEndian.Uint32(table[p:]))))
	}
	return targets, true
}

func (i *Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "IL_%04X: %s", i.Offset, i.Op.Name)
	if operand := i.operandString(); operand != "" {
		sb.WriteByte(' ')
		sb.WriteString(operand)
	}
	return sb.String()
}

func (i *Instruction) operandString() string {
	switch i.Op.Operand {
	case InlineNone:
		return ""
	case InlineBrTarget, ShortInlineBrTarget:
		if target, ok := i.BranchTarget(); ok {
			return fmt.Sprintf("IL_%04X", target)
		}
	case InlineSwitch:
		if targets, ok := i.SwitchTargets(); ok {
			labels := make([]string, len(targets))
			for n, t := range targets {
				labels[n] = fmt.Sprintf("IL_%04X", t)
			}
			return "(" + strings.Join(labels, ", ") + ")"
		}
	case InlineField, InlineMethod, InlineSig, InlineString, InlineTok, InlineType:
		if tok, ok := i.Operand.(int32); ok {
			return fmt.Sprintf("0x%08X", uint32(tok))
		}
	case InlineVar:
		if v, ok := i.Operand.([2]byte); ok {
			return fmt.Sprintf("V_%d", binary.LittleEndian.Uint16(v[:]))
		}
	case ShortInlineVar:
		if v, ok := i.Operand.(uint8); ok {
			return fmt.Sprintf("V_%d", v)
		}
	}
	return fmt.Sprint(i.Operand)
}

// checkOperand verifies that operand has the Go type required by info.
func checkOperand(info OpcodeInfo, operand any) error {
	ok := false
	switch info.Operand {
	case InlineNone:
		ok = operand == nil
	case InlineBrTarget, InlineField, InlineI, InlineMethod, InlineSig, InlineString, InlineTok, InlineType:
		_, ok = operand.(int32)
	case InlineI8:
		_, ok = operand.(int64)
	case InlineR:
		_, ok = operand.(float64)
	case InlineSwitch:
		var table []byte
		table, ok = operand.([]byte)
		ok = ok && len(table)%4 == 0
	case InlineVar:
		_, ok = operand.([2]byte)
	case ShortInlineBrTarget, ShortInlineI:
		_, ok = operand.(int8)
	case ShortInlineR:
		_, ok = operand.(float32)
	case ShortInlineVar:
		_, ok = operand.(uint8)
	}
	if !ok {
		return fmt.Errorf("%w: %s (%s) cannot take %T", ErrOperandTypeMismatch, info.Name, info.Operand, operand)
	}
	return nil
}
