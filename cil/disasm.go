package cil

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of insts, one per line.
func Disassemble(insts []*Instruction) string {
	return DisassembleWithName("", insts)
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(name string, insts []*Instruction) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	size := 0
	for _, inst := range insts {
		size += inst.Size()
	}
	sb.WriteString(fmt.Sprintf("; %d instructions, %d bytes\n", len(insts), size))

	for _, inst := range insts {
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DisassembleBytes decodes code and returns its listing.
func DisassembleBytes(code []byte) (string, error) {
	insts, err := Decode(code)
	if err != nil {
		return "", err
	}
	return Disassemble(insts), nil
}
