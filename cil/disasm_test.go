package cil

import (
	"errors"
	"strings"
	"testing"
)

func TestDisassembleSampleMethod(t *testing.T) {
	out, err := DisassembleBytes(sampleMethod)
	if err != nil {
		t.Fatalf("DisassembleBytes: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 22 {
		t.Fatalf("listing has %d lines, want 22:\n%s", len(lines), out)
	}
	if lines[0] != "; 21 instructions, 47 bytes" {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{
		"IL_0001: call 0x0A00004D",
		"IL_001B: leave.s IL_002E",
		"IL_001F: ldstr 0x700002B9",
		"IL_002E: ret",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q", want)
		}
	}
}

func TestDisassembleWithName(t *testing.T) {
	out := DisassembleWithName("Program::Main", []*Instruction{MustNew(Ret, nil)})
	if !strings.HasPrefix(out, "; === Program::Main ===\n") {
		t.Errorf("missing name header:\n%s", out)
	}
}

func TestDisassembleBytesError(t *testing.T) {
	if _, err := DisassembleBytes([]byte{0x24}); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("DisassembleBytes error = %v, want ErrUnknownOpcode", err)
	}
}
