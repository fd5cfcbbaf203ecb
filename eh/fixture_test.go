package eh

import (
	"encoding/hex"
	"testing"

	"github.com/chazu/ilhook/cil"
)

// A try/catch method body and its exception section. The try block covers
// IL_0007..IL_001D and the catch handler IL_001D..IL_002E.
const (
	sampleIL = "00284d00000a000016284e00000a00730b00000628" +
		"4f00000a0000de110a0072b902007006285000000a0000de002a"
	sampleEH = "0110000000000700161d00111f000001"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func sampleBody(t *testing.T) ([]*cil.Instruction, []byte) {
	t.Helper()
	insts, err := cil.Decode(mustHex(t, sampleIL))
	if err != nil {
		t.Fatalf("decode sample IL: %v", err)
	}
	return insts, mustHex(t, sampleEH)
}

// nops returns n nop instructions followed by ret.
func nops(n int) []*cil.Instruction {
	insts := make([]*cil.Instruction, 0, n+1)
	for i := 0; i < n; i++ {
		insts = append(insts, cil.MustNew(cil.Nop, nil))
	}
	return append(insts, cil.MustNew(cil.Ret, nil))
}

// padding returns instructions that occupy exactly n bytes, using a switch
// table for bulk.
func padding(n int) []*cil.Instruction {
	var insts []*cil.Instruction
	if n >= 5 {
		table := (n - 5) / 4 * 4
		insts = append(insts, cil.MustNew(cil.Switch, make([]byte, table)))
		n -= 5 + table
	}
	for ; n > 0; n-- {
		insts = append(insts, cil.MustNew(cil.Nop, nil))
	}
	return insts
}
