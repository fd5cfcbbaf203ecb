package body

import (
	"encoding/hex"
	"testing"
)

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

func sampleMethod(t *testing.T) *Method {
	t.Helper()
	return &Method{
		Token: 0x06000001,
		Name:  "Program::Main",
		IL:    mustHex(t, sampleIL),
		EH:    mustHex(t, sampleEH),
	}
}
