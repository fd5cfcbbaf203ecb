package body

import (
	"strings"
	"testing"
)

func TestListing(t *testing.T) {
	out, err := Listing(sampleMethod(t))
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	for _, want := range []string{
		"; === Program::Main (0x06000001) ===",
		"; 21 instructions, 47 bytes",
		"IL_001D: stloc.0",
		"; 1 exception clauses",
		".try IL_0007 to IL_001D catch 0x0100001F handler IL_001D to IL_002E",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
