package body

import (
	"fmt"
	"strings"

	"github.com/chazu/ilhook/cil"
)

// Listing returns a disassembly of the method followed by its clauses.
func Listing(m *Method) (string, error) {
	b, err := m.Decode()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(cil.DisassembleWithName(m.String(), b.Insts))
	if len(b.Clauses) > 0 {
		sb.WriteString(fmt.Sprintf("; %d exception clauses\n", len(b.Clauses)))
		for _, c := range b.Clauses {
			sb.WriteString(c.Listing(b.Insts))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}
