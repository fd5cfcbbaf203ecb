package eh

import (
	"fmt"
	"strings"

	"github.com/chazu/ilhook/cil"
)

// Kind is the clause type. The low bits select the handler; Duplicated is
// an independent flag.
type Kind uint32

const (
	Catch      Kind = 0x0
	Filter     Kind = 0x1
	Finally    Kind = 0x2
	Fault      Kind = 0x4
	Duplicated Kind = 0x8
)

// Base returns the kind with the Duplicated flag cleared.
func (k Kind) Base() Kind {
	return k &^ Duplicated
}

// IsDuplicated reports whether the Duplicated flag is set.
func (k Kind) IsDuplicated() bool {
	return k&Duplicated != 0
}

func (k Kind) String() string {
	var name string
	switch k.Base() {
	case Catch:
		name = "catch"
	case Filter:
		name = "filter"
	case Finally:
		name = "finally"
	case Fault:
		name = "fault"
	default:
		name = fmt.Sprintf("kind(0x%X)", uint32(k.Base()))
	}
	if k.IsDuplicated() {
		name += "|duplicated"
	}
	return name
}

// Ref is an index into the instruction sequence a clause was decoded
// against.
type Ref int

// End marks a boundary one past the last instruction of the method. Only
// TryEnd and HandlerEnd may use it.
const End Ref = -1

func (r Ref) String() string {
	if r == End {
		return "end"
	}
	return fmt.Sprintf("#%d", int(r))
}

// Clause is one exception-handling clause. End boundaries are exclusive.
// FilterStart is only meaningful for Filter clauses and CatchType only for
// Catch clauses.
type Clause struct {
	Kind         Kind
	TryStart     Ref
	TryEnd       Ref
	HandlerStart Ref
	HandlerEnd   Ref
	FilterStart  Ref
	CatchType    uint32
}

func (c Clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.Kind.String())
	switch c.Kind.Base() {
	case Catch:
		fmt.Fprintf(&sb, "(0x%08X)", c.CatchType)
	case Filter:
		fmt.Fprintf(&sb, "(%s)", c.FilterStart)
	}
	fmt.Fprintf(&sb, " try [%s, %s) handler [%s, %s)", c.TryStart, c.TryEnd, c.HandlerStart, c.HandlerEnd)
	return sb.String()
}

// Listing renders the clause with IL offsets taken from insts, which should
// be the sequence the clause refers to with offsets fresh.
func (c Clause) Listing(insts []*cil.Instruction) string {
	label := func(r Ref) string {
		switch {
		case r == End:
			var n uint32
			if len(insts) > 0 {
				n = insts[len(insts)-1].End()
			}
			return fmt.Sprintf("IL_%04X", n)
		case r >= 0 && int(r) < len(insts):
			return fmt.Sprintf("IL_%04X", insts[r].Offset)
		}
		return "IL_????"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, ".try %s to %s ", label(c.TryStart), label(c.TryEnd))
	switch c.Kind.Base() {
	case Catch:
		fmt.Fprintf(&sb, "catch 0x%08X", c.CatchType)
	case Filter:
		fmt.Fprintf(&sb, "filter %s", label(c.FilterStart))
	default:
		sb.WriteString(c.Kind.Base().String())
	}
	fmt.Fprintf(&sb, " handler %s to %s", label(c.HandlerStart), label(c.HandlerEnd))
	if c.Kind.IsDuplicated() {
		sb.WriteString(" duplicated")
	}
	return sb.String()
}
