package body

import (
	"errors"
	"testing"

	"github.com/chazu/ilhook/cil"
)

func threeInsts() []*cil.Instruction {
	return []*cil.Instruction{
		cil.MustNew(cil.Nop, nil),
		cil.MustNew(cil.LdcI4S, int8(1)),
		cil.MustNew(cil.Ret, nil),
	}
}

func names(insts []*cil.Instruction) []string {
	out := make([]string, len(insts))
	for i, inst := range insts {
		out[i] = inst.Op.Name
	}
	return out
}

func TestEditKeepsOriginal(t *testing.T) {
	orig := threeInsts()
	e := NewEdit(orig)
	e.Prepend(cil.MustNew(cil.Ldnull, nil))
	if err := e.InsertAfter(orig[1], cil.MustNew(cil.Pop, nil)); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	if err := e.InsertBefore(orig[2], cil.MustNew(cil.Dup, nil)); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	if err := e.Remove(orig[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	got := names(e.Instructions())
	want := []string{"ldnull", "ldc.i4.s", "pop", "dup", "ret"}
	if len(got) != len(want) {
		t.Fatalf("edited = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edited[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if len(orig) != 3 || orig[0].Op.Code != cil.Nop {
		t.Errorf("original slice modified: %v", names(orig))
	}
}

func TestEditReplaceKeepsIdentity(t *testing.T) {
	orig := threeInsts()
	target := orig[1]
	e := NewEdit(orig)
	err := e.Replace(target, cil.MustNew(cil.LdcI4S, int8(2)), cil.MustNew(cil.LdcI4S, int8(3)))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	out := e.Instructions()
	if len(out) != 4 || out[1] != target {
		t.Fatalf("Replace did not keep the target pointer in place")
	}
	if target.Operand != int8(2) || out[2].Operand != int8(3) {
		t.Errorf("replaced operands = %v, %v", target.Operand, out[2].Operand)
	}

	if err := e.Replace(out[2]); err != nil {
		t.Fatalf("Replace with nothing: %v", err)
	}
	if len(e.Instructions()) != 3 {
		t.Errorf("empty Replace did not remove")
	}
}

func TestEditUnknownTarget(t *testing.T) {
	e := NewEdit(threeInsts())
	stray := cil.MustNew(cil.Nop, nil)
	for name, err := range map[string]error{
		"InsertBefore": e.InsertBefore(stray),
		"InsertAfter":  e.InsertAfter(stray),
		"Replace":      e.Replace(stray, stray),
		"Remove":       e.Remove(stray),
	} {
		if !errors.Is(err, ErrNotInBody) {
			t.Errorf("%s error = %v, want ErrNotInBody", name, err)
		}
	}
}
