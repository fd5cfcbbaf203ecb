package body

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/ilhook/cil"
	"github.com/chazu/ilhook/eh"
)

func TestRewriteIdentity(t *testing.T) {
	m := sampleMethod(t)
	r := &Rewriter{Strict: true}
	res, err := r.Rewrite(m, Identity)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !res.Rewritten {
		t.Error("Rewritten = false")
	}
	if !bytes.Equal(res.Method.IL, m.IL) || !bytes.Equal(res.Method.EH, m.EH) {
		t.Errorf("identity rewrite changed the body")
	}
}

func TestRewritePrependNops(t *testing.T) {
	m := sampleMethod(t)
	r := &Rewriter{}
	res, err := r.Rewrite(m, PrependNops(2))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	wantIL := append([]byte{0x00, 0x00}, m.IL...)
	if !bytes.Equal(res.Method.IL, wantIL) {
		t.Errorf("IL = % X", res.Method.IL)
	}
	wantEH := mustHex(t, "0110000000000900161f00111f000001")
	if !bytes.Equal(res.Method.EH, wantEH) {
		t.Errorf("EH = % X, want % X", res.Method.EH, wantEH)
	}
	if res.Report.Format != eh.Small || len(res.Report.Fallbacks) != 0 {
		t.Errorf("report = %+v", res.Report)
	}
	if res.Method.Token != m.Token || res.Method.Name != m.Name {
		t.Errorf("identity fields lost: %v", res.Method)
	}
}

func TestRewritePassThrough(t *testing.T) {
	failing := func(b *Body) ([]*cil.Instruction, error) {
		return nil, errors.New("pass refused")
	}
	badIL := sampleMethod(t)
	badIL.IL = []byte{0x00, 0x24}

	tests := []struct {
		name   string
		method *Method
		pass   Pass
		want   error
	}{
		{"undecodable code", badIL, Identity, cil.ErrUnknownOpcode},
		{"failing pass", sampleMethod(t), failing, nil},
	}
	r := &Rewriter{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Rewrite(tt.method, tt.pass)
			if err == nil {
				t.Fatal("Rewrite succeeded")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if res == nil || res.Method != tt.method || res.Rewritten {
				t.Errorf("method was not passed through: %+v", res)
			}
		})
	}
}

func TestRewriteRemovedBoundary(t *testing.T) {
	dropTryStart := func(b *Body) ([]*cil.Instruction, error) {
		e := NewEdit(b.Insts)
		if err := e.Remove(b.Insts[3]); err != nil {
			return nil, err
		}
		return e.Instructions(), nil
	}

	res, err := (&Rewriter{}).Rewrite(sampleMethod(t), dropTryStart)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if len(res.Report.Fallbacks) != 1 || res.Report.Fallbacks[0].Ref != 3 {
		t.Errorf("fallbacks = %v", res.Report.Fallbacks)
	}

	m := sampleMethod(t)
	res, err = (&Rewriter{Strict: true}).Rewrite(m, dropTryStart)
	if !errors.Is(err, eh.ErrUnresolvedOffset) {
		t.Errorf("strict error = %v, want ErrUnresolvedOffset", err)
	}
	if res.Method != m {
		t.Error("strict failure did not pass the method through")
	}
}

func TestRewriteAll(t *testing.T) {
	bad := sampleMethod(t)
	bad.EH = []byte{0x01, 0x10}
	methods := []*Method{sampleMethod(t), bad, sampleMethod(t)}

	results, failed := (&Rewriter{}).RewriteAll(methods, PrependNops(1))
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if !results[0].Rewritten || results[1].Rewritten || !results[2].Rewritten {
		t.Errorf("unexpected rewrite flags")
	}
	if results[1].Method != bad {
		t.Error("failed method not passed through")
	}
}
