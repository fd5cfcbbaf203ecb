package body

import (
	"fmt"

	"github.com/chazu/ilhook/cil"
	"github.com/chazu/ilhook/eh"
)

// Pass edits a decoded body. It returns the rewritten sequence; clause refs
// keep indexing the original sequence in b.Insts.
type Pass func(b *Body) ([]*cil.Instruction, error)

// Result is the outcome of one rewrite.
type Result struct {
	Method *Method
	// Rewritten is false when the original method was passed through.
	Rewritten bool
	Report    *eh.Report
}

// Rewriter applies a pass to captured methods. On any failure the original
// method is handed back unchanged along with the error, so a hook can
// always continue compiling something.
type Rewriter struct {
	Strict bool
}

// Rewrite applies pass to m.
func (r *Rewriter) Rewrite(m *Method, pass Pass) (*Result, error) {
	res, err := r.rewrite(m, pass)
	if err != nil {
		log.Noticef("passing %s through unchanged: %s", m, err)
		return &Result{Method: m}, err
	}
	return res, nil
}

func (r *Rewriter) rewrite(m *Method, pass Pass) (*Result, error) {
	b, err := m.Decode()
	if err != nil {
		return nil, err
	}
	original := b.Insts
	rewritten, err := pass(b)
	if err != nil {
		return nil, fmt.Errorf("%s: pass: %w", m, err)
	}

	section, report, err := eh.EncodeReport(b.Clauses, original, rewritten, eh.Options{Strict: r.Strict})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	code, err := cil.Encode(rewritten)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}

	log.Debugf("rewrote %s: %d -> %d code bytes, %d clauses (%s)",
		m, len(m.IL), len(code), len(b.Clauses), report.Format)
	out := &Method{Token: m.Token, Name: m.Name, IL: code, EH: section}
	return &Result{Method: out, Rewritten: true, Report: report}, nil
}

// RewriteAll rewrites every method, collecting results in order. Methods
// that fail are passed through; the returned count is the number of
// failures.
func (r *Rewriter) RewriteAll(methods []*Method, pass Pass) ([]*Result, int) {
	results := make([]*Result, len(methods))
	failed := 0
	for i, m := range methods {
		res, err := r.Rewrite(m, pass)
		if err != nil {
			failed++
		}
		results[i] = res
	}
	return results, failed
}

// PrependNops returns a pass that inserts n nop instructions at the start
// of the method.
func PrependNops(n int) Pass {
	return func(b *Body) ([]*cil.Instruction, error) {
		e := NewEdit(b.Insts)
		add := make([]*cil.Instruction, n)
		for i := range add {
			add[i] = cil.MustNew(cil.Nop, nil)
		}
		e.Prepend(add...)
		return e.Instructions(), nil
	}
}

// Identity is a pass that changes nothing.
func Identity(b *Body) ([]*cil.Instruction, error) {
	return b.Insts, nil
}
