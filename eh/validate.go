package eh

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/ilhook/cil"
)

// span is a clause with its boundaries resolved to byte offsets.
type span struct {
	kind         Kind
	tryStart     uint32
	tryEnd       uint32
	handlerStart uint32
	handlerEnd   uint32
	extra        uint32
}

func (s span) fitsSmall() bool {
	return fitsSmall(s.tryStart, s.tryEnd) && fitsSmall(s.handlerStart, s.handlerEnd)
}

func fitsSmall(start, end uint32) bool {
	return end > start && start <= 0xFFFF && end-start <= 0xFF
}

// resolve turns every clause into a span, collecting all resolution and
// ordering problems before giving up.
func resolve(clauses []Clause, r *Recalculator) ([]span, error) {
	var result *multierror.Error
	spans := make([]span, len(clauses))
	for i, c := range clauses {
		s, err := resolveClause(c, r)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("clause %d (%s): %w", i, c.Kind, err))
			continue
		}
		spans[i] = s
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return spans, nil
}

func resolveClause(c Clause, r *Recalculator) (span, error) {
	s := span{kind: c.Kind}
	var result *multierror.Error
	offset := func(ref Ref) uint32 {
		off, err := r.Offset(ref)
		if err != nil {
			result = multierror.Append(result, err)
		}
		return off
	}

	s.tryStart = offset(c.TryStart)
	s.tryEnd = offset(c.TryEnd)
	s.handlerStart = offset(c.HandlerStart)
	s.handlerEnd = offset(c.HandlerEnd)
	switch c.Kind.Base() {
	case Catch:
		s.extra = c.CatchType
	case Filter:
		if c.FilterStart == End {
			result = multierror.Append(result, fmt.Errorf("%w: filter start is end of method", ErrInvalidClauseOrdering))
		} else {
			s.extra = offset(c.FilterStart)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return span{}, err
	}

	if s.tryEnd <= s.tryStart {
		result = multierror.Append(result, fmt.Errorf("%w: try end IL_%04X <= start IL_%04X", ErrInvalidClauseOrdering, s.tryEnd, s.tryStart))
	}
	if s.handlerEnd <= s.handlerStart {
		result = multierror.Append(result, fmt.Errorf("%w: handler end IL_%04X <= start IL_%04X", ErrInvalidClauseOrdering, s.handlerEnd, s.handlerStart))
	}
	return s, result.ErrorOrNil()
}

// Validate checks clauses against the rewritten sequence without encoding.
// Every problem is reported in a single aggregated error. Boundaries whose
// instruction was removed are reported rather than resolved from the
// original offsets.
func Validate(clauses []Clause, original, rewritten []*cil.Instruction) error {
	r, err := NewRecalculator(original, rewritten)
	if err != nil {
		return err
	}
	r.Strict = true
	_, err = resolve(clauses, r)
	return err
}
