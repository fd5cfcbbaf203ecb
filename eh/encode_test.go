package eh

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/ilhook/cil"
)

func TestRoundTripSampleSection(t *testing.T) {
	insts, section := sampleBody(t)
	clauses, err := Decode(section, insts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, report, err := EncodeReport(clauses, insts, insts, Options{Strict: true})
	if err != nil {
		t.Fatalf("EncodeReport: %v", err)
	}
	if !bytes.Equal(got, section) {
		t.Errorf("round trip mismatch:\n got  % X\n want % X", got, section)
	}
	if report.Format != Small || len(report.Fallbacks) != 0 {
		t.Errorf("report = %+v, want small with no fallbacks", report)
	}
}

// ladder builds n finally clauses over nops(n+1), each one instruction wide.
func ladder(n int) ([]Clause, []*cil.Instruction) {
	insts := nops(n + 1)
	clauses := make([]Clause, n)
	for i := range clauses {
		clauses[i] = Clause{
			Kind:         Finally,
			TryStart:     Ref(i),
			TryEnd:       Ref(i + 1),
			HandlerStart: Ref(i + 1),
			HandlerEnd:   Ref(i + 2),
			FilterStart:  End,
		}
	}
	return clauses, insts
}

func TestSmallFatClauseCount(t *testing.T) {
	tests := []struct {
		count  int
		format Format
		header []byte
	}{
		{1, Small, []byte{0x01, 16, 0x00, 0x00}},
		{20, Small, []byte{0x01, 244, 0x00, 0x00}},
		{21, Fat, []byte{0x41, 0xFC, 0x01, 0x00}},
	}
	for _, tt := range tests {
		clauses, insts := ladder(tt.count)
		section, report, err := EncodeReport(clauses, insts, insts, Options{})
		if err != nil {
			t.Fatalf("%d clauses: EncodeReport: %v", tt.count, err)
		}
		if report.Format != tt.format {
			t.Errorf("%d clauses: format = %s, want %s", tt.count, report.Format, tt.format)
		}
		if !bytes.Equal(section[:4], tt.header) {
			t.Errorf("%d clauses: header = % X, want % X", tt.count, section[:4], tt.header)
		}

		decoded, err := Decode(section, insts)
		if err != nil {
			t.Fatalf("%d clauses: Decode: %v", tt.count, err)
		}
		if !reflect.DeepEqual(decoded, clauses) {
			t.Errorf("%d clauses: decoded clauses differ", tt.count)
		}
	}
}

func TestRegionBoundsSelectFormat(t *testing.T) {
	withTryAt := func(start int) ([]Clause, []*cil.Instruction) {
		insts := []*cil.Instruction{cil.MustNew(cil.Nop, nil)}
		insts = append(insts, padding(start-1)...)
		insts = append(insts, cil.MustNew(cil.Nop, nil), cil.MustNew(cil.Ret, nil))
		n := len(insts)
		return []Clause{{
			Kind: Finally, TryStart: Ref(n - 2), TryEnd: Ref(n - 1),
			HandlerStart: 0, HandlerEnd: 1, FilterStart: End,
		}}, insts
	}
	withTryLength := func(length int) ([]Clause, []*cil.Instruction) {
		insts := []*cil.Instruction{cil.MustNew(cil.Nop, nil)}
		insts = append(insts, padding(length)...)
		insts = append(insts, cil.MustNew(cil.Ret, nil))
		return []Clause{{
			Kind: Finally, TryStart: 1, TryEnd: Ref(len(insts) - 1),
			HandlerStart: 0, HandlerEnd: 1, FilterStart: End,
		}}, insts
	}

	tests := []struct {
		name  string
		build func() ([]Clause, []*cil.Instruction)
		want  Format
	}{
		{"start 0xFFFF", func() ([]Clause, []*cil.Instruction) { return withTryAt(0xFFFF) }, Small},
		{"start 0x10000", func() ([]Clause, []*cil.Instruction) { return withTryAt(0x10000) }, Fat},
		{"length 255", func() ([]Clause, []*cil.Instruction) { return withTryLength(255) }, Small},
		{"length 256", func() ([]Clause, []*cil.Instruction) { return withTryLength(256) }, Fat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, insts := tt.build()
			section, report, err := EncodeReport(clauses, insts, insts, Options{Strict: true})
			if err != nil {
				t.Fatalf("EncodeReport: %v", err)
			}
			if report.Format != tt.want {
				t.Errorf("format = %s, want %s", report.Format, tt.want)
			}
			decoded, err := Decode(section, insts)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(decoded, clauses) {
				t.Errorf("decoded %v, want %v", decoded, clauses)
			}
		})
	}
}

func TestEncodeAfterInsertion(t *testing.T) {
	original := []*cil.Instruction{
		cil.MustNew(cil.Nop, nil),
		cil.MustNew(cil.LdcI4S, int8(1)),
		cil.MustNew(cil.Ret, nil),
	}
	if n := cil.ComputeOffsets(original); n != 4 || original[2].Offset != 3 {
		t.Fatalf("unexpected layout: length %d, ret at %d", n, original[2].Offset)
	}
	clauses := []Clause{{
		Kind: Finally, TryStart: 0, TryEnd: 2,
		HandlerStart: 2, HandlerEnd: End, FilterStart: End,
	}}

	rewritten := []*cil.Instruction{
		original[0],
		cil.MustNew(cil.LdcI4S, int8(2)),
		cil.MustNew(cil.LdcI4S, int8(3)),
		original[2],
	}

	r, err := NewRecalculator(original, rewritten)
	if err != nil {
		t.Fatalf("NewRecalculator: %v", err)
	}
	r.Strict = true
	if off, err := r.Offset(2); err != nil || off != 5 {
		t.Errorf("Offset(2) = %d, %v; want 5", off, err)
	}
	if off, _ := r.Offset(End); off != 6 {
		t.Errorf("Offset(End) = %d, want 6", off)
	}

	section, err := Encode(clauses, original, rewritten)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{
		0x01, 0x10, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00, 0x05, 0x05, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(section, want) {
		t.Errorf("section = % X, want % X", section, want)
	}
}

func TestEncodeFallback(t *testing.T) {
	original := nops(3)
	clauses := []Clause{{
		Kind: Fault, TryStart: 0, TryEnd: 1,
		HandlerStart: 1, HandlerEnd: 3, FilterStart: End,
	}}
	// Drop the instruction that ends the try block.
	rewritten := []*cil.Instruction{original[0], original[2], original[3]}
	cil.ComputeOffsets(original)

	section, report, err := EncodeReport(clauses, original, rewritten, Options{})
	if err != nil {
		t.Fatalf("EncodeReport: %v", err)
	}
	if len(report.Fallbacks) != 1 || report.Fallbacks[0].Ref != 1 || report.Fallbacks[0].Offset != 1 {
		t.Errorf("fallbacks = %v, want one for #1 at IL_0001", report.Fallbacks)
	}
	if len(section) != 16 {
		t.Errorf("section length = %d, want 16", len(section))
	}

	if _, _, err := EncodeReport(clauses, original, rewritten, Options{Strict: true}); !errors.Is(err, ErrUnresolvedOffset) {
		t.Errorf("strict error = %v, want ErrUnresolvedOffset", err)
	}
	if err := Validate(clauses, original, rewritten); !errors.Is(err, ErrUnresolvedOffset) {
		t.Errorf("Validate error = %v, want ErrUnresolvedOffset", err)
	}
}

func TestEncodeRejectsMalformedClauses(t *testing.T) {
	_, insts := ladder(4)
	clauses := []Clause{
		{Kind: Catch, TryStart: 2, TryEnd: 0, HandlerStart: 2, HandlerEnd: 3, FilterStart: End},
		{Kind: Finally, TryStart: 0, TryEnd: 1, HandlerStart: 1, HandlerEnd: 2, FilterStart: End},
		{Kind: Finally, TryStart: 0, TryEnd: 1, HandlerStart: 3, HandlerEnd: 3, FilterStart: End},
	}

	section, err := Encode(clauses, insts, insts)
	if !errors.Is(err, ErrInvalidClauseOrdering) {
		t.Fatalf("Encode error = %v, want ErrInvalidClauseOrdering", err)
	}
	if section != nil {
		t.Error("Encode wrote bytes for an invalid clause set")
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Errorf("want both bad clauses reported, got %v", err)
	}
	if err := Validate(clauses, insts, insts); !errors.Is(err, ErrInvalidClauseOrdering) {
		t.Errorf("Validate error = %v, want ErrInvalidClauseOrdering", err)
	}
}

func TestEncodeRefErrors(t *testing.T) {
	_, insts := ladder(2)
	tests := []struct {
		name   string
		clause Clause
		want   error
	}{
		{"ref past original", Clause{Kind: Finally, TryStart: 99, TryEnd: 1, HandlerStart: 1, HandlerEnd: 2}, ErrUnresolvedOffset},
		{"negative ref", Clause{Kind: Finally, TryStart: -3, TryEnd: 1, HandlerStart: 1, HandlerEnd: 2}, ErrUnresolvedOffset},
		{"filter at end", Clause{Kind: Filter, TryStart: 0, TryEnd: 1, HandlerStart: 1, HandlerEnd: 2, FilterStart: End}, ErrInvalidClauseOrdering},
		{"start at end", Clause{Kind: Finally, TryStart: End, TryEnd: End, HandlerStart: 1, HandlerEnd: 2}, ErrInvalidClauseOrdering},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode([]Clause{tt.clause}, insts, insts); !errors.Is(err, tt.want) {
				t.Errorf("Encode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeKindsRoundTrip(t *testing.T) {
	insts := nops(8)
	clauses := []Clause{
		{Kind: Catch, TryStart: 0, TryEnd: 2, HandlerStart: 2, HandlerEnd: 3, FilterStart: End, CatchType: 0x01000002},
		{Kind: Filter, TryStart: 0, TryEnd: 2, HandlerStart: 4, HandlerEnd: 5, FilterStart: 3},
		{Kind: Finally | Duplicated, TryStart: 0, TryEnd: 5, HandlerStart: 5, HandlerEnd: 6, FilterStart: End},
		{Kind: Fault, TryStart: 6, TryEnd: 7, HandlerStart: 7, HandlerEnd: End, FilterStart: End},
	}
	section, err := Encode(clauses, insts, insts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(section, insts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, clauses) {
		t.Errorf("decoded:\n%v\nwant:\n%v", decoded, clauses)
	}
}

func TestEncodeEmpty(t *testing.T) {
	insts := nops(1)
	section, report, err := EncodeReport(nil, insts, insts, Options{})
	if err != nil || section != nil || report.Format != Small {
		t.Errorf("EncodeReport(nil) = % X, %+v, %v", section, report, err)
	}
}

func TestEncodeTooManyClauses(t *testing.T) {
	insts := nops(1)
	clauses := make([]Clause, MaxFatClauses+1)
	if _, err := Encode(clauses, insts, insts); !errors.Is(err, ErrTooManyClauses) {
		t.Errorf("Encode error = %v, want ErrTooManyClauses", err)
	}
}

func TestEncodeBadRewrittenBody(t *testing.T) {
	insts := nops(1)
	bad := []*cil.Instruction{{Op: cil.MustLookup(cil.Call)}}
	clauses := []Clause{{Kind: Finally, TryStart: 0, TryEnd: 1, HandlerStart: 1, HandlerEnd: End, FilterStart: End}}
	if _, err := Encode(clauses, insts, bad); !errors.Is(err, cil.ErrOperandTypeMismatch) {
		t.Errorf("Encode error = %v, want ErrOperandTypeMismatch", err)
	}
}
