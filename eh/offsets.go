package eh

import (
	"fmt"

	"github.com/chazu/ilhook/cil"
)

// Fallback records a ref whose instruction is missing from the rewritten
// sequence. Its offset was taken from the original sequence and is most
// likely wrong.
type Fallback struct {
	Ref    Ref
	Offset uint32
	Op     string
}

func (f Fallback) String() string {
	return fmt.Sprintf("%s (%s) fell back to IL_%04X", f.Ref, f.Op, f.Offset)
}

// Recalculator maps refs into the original sequence onto byte offsets in a
// rewritten one. An instruction is found in the rewritten sequence by
// pointer identity. Unless Strict is set, a ref whose instruction is gone
// resolves to its original offset and is recorded in Fallbacks.
type Recalculator struct {
	// Strict turns fallbacks into ErrUnresolvedOffset errors.
	Strict bool

	original  []*cil.Instruction
	position  map[*cil.Instruction]int
	fresh     []*cil.Instruction
	length    uint32
	fallbacks []Fallback
	seen      map[Ref]bool
}

// NewRecalculator encodes rewritten and decodes the result into a fresh
// copy whose offsets are authoritative. Encoding refreshes the offsets of
// rewritten as a side effect.
func NewRecalculator(original, rewritten []*cil.Instruction) (*Recalculator, error) {
	code, err := cil.Encode(rewritten)
	if err != nil {
		return nil, fmt.Errorf("encode rewritten body: %w", err)
	}
	fresh, err := cil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decode rewritten body: %w", err)
	}

	position := make(map[*cil.Instruction]int, len(rewritten))
	for j, inst := range rewritten {
		if _, dup := position[inst]; !dup {
			position[inst] = j
		}
	}
	return &Recalculator{
		original: original,
		position: position,
		fresh:    fresh,
		length:   uint32(len(code)),
		seen:     make(map[Ref]bool),
	}, nil
}

// Length returns the size of the rewritten code in bytes.
func (r *Recalculator) Length() uint32 {
	return r.length
}

// Offset resolves ref to a byte offset in the rewritten code.
func (r *Recalculator) Offset(ref Ref) (uint32, error) {
	if ref == End {
		return r.length, nil
	}
	if ref < 0 || int(ref) >= len(r.original) {
		return 0, fmt.Errorf("%w: %s outside %d instructions", ErrUnresolvedOffset, ref, len(r.original))
	}

	inst := r.original[ref]
	if j, ok := r.position[inst]; ok {
		return r.fresh[j].Offset, nil
	}

	if r.Strict {
		return 0, fmt.Errorf("%w: %s (%s) is not in the rewritten body", ErrUnresolvedOffset, ref, inst.Op.Name)
	}
	if !r.seen[ref] {
		r.seen[ref] = true
		fb := Fallback{Ref: ref, Offset: inst.Offset, Op: inst.Op.Name}
		r.fallbacks = append(r.fallbacks, fb)
		log.Warningf("clause boundary %s", fb)
	}
	return inst.Offset, nil
}

// Fallbacks returns every ref that was resolved from the original offset.
func (r *Recalculator) Fallbacks() []Fallback {
	return r.fallbacks
}
