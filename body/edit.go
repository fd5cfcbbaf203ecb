package body

import (
	"fmt"
	"slices"

	"github.com/chazu/ilhook/cil"
)

// Edit builds a rewritten instruction sequence without disturbing the
// original slice. Targets are named by pointer, so positions stay valid
// across earlier edits. Instructions inserted before a clause boundary fall
// outside the clause.
type Edit struct {
	insts []*cil.Instruction
}

// NewEdit starts an edit of insts.
func NewEdit(insts []*cil.Instruction) *Edit {
	return &Edit{insts: slices.Clone(insts)}
}

// Instructions returns the edited sequence.
func (e *Edit) Instructions() []*cil.Instruction {
	return e.insts
}

func (e *Edit) find(target *cil.Instruction) (int, error) {
	i := slices.Index(e.insts, target)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotInBody, target)
	}
	return i, nil
}

// Prepend inserts add at the start of the method.
func (e *Edit) Prepend(add ...*cil.Instruction) {
	e.insts = slices.Insert(e.insts, 0, add...)
}

func (e *Edit) InsertBefore(target *cil.Instruction, add ...*cil.Instruction) error {
	i, err := e.find(target)
	if err != nil {
		return err
	}
	e.insts = slices.Insert(e.insts, i, add...)
	return nil
}

func (e *Edit) InsertAfter(target *cil.Instruction, add ...*cil.Instruction) error {
	i, err := e.find(target)
	if err != nil {
		return err
	}
	e.insts = slices.Insert(e.insts, i+1, add...)
	return nil
}

// Replace swaps target for with. The first replacement is copied into
// target itself so that clause boundaries on target move with it.
func (e *Edit) Replace(target *cil.Instruction, with ...*cil.Instruction) error {
	i, err := e.find(target)
	if err != nil {
		return err
	}
	if len(with) == 0 {
		e.insts = slices.Delete(e.insts, i, i+1)
		return nil
	}
	*target = *with[0]
	e.insts = slices.Insert(e.insts, i+1, with[1:]...)
	return nil
}

// Remove drops target. A clause boundary on target will fall back to its
// old offset when encoded.
func (e *Edit) Remove(target *cil.Instruction) error {
	i, err := e.find(target)
	if err != nil {
		return err
	}
	e.insts = slices.Delete(e.insts, i, i+1)
	return nil
}
