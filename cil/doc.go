// Package cil decodes and encodes CIL method-body instruction streams.
//
// A method body is a flat byte sequence of opcodes, each followed by an
// operand whose width is fixed by the opcode. Opcodes are one byte, or two
// bytes when the first is the 0xFE escape. The package provides:
//
//   - Opcodes: a static table of the standard instruction set keyed by a
//     16-bit Code (0x00-0xFF, or 0xFE00 | second byte for two-byte opcodes)
//
//   - Instruction: one opcode plus a typed operand and the byte offset at
//     which it was last decoded or encoded
//
//   - Decode/Encode: a lossless codec. Encode(Decode(b)) reproduces b byte
//     for byte, including operand widths and float bit patterns
//
// Metadata tokens are opaque int32 values; nothing here resolves them.
//
// # Editing
//
// Decode returns []*Instruction. Callers insert, remove or modify entries and
// call Encode again; offsets are refreshed by Encode. The pointer of an
// instruction is its identity: the eh package uses it to find where a clause
// boundary moved after an edit, so edits should keep existing pointers for
// instructions that survive.
//
// Decoding and encoding are pure functions of their input and safe for
// concurrent use on independent buffers. A sequence being edited must not be
// shared across goroutines without synchronisation.
package cil
