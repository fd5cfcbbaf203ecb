// Package eh reads and writes the exception-handling clause section that
// follows a CIL method body.
//
// Clauses do not store byte offsets. Each boundary is a Ref, an index into
// the instruction sequence the section was decoded against, so a clause
// keeps pointing at the same instruction when code is inserted or removed
// around it. Encode turns refs back into offsets against a rewritten
// sequence with a Recalculator.
//
// Both section layouts are supported: the small form (12-byte clauses with
// 16-bit offsets and 8-bit lengths) and the fat form (24-byte clauses of
// 32-bit fields). Encode picks one form for the whole set.
package eh
