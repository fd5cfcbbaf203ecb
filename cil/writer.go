package cil

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// Writer: little-endian byte builder
// ---------------------------------------------------------------------------

// Writer appends little-endian values to a growing buffer.
type Writer struct {
	bytes []byte
}

// NewWriter creates a writer with room for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{bytes: make([]byte, 0, size)}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.bytes
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.bytes)
}

// PutUint8 appends a byte.
func (w *Writer) PutUint8(v uint8) {
	w.bytes = append(w.bytes, v)
}

// PutInt8 appends a signed byte.
func (w *Writer) PutInt8(v int8) {
	w.bytes = append(w.bytes, byte(v))
}

// PutUint16 appends a 16-bit value.
func (w *Writer) PutUint16(v uint16) {
	w.bytes = binary.LittleEndian.AppendUint16(w.bytes, v)
}

// PutUint32 appends a 32-bit value.
func (w *Writer) PutUint32(v uint32) {
	w.bytes = binary.LittleEndian.AppendUint32(w.bytes, v)
}

// PutInt32 appends a signed 32-bit value.
func (w *Writer) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

// PutInt64 appends a signed 64-bit value.
func (w *Writer) PutInt64(v int64) {
	w.bytes = binary.LittleEndian.AppendUint64(w.bytes, uint64(v))
}

// PutFloat32 appends an IEEE single.
func (w *Writer) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

// PutFloat64 appends an IEEE double.
func (w *Writer) PutFloat64(v float64) {
	w.bytes = binary.LittleEndian.AppendUint64(w.bytes, math.Float64bits(v))
}

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(b []byte) {
	w.bytes = append(w.bytes, b...)
}
