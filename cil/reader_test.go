package cil

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.PutUint8(0xAB)
	w.PutInt8(-1)
	w.PutUint16(0x1234)
	w.PutUint32(0xDEADBEEF)
	w.PutInt32(-2)
	w.PutInt64(math.MinInt64)
	w.PutFloat32(1.25)
	w.PutFloat64(-2.5)
	w.PutBytes([]byte{9, 8})

	if w.Len() != 1+1+2+4+4+8+4+8+2 {
		t.Fatalf("Len() = %d", w.Len())
	}
	if !bytes.Equal(w.Bytes()[2:4], []byte{0x34, 0x12}) {
		t.Errorf("uint16 not little-endian: % X", w.Bytes()[2:4])
	}

	r := NewReader(w.Bytes())
	if v, _ := r.ReadByte(); v != 0xAB {
		t.Errorf("ReadByte = 0x%X", v)
	}
	if v, _ := r.ReadInt8(); v != -1 {
		t.Errorf("ReadInt8 = %d", v)
	}
	if v, _ := r.ReadUint16(); v != 0x1234 {
		t.Errorf("ReadUint16 = 0x%X", v)
	}
	if v, _ := r.ReadUint32(); v != 0xDEADBEEF {
		t.Errorf("ReadUint32 = 0x%X", v)
	}
	if v, _ := r.ReadInt32(); v != -2 {
		t.Errorf("ReadInt32 = %d", v)
	}
	if v, _ := r.ReadInt64(); v != math.MinInt64 {
		t.Errorf("ReadInt64 = %d", v)
	}
	if v, _ := r.ReadFloat32(); v != 1.25 {
		t.Errorf("ReadFloat32 = %v", v)
	}
	if v, _ := r.ReadFloat64(); v != -2.5 {
		t.Errorf("ReadFloat64 = %v", v)
	}
	b, _ := r.ReadBytes(2)
	if !bytes.Equal(b, []byte{9, 8}) {
		t.Errorf("ReadBytes = % X", b)
	}
	if r.HasMore() || r.Remaining() != 0 {
		t.Errorf("reader not exhausted at %d", r.Position())
	}
}

func TestReaderShortReads(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.ReadUint32(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadUint32 error = %v", err)
	}
	if r.Position() != 0 {
		t.Errorf("failed read moved position to %d", r.Position())
	}
	if err := r.Skip(4); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Skip error = %v", err)
	}
	if err := r.Skip(2); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	r.Seek(1)
	if v, _ := r.ReadByte(); v != 2 {
		t.Errorf("after Seek(1) ReadByte = %d", v)
	}
}

func TestReadBytesCopies(t *testing.T) {
	data := []byte{1, 2, 3}
	b, err := NewReader(data).ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	b[0] = 9
	if data[0] != 1 {
		t.Error("ReadBytes aliases the input")
	}
}
