// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binio

import (
	"encoding/binary"
	"testing"
)

func TestCursorIntegers(t *testing.T) {
	data := []byte{
		0x01,
		0x02, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	c := NewCursor(data, binary.LittleEndian)
	if got := c.Uint8(); got != 1 {
		t.Errorf("Uint8: got %d, want 1", got)
	}
	if got := c.Uint16(); got != 2 {
		t.Errorf("Uint16: got %d, want 2", got)
	}
	if got := c.Uint32(); got != 3 {
		t.Errorf("Uint32: got %d, want 3", got)
	}
	if got := c.Uint64(); got != 4 {
		t.Errorf("Uint64: got %d, want 4", got)
	}
	if c.Len() != 0 {
		t.Errorf("Len: got %d, want 0", c.Len())
	}
}

func TestCursorByteOrder(t *testing.T) {
	data := []byte{0x00, 0x01}
	if got := NewCursor(data, binary.BigEndian).Uint16(); got != 1 {
		t.Errorf("BigEndian Uint16: got %d, want 1", got)
	}
	if got := NewCursor(data, binary.LittleEndian).Uint16(); got != 0x0100 {
		t.Errorf("LittleEndian Uint16: got %#x, want 0x100", got)
	}
}

func TestCursorStrings(t *testing.T) {
	data := append([]byte("chr1"), 0, 0, 0, 0)
	c := NewCursor(data, binary.LittleEndian)
	if got := c.FixedString(8); got != "chr1" {
		t.Errorf("FixedString: got %q, want %q", got, "chr1")
	}

	data = append([]byte("hello"), 0, 'x')
	c = NewCursor(data, binary.LittleEndian)
	if got := c.CString(); got != "hello" {
		t.Errorf("CString: got %q, want %q", got, "hello")
	}
	if got := c.Uint8(); got != 'x' {
		t.Errorf("CString left cursor at %q, want 'x'", got)
	}
}

func TestCursorFloat(t *testing.T) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 0x3f800000) // 1.0f
	c := NewCursor(buf[:], binary.LittleEndian)
	if got := c.Float32(); got != 1.0 {
		t.Errorf("Float32: got %v, want 1.0", got)
	}
}

func TestCursorSeekDiscard(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5}
	c := NewCursor(data, binary.LittleEndian)
	c.Discard(2)
	if c.Position() != 2 {
		t.Fatalf("Position after Discard: got %d, want 2", c.Position())
	}
	c.Seek(0)
	if got := c.Uint8(); got != 0 {
		t.Errorf("Uint8 after Seek: got %d, want 0", got)
	}
}
