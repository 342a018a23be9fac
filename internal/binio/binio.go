// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binio provides a light-weight typed cursor over an in-memory
// byte buffer, used by the bbi, bigwig, bigbed and twobit decoders to
// pull fixed-width fields out of bytes fetched via a rangeio.RangeSource.
// It generalizes the bam package's own unexported read buffer to carry
// an explicit byte order, since unlike BAM (always little-endian) the
// BBI formats store a magic number that selects the order for the rest
// of the file.
package binio

import "encoding/binary"

// Cursor is a byte-order-aware reader over a fixed byte slice. Reads
// advance it; Seek may move it to any offset.
type Cursor struct {
	Order binary.ByteOrder
	data  []byte
	pos   int
}

// NewCursor returns a Cursor reading data in the given byte order.
func NewCursor(data []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{Order: order, data: data}
}

// Len returns the number of unread bytes remaining.
func (c *Cursor) Len() int { return len(c.data) - c.pos }

// Position returns the Cursor's current offset into its buffer.
func (c *Cursor) Position() int { return c.pos }

// Seek repositions the Cursor to the given absolute offset.
func (c *Cursor) Seek(pos int) { c.pos = pos }

// Bytes returns the next n bytes without copying and advances the
// Cursor past them.
func (c *Cursor) Bytes(n int) []byte {
	s := c.pos
	c.pos += n
	return c.data[s:c.pos]
}

// Discard advances the Cursor past n bytes.
func (c *Cursor) Discard(n int) { c.pos += n }

// Uint8 reads a single byte.
func (c *Cursor) Uint8() uint8 {
	b := c.data[c.pos]
	c.pos++
	return b
}

// Uint16 reads a 2-byte unsigned integer.
func (c *Cursor) Uint16() uint16 {
	return c.Order.Uint16(c.Bytes(2))
}

// Int16 reads a 2-byte signed integer.
func (c *Cursor) Int16() int16 {
	return int16(c.Uint16())
}

// Uint32 reads a 4-byte unsigned integer.
func (c *Cursor) Uint32() uint32 {
	return c.Order.Uint32(c.Bytes(4))
}

// Int32 reads a 4-byte signed integer.
func (c *Cursor) Int32() int32 {
	return int32(c.Uint32())
}

// Uint64 reads an 8-byte unsigned integer.
func (c *Cursor) Uint64() uint64 {
	return c.Order.Uint64(c.Bytes(8))
}

// Int64 reads an 8-byte signed integer.
func (c *Cursor) Int64() int64 {
	return int64(c.Uint64())
}

// Float32 reads a 4-byte IEEE-754 float.
func (c *Cursor) Float32() float32 {
	return float32FromBits(c.Uint32())
}

// Float64 reads an 8-byte IEEE-754 float.
func (c *Cursor) Float64() float64 {
	return float64FromBits(c.Uint64())
}

// Long64 reads an 8-byte unsigned integer and returns it as a float64,
// as used by BBI summary fields whose counts are declared as 64-bit
// integers but never exceed 2^53 in practice.
func (c *Cursor) Long64() float64 {
	return float64(c.Uint64())
}

// FixedString reads an n-byte field, trimming trailing NUL bytes.
func (c *Cursor) FixedString(n int) string {
	b := c.Bytes(n)
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}

// CString reads bytes up to and including the next NUL byte, returning
// the string without the terminator.
func (c *Cursor) CString() string {
	start := c.pos
	for c.pos < len(c.data) && c.data[c.pos] != 0 {
		c.pos++
	}
	s := string(c.data[start:c.pos])
	if c.pos < len(c.data) {
		c.pos++ // skip NUL
	}
	return s
}
