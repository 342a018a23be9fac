// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package twobit implements range-scoped reading of the UCSC 2bit
// packed sequence format. There is no teacher package for this format;
// the decoder follows the house idiom established by the bbi and bam
// packages (a BinaryCursor over bytes fetched through a RangeSource,
// and a precomputed lookup table for the packed-base alphabet in the
// style of sam/cigar.go's operation table).
package twobit

import (
	"context"
	"encoding/binary"

	"github.com/biodb/htsrange/internal/binio"
	"github.com/biodb/htsrange/rangeio"
)

// Magic is the 2bit file format's magic number.
const Magic = 0x1A412743

const headerSize = 16 // magic, version, sequenceCount, reserved

// Reader provides range-scoped access to a 2bit file's packed sequence
// data.
type Reader struct {
	ctx   context.Context
	src   rangeio.RangeSource
	order binary.ByteOrder

	names   []string
	offsets map[string]uint32

	records map[string]*SequenceRecord
}

// SequenceRecord is a sequence's decoded directory entry: its length in
// bases, its N- and soft-mask-block tables, and the file offset at
// which its packed bases begin.
type SequenceRecord struct {
	DNASize uint32

	NBlockStarts []uint32
	NBlockSizes  []uint32

	MaskBlockStarts []uint32
	MaskBlockSizes  []uint32

	PackedOffset int64
}

// NewReader opens a 2bit file over src, reading its header and
// sequence directory.
func NewReader(ctx context.Context, src rangeio.RangeSource) (*Reader, error) {
	buf, err := src.ReadRange(ctx, 0, headerSize)
	if err != nil {
		return nil, err
	}
	order, err := detectOrder(buf[:4])
	if err != nil {
		return nil, err
	}
	c := binio.NewCursor(buf, order)
	c.Discard(4) // magic, already validated by detectOrder
	version := c.Uint32()
	sequenceCount := c.Uint32()
	reserved := c.Uint32()
	if version != 0 || reserved != 0 {
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "2bit header"}
	}

	r := &Reader{
		ctx:     ctx,
		src:     src,
		order:   order,
		offsets: make(map[string]uint32, sequenceCount),
		records: make(map[string]*SequenceRecord),
	}

	pos := int64(headerSize)
	for i := uint32(0); i < sequenceCount; i++ {
		nb, err := src.ReadRange(ctx, pos, 1)
		if err != nil {
			return nil, err
		}
		nameLen := int64(nb[0])
		pos++
		nameBuf, err := src.ReadRange(ctx, pos, nameLen+4)
		if err != nil {
			return nil, err
		}
		nc := binio.NewCursor(nameBuf, order)
		name := string(nc.Bytes(int(nameLen)))
		offset := nc.Uint32()
		pos += nameLen + 4

		r.names = append(r.names, name)
		r.offsets[name] = offset
	}

	return r, nil
}

// Names returns the file's sequence names in directory order.
func (r *Reader) Names() []string { return r.names }

func detectOrder(magicBytes []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(magicBytes) == Magic {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(magicBytes) == Magic {
		return binary.BigEndian, nil
	}
	return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "2bit magic"}
}

// sequenceRecord loads and memoizes the SequenceRecord for name.
func (r *Reader) sequenceRecord(name string) (*SequenceRecord, error) {
	if rec, ok := r.records[name]; ok {
		return rec, nil
	}
	offset, ok := r.offsets[name]
	if !ok {
		return nil, &rangeio.Error{Kind: rangeio.DataMissing, Resource: name}
	}

	head, err := r.src.ReadRange(r.ctx, int64(offset), 8)
	if err != nil {
		return nil, err
	}
	c := binio.NewCursor(head, r.order)
	dnaSize := c.Uint32()
	nBlockCount := c.Uint32()
	pos := int64(offset) + 8

	rec := &SequenceRecord{DNASize: dnaSize}

	if nBlockCount > 0 {
		starts, err := r.readUint32Array(pos, nBlockCount)
		if err != nil {
			return nil, err
		}
		pos += int64(nBlockCount) * 4
		sizes, err := r.readUint32Array(pos, nBlockCount)
		if err != nil {
			return nil, err
		}
		pos += int64(nBlockCount) * 4
		rec.NBlockStarts, rec.NBlockSizes = starts, sizes
	}

	mcBuf, err := r.src.ReadRange(r.ctx, pos, 4)
	if err != nil {
		return nil, err
	}
	maskBlockCount := binio.NewCursor(mcBuf, r.order).Uint32()
	pos += 4

	if maskBlockCount > 0 {
		starts, err := r.readUint32Array(pos, maskBlockCount)
		if err != nil {
			return nil, err
		}
		pos += int64(maskBlockCount) * 4
		sizes, err := r.readUint32Array(pos, maskBlockCount)
		if err != nil {
			return nil, err
		}
		pos += int64(maskBlockCount) * 4
		rec.MaskBlockStarts, rec.MaskBlockSizes = starts, sizes
	}

	pos += 4 // reserved
	rec.PackedOffset = pos

	r.records[name] = rec
	return rec, nil
}

func (r *Reader) readUint32Array(pos int64, n uint32) ([]uint32, error) {
	buf, err := r.src.ReadRange(r.ctx, pos, int64(n)*4)
	if err != nil {
		return nil, err
	}
	c := binio.NewCursor(buf, r.order)
	out := make([]uint32, n)
	for i := range out {
		out[i] = c.Uint32()
	}
	return out, nil
}

// ReadSequence returns the half-open, 0-based [start,end) subsequence
// of the named sequence, with N-blocks and soft-mask blocks applied.
func (r *Reader) ReadSequence(name string, start, end uint32) (string, error) {
	rec, err := r.sequenceRecord(name)
	if err != nil {
		return "", err
	}
	if end > rec.DNASize {
		end = rec.DNASize
	}
	if start >= end {
		return "", nil
	}

	first := start / 4
	lastByte := (end + 3) / 4
	n := lastByte - first

	packed, err := r.src.ReadRange(r.ctx, rec.PackedOffset+int64(first), int64(n))
	if err != nil {
		return "", err
	}

	decoded := make([]byte, 0, n*4)
	for _, b := range packed {
		decoded = append(decoded, decodeTable[b][:]...)
	}

	lo := start % 4
	hi := lo + (end - start)
	seq := decoded[lo:hi]
	out := make([]byte, len(seq))
	copy(out, seq)

	applyNBlocks(out, start, end, rec.NBlockStarts, rec.NBlockSizes)
	applyMaskBlocks(out, start, end, rec.MaskBlockStarts, rec.MaskBlockSizes)

	return string(out), nil
}

// applyNBlocks overwrites positions covered by any N-block with 'N'.
// It iterates the N-block tables by their own length.
func applyNBlocks(out []byte, start, end uint32, starts, sizes []uint32) {
	for i := range starts {
		blockStart, blockEnd := starts[i], starts[i]+sizes[i]
		overlayRange(out, start, end, blockStart, blockEnd, 'N', false)
	}
}

// applyMaskBlocks lowercases positions covered by any soft-mask block.
// It iterates the mask-block tables by their own length, not the
// N-block tables' length.
func applyMaskBlocks(out []byte, start, end uint32, starts, sizes []uint32) {
	for i := range starts {
		blockStart, blockEnd := starts[i], starts[i]+sizes[i]
		overlayRange(out, start, end, blockStart, blockEnd, 0, true)
	}
}

// overlayRange writes ch (or lowercases, if lower is true) over the
// portion of out covering the intersection of [start,end) with
// [blockStart,blockEnd).
func overlayRange(out []byte, start, end, blockStart, blockEnd uint32, ch byte, lower bool) {
	if blockEnd <= start || blockStart >= end {
		return
	}
	lo, hi := blockStart, blockEnd
	if lo < start {
		lo = start
	}
	if hi > end {
		hi = end
	}
	for i := lo; i < hi; i++ {
		if lower {
			out[i-start] = toLower(out[i-start])
		} else {
			out[i-start] = ch
		}
	}
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
