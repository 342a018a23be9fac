// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bbi implements the shared "Big Binary Indexed" file structure
// that underlies both the BigWig and BigBed formats: a common header, a
// chromosome B+ tree, and an R+ tree spatial index over data blocks. The
// bigwig and bigbed packages each layer their own data block decoder on
// top of this package's BigHeaderReader and RTreeWalker.
package bbi

import (
	"context"
	"encoding/binary"

	"github.com/biodb/htsrange/internal/binio"
	"github.com/biodb/htsrange/rangeio"
)

// Magic numbers for the two BBI file kinds and their embedded indexes.
const (
	BigWigMagic    = 0x888FFC26
	BigBedMagic    = 0x8789F2EB
	ChromTreeMagic = 0x78CA8C91
	RTreeMagic     = 0x2468ACE0
)

// commonHeaderSize is the size in bytes of the fixed portion of a BBI
// file header, before the per-zoom-level headers.
const commonHeaderSize = 64

// zoomHeaderSize is the size in bytes of a single ZoomLevelHeader entry.
const zoomHeaderSize = 24

// summarySize is the size in bytes of the total summary block.
const summarySize = 40

// CommonHeader is the fixed leading section of a BigWig or BigBed file.
type CommonHeader struct {
	Magic             uint32
	Order             binary.ByteOrder
	Version           uint16
	ZoomLevels        uint16
	ChromTreeOffset   uint64
	FullDataOffset    uint64
	FullIndexOffset   uint64
	FieldCount        uint16
	DefinedFieldCount uint16
	AutoSQLOffset     uint64
	TotalSummaryOffset uint64
	UncompressBufSize uint32
	ExtensionOffset   uint64

	ZoomHeaders []ZoomLevelHeader
	Summary     *TotalSummary
}

// ZoomLevelHeader describes one pre-computed reduction level.
type ZoomLevelHeader struct {
	ReductionLevel uint32
	DataOffset     uint64
	IndexOffset    uint64
}

// TotalSummary holds the whole-file statistics block.
type TotalSummary struct {
	ValidCount uint64
	MinVal     float64
	MaxVal     float64
	SumData    float64
	SumSquares float64
}

// ReadCommonHeader reads and validates the BBI header of src, trying
// both little- and big-endian interpretations of the magic number - a
// BBI file declares its own byte order via which interpretation of the
// magic number matches, rather than via a separate field. wantMagic is
// the magic value appropriate to the caller's format (BigWigMagic or
// BigBedMagic).
func ReadCommonHeader(ctx context.Context, src rangeio.RangeSource, wantMagic uint32) (*CommonHeader, error) {
	buf, err := src.ReadRange(ctx, 0, commonHeaderSize)
	if err != nil {
		return nil, err
	}

	order, err := detectOrder(buf[:4], wantMagic)
	if err != nil {
		return nil, err
	}

	c := binio.NewCursor(buf, order)
	h := &CommonHeader{Order: order}
	h.Magic = c.Uint32()
	h.Version = c.Uint16()
	h.ZoomLevels = c.Uint16()
	h.ChromTreeOffset = c.Uint64()
	h.FullDataOffset = c.Uint64()
	h.FullIndexOffset = c.Uint64()
	h.FieldCount = c.Uint16()
	h.DefinedFieldCount = c.Uint16()
	h.AutoSQLOffset = c.Uint64()
	h.TotalSummaryOffset = c.Uint64()
	h.UncompressBufSize = c.Uint32()
	h.ExtensionOffset = c.Uint64()

	if h.ZoomLevels > 0 {
		zbuf, err := src.ReadRange(ctx, commonHeaderSize, int64(h.ZoomLevels)*zoomHeaderSize)
		if err != nil {
			return nil, err
		}
		zc := binio.NewCursor(zbuf, order)
		h.ZoomHeaders = make([]ZoomLevelHeader, h.ZoomLevels)
		for i := range h.ZoomHeaders {
			h.ZoomHeaders[i].ReductionLevel = zc.Uint32()
			zc.Discard(4) // reserved padding
			h.ZoomHeaders[i].DataOffset = zc.Uint64()
			h.ZoomHeaders[i].IndexOffset = zc.Uint64()
		}
	}

	if h.TotalSummaryOffset > 0 {
		sbuf, err := src.ReadRange(ctx, int64(h.TotalSummaryOffset), summarySize)
		if err != nil {
			return nil, err
		}
		sc := binio.NewCursor(sbuf, order)
		h.Summary = &TotalSummary{
			ValidCount: sc.Uint64(),
			MinVal:     sc.Float64(),
			MaxVal:     sc.Float64(),
			SumData:    sc.Float64(),
			SumSquares: sc.Float64(),
		}
	}

	return h, nil
}

func detectOrder(magicBytes []byte, want uint32) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(magicBytes) == want {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(magicBytes) == want {
		return binary.BigEndian, nil
	}
	return nil, &rangeio.Error{Kind: rangeio.FileFormat, Err: errMagic}
}

var errMagic = errMagicMismatch("bbi: magic number mismatch")

type errMagicMismatch string

func (e errMagicMismatch) Error() string { return string(e) }
