// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bigwig implements range-scoped reading of the BigWig signal
// track format, layering Wig record and zoom summary decoding on top of
// the shared bbi common header, chromosome tree and R+ tree index.
package bigwig

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/biodb/htsrange/bbi"
	"github.com/biodb/htsrange/internal/binio"
	"github.com/biodb/htsrange/rangeio"
)

// dataHeaderSize is the size of the fixed header preceding a block's
// records: chromId, start, end, step, span, type, reserved, itemCount.
const dataHeaderSize = 24

// Block type codes, per the BBI specification.
const (
	typeBedGraph = 1
	typeVarStep  = 2
	typeFixedStep = 3
)

// WigRecord is a single decoded signal value over a genomic interval.
type WigRecord struct {
	ChromID    uint32
	Start, End uint32
	Value      float32
}

// ZoomRecord is a pre-aggregated summary over a genomic interval at one
// of a BigWig file's zoom reduction levels.
type ZoomRecord struct {
	ChromID     uint32
	Start, End  uint32
	ValidCount  uint32
	MinVal      float32
	MaxVal      float32
	SumData     float32
	SumSquares  float32
}

// Reader provides range-scoped access to a BigWig file's signal data.
type Reader struct {
	ctx    context.Context
	src    rangeio.RangeSource
	header *bbi.CommonHeader
	chroms *bbi.ChromDict
}

// NewReader opens a BigWig file over src, reading and validating its
// common header and chromosome dictionary.
func NewReader(ctx context.Context, src rangeio.RangeSource) (*Reader, error) {
	h, err := bbi.ReadCommonHeader(ctx, src, bbi.BigWigMagic)
	if err != nil {
		return nil, err
	}
	chroms, err := bbi.ReadChromTree(ctx, src, h)
	if err != nil {
		return nil, err
	}
	return &Reader{ctx: ctx, src: src, header: h, chroms: chroms}, nil
}

// Header returns the file's common header.
func (r *Reader) Header() *bbi.CommonHeader { return r.header }

// Chroms returns the file's chromosome dictionary.
func (r *Reader) Chroms() *bbi.ChromDict { return r.chroms }

// ReadData returns the Wig records overlapping [start,end) on the named
// chromosome.
func (r *Reader) ReadData(chrom string, start, end uint32) ([]WigRecord, error) {
	entry, ok := r.chroms.ByName(chrom)
	if !ok {
		return nil, &rangeio.Error{Kind: rangeio.DataMissing, Resource: chrom}
	}

	idxHeader, err := bbi.ReadRTreeHeader(r.ctx, r.src, r.header.Order, int64(r.header.FullIndexOffset))
	if err != nil {
		return nil, err
	}
	leaves, err := bbi.OverlappingBlocks(r.ctx, r.src, r.header.Order, idxHeader, entry.ID, start, end)
	if err != nil {
		return nil, err
	}

	var out []WigRecord
	for _, leaf := range leaves {
		recs, err := r.decodeBlock(leaf)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.ChromID == entry.ID && rec.Start < end && rec.End > start {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// ReadZoom returns the pre-aggregated zoom summary records overlapping
// [start,end) on the named chromosome at the given zoom level index
// (0 is the finest reduction level, i.e. the first entry in
// Header().ZoomHeaders).
func (r *Reader) ReadZoom(chrom string, level int, start, end uint32) ([]ZoomRecord, error) {
	entry, ok := r.chroms.ByName(chrom)
	if !ok {
		return nil, &rangeio.Error{Kind: rangeio.DataMissing, Resource: chrom}
	}
	if level < 0 || level >= len(r.header.ZoomHeaders) {
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "zoom level"}
	}
	zh := r.header.ZoomHeaders[level]

	idxHeader, err := bbi.ReadRTreeHeader(r.ctx, r.src, r.header.Order, int64(zh.IndexOffset))
	if err != nil {
		return nil, err
	}
	leaves, err := bbi.OverlappingBlocks(r.ctx, r.src, r.header.Order, idxHeader, entry.ID, start, end)
	if err != nil {
		return nil, err
	}

	var out []ZoomRecord
	for _, leaf := range leaves {
		raw, err := r.src.ReadRange(r.ctx, int64(leaf.DataOffset), int64(leaf.DataSize))
		if err != nil {
			return nil, err
		}
		data, err := inflate(raw, r.header.UncompressBufSize)
		if err != nil {
			return nil, err
		}
		recs, err := decodeZoomBlock(data, r.header.Order)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.ChromID == entry.ID && rec.Start < end && rec.End > start {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

const zoomRecordSize = 32

func decodeZoomBlock(data []byte, order binary.ByteOrder) ([]ZoomRecord, error) {
	if len(data)%zoomRecordSize != 0 {
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "zoom block"}
	}
	n := len(data) / zoomRecordSize
	recs := make([]ZoomRecord, n)
	c := binio.NewCursor(data, order)
	for i := range recs {
		recs[i] = ZoomRecord{
			ChromID:    c.Uint32(),
			Start:      c.Uint32(),
			End:        c.Uint32(),
			ValidCount: c.Uint32(),
			MinVal:     c.Float32(),
			MaxVal:     c.Float32(),
			SumData:    c.Float32(),
			SumSquares: c.Float32(),
		}
	}
	return recs, nil
}

// decodeBlock fetches and decodes a single data block, inflating it
// first if the file declares a non-zero compression buffer size.
func (r *Reader) decodeBlock(leaf bbi.RTreeLeaf) ([]WigRecord, error) {
	raw, err := r.src.ReadRange(r.ctx, int64(leaf.DataOffset), int64(leaf.DataSize))
	if err != nil {
		return nil, err
	}
	data, err := inflate(raw, r.header.UncompressBufSize)
	if err != nil {
		return nil, err
	}
	return decodeWigBlock(data, r.header.Order)
}

func decodeWigBlock(data []byte, order binary.ByteOrder) ([]WigRecord, error) {
	if len(data) < dataHeaderSize {
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "wig block"}
	}
	c := binio.NewCursor(data, order)
	chromID := c.Uint32()
	blockStart := c.Uint32()
	c.Discard(4) // block end, redundant with computed record ends
	step := c.Uint32()
	span := c.Uint32()
	typ := c.Uint8()
	c.Discard(1) // reserved
	itemCount := c.Uint16()

	recs := make([]WigRecord, 0, itemCount)
	switch typ {
	case typeBedGraph:
		for i := 0; i < int(itemCount); i++ {
			start := c.Uint32()
			end := c.Uint32()
			val := c.Float32()
			recs = append(recs, WigRecord{ChromID: chromID, Start: start, End: end, Value: val})
		}
	case typeVarStep:
		for i := 0; i < int(itemCount); i++ {
			start := c.Uint32()
			val := c.Float32()
			recs = append(recs, WigRecord{ChromID: chromID, Start: start, End: start + span, Value: val})
		}
	case typeFixedStep:
		for i := 0; i < int(itemCount); i++ {
			start := blockStart + uint32(i)*step
			val := c.Float32()
			recs = append(recs, WigRecord{ChromID: chromID, Start: start, End: start + span, Value: val})
		}
	default:
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "wig block"}
	}
	return recs, nil
}

func inflate(raw []byte, bufSize uint32) ([]byte, error) {
	if bufSize == 0 {
		return raw, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
