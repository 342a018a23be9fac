// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bigbed implements range-scoped reading of the BigBed feature
// track format, layering Bed record decoding with a pluggable column
// parser on top of the shared bbi common header, chromosome tree and
// R+ tree index.
package bigbed

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

// BedRecord is a single decoded BigBed feature. Rest holds the raw
// tab-separated auxiliary columns beyond chrom/start/end; Fields holds
// whatever a ColumnParser made of Rest, or nil if no parser was given
// to ReadData.
type BedRecord struct {
	ChromID    uint32
	Start, End uint32
	Rest       string
	Fields     interface{}
}

// ColumnParser decodes a Bed record's auxiliary column text (everything
// after chrom/start/end) into a caller-defined shape. The BigBed format
// carries no schema of its own beyond the optional autoSql text, so the
// parser is supplied by the caller rather than inferred from the file.
type ColumnParser func(rest string) (interface{}, error)

// Reader provides range-scoped access to a BigBed file's feature data.
type Reader struct {
	ctx    context.Context
	src    rangeio.RangeSource
	header *bbi.CommonHeader
	chroms *bbi.ChromDict
}

// NewReader opens a BigBed file over src, reading and validating its
// common header and chromosome dictionary.
func NewReader(ctx context.Context, src rangeio.RangeSource) (*Reader, error) {
	h, err := bbi.ReadCommonHeader(ctx, src, bbi.BigBedMagic)
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

// ReadData returns the Bed records overlapping [start,end) on the named
// chromosome. If parser is non-nil, it is applied to each record's Rest
// column text and the result stored in Fields; parse errors abort the
// read. A nil parser leaves Fields nil and Rest populated.
func (r *Reader) ReadData(chrom string, start, end uint32, parser ColumnParser) ([]BedRecord, error) {
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

	var out []BedRecord
	for _, leaf := range leaves {
		recs, err := r.decodeBlock(leaf)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.ChromID != entry.ID {
				continue
			}
			// Skip records ending before the query start; stop at the
			// first record starting at or past the query end.
			if rec.End <= start {
				continue
			}
			if rec.Start >= end {
				break
			}
			if parser != nil {
				fields, err := parser(rec.Rest)
				if err != nil {
					return nil, err
				}
				rec.Fields = fields
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Reader) decodeBlock(leaf bbi.RTreeLeaf) ([]BedRecord, error) {
	raw, err := r.src.ReadRange(r.ctx, int64(leaf.DataOffset), int64(leaf.DataSize))
	if err != nil {
		return nil, err
	}
	data, err := inflate(raw, r.header.UncompressBufSize)
	if err != nil {
		return nil, err
	}
	return decodeBedBlock(data, r.header.Order)
}

// bedRecordFixedSize is the size of the fixed chromId/start/end prefix
// of each record; the NUL-terminated rest column follows.
const bedRecordFixedSize = 12

func decodeBedBlock(data []byte, order binary.ByteOrder) ([]BedRecord, error) {
	var recs []BedRecord
	c := binio.NewCursor(data, order)
	for c.Len() >= bedRecordFixedSize {
		chromID := c.Uint32()
		start := c.Uint32()
		end := c.Uint32()
		rest := c.CString()
		recs = append(recs, BedRecord{ChromID: chromID, Start: start, End: end, Rest: rest})
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
