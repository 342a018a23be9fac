// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"context"
	"io"

	"github.com/biodb/htsrange/bai"
	"github.com/biodb/htsrange/bgzf"
	"github.com/biodb/htsrange/rangeio"
	"github.com/biodb/htsrange/sam"
)

// sectionBufSize is the BufferedRangeSource read-ahead window used by
// a range-scoped Reader's underlying SectionReader.
const sectionBufSize = 1 << 20

// OpenRange opens a BAM file's header by decoding it from the start of
// src exactly as NewReader does for a live io.Reader, sourcing bytes
// from a RangeSource through a SectionReader instead of requiring a
// seekable stream to already be open. The returned Reader may then be
// driven directly with Read after a SetChunk, or via Records.
func OpenRange(ctx context.Context, src rangeio.RangeSource) (*Reader, error) {
	sr := rangeio.NewSectionReader(ctx, src, 0, sectionBufSize)
	return NewReader(sr, 0)
}

// RangeIterator yields the records of a BAM file overlapping a query
// interval, restricting reads to the Chunks a BaiIndex says may
// contain them.
type RangeIterator struct {
	r      *Reader
	chunks []bgzf.Chunk
	cur    int

	refID      int
	start, end int

	rec *sam.Record
	err error
}

// Records returns an iterator over br's records that overlap
// [start,end) on the reference identified by refID, as determined by
// idx. br must have been positioned with OpenRange (or otherwise have
// a seekable underlying stream); each Chunk idx reports is read in
// turn via SetChunk.
func Records(br *Reader, idx *bai.Index, refID, start, end int) (*RangeIterator, error) {
	refs := br.Header().Refs()
	if refID < 0 || refID >= len(refs) {
		return nil, &rangeio.Error{Kind: rangeio.DataMissing, Resource: "reference id"}
	}
	chunks, err := idx.Chunks(refs[refID], start, end)
	if err != nil {
		return nil, err
	}
	return &RangeIterator{r: br, chunks: chunks, refID: refID, start: start, end: end}, nil
}

// Next advances the iterator to the next overlapping record, returning
// false once the chunk list is exhausted or on error (inspect Error
// after a false return).
func (it *RangeIterator) Next() bool {
	for {
		if it.cur >= len(it.chunks) && it.r.c == nil {
			return false
		}
		if it.r.c == nil {
			chunk := it.chunks[it.cur]
			it.cur++
			if err := it.r.SetChunk(&chunk); err != nil {
				it.err = err
				return false
			}
		}

		rec, err := it.r.Read()
		if err == io.EOF {
			it.r.c = nil
			continue
		}
		if err != nil {
			it.err = err
			return false
		}

		if rec.Ref == nil || rec.Ref.ID() != it.refID {
			continue
		}
		if rec.Pos >= it.end {
			// Coordinate-sorted within a reference: nothing past this
			// point in the current chunk can still overlap.
			it.r.c = nil
			continue
		}
		if rec.End() <= it.start {
			continue
		}

		it.rec = rec
		return true
	}
}

// Record returns the record produced by the most recent successful
// call to Next.
func (it *RangeIterator) Record() *sam.Record { return it.rec }

// Error returns the error, if any, that caused Next to return false.
func (it *RangeIterator) Error() error { return it.err }
