// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bigbed

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/biodb/htsrange/bbi"
	"github.com/biodb/htsrange/rangeio"
)

type memSource struct{ data []byte }

func (m *memSource) ReadRange(_ context.Context, offset, length int64) ([]byte, error) {
	if offset < 0 || offset+length > int64(len(m.data)) {
		return nil, &rangeio.Error{Kind: rangeio.OutOfRange, Offset: offset, Size: length}
	}
	return m.data[offset : offset+length], nil
}

func (m *memSource) OpenRange(_ context.Context, offset int64) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data[offset:])), nil
}

func (m *memSource) Size(context.Context) (int64, error) { return int64(len(m.data)), nil }

type bedRecordSrc struct {
	start, end uint32
	rest       string
}

// buildBigBed assembles a minimal single-chromosome, single-block,
// uncompressed BigBed file.
func buildBigBed(t *testing.T, chrom string, chromSize uint32, recs []bedRecordSrc) []byte {
	t.Helper()
	var buf bytes.Buffer
	le := binary.LittleEndian
	w := func(v interface{}) {
		if err := binary.Write(&buf, le, v); err != nil {
			t.Fatalf("buildBigBed: %v", err)
		}
	}

	// Common header, patched after the rest is laid out.
	w(uint32(bbi.BigBedMagic))
	w(uint16(4))  // version
	w(uint16(0))  // zoomLevels
	w(uint64(0))  // chromTreeOffset (patched)
	w(uint64(0))  // fullDataOffset
	w(uint64(0))  // fullIndexOffset (patched)
	w(uint16(3))  // fieldCount
	w(uint16(3))  // definedFieldCount
	w(uint64(0))  // autoSqlOffset
	w(uint64(0))  // totalSummaryOffset
	w(uint32(0))  // uncompressBufSize: 0 => uncompressed
	w(uint64(0))  // extensionOffset

	chromTreeOffset := uint32(buf.Len())
	w(uint32(bbi.ChromTreeMagic))
	w(uint32(1))          // itemsPerBlock
	w(uint32(len(chrom))) // keySize
	w(uint32(8))          // valSize
	w(uint64(1))          // itemCount
	w(uint32(0))          // reserved
	w(uint32(0))          // reserved
	// Root leaf node.
	buf.WriteByte(1) // isLeaf
	buf.WriteByte(0)
	w(uint16(1)) // count
	buf.WriteString(chrom)
	w(uint32(0))         // chromId
	w(uint32(chromSize)) // chromSize

	dataOffset := uint32(buf.Len())
	for _, r := range recs {
		w(uint32(0)) // chromId
		w(r.start)
		w(r.end)
		buf.WriteString(r.rest)
		buf.WriteByte(0)
	}
	dataSize := uint32(buf.Len()) - dataOffset

	rTreeOffset := uint32(buf.Len())
	w(uint32(bbi.RTreeMagic))
	w(uint32(1))             // blockSize
	w(uint64(len(recs)))     // itemCount
	w(uint32(0))             // startChromIx
	w(uint32(0))             // startBase
	w(uint32(0))             // endChromIx
	w(chromSize)             // endBase
	w(uint64(buf.Len()))     // endFileOffset (placeholder, unused by reader)
	w(uint32(1))             // itemsPerSlot
	w(uint32(0))             // reserved
	buf.WriteByte(1)         // isLeaf
	buf.WriteByte(0)
	w(uint16(1)) // count: one leaf covering the whole block
	w(uint32(0))
	w(uint32(0))
	w(uint32(0))
	w(chromSize)
	w(uint64(dataOffset))
	w(uint64(dataSize))

	out := buf.Bytes()
	le.PutUint64(out[8:], uint64(chromTreeOffset))
	le.PutUint64(out[24:], uint64(rTreeOffset))
	return out
}

func TestReadData(t *testing.T) {
	recs := []bedRecordSrc{
		{start: 100, end: 200, rest: "geneA\t500\t+"},
		{start: 150, end: 160, rest: "geneB\t100\t-"},
		{start: 300, end: 400, rest: "geneC\t200\t+"},
	}
	data := buildBigBed(t, "chr1", 1000000, recs)

	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	got, err := r.ReadData("chr1", 120, 180, DefaultParser)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadData: got %d records, want 2: %+v", len(got), got)
	}
	if got[0].Start != 100 || got[0].End != 200 {
		t.Errorf("record 0: got start=%d end=%d, want 100/200", got[0].Start, got[0].End)
	}
	f0 := got[0].Fields.(*BedFields)
	if f0.Name != "geneA" || f0.Score != 500 || f0.Strand != '+' {
		t.Errorf("record 0 fields: got %+v", f0)
	}
	if got[1].Start != 150 || got[1].End != 160 {
		t.Errorf("record 1: got start=%d end=%d, want 150/160", got[1].Start, got[1].End)
	}
}

func TestReadDataNoParser(t *testing.T) {
	recs := []bedRecordSrc{{start: 0, end: 10, rest: "x\t1\t+"}}
	data := buildBigBed(t, "chr1", 100, recs)
	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.ReadData("chr1", 0, 10, nil)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if len(got) != 1 || got[0].Fields != nil {
		t.Fatalf("expected one record with nil Fields, got %+v", got)
	}
	if got[0].Rest != "x\t1\t+" {
		t.Errorf("Rest: got %q", got[0].Rest)
	}
}

func TestReadDataUnknownChrom(t *testing.T) {
	data := buildBigBed(t, "chr1", 100, nil)
	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.ReadData("chrX", 0, 10, nil); err == nil {
		t.Error("expected error for unknown chromosome")
	}
}
