// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package twobit

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/biodb/htsrange/rangeio"
)

// memSource is a minimal in-memory rangeio.RangeSource used to feed
// hand-built 2bit fixtures to Reader without touching a filesystem.
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

// build2bit assembles a single-sequence 2bit file with the given bases
// (already packed 2 bits/base in decodeTable order) and block tables.
func build2bit(t *testing.T, name string, dnaSize uint32, nStarts, nSizes, maskStarts, maskSizes []uint32, packed []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("build2bit: %v", err)
		}
	}

	w(uint32(Magic))
	w(uint32(0)) // version
	w(uint32(1)) // sequenceCount
	w(uint32(0)) // reserved

	// Directory entry, with a placeholder offset patched once the
	// sequence record's position is known.
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	offsetPos := buf.Len()
	w(uint32(0))

	recordOffset := uint32(buf.Len())
	w(dnaSize)
	w(uint32(len(nStarts)))
	for _, v := range nStarts {
		w(v)
	}
	for _, v := range nSizes {
		w(v)
	}
	w(uint32(len(maskStarts)))
	for _, v := range maskStarts {
		w(v)
	}
	for _, v := range maskSizes {
		w(v)
	}
	w(uint32(0)) // reserved
	buf.Write(packed)

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[offsetPos:], recordOffset)
	return out
}

func TestReadSequenceOverlays(t *testing.T) {
	// Bases ACGTACGT packed MSB-first, 4 bases/byte, alphabet T,C,A,G.
	packed := []byte{0x9C, 0x9C}
	data := build2bit(t, "chr1", 8,
		[]uint32{2}, []uint32{2}, // one N-block: [2,4)
		[]uint32{0, 6}, []uint32{1, 2}, // two mask-blocks: [0,1), [6,8)
		packed)

	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if got, want := r.Names(), []string{"chr1"}; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("Names: got %v, want %v", got, want)
	}

	got, err := r.ReadSequence("chr1", 0, 8)
	if err != nil {
		t.Fatalf("ReadSequence: %v", err)
	}
	// N-block covers [2,4) (originally G,T); mask-blocks lowercase
	// [0,1) and [6,8) independently of the N-block table's length.
	const want = "aCNNACgt"
	if got != want {
		t.Errorf("ReadSequence: got %q, want %q", got, want)
	}
}

func TestReadSequencePartialRange(t *testing.T) {
	packed := []byte{0x9C, 0x9C}
	data := build2bit(t, "chr1", 8, nil, nil, nil, nil, packed)
	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.ReadSequence("chr1", 3, 6)
	if err != nil {
		t.Fatalf("ReadSequence: %v", err)
	}
	if want := "TAC"; got != want {
		t.Errorf("ReadSequence[3:6]: got %q, want %q", got, want)
	}
}

func TestStreamSequence(t *testing.T) {
	packed := []byte{0x9C, 0x9C}
	data := build2bit(t, "chr1", 8, nil, nil, nil, nil, packed)
	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	s, err := r.StreamSequence("chr1", 0, 8, 3)
	if err != nil {
		t.Fatalf("StreamSequence: %v", err)
	}
	var got string
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got += chunk
	}
	if want := "ACGTACGT"; got != want {
		t.Errorf("streamed sequence: got %q, want %q", got, want)
	}
}

func TestOneHotSequence(t *testing.T) {
	packed := []byte{0x9C, 0x9C}
	data := build2bit(t, "chr1", 8,
		[]uint32{2}, []uint32{1}, // N-block covering just position 2
		nil, nil,
		packed)
	r, err := NewReader(context.Background(), &memSource{data: data})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	vecs, err := r.OneHotSequence("chr1", 0, 4)
	if err != nil {
		t.Fatalf("OneHotSequence: %v", err)
	}
	// Bases are A,C,N,T at [0,4); N must be the zero vector.
	want := [][4]float32{
		{1, 0, 0, 0}, // A
		{0, 1, 0, 0}, // C
		{0, 0, 0, 0}, // N
		{0, 0, 0, 1}, // T
	}
	if len(vecs) != len(want) {
		t.Fatalf("OneHotSequence length: got %d, want %d", len(vecs), len(want))
	}
	for i := range want {
		if vecs[i] != want[i] {
			t.Errorf("OneHotSequence[%d]: got %v, want %v", i, vecs[i], want[i])
		}
	}
}
