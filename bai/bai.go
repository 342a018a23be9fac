// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bai implements reading of BAM index (.bai) files: the
// hierarchical binning scheme and linear interval index used to map a
// genomic interval query to the set of BGZF chunks that may contain
// overlapping alignments.
package bai

import (
	"encoding/binary"
	"errors"
	"io"
	"sort"

	"github.com/biodb/htsrange/bgzf"
	"github.com/biodb/htsrange/bgzf/index"
	"github.com/biodb/htsrange/internal"
	"github.com/biodb/htsrange/sam"
)

// Index is a BAI index.
type Index struct {
	idx internal.Index
}

// NumRefs returns the number of references in the index.
func (i *Index) NumRefs() int {
	return len(i.idx.Refs)
}

// ReferenceStats returns the index statistics for the given reference and
// true if the statistics are valid.
func (i *Index) ReferenceStats(id int) (stats index.ReferenceStats, ok bool) {
	s := i.idx.Refs[id].Stats
	if s == nil {
		return index.ReferenceStats{}, false
	}
	return index.ReferenceStats(*s), true
}

// Unmapped returns the number of unmapped reads and true if the count is
// valid.
func (i *Index) Unmapped() (n uint64, ok bool) {
	if i.idx.Unmapped == nil {
		return 0, false
	}
	return *i.idx.Unmapped, true
}

// Add records the SAM record as having being located at the given chunk.
func (i *Index) Add(r *sam.Record, c bgzf.Chunk) error {
	return i.idx.Add(r, uint32(r.Bin()), c, isPlaced(r), isMapped(r))
}

func isPlaced(r *sam.Record) bool {
	return r.Ref != nil && r.Pos != -1
}

func isMapped(r *sam.Record) bool {
	return r.Flags&sam.Unmapped == 0
}

// Chunks returns the []bgzf.Chunk corresponding to the given genomic
// interval on the given reference, coalescing a chunk into the one
// before it when its first BGZF block starts less than 65000 bytes
// after the start of the preceding chunk's last block.
func (i *Index) Chunks(r *sam.Reference, beg, end int) ([]bgzf.Chunk, error) {
	chunks, err := i.idx.Chunks(r.ID(), beg, end)
	if err != nil {
		return nil, err
	}
	return index.CompressorStrategy(65000-1)(chunks), nil
}

// MergeChunks applies the given MergeStrategy to all bins in the Index.
// The BGZF-compressor strategy, merging chunks whose block starts are
// within 65000 bytes of one another, is provided by
// index.CompressorStrategy(65000) in the teacher's idiom and
// matches the threshold used by samtools for coalescing BAI chunks.
func (i *Index) MergeChunks(s index.MergeStrategy) {
	i.idx.MergeChunks(s)
}

// GetAllOffsets returns a map of chunk offsets in the index file,
// including chunk begin locations and interval locations. The key of the
// map is the reference ID; the map has an entry for every reference ID,
// even if the list of offsets for that reference is empty.
func (i *Index) GetAllOffsets() map[int][]bgzf.Offset {
	m := make(map[int][]bgzf.Offset)
	for refID, ref := range i.idx.Refs {
		m[refID] = make([]bgzf.Offset, 0)

		for _, bin := range ref.Bins {
			for _, chunk := range bin.Chunks {
				if chunk.Begin.File != 0 || chunk.Begin.Block != 0 {
					m[refID] = append(m[refID], chunk.Begin)
				}
			}
		}
		for _, interval := range ref.Intervals {
			if interval.File != 0 || interval.Block != 0 {
				m[refID] = append(m[refID], interval)
			}
		}

		sort.Sort(byOffset(m[refID]))

		uniq := make([]bgzf.Offset, 0, len(m[refID]))
		previous := bgzf.Offset{File: -1, Block: 0}
		for _, offset := range m[refID] {
			if offset != previous {
				uniq = append(uniq, offset)
				previous = offset
			}
		}
		m[refID] = uniq
	}

	return m
}

type byOffset []bgzf.Offset

func (s byOffset) Len() int      { return len(s) }
func (s byOffset) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byOffset) Less(i, j int) bool {
	if s[i].File != s[j].File {
		return s[i].File < s[j].File
	}
	return s[i].Block < s[j].Block
}

var baiMagic = [4]byte{'B', 'A', 'I', 0x1}

// ReadIndex reads a BAI Index from the given io.Reader.
func ReadIndex(r io.Reader) (*Index, error) {
	var (
		idx   Index
		magic [4]byte
		err   error
	)
	err = binary.Read(r, binary.LittleEndian, &magic)
	if err != nil {
		return nil, err
	}
	if magic != baiMagic {
		return nil, errors.New("bai: magic number mismatch")
	}

	var n int32
	err = binary.Read(r, binary.LittleEndian, &n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	idx.idx, err = internal.ReadIndex(r, n, "bai")
	if err != nil {
		return nil, err
	}
	return &idx, nil
}
