// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package twobit

import (
	"io"
	"strings"
)

// Stream yields a sequence's bases in caller-chosen chunk sizes without
// materializing the whole decoded sequence. N-block and soft-mask
// overlays are applied to whatever chunk they fall within.
type Stream struct {
	r         *Reader
	name      string
	pos, end  uint32
	chunkSize uint32
}

// StreamSequence returns a Stream over the half-open [start,end)
// region of the named sequence, delivering chunkSize bases per Next
// call (the final chunk may be shorter).
func (r *Reader) StreamSequence(name string, start, end, chunkSize uint32) (*Stream, error) {
	if chunkSize == 0 {
		chunkSize = 1 << 16
	}
	if _, err := r.sequenceRecord(name); err != nil {
		return nil, err
	}
	return &Stream{r: r, name: name, pos: start, end: end, chunkSize: chunkSize}, nil
}

// Next returns the next chunk of decoded bases, or io.EOF once the
// stream's region has been fully consumed.
func (s *Stream) Next() (string, error) {
	if s.pos >= s.end {
		return "", io.EOF
	}
	chunkEnd := s.pos + s.chunkSize
	if chunkEnd > s.end {
		chunkEnd = s.end
	}
	chunk, err := s.r.ReadSequence(s.name, s.pos, chunkEnd)
	if err != nil {
		return "", err
	}
	s.pos = chunkEnd
	return chunk, nil
}

// OneHotSequence returns a length-4 one-hot vector over "ACGT" for
// each base in [start,end). Positions covered by an N-block or a
// soft-mask block are undefined per base identity, so they are
// emitted as the zero vector rather than guessed at.
func (r *Reader) OneHotSequence(name string, start, end uint32) ([][4]float32, error) {
	seq, err := r.ReadSequence(name, start, end)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, len(seq))
	for i := 0; i < len(seq); i++ {
		c := seq[i]
		if c >= 'a' && c <= 'z' {
			continue // soft-masked: zero vector
		}
		if c == 'N' {
			continue // N-block: zero vector
		}
		idx := strings.IndexByte("ACGT", c)
		if idx < 0 {
			continue
		}
		out[i][idx] = 1
	}
	return out, nil
}
