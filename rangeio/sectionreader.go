// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangeio

import (
	"context"
	"errors"
	"io"
)

// SectionReader adapts a BufferedRangeSource into an io.ReadSeeker
// beginning at a fixed base offset, for consumers - such as bgzf.Reader
// - that are written against the standard streaming interfaces rather
// than RangeSource directly.
type SectionReader struct {
	ctx  context.Context
	buf  *BufferedRangeSource
	base int64
	pos  int64
	size int64 // -1 if unknown
}

// NewSectionReader returns a SectionReader over src starting at base,
// using bufSize as the BufferedRangeSource's read-ahead window.
func NewSectionReader(ctx context.Context, src RangeSource, base int64, bufSize int64) *SectionReader {
	return &SectionReader{
		ctx:  ctx,
		buf:  NewBufferedRangeSource(src, bufSize),
		base: base,
		size: -1,
	}
}

// Read implements io.Reader.
func (s *SectionReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := s.buf.ReadAt(s.ctx, p, s.base+s.pos)
	s.pos += int64(n)
	if n > 0 && err == io.ErrUnexpectedEOF {
		err = nil
		if n < len(p) {
			err = io.EOF
		}
	}
	return n, err
}

// Seek implements io.Seeker.
func (s *SectionReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		size, err := s.buf.src.Size(s.ctx)
		if err != nil {
			return 0, err
		}
		s.pos = size - s.base + offset
	default:
		return 0, errors.New("rangeio: invalid whence")
	}
	if s.pos < 0 {
		return 0, errors.New("rangeio: negative position")
	}
	return s.pos, nil
}
