// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangeio

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// DefaultBufferSize is the window size BufferedRangeSource reads ahead
// by when it has no better estimate of how much data a caller will
// need.
const DefaultBufferSize = 64 * 1024

// BufferedRangeSource adds read-ahead buffering to a RangeSource so
// that a sequence of small, nearby ReadAt calls - the pattern produced
// by walking a B+ tree or an R+ tree one node at a time - costs one
// round trip to the underlying transport rather than one per call.
//
// A BufferedRangeSource is not safe for concurrent use; callers that
// share one across goroutines must serialize access themselves.
type BufferedRangeSource struct {
	src     RangeSource
	bufSize int64

	buf    []byte
	bufOff int64 // offset of buf[0] in the resource; -1 if buf is empty
}

// NewBufferedRangeSource returns a BufferedRangeSource wrapping src. If
// bufSize is zero, DefaultBufferSize is used.
func NewBufferedRangeSource(src RangeSource, bufSize int64) *BufferedRangeSource {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &BufferedRangeSource{src: src, bufSize: bufSize, bufOff: -1}
}

// ReadAt reads len(p) bytes starting at offset, serving from the
// internal buffer when possible and refilling it otherwise. When the
// requested range runs past the end of the resource, ReadAt retries
// without a fixed upper bound via OpenRange. If fewer than len(p) bytes
// are then available, it returns them with io.ErrUnexpectedEOF.
func (b *BufferedRangeSource) ReadAt(ctx context.Context, p []byte, offset int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if b.bufOff >= 0 && offset >= b.bufOff && offset+int64(len(p)) <= b.bufOff+int64(len(b.buf)) {
		n := copy(p, b.buf[offset-b.bufOff:])
		return n, nil
	}

	want := b.bufSize
	if int64(len(p)) > want {
		want = int64(len(p))
	}

	data, err := b.src.ReadRange(ctx, offset, want)
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) && rerr.Kind == OutOfRange {
			data, err = b.readWithoutBound(ctx, offset)
			if err != nil {
				return 0, err
			}
		} else {
			return 0, err
		}
	}

	b.buf = data
	b.bufOff = offset

	n := copy(p, data)
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// readWithoutBound falls back to OpenRange when a bounded ReadRange
// request exceeded the resource's size, reading as much as remains.
func (b *BufferedRangeSource) readWithoutBound(ctx context.Context, offset int64) ([]byte, error) {
	rc, err := b.src.OpenRange(ctx, offset)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil && err != io.EOF {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Discard drops the internal buffer, forcing the next ReadAt to fetch
// fresh data. It is used when a caller knows the underlying resource
// may have changed, or to bound memory held by an idle reader.
func (b *BufferedRangeSource) Discard() {
	b.buf = nil
	b.bufOff = -1
}

// StreamReader is the streaming counterpart of ReadAt: rather than
// issuing one bounded request per call, it opens a single forward
// stream with OpenRange and passes each Read straight through to it.
// It keeps no buffer of its own, so it cannot serve a read from bytes
// it has already delivered, and it never re-positions the stream.
type StreamReader struct {
	ctx context.Context
	src RangeSource
	pos int64
	rc  io.ReadCloser
}

// Stream returns a StreamReader that begins reading at offset.
func (b *BufferedRangeSource) Stream(ctx context.Context, offset int64) *StreamReader {
	return &StreamReader{ctx: ctx, src: b.src, pos: offset}
}

// Read implements io.Reader, opening the underlying stream lazily on
// first use. Errors from the stream, including a premature end, are
// returned as they are; the stream is not re-opened.
func (s *StreamReader) Read(p []byte) (int, error) {
	if s.rc == nil {
		rc, err := s.src.OpenRange(s.ctx, s.pos)
		if err != nil {
			return 0, err
		}
		s.rc = rc
	}
	n, err := s.rc.Read(p)
	s.pos += int64(n)
	return n, err
}

// Close releases the underlying stream, if one is open.
func (s *StreamReader) Close() error {
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	return err
}
