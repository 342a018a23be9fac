// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangeio

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"

	"golang.org/x/exp/mmap"
)

// FileSource is a RangeSource backed by a memory-mapped local file.
// File access is implemented via mmapped file memory, so integer
// indexing limits may impact access to files larger than the address
// space allows.
type FileSource struct {
	path string
	f    *mmap.ReaderAt
}

// NewFileSource opens the file at path and returns a RangeSource
// reading from it. The returned FileSource must be closed after use.
func NewFileSource(path string) (*FileSource, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, &Error{Kind: IO, Resource: path, Err: err}
	}
	return &FileSource{path: path, f: f}, nil
}

// Close releases the memory mapping. Data previously returned by
// ReadRange or OpenRange must not be used after Close.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// ReadRange implements RangeSource.
func (s *FileSource) ReadRange(ctx context.Context, offset, length int64) ([]byte, error) {
	size := int64(s.f.Len())
	if offset < 0 || offset+length > size {
		return nil, &Error{Kind: OutOfRange, Resource: s.path, Offset: offset, Size: length}
	}
	buf := make([]byte, length)
	n, err := s.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, &Error{Kind: IO, Resource: s.path, Offset: offset, Size: length, Err: err}
	}
	return buf[:n], nil
}

// OpenRange implements RangeSource.
func (s *FileSource) OpenRange(ctx context.Context, offset int64) (io.ReadCloser, error) {
	size := int64(s.f.Len())
	if offset < 0 || offset > size {
		return nil, &Error{Kind: OutOfRange, Resource: s.path, Offset: offset, Size: size - offset}
	}
	buf := make([]byte, size-offset)
	n, err := s.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, &Error{Kind: IO, Resource: s.path, Offset: offset, Err: err}
	}
	return ioutil.NopCloser(bytes.NewReader(buf[:n])), nil
}

// Size implements RangeSource.
func (s *FileSource) Size(ctx context.Context) (int64, error) {
	return int64(s.f.Len()), nil
}
