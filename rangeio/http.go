// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangeio

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPSource is a RangeSource backed by HTTP Range requests against a
// single URL. The remote server must support byte-range requests
// (RFC 7233). A 416 Range Not Satisfiable response is reported as an
// OutOfRange error; any other status except 206 Partial Content is
// reported as an IO error.
type HTTPSource struct {
	client *http.Client
	url    string
	size   int64 // -1 until known
}

// NewHTTPSource returns a RangeSource that fetches byte ranges of url
// using client. If client is nil, http.DefaultClient is used.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, url: url, size: -1}
}

// ReadRange implements RangeSource.
func (s *HTTPSource) ReadRange(ctx context.Context, offset, length int64) ([]byte, error) {
	rc, _, err := s.fetch(ctx, offset, offset+length-1)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, length)
	_, err = io.ReadFull(rc, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// The resource ended before offset+length.
		return nil, &Error{Kind: OutOfRange, Resource: s.url, Offset: offset, Size: length}
	}
	if err != nil {
		return nil, &Error{Kind: IO, Resource: s.url, Offset: offset, Size: length, Err: err}
	}
	return buf, nil
}

// OpenRange implements RangeSource.
func (s *HTTPSource) OpenRange(ctx context.Context, offset int64) (io.ReadCloser, error) {
	rc, _, err := s.fetch(ctx, offset, -1)
	return rc, err
}

func (s *HTTPSource) fetch(ctx context.Context, start, end int64) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, 0, &Error{Kind: IO, Resource: s.url, Err: err}
	}
	if end >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	} else {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, &Error{Kind: IO, Resource: s.url, Offset: start, Err: err}
	}
	switch resp.StatusCode {
	case http.StatusPartialContent:
		return resp.Body, resp.ContentLength, nil
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		return nil, 0, &Error{Kind: OutOfRange, Resource: s.url, Offset: start}
	case http.StatusOK:
		// Server ignored the Range request; the whole body was
		// returned. Treat this as a transport limitation rather
		// than silently reading the wrong bytes.
		resp.Body.Close()
		return nil, 0, &Error{Kind: IO, Resource: s.url, Offset: start, Err: fmt.Errorf("server does not support range requests")}
	default:
		resp.Body.Close()
		return nil, 0, &Error{Kind: IO, Resource: s.url, Offset: start, Err: fmt.Errorf("unexpected status %q", resp.Status)}
	}
}

// Size implements RangeSource, issuing a HEAD request the first time it
// is called and caching the result.
func (s *HTTPSource) Size(ctx context.Context) (int64, error) {
	if s.size >= 0 {
		return s.size, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return 0, &Error{Kind: IO, Resource: s.url, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &Error{Kind: IO, Resource: s.url, Err: err}
	}
	resp.Body.Close()
	if resp.ContentLength < 0 {
		return 0, &Error{Kind: IO, Resource: s.url, Err: fmt.Errorf("server did not report Content-Length")}
	}
	s.size = resp.ContentLength
	return s.size, nil
}
