// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrClosed is returned for operations on a Reader that has been
	// closed.
	ErrClosed = errors.New("bgzf: reader already closed")
	// ErrNotSeekable is returned by Seek when the underlying reader
	// does not support seeking.
	ErrNotSeekable = errors.New("bgzf: reader is not seekable")
	// ErrMalformedBlock is returned when a BGZF block is missing the
	// required BC extra subfield.
	ErrMalformedBlock = errors.New("bgzf: malformed block header")
)

// block is a decoded BGZF block and satisfies the Block interface.
type block struct {
	base, next int64
	data       []byte
	used       bool
}

func (b *block) Base() int64     { return b.base }
func (b *block) NextBase() int64 { return b.next }
func (b *block) Used() bool      { return b.used }

// Reader implements BGZF stream decoding. A Reader reads a series of
// concatenated gzip members, each carrying at most BlockSize bytes of
// uncompressed data, and presents them as a single decompressed byte
// stream indexed by virtual Offsets.
//
// rd, the value given to NewReader, is retained as a hint for the depth
// of block look-ahead a caller may wish to perform with a Cache; the
// Reader itself decodes one block at a time.
type Reader struct {
	r      io.Reader
	seeker io.Seeker
	rd     int

	gz  *gzip.Reader
	cur *block
	pos int

	// Blocked, when true, causes Read to return at the end of the
	// current block rather than spanning into the next one.
	Blocked bool

	cache Cache

	lastChunk Chunk
	closed    bool
}

// NewReader returns a new Reader that reads BGZF data from r. rd is a
// hint for the number of blocks a caller intends to have in flight via
// a Cache; if rd is zero it is of no consequence to decoding. The
// returned Reader should be closed after use to release held resources.
func NewReader(r io.Reader, rd int) (*Reader, error) {
	br := &Reader{r: r, rd: rd}
	if s, ok := r.(io.Seeker); ok {
		br.seeker = s
	}
	if err := br.nextBlock(); err != nil {
		return nil, err
	}
	br.lastChunk.End = br.currentOffset()
	return br, nil
}

// SetCache sets the cache to be used by the Reader for decoded blocks.
func (r *Reader) SetCache(c Cache) { r.cache = c }

func (r *Reader) currentOffset() Offset {
	return Offset{File: r.cur.base, Block: uint16(r.pos)}
}

// Tx records a Reader's position at the start of a logical read
// operation so that the region the operation spanned can be recovered
// with End once the operation completes.
type Tx struct {
	r     *Reader
	begin Offset
}

// Begin returns a Tx marking the Reader's current virtual offset.
func (r *Reader) Begin() Tx {
	return Tx{r: r, begin: r.currentOffset()}
}

// End returns the Chunk spanning from the Offset recorded by Begin to
// the Reader's current virtual offset.
func (t Tx) End() Chunk {
	return Chunk{Begin: t.begin, End: t.r.currentOffset()}
}

// LastChunk returns the Chunk corresponding to the most recent Read.
func (r *Reader) LastChunk() Chunk { return r.lastChunk }

// BlockLen returns the length of the decompressed data held by the
// current block.
func (r *Reader) BlockLen() int {
	if r.cur == nil {
		return 0
	}
	return len(r.cur.data)
}

// Seek moves the Reader to the block beginning at off.File and
// positions it off.Block bytes into that block's decompressed data.
// The underlying reader must implement io.Seeker.
func (r *Reader) Seek(off Offset) error {
	if r.closed {
		return ErrClosed
	}
	if r.seeker == nil {
		return ErrNotSeekable
	}
	if r.cur != nil && off.File == r.cur.base {
		if int(off.Block) > len(r.cur.data) {
			return fmt.Errorf("bgzf: invalid block offset %d for block of length %d", off.Block, len(r.cur.data))
		}
		r.pos = int(off.Block)
		r.lastChunk.End = r.currentOffset()
		return nil
	}
	if _, err := r.seeker.Seek(off.File, io.SeekStart); err != nil {
		return err
	}
	if r.cur != nil {
		// Drop the current block so that nextBlock takes the new
		// block's base from the seeker rather than from r.cur.
		r.cur.used = false
		r.cur = nil
	}
	if err := r.nextBlock(); err != nil {
		return err
	}
	if int(off.Block) > len(r.cur.data) {
		return fmt.Errorf("bgzf: invalid block offset %d for block of length %d", off.Block, len(r.cur.data))
	}
	r.pos = int(off.Block)
	r.lastChunk.End = r.currentOffset()
	return nil
}

// Read implements io.Reader. When r.Blocked is true Read will return a
// short read at the end of a decompressed block rather than continuing
// into the next one, allowing callers to inspect LastChunk between
// blocks.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	tx := r.Begin()
	defer func() { r.lastChunk = tx.End() }()

	var total int
	for total < len(p) {
		if r.cur == nil || r.pos >= len(r.cur.data) {
			if err := r.nextBlock(); err != nil {
				if total > 0 && err == io.EOF {
					return total, nil
				}
				return total, err
			}
			if len(r.cur.data) == 0 {
				if total > 0 {
					return total, nil
				}
				return 0, io.EOF
			}
		}
		n := copy(p[total:], r.cur.data[r.pos:])
		r.pos += n
		total += n
		if r.Blocked && r.pos >= len(r.cur.data) {
			break
		}
	}
	return total, nil
}

// nextBlock decodes the next BGZF member from the underlying reader,
// consulting and populating the cache when one is set.
func (r *Reader) nextBlock() error {
	if r.cur != nil {
		r.cur.used = false
	}

	var base int64
	if r.cur == nil {
		if r.seeker != nil {
			if pos, err := r.seeker.Seek(0, io.SeekCurrent); err == nil {
				base = pos
			}
		}
	} else {
		base = r.cur.NextBase()
	}

	if r.cache != nil {
		if b := r.cache.Get(base); b != nil {
			blk := b.(*block)
			blk.used = true
			r.cur = blk
			r.pos = 0
			return nil
		}
	}

	if r.gz == nil {
		gz, err := gzip.NewReader(r.r)
		if err != nil {
			return err
		}
		r.gz = gz
	} else if err := r.gz.Reset(r.r); err != nil {
		return err
	}
	r.gz.Multistream(false)

	bsize, ok := bsizeFromExtra(r.gz.Header.Extra)
	if !ok {
		return ErrMalformedBlock
	}

	data := make([]byte, 0, BlockSize)
	buf := make([]byte, 4096)
	for {
		n, err := r.gz.Read(buf)
		data = append(data, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	blk := &block{
		base: base,
		next: base + int64(bsize) + 1,
		data: data,
		used: true,
	}
	r.cur = blk
	r.pos = 0

	if r.cache != nil {
		r.cache.Put(blk)
	}

	return nil
}

// bsizeFromExtra scans a gzip extra field for the BGZF "BC" subfield and
// returns the declared total block size minus one.
func bsizeFromExtra(extra []byte) (uint16, bool) {
	for i := 0; i+4 <= len(extra); {
		si1, si2 := extra[i], extra[i+1]
		slen := int(extra[i+2]) | int(extra[i+3])<<8
		i += 4
		if si1 == 'B' && si2 == 'C' && slen == 2 && i+2 <= len(extra) {
			return uint16(extra[i]) | uint16(extra[i+1])<<8, true
		}
		i += slen
	}
	return 0, false
}

// Close closes the Reader, and the underlying reader if it implements
// io.Closer.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	if r.gz != nil {
		r.gz.Close()
	}
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
