// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgzf implements the BGZF blocked gzip format described in the
// SAM specification. A BGZF file is a series of independent gzip members,
// each holding at most 64KB of uncompressed data, allowing random access
// into the compressed stream via virtual offsets that pair a member's
// start position in the underlying byte stream with a byte position
// inside that member's decompressed data.
package bgzf

import "fmt"

// BlockSize is the maximum amount of uncompressed data held by a single
// BGZF block.
const BlockSize = 0x0ff00

// MaxBlockSize is the maximum size of a compressed BGZF block, including
// the gzip header and trailer.
const MaxBlockSize = 0x10000

// magicBlock is the canonical empty final block that terminates a
// well-formed BGZF stream.
var magicBlock = [28]byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00, 0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Offset is a BGZF virtual file offset: the position of a BGZF block
// within the underlying byte stream (File) and a byte offset within
// that block's decompressed data (Block).
type Offset struct {
	File  int64
	Block uint16
}

func (o Offset) String() string {
	return fmt.Sprintf("%d<<16|%d", o.File, o.Block)
}

// Chunk is a region of a BGZF stream between two virtual offsets.
type Chunk struct {
	Begin, End Offset
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%s,%s)", c.Begin, c.End)
}

// Block describes a decompressed BGZF block suitable for caching.
type Block interface {
	// Base is the file offset of the start of the block.
	Base() int64
	// NextBase is the file offset of the block immediately following
	// this one in the BGZF stream.
	NextBase() int64
	// Used reports whether the block is in active use by a Reader and
	// so should be preferentially retained by a Cache.
	Used() bool
}

// Cache defines the interface used by a Reader to cache decompressed
// blocks keyed by their file offset.
type Cache interface {
	// Get returns the Block with the given base offset, or nil if it
	// is not held by the Cache.
	Get(base int64) Block
	// Put inserts a Block into the Cache, returning the Block that was
	// evicted or nil if no eviction was necessary and the Block was
	// retained.
	Put(b Block) (evicted Block, retained bool)
}
