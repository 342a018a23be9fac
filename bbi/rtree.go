// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbi

import (
	"context"
	"encoding/binary"

	"github.com/biodb/htsrange/internal/binio"
	"github.com/biodb/htsrange/rangeio"
)

// rTreeHeaderSize is the size in bytes of the fixed R+ tree header that
// precedes the root node.
const rTreeHeaderSize = 48

// RTreeHeader is the fixed header of a BBI R+ tree spatial index.
type RTreeHeader struct {
	BlockSize     uint32
	ItemCount     uint64
	StartChromIx  uint32
	StartBase     uint32
	EndChromIx    uint32
	EndBase       uint32
	EndFileOffset uint64
	ItemsPerSlot  uint32
	RootOffset    int64
}

// RTreeLeaf is a single data block descriptor held by an R+ tree leaf
// node: the (chromosome, base) rectangle it covers, and the file region
// holding its (possibly compressed) data.
type RTreeLeaf struct {
	StartChromIx, StartBase uint32
	EndChromIx, EndBase     uint32
	DataOffset, DataSize    uint64
}

func overlaps(l RTreeLeaf, chromIx, start, end uint32) bool {
	if chromIx < l.StartChromIx || chromIx > l.EndChromIx {
		return false
	}
	if l.StartChromIx == l.EndChromIx {
		return l.StartBase < end && l.EndBase > start
	}
	if chromIx == l.StartChromIx {
		return l.StartBase < end
	}
	if chromIx == l.EndChromIx {
		return l.EndBase > start
	}
	return true
}

// ReadRTreeHeader reads the R+ tree header located at offset (typically
// a CommonHeader's FullIndexOffset or a ZoomLevelHeader's IndexOffset).
func ReadRTreeHeader(ctx context.Context, src rangeio.RangeSource, order binary.ByteOrder, offset int64) (*RTreeHeader, error) {
	buf, err := src.ReadRange(ctx, offset, rTreeHeaderSize)
	if err != nil {
		return nil, err
	}
	c := binio.NewCursor(buf, order)
	magic := c.Uint32()
	if magic != RTreeMagic {
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "r-tree", Err: errMagic}
	}
	h := &RTreeHeader{}
	h.BlockSize = c.Uint32()
	h.ItemCount = c.Uint64()
	h.StartChromIx = c.Uint32()
	h.StartBase = c.Uint32()
	h.EndChromIx = c.Uint32()
	h.EndBase = c.Uint32()
	h.EndFileOffset = c.Uint64()
	h.ItemsPerSlot = c.Uint32()
	c.Discard(4) // reserved padding
	h.RootOffset = offset + rTreeHeaderSize
	return h, nil
}

// rNodeHeaderSize is the size of the fixed isLeaf/reserved/count prefix
// of an R+ tree node.
const rNodeHeaderSize = 4

// OverlappingBlocks walks the R+ tree rooted at header.RootOffset and
// returns the leaves whose rectangle overlaps [start,end) on the
// chromosome with index chromIx.
func OverlappingBlocks(ctx context.Context, src rangeio.RangeSource, order binary.ByteOrder, header *RTreeHeader, chromIx, start, end uint32) ([]RTreeLeaf, error) {
	return walkRTreeNode(ctx, src, order, header.RootOffset, chromIx, start, end, nil)
}

func walkRTreeNode(ctx context.Context, src rangeio.RangeSource, order binary.ByteOrder, offset int64, chromIx, start, end uint32, out []RTreeLeaf) ([]RTreeLeaf, error) {
	head, err := src.ReadRange(ctx, offset, rNodeHeaderSize)
	if err != nil {
		return nil, err
	}
	isLeaf := head[0]
	count := order.Uint16(head[2:4])
	if count == 0 {
		return out, nil
	}

	if isLeaf != 0 {
		const entrySize = 4 + 4 + 4 + 4 + 8 + 8 // chrIdxStart,baseStart,chrIdxEnd,baseEnd,dataOffset,dataSize
		buf, err := src.ReadRange(ctx, offset+rNodeHeaderSize, int64(count)*entrySize)
		if err != nil {
			return nil, err
		}
		c := binio.NewCursor(buf, order)
		for i := 0; i < int(count); i++ {
			leaf := RTreeLeaf{
				StartChromIx: c.Uint32(),
				StartBase:    c.Uint32(),
				EndChromIx:   c.Uint32(),
				EndBase:      c.Uint32(),
				DataOffset:   c.Uint64(),
				DataSize:     c.Uint64(),
			}
			if overlaps(leaf, chromIx, start, end) {
				out = append(out, leaf)
			}
		}
		return out, nil
	}

	const entrySize = 4 + 4 + 4 + 4 + 8 // chrIdxStart,baseStart,chrIdxEnd,baseEnd,childOffset
	buf, err := src.ReadRange(ctx, offset+rNodeHeaderSize, int64(count)*entrySize)
	if err != nil {
		return nil, err
	}
	c := binio.NewCursor(buf, order)
	type child struct {
		rect   RTreeLeaf
		offset int64
	}
	children := make([]child, count)
	for i := range children {
		children[i].rect = RTreeLeaf{
			StartChromIx: c.Uint32(),
			StartBase:    c.Uint32(),
			EndChromIx:   c.Uint32(),
			EndBase:      c.Uint32(),
		}
		children[i].offset = int64(c.Uint64())
	}
	for _, ch := range children {
		if !overlaps(ch.rect, chromIx, start, end) {
			continue
		}
		out, err = walkRTreeNode(ctx, src, order, ch.offset, chromIx, start, end, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
