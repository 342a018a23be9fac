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

// ChromDict maps chromosome name to its BBI index and length, as
// recorded in a file's chromosome B+ tree.
type ChromDict struct {
	byID   []ChromEntry
	byName map[string]int
}

// ChromEntry is a single chromosome B+ tree leaf value.
type ChromEntry struct {
	Name   string
	ID     uint32
	Length uint32
}

// ByID returns the chromosome with the given BBI index, and whether it
// exists.
func (d *ChromDict) ByID(id uint32) (ChromEntry, bool) {
	if int(id) >= len(d.byID) {
		return ChromEntry{}, false
	}
	return d.byID[id], true
}

// ByName returns the chromosome with the given name, and whether it
// exists.
func (d *ChromDict) ByName(name string) (ChromEntry, bool) {
	i, ok := d.byName[name]
	if !ok {
		return ChromEntry{}, false
	}
	return d.byID[i], true
}

// Len returns the number of chromosomes in the dictionary.
func (d *ChromDict) Len() int { return len(d.byID) }

// ReadChromTree reads the chromosome B+ tree rooted at header's
// ChromTreeOffset.
func ReadChromTree(ctx context.Context, src rangeio.RangeSource, header *CommonHeader) (*ChromDict, error) {
	const treeHeaderSize = 32
	buf, err := src.ReadRange(ctx, int64(header.ChromTreeOffset), treeHeaderSize)
	if err != nil {
		return nil, err
	}
	c := binio.NewCursor(buf, header.Order)
	magic := c.Uint32()
	if magic != ChromTreeMagic {
		return nil, &rangeio.Error{Kind: rangeio.FileFormat, Resource: "chrom tree", Err: errMagic}
	}
	c.Discard(4) // items per block
	keySize := c.Uint32()
	c.Discard(4) // value size, always 8 (uint32 id + uint32 length)
	itemCount := c.Uint64()
	// Two uint32 padding fields follow the header before the root node.
	rootOffset := int64(header.ChromTreeOffset) + treeHeaderSize

	d := &ChromDict{byName: make(map[string]int, itemCount)}
	if err := readChromNode(ctx, src, header.Order, rootOffset, keySize, d); err != nil {
		return nil, err
	}
	return d, nil
}

// readChromNode reads one B+ tree node at offset, recursing into
// children for non-leaf nodes. Each node is fetched with a fixed-size
// header read followed by a single read sized to hold all of the
// node's entries, rather than one request per field.
func readChromNode(ctx context.Context, src rangeio.RangeSource, order binary.ByteOrder, offset int64, keySize uint32, d *ChromDict) error {
	head, err := src.ReadRange(ctx, offset, 4)
	if err != nil {
		return err
	}
	isLeaf := head[0]
	count := order.Uint16(head[2:4])

	if isLeaf != 0 {
		entrySize := int64(keySize) + 8 // key + (uint32 id, uint32 length)
		buf, err := src.ReadRange(ctx, offset+4, int64(count)*entrySize)
		if err != nil {
			return err
		}
		c := binio.NewCursor(buf, order)
		for i := 0; i < int(count); i++ {
			name := c.FixedString(int(keySize))
			id := c.Uint32()
			length := c.Uint32()
			entry := ChromEntry{Name: name, ID: id, Length: length}
			if int(id) >= len(d.byID) {
				grown := make([]ChromEntry, id+1)
				copy(grown, d.byID)
				d.byID = grown
			}
			d.byID[id] = entry
			d.byName[name] = int(id)
		}
		return nil
	}

	entrySize := int64(keySize) + 8 // key + uint64 child offset
	buf, err := src.ReadRange(ctx, offset+4, int64(count)*entrySize)
	if err != nil {
		return err
	}
	c := binio.NewCursor(buf, order)
	children := make([]int64, count)
	for i := range children {
		c.Discard(int(keySize))
		children[i] = int64(c.Uint64())
	}
	for _, child := range children {
		if err := readChromNode(ctx, src, order, child, keySize, d); err != nil {
			return err
		}
	}
	return nil
}
