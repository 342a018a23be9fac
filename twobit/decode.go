// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package twobit

// alphabet is the 2bit packed-base code table: each 2-bit field maps
// to one of these four bases, most-significant pair first.
var alphabet = [4]byte{'T', 'C', 'A', 'G'}

// decodeTable maps each possible packed byte to its four decoded
// uppercase bases, precomputed once at init rather than unpacked bit
// by bit on every read.
var decodeTable [256][4]byte

func init() {
	for b := 0; b < 256; b++ {
		decodeTable[b] = [4]byte{
			alphabet[(b>>6)&0x3],
			alphabet[(b>>4)&0x3],
			alphabet[(b>>2)&0x3],
			alphabet[b&0x3],
		}
	}
}
