// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bigbed

import "testing"

func TestDefaultParser(t *testing.T) {
	rest := "NM_001\t960\t+\t1000\t2000\t255,0,0\t2\t10,20\t0,990"
	got, err := DefaultParser(rest)
	if err != nil {
		t.Fatalf("DefaultParser: %v", err)
	}
	f := got.(*BedFields)
	if f.Name != "NM_001" {
		t.Errorf("Name: got %q, want %q", f.Name, "NM_001")
	}
	if f.Score != 960 {
		t.Errorf("Score: got %d, want 960", f.Score)
	}
	if f.Strand != '+' {
		t.Errorf("Strand: got %q, want '+'", f.Strand)
	}
	if f.ItemRGB != "rgb(255,0,0)" {
		t.Errorf("ItemRGB: got %q, want %q", f.ItemRGB, "rgb(255,0,0)")
	}
	if f.BlockCount != 2 {
		t.Errorf("BlockCount: got %d, want 2", f.BlockCount)
	}
	if len(f.BlockSizes) != 2 || f.BlockSizes[0] != 10 || f.BlockSizes[1] != 20 {
		t.Errorf("BlockSizes: got %v, want [10 20]", f.BlockSizes)
	}
	if len(f.BlockStarts) != 2 || f.BlockStarts[0] != 0 || f.BlockStarts[1] != 990 {
		t.Errorf("BlockStarts: got %v, want [0 990]", f.BlockStarts)
	}
}

func TestDefaultParserPartialColumns(t *testing.T) {
	got, err := DefaultParser("peak1\t500")
	if err != nil {
		t.Fatalf("DefaultParser: %v", err)
	}
	f := got.(*BedFields)
	if f.Name != "peak1" || f.Score != 500 {
		t.Errorf("got %+v", f)
	}
	if f.Strand != 0 {
		t.Errorf("Strand: got %q, want 0", f.Strand)
	}
}

func TestNormalizeRGB(t *testing.T) {
	cases := []struct{ in, want string }{
		{"255,0,0", "rgb(255,0,0)"},
		{"rgb(255,0,0)", "rgb(255,0,0)"},
		{"0", "0"},
	}
	for _, c := range cases {
		if got := normalizeRGB(c.in); got != c.want {
			t.Errorf("normalizeRGB(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNarrowPeakParser(t *testing.T) {
	rest := "peak_1\t1000\t+\t12.5\t0.001\t0.01\t42"
	got, err := NarrowPeakParser(rest)
	if err != nil {
		t.Fatalf("NarrowPeakParser: %v", err)
	}
	np := got.(*NarrowPeak)
	if np.SignalValue != 12.5 {
		t.Errorf("SignalValue: got %v, want 12.5 (must be float, not int)", np.SignalValue)
	}
	if np.Peak != 42 {
		t.Errorf("Peak: got %d, want 42", np.Peak)
	}
}

func TestBroadPeakParser(t *testing.T) {
	rest := "peak_1\t1000\t-\t12.5\t0.001\t0.01"
	got, err := BroadPeakParser(rest)
	if err != nil {
		t.Fatalf("BroadPeakParser: %v", err)
	}
	bp := got.(*BroadPeak)
	if bp.Strand != '-' {
		t.Errorf("Strand: got %q, want '-'", bp.Strand)
	}
	if bp.QValue != 0.01 {
		t.Errorf("QValue: got %v, want 0.01", bp.QValue)
	}
}

func TestIDRPeakParser(t *testing.T) {
	rest := "peak_1\t1000\t+\t12.5\t0.001\t0.01\t42\t0.05\t0.1"
	got, err := IDRPeakParser(rest)
	if err != nil {
		t.Fatalf("IDRPeakParser: %v", err)
	}
	idr := got.(*IDRPeak)
	if idr.Peak != 42 {
		t.Errorf("Peak: got %d, want 42", idr.Peak)
	}
	if idr.LocalIDR != 0.05 || idr.GlobalIDR != 0.1 {
		t.Errorf("got local=%v global=%v, want 0.05/0.1", idr.LocalIDR, idr.GlobalIDR)
	}
}

func TestNarrowPeakParserTooFewColumns(t *testing.T) {
	if _, err := NarrowPeakParser("peak_1\t1000"); err == nil {
		t.Error("expected error for short narrowPeak record")
	}
}
