// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bigbed

import (
	"fmt"
	"strconv"
	"strings"
)

// BedFields is the result of DefaultParser: the standard UCSC BED9+
// columns beyond chrom/start/end.
type BedFields struct {
	Name        string
	Score       uint16
	Strand      byte // '+', '-' or 0 if absent
	ThickStart  uint32
	ThickEnd    uint32
	ItemRGB     string // normalized to "rgb(r,g,b)" form
	BlockCount  int
	BlockSizes  []int
	BlockStarts []int
}

// DefaultParser implements the standard UCSC BED column layout: name,
// score, strand, thickStart, thickEnd, itemRgb, blockCount, blockSizes,
// blockStarts. Any column may be absent if rest ends early; BED files
// commonly carry only a prefix of the full column set.
func DefaultParser(rest string) (interface{}, error) {
	cols := strings.Split(rest, "\t")
	f := &BedFields{}
	if len(cols) > 0 && cols[0] != "" {
		f.Name = cols[0]
	}
	if len(cols) > 1 && cols[1] != "" {
		score, err := strconv.ParseUint(cols[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bigbed: score column: %w", err)
		}
		f.Score = uint16(score)
	}
	if len(cols) > 2 && len(cols[2]) == 1 {
		f.Strand = cols[2][0]
	}
	if len(cols) > 3 && cols[3] != "" {
		v, err := strconv.ParseUint(cols[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bigbed: thickStart column: %w", err)
		}
		f.ThickStart = uint32(v)
	}
	if len(cols) > 4 && cols[4] != "" {
		v, err := strconv.ParseUint(cols[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bigbed: thickEnd column: %w", err)
		}
		f.ThickEnd = uint32(v)
	}
	if len(cols) > 5 && cols[5] != "" {
		f.ItemRGB = normalizeRGB(cols[5])
	}
	if len(cols) > 6 && cols[6] != "" {
		v, err := strconv.Atoi(cols[6])
		if err != nil {
			return nil, fmt.Errorf("bigbed: blockCount column: %w", err)
		}
		f.BlockCount = v
	}
	if len(cols) > 7 && cols[7] != "" {
		sizes, err := parseIntCSV(cols[7])
		if err != nil {
			return nil, fmt.Errorf("bigbed: blockSizes column: %w", err)
		}
		f.BlockSizes = sizes
	}
	if len(cols) > 8 && cols[8] != "" {
		starts, err := parseIntCSV(cols[8])
		if err != nil {
			return nil, fmt.Errorf("bigbed: blockStarts column: %w", err)
		}
		f.BlockStarts = starts
	}
	return f, nil
}

// normalizeRGB turns a comma-separated "r,g,b" triple into "rgb(r,g,b)"
// form, leaving anything already in rgb(...) form, or anything without
// commas (a bare color index or keyword), unchanged.
func normalizeRGB(s string) string {
	if strings.HasPrefix(s, "rgb") || !strings.Contains(s, ",") {
		return s
	}
	return "rgb(" + s + ")"
}

func parseIntCSV(s string) ([]int, error) {
	s = strings.TrimSuffix(s, ",")
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// NarrowPeak is the ENCODE narrowPeak column layout (BED6+4): name,
// score, strand, signalValue, pValue, qValue, peak. signalValue,
// pValue and qValue are floating point per the narrowPeak spec; peak
// is the point-source summit offset from Start, or -1 if none was
// called.
type NarrowPeak struct {
	Name        string
	Score       uint16
	Strand      byte
	SignalValue float64
	PValue      float64
	QValue      float64
	Peak        int
}

// NarrowPeakParser parses the ENCODE narrowPeak auxiliary columns.
func NarrowPeakParser(rest string) (interface{}, error) {
	cols := strings.Split(rest, "\t")
	if len(cols) < 7 {
		return nil, fmt.Errorf("bigbed: narrowPeak record has %d columns, want 7", len(cols))
	}
	score, err := strconv.ParseUint(cols[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bigbed: narrowPeak score column: %w", err)
	}
	signal, err := strconv.ParseFloat(cols[3], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: narrowPeak signalValue column: %w", err)
	}
	pValue, err := strconv.ParseFloat(cols[4], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: narrowPeak pValue column: %w", err)
	}
	qValue, err := strconv.ParseFloat(cols[5], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: narrowPeak qValue column: %w", err)
	}
	peak, err := strconv.Atoi(cols[6])
	if err != nil {
		return nil, fmt.Errorf("bigbed: narrowPeak peak column: %w", err)
	}
	var strand byte
	if len(cols[2]) == 1 {
		strand = cols[2][0]
	}
	return &NarrowPeak{
		Name:        cols[0],
		Score:       uint16(score),
		Strand:      strand,
		SignalValue: signal,
		PValue:      pValue,
		QValue:      qValue,
		Peak:        peak,
	}, nil
}

// BroadPeak is the ENCODE broadPeak column layout (BED6+3): identical
// to NarrowPeak but without the summit column, since broad regions have
// no single point source.
type BroadPeak struct {
	Name        string
	Score       uint16
	Strand      byte
	SignalValue float64
	PValue      float64
	QValue      float64
}

// BroadPeakParser parses the ENCODE broadPeak auxiliary columns.
func BroadPeakParser(rest string) (interface{}, error) {
	cols := strings.Split(rest, "\t")
	if len(cols) < 6 {
		return nil, fmt.Errorf("bigbed: broadPeak record has %d columns, want 6", len(cols))
	}
	score, err := strconv.ParseUint(cols[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bigbed: broadPeak score column: %w", err)
	}
	signal, err := strconv.ParseFloat(cols[3], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: broadPeak signalValue column: %w", err)
	}
	pValue, err := strconv.ParseFloat(cols[4], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: broadPeak pValue column: %w", err)
	}
	qValue, err := strconv.ParseFloat(cols[5], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: broadPeak qValue column: %w", err)
	}
	var strand byte
	if len(cols[2]) == 1 {
		strand = cols[2][0]
	}
	return &BroadPeak{
		Name:        cols[0],
		Score:       uint16(score),
		Strand:      strand,
		SignalValue: signal,
		PValue:      pValue,
		QValue:      qValue,
	}, nil
}

// MethylRecord is the ENCODE/WGBS bedMethyl column layout (BED9+2):
// the standard BED9 fields plus read coverage and percent methylation.
type MethylRecord struct {
	Name       string
	Score      uint16
	Strand     byte
	ThickStart uint32
	ThickEnd   uint32
	ItemRGB    string
	Coverage   int
	PercentMeth float64
}

// MethylParser parses bedMethyl auxiliary columns.
func MethylParser(rest string) (interface{}, error) {
	cols := strings.Split(rest, "\t")
	if len(cols) < 8 {
		return nil, fmt.Errorf("bigbed: methyl record has %d columns, want 8", len(cols))
	}
	score, err := strconv.ParseUint(cols[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bigbed: methyl score column: %w", err)
	}
	thickStart, err := strconv.ParseUint(cols[3], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bigbed: methyl thickStart column: %w", err)
	}
	thickEnd, err := strconv.ParseUint(cols[4], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bigbed: methyl thickEnd column: %w", err)
	}
	coverage, err := strconv.Atoi(cols[6])
	if err != nil {
		return nil, fmt.Errorf("bigbed: methyl coverage column: %w", err)
	}
	pct, err := strconv.ParseFloat(cols[7], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: methyl percentMeth column: %w", err)
	}
	var strand byte
	if len(cols[2]) == 1 {
		strand = cols[2][0]
	}
	return &MethylRecord{
		Name:        cols[0],
		Score:       uint16(score),
		Strand:      strand,
		ThickStart:  uint32(thickStart),
		ThickEnd:    uint32(thickEnd),
		ItemRGB:     normalizeRGB(cols[5]),
		Coverage:    coverage,
		PercentMeth: pct,
	}, nil
}

// TSSPeak is a transcription start site peak call (BED6+3): a
// narrowPeak-shaped record annotating a TSS cluster with its dominant
// transcript count.
type TSSPeak struct {
	Name        string
	Score       uint16
	Strand      byte
	SignalValue float64
	PeakCount   int
	DominantTSS int
}

// TSSPeakParser parses CAGE/RAMPAGE-style TSS peak auxiliary columns.
func TSSPeakParser(rest string) (interface{}, error) {
	cols := strings.Split(rest, "\t")
	if len(cols) < 6 {
		return nil, fmt.Errorf("bigbed: TSS peak record has %d columns, want 6", len(cols))
	}
	score, err := strconv.ParseUint(cols[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bigbed: TSS peak score column: %w", err)
	}
	signal, err := strconv.ParseFloat(cols[3], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: TSS peak signalValue column: %w", err)
	}
	peakCount, err := strconv.Atoi(cols[4])
	if err != nil {
		return nil, fmt.Errorf("bigbed: TSS peak peakCount column: %w", err)
	}
	dominant, err := strconv.Atoi(cols[5])
	if err != nil {
		return nil, fmt.Errorf("bigbed: TSS peak dominantTss column: %w", err)
	}
	var strand byte
	if len(cols[2]) == 1 {
		strand = cols[2][0]
	}
	return &TSSPeak{
		Name:        cols[0],
		Score:       uint16(score),
		Strand:      strand,
		SignalValue: signal,
		PeakCount:   peakCount,
		DominantTSS: dominant,
	}, nil
}

// IDRPeak is a narrowPeak record extended with the Irreproducible
// Discovery Rate columns ENCODE attaches to peaks surviving replicate
// consistency analysis.
type IDRPeak struct {
	NarrowPeak
	LocalIDR  float64
	GlobalIDR float64
}

// IDRPeakParser parses narrowPeak-plus-IDR auxiliary columns.
func IDRPeakParser(rest string) (interface{}, error) {
	cols := strings.Split(rest, "\t")
	if len(cols) < 9 {
		return nil, fmt.Errorf("bigbed: IDR peak record has %d columns, want 9", len(cols))
	}
	np, err := NarrowPeakParser(strings.Join(cols[:7], "\t"))
	if err != nil {
		return nil, err
	}
	localIDR, err := strconv.ParseFloat(cols[7], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: IDR peak localIDR column: %w", err)
	}
	globalIDR, err := strconv.ParseFloat(cols[8], 64)
	if err != nil {
		return nil, fmt.Errorf("bigbed: IDR peak globalIDR column: %w", err)
	}
	return &IDRPeak{NarrowPeak: *np.(*NarrowPeak), LocalIDR: localIDR, GlobalIDR: globalIDR}, nil
}
