// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pileup maintains per-stream overlap buffers over two position-
// sorted alignment streams and intersects them into synchronized,
// per-position base/quality observations.
package pileup

import (
	"github.com/biogo/hts/sam"
	"github.com/ding-lab/bassovac/lut"
	"github.com/ding-lab/bassovac/qualbin"
)

// Base values are the 4-bit nucleotide encoding biogo/hts/sam.Seq already
// uses: a single set bit for A/C/G/T, all four set for an ambiguous call.
const (
	BaseA byte = 1
	BaseC byte = 2
	BaseG byte = 4
	BaseT byte = 8
	BaseN byte = 15
)

// Observation is one read's contribution to a pileup at a single reference
// position: the 4-bit-encoded base it carries there and its quality score.
type Observation struct {
	Base    byte
	Quality byte
}

// Pileup is the set of base/quality observations from every alignment
// covering one reference position in one sample's stream.
type Pileup struct {
	obs []Observation
}

// Empty reports whether the pileup has no observations.
func (p *Pileup) Empty() bool { return len(p.obs) == 0 }

// Len returns the pileup's depth (including low-quality observations).
func (p *Pileup) Len() int { return len(p.obs) }

// At returns the idx'th observation.
func (p *Pileup) At(idx int) Observation { return p.obs[idx] }

// ReadsMatching counts observations of base with quality at least minQual.
func (p *Pileup) ReadsMatching(base, minQual byte) int {
	n := 0
	for _, o := range p.obs {
		if o.Base == base && o.Quality >= minQual {
			n++
		}
	}
	return n
}

// BaseQualityHarmonicMean returns the harmonic mean of every observation's
// error probability, regardless of base identity or quality filtering.
func (p *Pileup) BaseQualityHarmonicMean() float64 {
	if len(p.obs) == 0 {
		return 0
	}
	var denom float64
	for _, o := range p.obs {
		denom += lut.Phred2ProbReciprocal(o.Quality)
	}
	return float64(len(p.obs)) / denom
}

// BaseQualities returns the quality scores of observations at or above
// minQual, sorted ascending.
func (p *Pileup) BaseQualities(minQual byte) []byte {
	quals := make([]byte, 0, len(p.obs))
	for _, o := range p.obs {
		if o.Quality >= minQual {
			quals = append(quals, o.Quality)
		}
	}
	qualbin.SortQualities(quals)
	return quals
}

// BaseCounts tallies observations by nucleotide into counts indexed
// [A, C, G, T]; an ambiguous (N) observation increments all four, matching
// the 4-bit encoding where N sets every bit.
func (p *Pileup) BaseCounts() [4]int {
	var counts [4]int
	for _, o := range p.obs {
		if o.Base&BaseA != 0 {
			counts[0]++
		}
		if o.Base&BaseC != 0 {
			counts[1]++
		}
		if o.Base&BaseG != 0 {
			counts[2]++
		}
		if o.Base&BaseT != 0 {
			counts[3]++
		}
	}
	return counts
}

// VariantAllele returns the most frequently observed non-reference base
// from counts (indexed [A, C, G, T]), or 0 if every non-reference count is
// zero. ref is the reference base's 4-bit encoding.
func VariantAllele(ref byte, counts [4]int) byte {
	best := -1
	for i := 0; i < 4; i++ {
		value := byte(1 << uint(i))
		if ref&value != 0 || counts[i] < 1 {
			continue
		}
		if best < 0 || counts[i] > counts[best] {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return 1 << uint(best)
}

// baseAt returns the 4-bit-encoded nucleotide at the given 0-based offset
// into seq, matching sam.Seq's nybble packing (high nybble at even offsets).
func baseAt(seq sam.Seq, offset int) byte {
	d := seq.Seq[offset>>1]
	if offset&1 == 0 {
		return byte(d >> 4)
	}
	return byte(d & 0xf)
}

// EncodeBase converts a single IUPAC ASCII base character (as read from a
// FASTA reference) to the 4-bit encoding used throughout this package,
// by routing it through sam.NewSeq so the mapping stays in lockstep with
// however alignment records themselves encode bases.
func EncodeBase(c byte) byte {
	return baseAt(sam.NewSeq([]byte{c}), 0)
}
