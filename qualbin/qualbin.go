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

// Package qualbin partitions a sorted vector of per-base quality scores into
// a small number of contiguous bins, each summarized by its size and the
// harmonic mean of the bases' error probabilities. Binning lets the caller
// approximate a read pileup's mixture of error rates with a 1- or 2-term
// binomial convolution instead of one Bernoulli trial per read.
package qualbin

import (
	"sort"

	"github.com/ding-lab/bassovac/lut"
)

// Bin summarizes one contiguous partition of sorted quality scores.
type Bin struct {
	Size uint32
	// HarmonicMean is the harmonic mean of the bin's per-base error
	// probabilities: Size / sum(Phred2ProbReciprocal(q)) for q in the bin.
	HarmonicMean float64
	// PObserveRef is scratch space: the probabilistic caller overwrites it
	// once per joint-genotype hypothesis while evaluating the likelihood for
	// the sample this bin belongs to.
	PObserveRef float64
}

// Bin partitions sortedQuals (ascending) into at most maxBins contiguous,
// non-empty bins. maxBins <= 1 always yields a single bin. For maxBins == 2 a
// dedicated fast path finds the single largest adjacent gap and splits there.
// For larger maxBins, splits are chosen at the maxBins-1 largest adjacent
// gaps, with ties broken toward the smaller index; zero-width gaps between
// equal scores are eligible split points on this path, so fewer bins than
// requested are returned only when sortedQuals has fewer than maxBins values.
func Bin(sortedQuals []byte, maxBins int) []Bin {
	n := len(sortedQuals)
	if n == 0 {
		return nil
	}
	if maxBins <= 1 || n == 1 {
		return []Bin{newBin(sortedQuals)}
	}
	if maxBins == 2 {
		return bin2(sortedQuals)
	}
	return binK(sortedQuals, maxBins)
}

func bin2(sortedQuals []byte) []Bin {
	n := len(sortedQuals)
	maxGap := 0
	maxIdx := 0
	for i := 1; i < n; i++ {
		gap := int(sortedQuals[i]) - int(sortedQuals[i-1])
		if gap > maxGap {
			maxGap = gap
			maxIdx = i
		}
	}
	if maxGap == 0 {
		return []Bin{newBin(sortedQuals)}
	}
	return []Bin{newBin(sortedQuals[:maxIdx]), newBin(sortedQuals[maxIdx:])}
}

func binK(sortedQuals []byte, maxBins int) []Bin {
	n := len(sortedQuals)
	byGap := make(map[int][]int)
	for i := 1; i < n; i++ {
		gap := int(sortedQuals[i]) - int(sortedQuals[i-1])
		byGap[gap] = append(byGap[gap], i)
	}
	gaps := make([]int, 0, len(byGap))
	for g := range byGap {
		gaps = append(gaps, g)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(gaps)))

	splits := make([]int, 0, maxBins-1)
	for _, g := range gaps {
		if len(splits) >= maxBins-1 {
			break
		}
		for _, idx := range byGap[g] {
			if len(splits) >= maxBins-1 {
				break
			}
			splits = append(splits, idx)
		}
	}
	sort.Ints(splits)

	bins := make([]Bin, 0, len(splits)+1)
	last := 0
	for _, s := range splits {
		bins = append(bins, newBin(sortedQuals[last:s]))
		last = s
	}
	bins = append(bins, newBin(sortedQuals[last:n]))
	return bins
}

func newBin(qs []byte) Bin {
	size := len(qs)
	b := Bin{Size: uint32(size)}
	if size > 0 {
		var denom float64
		for _, q := range qs {
			denom += lut.Phred2ProbReciprocal(q)
		}
		b.HarmonicMean = float64(size) / denom
	}
	return b
}

// SortQualities sorts qs ascending in place using a counting sort over the
// full byte range [0,255]; it is stable and linear in len(qs).
func SortQualities(qs []byte) {
	var counts [256]int
	for _, q := range qs {
		counts[q]++
	}
	i := 0
	for v := 0; v < 256; v++ {
		for c := 0; c < counts[v]; c++ {
			qs[i] = byte(v)
			i++
		}
	}
}
