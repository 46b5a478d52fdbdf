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

// Package caller computes joint Bayesian posterior probabilities for a
// matched normal/tumor pileup pair: the probability the pair reflects a
// homozygous somatic variant, a heterozygous somatic variant, loss of
// heterozygosity, or nothing notable.
package caller

import (
	"fmt"

	"github.com/ding-lab/bassovac/qualbin"
)

// AlleleType is one of the two alleles a sample's genotype at a position can
// carry. Var sits at zero so a genotype's variant-allele count is a plain sum
// of its two AlleleType values subtracted from 2.
type AlleleType int

const (
	Var AlleleType = iota
	Ref
)

// Sample holds one individual's pileup-derived evidence at a position: how
// many reads covered it, how many matched the reference, the per-bin error
// rates those reads carry, and the purity adjustment used to account for
// cross-contamination between the normal and tumor samples.
type Sample struct {
	TotalReads       uint32
	SupportingReads  uint32
	VariantFrequency float64

	// ReadErrorBins partitions this sample's covering reads' base qualities
	// into a handful of bins (see qualbin.Bin), each carrying a harmonic-mean
	// error rate and, once a joint genotype hypothesis is evaluated, a
	// PObserveRef scratch value.
	ReadErrorBins []qualbin.Bin

	// AdjustedPurity and AdjustedPurityComplement weight how much of this
	// sample's own purity, versus admixture from the other sample, is
	// attributed to a variant read. For the normal sample, purity is usually
	// near 1 and the complement models tumor-in-normal contamination scaled
	// by tumor mass fraction; for the tumor sample it's reversed.
	AdjustedPurity           float64
	AdjustedPurityComplement float64
}

// NewSample builds a Sample from raw pileup counts and a sorted slice of
// covering reads' base qualities, binning the qualities into at most maxBins
// groups.
func NewSample(totalReads, supportingReads uint32, variantFrequency, adjustedPurity, adjustedPurityComplement float64, sortedQuals []byte, maxBins int) Sample {
	return Sample{
		TotalReads:               totalReads,
		SupportingReads:          supportingReads,
		VariantFrequency:         variantFrequency,
		ReadErrorBins:            qualbin.Bin(sortedQuals, maxBins),
		AdjustedPurity:           adjustedPurity,
		AdjustedPurityComplement: adjustedPurityComplement,
	}
}

// piecewisePhi is unused by the posterior computation itself (the original
// implementation computed it but never consumed the result outside of
// debugging); kept because Sample's public contract in the reference caller
// exposes it and a future allele-frequency diagnostic may want it.
func (s Sample) piecewisePhi(alleles [2]AlleleType) float64 {
	if alleles[0] == alleles[1] {
		if alleles[0] == Ref {
			return 0
		}
		return 1
	}
	return s.VariantFrequency
}

func (s Sample) String() string {
	return fmt.Sprintf("total=%d supporting=%d bins=%d", s.TotalReads, s.SupportingReads, len(s.ReadErrorBins))
}
