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

package caller

import (
	"fmt"
	"math"

	"github.com/ding-lab/bassovac/binomial"
)

// Caller evaluates the 16-entry joint genotype table over a matched
// normal/tumor Sample pair and exposes the posterior probabilities derived
// from it. A genotype is a pair of AlleleType values per sample; the table
// is indexed pGenotype[normal0][normal1][tumor0][tumor1].
type Caller struct {
	normal, tumor Sample

	normalHetVariantRate  float64
	normalHomVariantRate  float64
	tumorBackgroundMutationRate float64

	invProbData float64
	pGenotype   [2][2][2][2]float64
}

// NewCaller builds a Caller for normal and tumor, evaluating every
// genotype combination's joint probability once up front. The three rate
// parameters are priors: the normal sample's heterozygous and homozygous
// germline variant rates, and the tumor's background (non-inherited)
// mutation rate.
func NewCaller(normal, tumor Sample, normalHetVariantRate, normalHomVariantRate, tumorBackgroundMutationRate float64) (*Caller, error) {
	c := &Caller{
		normal:                      normal,
		tumor:                       tumor,
		normalHetVariantRate:        normalHetVariantRate,
		normalHomVariantRate:        normalHomVariantRate,
		tumorBackgroundMutationRate: tumorBackgroundMutationRate,
	}

	var probabilityOfData float64
	add := func(n1, n2, t1, t2 int) error {
		p, err := c.storeJointGenotypeProbability(n1, n2, t1, t2)
		if err != nil {
			return err
		}
		probabilityOfData += p
		return nil
	}
	addDoubled := func(n1, n2, t1, t2 int) error {
		p, err := c.storeJointGenotypeProbability(n1, n2, t1, t2)
		if err != nil {
			return err
		}
		probabilityOfData += 2 * p
		return nil
	}

	V, R := int(Var), int(Ref)

	for _, quad := range [][4]int{
		{R, R, R, R}, {R, R, V, V},
		{R, V, R, R}, {V, R, R, R},
		{V, V, R, R}, {V, V, R, V},
		{V, V, V, R}, {V, V, V, V},
	} {
		if err := add(quad[0], quad[1], quad[2], quad[3]); err != nil {
			return nil, err
		}
	}

	if err := addDoubled(R, V, R, V); err != nil {
		return nil, err
	}
	c.pGenotype[V][R][V][R] = c.pGenotype[R][V][R][V]

	if err := addDoubled(R, V, V, R); err != nil {
		return nil, err
	}
	c.pGenotype[V][R][R][V] = c.pGenotype[R][V][V][R]

	if err := addDoubled(R, R, R, V); err != nil {
		return nil, err
	}
	c.pGenotype[R][R][V][R] = c.pGenotype[R][R][R][V]

	if err := addDoubled(R, V, V, V); err != nil {
		return nil, err
	}
	c.pGenotype[V][R][V][V] = c.pGenotype[R][V][V][V]

	if probabilityOfData != 0 {
		c.invProbData = 1 / probabilityOfData
		if math.IsInf(c.invProbData, 1) {
			c.invProbData = math.MaxFloat64
		}
	}

	return c, nil
}

// storeJointGenotypeProbability computes and caches the joint probability of
// one (normal genotype, tumor genotype) combination, returning it for the
// caller to accumulate into the normalizing constant.
func (c *Caller) storeJointGenotypeProbability(n1, n2, t1, t2 int) (float64, error) {
	nAlleles := [2]AlleleType{AlleleType(n1), AlleleType(n2)}
	tAlleles := [2]AlleleType{AlleleType(t1), AlleleType(t2)}

	probPrior := c.priorProbabilityGenotypes(nAlleles, tAlleles)

	probNormal, err := c.probabilityObservedGivenGenotypes(c.normal, nAlleles, c.tumor, tAlleles)
	if err != nil {
		return 0, err
	}
	probTumor, err := c.probabilityObservedGivenGenotypes(c.tumor, tAlleles, c.normal, nAlleles)
	if err != nil {
		return 0, err
	}

	joint := probPrior * probNormal * probTumor
	c.pGenotype[n1][n2][t1][t2] = joint
	return joint, nil
}

// piecewisePsi is the probability the tumor carries allele tumor at a site
// given the normal carries allele normal, folding in that a normal VAR
// allele distributes the background mutation rate across the three
// non-reference bases it could mutate to, and that a matching pair is the
// complement of a mismatching one.
func (c *Caller) piecewisePsi(normal, tumor AlleleType) float64 {
	p := c.tumorBackgroundMutationRate
	if normal == Var {
		p /= 3
	}
	if normal == tumor {
		p = 1 - p
	}
	return p
}

// priorProbabilityGenotypes is P(normal genotype, tumor genotype) under the
// germline/somatic rate model, before any read evidence is considered.
func (c *Caller) priorProbabilityGenotypes(normal, tumor [2]AlleleType) float64 {
	var compositePrior float64
	if normal[0] == normal[1] {
		if normal[0] == Ref {
			compositePrior = 1 - c.normalHetVariantRate - c.normalHomVariantRate
		} else {
			compositePrior = c.normalHomVariantRate
		}
	} else {
		compositePrior = c.normalHetVariantRate / 2
	}

	compositePrior *= c.piecewisePsi(normal[0], tumor[0])
	compositePrior *= c.piecewisePsi(normal[1], tumor[1])
	return compositePrior
}

// bernoulliProbabilityOfReference fills in s1's per-bin PObserveRef: the
// probability a single read from s1, with that bin's error rate, would be
// observed carrying the reference base, under the hypothesis that s1 has
// genotype a1 and s2 (whose admixture contaminates s1 via purity) has
// genotype a2. Both samples' variant-allele counts feed in, since s1's
// purity split describes how much of s1's signal actually originates from
// s2.
func (c *Caller) bernoulliProbabilityOfReference(s1 Sample, a1 [2]AlleleType, s2 Sample, a2 [2]AlleleType) error {
	nvar1 := 2 - int(a1[0]) - int(a1[1])
	nvar2 := 2 - int(a2[0]) - int(a2[1])
	pA := float64(nvar1) * s1.AdjustedPurity
	pB := float64(nvar2) * s1.AdjustedPurityComplement

	for i := range s1.ReadErrorBins {
		err := s1.ReadErrorBins[i].HarmonicMean
		p := 1 - (1-4.0/3.0*err)*(pA+pB)/2 - err
		if p < 0 || p > 1 {
			return fmt.Errorf("caller: probability of reference %v is invalid", p)
		}
		s1.ReadErrorBins[i].PObserveRef = p
	}
	return nil
}

// probabilityObservedGivenGenotypes is P(s1's observed reads | a1, a2): the
// read-evidence likelihood for one sample under a joint genotype hypothesis,
// combining its quality bins' Bernoulli-of-reference probabilities via a
// 1- or 2-term binomial convolution.
func (c *Caller) probabilityObservedGivenGenotypes(s1 Sample, a1 [2]AlleleType, s2 Sample, a2 [2]AlleleType) (float64, error) {
	if err := c.bernoulliProbabilityOfReference(s1, a1, s2, a2); err != nil {
		return 0, err
	}

	bins := s1.ReadErrorBins
	var rv float64
	var err error
	switch len(bins) {
	case 1:
		rv, err = binomial.PMF(bins[0].PObserveRef, int(s1.TotalReads), int(s1.SupportingReads))
	case 2:
		rv, err = binomial.Convolve2PMF(
			bins[0].PObserveRef, bins[1].PObserveRef,
			int(bins[0].Size), int(bins[1].Size),
			int(s1.SupportingReads),
		)
	default:
		return 0, fmt.Errorf("caller: unsupported number of quality bins: %d", len(bins))
	}
	if err != nil {
		return 0, err
	}

	if rv < 0 || rv > 1 {
		return 0, fmt.Errorf("caller: probability of observed data %v is invalid", rv)
	}
	return rv, nil
}

// HomozygousVariantProbability is the posterior probability the tumor is
// homozygous for a variant the normal does not carry.
func (c *Caller) HomozygousVariantProbability() float64 {
	return c.invProbData * c.pGenotype[Ref][Ref][Var][Var]
}

// HeterozygousVariantProbability is the posterior probability the tumor is
// heterozygous for a variant the normal does not carry.
func (c *Caller) HeterozygousVariantProbability() float64 {
	return c.invProbData * (c.pGenotype[Ref][Ref][Var][Ref] + c.pGenotype[Ref][Ref][Ref][Var])
}

// SomaticVariantProbability is the posterior probability of a somatic
// variant of either zygosity: HomozygousVariantProbability +
// HeterozygousVariantProbability.
func (c *Caller) SomaticVariantProbability() float64 {
	return c.HomozygousVariantProbability() + c.HeterozygousVariantProbability()
}

// LossOfHeterozygosityProbability is the posterior probability the normal is
// heterozygous and the tumor has lost one allele, retaining only the
// reference.
func (c *Caller) LossOfHeterozygosityProbability() float64 {
	return c.invProbData * (c.pGenotype[Ref][Var][Ref][Ref] + c.pGenotype[Var][Ref][Ref][Ref])
}

// NonNotableEventProbability is the posterior probability of every genotype
// combination not already accounted for by the somatic or LOH calls above.
func (c *Caller) NonNotableEventProbability() float64 {
	return c.invProbData * (c.pGenotype[Ref][Ref][Ref][Ref] +
		c.pGenotype[Var][Ref][Var][Ref] +
		c.pGenotype[Var][Ref][Ref][Var] +
		c.pGenotype[Var][Ref][Var][Var] +
		c.pGenotype[Ref][Var][Var][Ref] +
		c.pGenotype[Ref][Var][Ref][Var] +
		c.pGenotype[Ref][Var][Var][Var] +
		c.pGenotype[Var][Var][Ref][Ref] +
		c.pGenotype[Var][Var][Var][Ref] +
		c.pGenotype[Var][Var][Ref][Var] +
		c.pGenotype[Var][Var][Var][Var])
}
