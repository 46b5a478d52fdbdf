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

// Package config holds the tunable parameters of a bassovac run: input
// paths, the genomic region to restrict calling to, output formatting, and
// the priors and purity estimates that feed the caller package.
package config

import "fmt"

// Options is the full set of parameters a bassovac run needs. Fasta,
// NormalBam, TumorBam, NormalPurity, and TumorPurity have no useful zero
// value and must be set by the caller; every other field has a sensible
// default (see Default).
type Options struct {
	Fasta     string
	NormalBam string
	TumorBam  string

	// OutputFile is the destination path; empty or "-" means stdout.
	OutputFile string

	// Region restricts calling to one genomic interval, formatted as
	// "chrom", "chrom:pos", or "chrom:begin-end" (1-based, inclusive).
	// Empty means the whole genome.
	Region string

	FixedPoint bool
	Precision  uint32

	NormalVariantFrequency float64
	// NormalPurity and TumorPurity are pointers so Validate can distinguish
	// "explicitly set to 0.0" from "never set": both are legitimate purity
	// values, and only the latter is a validation error.
	NormalPurity          *float64
	TumorVariantFrequency float64
	TumorPurity           *float64
	TumorMassFraction     float64

	NormalHetVariantRate float64
	NormalHomVariantRate float64
	TumorBgMutationRate  float64
	MinSomaticPvalue     float64

	MinMapQual  uint32
	MinBaseQual uint32
	MaxBins     uint32
	MaxDepth    uint32
}

// Default returns an Options populated with bassovac's standard defaults.
// Fasta, NormalBam, TumorBam, NormalPurity, and TumorPurity are left zeroed
// and must be supplied before calling Validate.
func Default() Options {
	return Options{
		FixedPoint:             false,
		Precision:              6,
		NormalVariantFrequency: 0.5,
		TumorVariantFrequency:  0.5,
		TumorMassFraction:      1.0,
		NormalHetVariantRate:   0.001,
		NormalHomVariantRate:   0.0005,
		TumorBgMutationRate:    0.000002,
		MinSomaticPvalue:       0.0,
		MinMapQual:             0,
		MinBaseQual:            0,
		MaxBins:                2,
		MaxDepth:               1000000,
	}
}

// Validate reports an error if a required field was left unset.
func (o Options) Validate() error {
	type requirement struct {
		name string
		set  bool
	}
	for _, r := range []requirement{
		{"fasta", o.Fasta != ""},
		{"normal-bam", o.NormalBam != ""},
		{"tumor-bam", o.TumorBam != ""},
		{"normal-purity", o.NormalPurity != nil},
		{"tumor-purity", o.TumorPurity != nil},
	} {
		if !r.set {
			return fmt.Errorf("config: no value for required argument: %s", r.name)
		}
	}
	return nil
}

// AdjustedNormalPurity and AdjustedNormalPurityComplement are the purity
// weights passed to caller.NewSample for the normal sample: the normal's own
// purity, and the portion of its signal attributable to tumor-in-normal
// contamination, scaled by the tumor mass fraction. Both assume Validate has
// already confirmed NormalPurity is set.
func (o Options) AdjustedNormalPurity() float64 { return *o.NormalPurity }
func (o Options) AdjustedNormalPurityComplement() float64 {
	return o.TumorMassFraction * (1 - *o.NormalPurity)
}

// AdjustedTumorPurity and AdjustedTumorPurityComplement are the analogous
// weights for the tumor sample: its purity scaled by the tumor mass
// fraction, and the plain complement of its purity. Both assume Validate has
// already confirmed TumorPurity is set.
func (o Options) AdjustedTumorPurity() float64           { return o.TumorMassFraction * *o.TumorPurity }
func (o Options) AdjustedTumorPurityComplement() float64 { return 1 - *o.TumorPurity }
