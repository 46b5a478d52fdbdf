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
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/ding-lab/bassovac/config"
	"github.com/ding-lab/bassovac/driver"
	"github.com/ding-lab/bassovac/result"
)

var (
	outputFile = flag.String("output-file", "", "Output path; '-' or empty means stdout")
	region     = flag.String("region", "", "Restrict calling to <contig>, <contig>:<pos>, or <contig>:<begin>-<end> (1-based, inclusive); default is the whole genome")

	normalPurity      = flag.Float64("normal-purity", 0, "Fraction of the normal sample that is actually normal tissue (required)")
	tumorPurity       = flag.Float64("tumor-purity", 0, "Fraction of the tumor sample that is actually tumor tissue (required)")
	tumorMassFraction = flag.Float64("tumor-mass-fraction", 1.0, "Fraction of the sequenced mass the tumor sample contributes, relative to the normal sample")

	normalVariantFrequency = flag.Float64("normal-variant-freq", 0.5, "Expected variant allele frequency in a heterozygous normal genotype")
	tumorVariantFrequency  = flag.Float64("tumor-variant-freq", 0.5, "Expected variant allele frequency in a heterozygous tumor genotype")

	normalHetRate  = flag.Float64("normal-het-rate", 0.001, "Prior probability of a heterozygous germline variant")
	normalHomRate  = flag.Float64("normal-hom-rate", 0.0005, "Prior probability of a homozygous germline variant")
	tumorBgRate    = flag.Float64("tumor-bg-rate", 0.000002, "Prior probability of a somatic variant absent any other evidence")
	minSomaticPval = flag.Float64("min-somatic-pvalue", 0.0, "Minimum somatic posterior probability a position must clear to be reported")

	minMapQual  = flag.Uint("min-mapqual", 0, "Minimum accepted read mapping quality")
	minBaseQual = flag.Uint("min-basequal", 0, "Minimum accepted base quality")
	bins        = flag.Uint("bins", 2, "Maximum number of quality bins to collapse each sample's reads into")
	maxDepth    = flag.Uint("max-depth", 1000000, "Upper bound on per-position read depth; sizes the precomputed log-gamma lookup table")
	precision   = flag.Uint("precision", 6, "Digits of precision in reported probabilities")
	fixedPoint  = flag.Bool("fixed", false, "Report probabilities in fixed-point rather than scientific notation")

	helpFormat = flag.Bool("help-format", false, "Print a description of the output format and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] fasta normal.bam tumor.bam\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *helpFormat {
		fmt.Print(result.DescribeFormat())
		return
	}

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 3 {
		if nPositionalArgs < 3 {
			log.Fatalf("Missing positional arguments (fasta, normal.bam, and tumor.bam required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		} else {
			log.Fatalf("Too many positional arguments (only fasta, normal.bam, and tumor.bam expected); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		}
	}

	opts := config.Default()
	opts.Fasta = positionalArgs[0]
	opts.NormalBam = positionalArgs[1]
	opts.TumorBam = positionalArgs[2]
	opts.OutputFile = *outputFile
	opts.Region = *region
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "normal-purity":
			opts.NormalPurity = normalPurity
		case "tumor-purity":
			opts.TumorPurity = tumorPurity
		}
	})
	opts.TumorMassFraction = *tumorMassFraction
	opts.NormalVariantFrequency = *normalVariantFrequency
	opts.TumorVariantFrequency = *tumorVariantFrequency
	opts.NormalHetVariantRate = *normalHetRate
	opts.NormalHomVariantRate = *normalHomRate
	opts.TumorBgMutationRate = *tumorBgRate
	opts.MinSomaticPvalue = *minSomaticPval
	opts.MinMapQual = uint32(*minMapQual)
	opts.MinBaseQual = uint32(*minBaseQual)
	opts.MaxBins = uint32(*bins)
	opts.MaxDepth = uint32(*maxDepth)
	opts.Precision = uint32(*precision)
	opts.FixedPoint = *fixedPoint

	if err := driver.Run(opts); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
