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

// Package result renders one called position's evidence and posterior
// probabilities as a tab-separated row.
package result

import (
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"

	"github.com/ding-lab/bassovac/caller"
)

// seq8ToASCII maps the 4-bit nucleotide encoding used throughout this module
// (see pileup.BaseA etc.) to its IUPAC character, the same table bam_nt16_rev
// encodes in the reference htslib.
var seq8ToASCII = [16]byte{
	0: '=', 1: 'A', 2: 'C', 3: 'M', 4: 'G', 5: 'R', 6: 'S', 7: 'V',
	8: 'T', 9: 'W', 10: 'Y', 11: 'H', 12: 'K', 13: 'D', 14: 'B', 15: 'N',
}

// Formatter writes called positions to an underlying tsv.Writer, one row per
// call, in a fixed 17-column layout.
type Formatter struct {
	w          *tsv.Writer
	fixedPoint bool
	precision  int
}

// NewFormatter returns a Formatter writing to out. When fixedPoint is false,
// probability columns are rendered in scientific notation, matching the
// reference caller's default; precision is the number of digits after the
// decimal point.
func NewFormatter(out io.Writer, fixedPoint bool, precision int) *Formatter {
	return &Formatter{w: tsv.NewWriter(out), fixedPoint: fixedPoint, precision: precision}
}

// PrintResult writes one row: sequence name, 0-based and 1-based position,
// reference allele, normal/tumor variant alleles (or '.' when absent),
// normal/tumor base counts, read depths and support, and the five posterior
// probabilities from c.
func (f *Formatter) PrintResult(
	sequenceName string,
	pos int,
	ref byte,
	normalVariant, tumorVariant byte,
	normalBaseCounts, tumorBaseCounts [4]int,
	normal, tumor caller.Sample,
	c *caller.Caller,
) error {
	f.w.WriteString(sequenceName)
	f.w.WriteUint32(uint32(pos))
	f.w.WriteUint32(uint32(pos + 1))
	f.w.WriteByte(seq8ToASCII[ref])
	f.w.WriteByte(variantChar(normalVariant))
	f.w.WriteByte(variantChar(tumorVariant))
	f.w.WriteString(joinCounts(normalBaseCounts))
	f.w.WriteString(joinCounts(tumorBaseCounts))
	f.w.WriteUint32(normal.TotalReads)
	f.w.WriteUint32(normal.SupportingReads)
	f.w.WriteUint32(tumor.TotalReads)
	f.w.WriteUint32(tumor.SupportingReads)
	f.w.WriteString(f.formatProb(c.HomozygousVariantProbability()))
	f.w.WriteString(f.formatProb(c.HeterozygousVariantProbability()))
	f.w.WriteString(f.formatProb(c.SomaticVariantProbability()))
	f.w.WriteString(f.formatProb(c.LossOfHeterozygosityProbability()))
	f.w.WriteString(f.formatProb(c.NonNotableEventProbability()))
	return f.w.EndLine()
}

// Flush flushes any buffered output.
func (f *Formatter) Flush() error { return f.w.Flush() }

func (f *Formatter) formatProb(p float64) string {
	format := byte('e')
	if f.fixedPoint {
		format = 'f'
	}
	return strconv.FormatFloat(p, format, f.precision, 64)
}

func variantChar(b byte) byte {
	if b == 0 {
		return '.'
	}
	return seq8ToASCII[b]
}

func joinCounts(counts [4]int) string {
	return fmt.Sprintf("%d,%d,%d,%d", counts[0], counts[1], counts[2], counts[3])
}

// DescribeFormat returns a human-readable, numbered description of every
// column PrintResult writes, suitable for a -help-format flag.
func DescribeFormat() string {
	fields := []string{
		"Sequence name (chromosome)",
		"Start position (0-based)",
		"End position (0-based)",
		"Reference allele",
		"Normal variant allele",
		"Tumor variant allele",
		"Normal base occurrence counts (A,C,G,T)",
		"Tumor base occurrence counts (A,C,G,T)",
		"Normal read count at this position",
		"Normal reads supporting reference at this position",
		"Tumor read count at this position",
		"Tumor reads supporting reference at this position",
		"Probability of homozygous variant",
		"Probability of heterozygous variant",
		"Probability of somatic variant",
		"Probability of loss of heterozygosity event",
		"Probability of 'uninteresting' event",
	}
	out := "\nbassovac output format (all fields are tab separated):\n\n"
	for i, field := range fields {
		out += fmt.Sprintf("\t%d) %s\n", i+1, field)
	}
	return out
}
