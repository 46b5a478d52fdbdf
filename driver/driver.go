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

// Package driver wires together the alignment readers, the pileup
// intersector, the probabilistic caller, and the result formatter into a
// single end-to-end bassovac run.
package driver

import (
	"bytes"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"

	"github.com/ding-lab/bassovac/align"
	"github.com/ding-lab/bassovac/caller"
	"github.com/ding-lab/bassovac/config"
	"github.com/ding-lab/bassovac/encoding/fasta"
	"github.com/ding-lab/bassovac/lut"
	"github.com/ding-lab/bassovac/pileup"
	"github.com/ding-lab/bassovac/result"
)

// Run executes one full bassovac call: it opens the normal/tumor BAMs and
// the reference FASTA, intersects the two alignment streams position by
// position, evaluates the joint genotype posterior at every jointly covered
// position, and writes every call clearing opts.MinSomaticPvalue to the
// configured output.
func Run(opts config.Options) (err error) {
	if err = opts.Validate(); err != nil {
		return err
	}

	lut.Init(opts.MaxDepth)

	readerN, readerT, err := openBams(opts)
	if err != nil {
		return err
	}
	defer func() {
		if e := readerN.Close(); e != nil && err == nil {
			err = e
		}
		if e := readerT.Close(); e != nil && err == nil {
			err = e
		}
	}()

	refSeq, fastaCloser, err := openFasta(opts.Fasta, opts.Region != "")
	if err != nil {
		return err
	}
	if fastaCloser != nil {
		defer func() {
			if e := fastaCloser.Close(); e != nil && err == nil {
				err = e
			}
		}()
	}

	out, closeOut, err := openOutput(opts.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if e := closeOut(); e != nil && err == nil {
			err = e
		}
	}()

	formatter := result.NewFormatter(out, opts.FixedPoint, int(opts.Precision))

	it := pileup.NewIntersector(readerN, readerT)
	callErr := it.Run(func(pos int, normal, tumor *pileup.Pileup) error {
		sequenceName := referenceName(readerN, it.Tid())
		return callPosition(opts, refSeq, formatter, sequenceName, pos, normal, tumor)
	})
	if callErr != nil {
		return errors.E(callErr, "driver: intersecting pileups")
	}

	return formatter.Flush()
}

// openBams opens the normal and tumor alignment streams concurrently (two
// independent index/header reads) and applies the shared mapping-quality
// filter to both.
func openBams(opts config.Options) (align.Reader, align.Reader, error) {
	filter := align.DefaultFilter()
	filter.MinMapQ = byte(opts.MinMapQual)

	open := func(path string) (align.Reader, error) { return align.NewReader(path) }
	if opts.Region != "" {
		region, err := align.ParseRegion(opts.Region)
		if err != nil {
			return nil, nil, err
		}
		open = func(path string) (align.Reader, error) { return align.NewRegionReader(path, region) }
	}

	var readerN, readerT align.Reader
	var g errgroup.Group
	g.Go(func() (err error) {
		readerN, err = open(opts.NormalBam)
		return err
	})
	g.Go(func() (err error) {
		readerT, err = open(opts.TumorBam)
		return err
	})
	if err := g.Wait(); err != nil {
		if readerN != nil {
			readerN.Close()
		}
		if readerT != nil {
			readerT.Close()
		}
		return nil, nil, err
	}

	readerN.SetFilter(filter)
	readerT.SetFilter(filter)
	return readerN, readerT, nil
}

// openFasta opens the reference FASTA. When indexed is false (no --region
// restriction; the whole genome will be scanned anyway) it eagerly loads the
// whole file via fasta.New. When indexed is true it instead builds a
// fasta.NewIndexed reader backed by a .fai sidecar (generating one in memory
// via GenerateIndex if the sidecar isn't present on disk), giving
// region-restricted runs the same random-access behavior align.NewRegionReader
// already provides on the BAM side, without loading the whole reference.
// The returned io.Closer is nil when the caller owns no file handle beyond
// the one this function already closed.
func openFasta(path string, indexed bool) (fasta.Fasta, io.Closer, error) {
	if !indexed {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, errors.E(err, "driver: opening reference fasta")
		}
		defer f.Close()
		fa, err := fasta.New(f)
		if err != nil {
			return nil, nil, err
		}
		return fa, nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.E(err, "driver: opening reference fasta")
	}

	if fai, err := os.Open(path + ".fai"); err == nil {
		defer fai.Close()
		fa, err := fasta.NewIndexed(f, fai)
		if err != nil {
			f.Close()
			return nil, nil, errors.E(err, "driver: reading fasta index")
		}
		return fa, f, nil
	} else if !os.IsNotExist(err) {
		f.Close()
		return nil, nil, errors.E(err, "driver: opening fasta index")
	}

	var idx bytes.Buffer
	if err := fasta.GenerateIndex(&idx, f); err != nil {
		f.Close()
		return nil, nil, errors.E(err, "driver: generating fasta index")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, errors.E(err, "driver: rewinding reference fasta")
	}
	fa, err := fasta.NewIndexed(f, &idx)
	if err != nil {
		f.Close()
		return nil, nil, errors.E(err, "driver: reading generated fasta index")
	}
	return fa, f, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.E(err, "driver: opening output file")
	}
	return f, f.Close, nil
}

// callPosition mirrors the reference caller's per-position callback: it
// resolves the reference base, skips positions where every read on both
// sides already agrees with it, builds each sample's quality-binned
// evidence, evaluates the joint genotype posterior, and emits a row if the
// somatic probability clears the configured threshold.
func callPosition(
	opts config.Options,
	refSeq fasta.Fasta,
	formatter *result.Formatter,
	sequenceName string,
	pos int,
	normal, tumor *pileup.Pileup,
) error {
	refStr, err := refSeq.Get(sequenceName, uint64(pos), uint64(pos+1))
	if err != nil {
		log.Error.Printf("driver: %s:%d: %v (likely a read hanging off the end of the sequence)", sequenceName, pos, err)
		return nil
	}
	ref := pileup.EncodeBase(refStr[0])

	minBaseQual := byte(opts.MinBaseQual)
	nSupporting := normal.ReadsMatching(ref, minBaseQual)
	tSupporting := tumor.ReadsMatching(ref, minBaseQual)
	if nSupporting == normal.Len() && tSupporting == tumor.Len() {
		return nil
	}

	nBaseCounts := normal.BaseCounts()
	tBaseCounts := tumor.BaseCounts()
	nVariant := pileup.VariantAllele(ref, nBaseCounts)
	tVariant := pileup.VariantAllele(ref, tBaseCounts)

	nQuals := normal.BaseQualities(minBaseQual)
	tQuals := tumor.BaseQualities(minBaseQual)
	if len(nQuals) == 0 || len(tQuals) == 0 {
		return nil
	}

	normalSample := caller.NewSample(
		uint32(len(nQuals)), uint32(nSupporting), opts.NormalVariantFrequency,
		opts.AdjustedNormalPurity(), opts.AdjustedNormalPurityComplement(),
		nQuals, int(opts.MaxBins),
	)
	tumorSample := caller.NewSample(
		uint32(len(tQuals)), uint32(tSupporting), opts.TumorVariantFrequency,
		opts.AdjustedTumorPurity(), opts.AdjustedTumorPurityComplement(),
		tQuals, int(opts.MaxBins),
	)

	c, err := caller.NewCaller(normalSample, tumorSample, opts.NormalHetVariantRate, opts.NormalHomVariantRate, opts.TumorBgMutationRate)
	if err != nil {
		return errors.E(err, "driver: evaluating joint genotype posterior")
	}

	if c.SomaticVariantProbability() < opts.MinSomaticPvalue {
		return nil
	}

	return formatter.PrintResult(sequenceName, pos, ref, nVariant, tVariant, nBaseCounts, tBaseCounts, normalSample, tumorSample, c)
}

// referenceName resolves a reference target id back to its name via the
// normal stream's header.
func referenceName(readerN align.Reader, tid int) string {
	refs := readerN.Header().Refs()
	if tid < 0 || tid >= len(refs) {
		return ""
	}
	return refs[tid].Name()
}
