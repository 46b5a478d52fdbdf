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

package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"

	"github.com/ding-lab/bassovac/align"
	"github.com/ding-lab/bassovac/config"
	"github.com/ding-lab/bassovac/lut"
	"github.com/ding-lab/bassovac/pileup"
	"github.com/ding-lab/bassovac/result"
)

func init() {
	lut.Init(1000)
}

// fakeReader feeds a fixed slice of records, implementing align.Reader over
// an in-memory list instead of an actual BAM file.
type fakeReader struct {
	header  *sam.Header
	records []*sam.Record
	idx     int
	pending *sam.Record
	filter  align.Filter
}

func (f *fakeReader) Take() (*sam.Record, error) {
	if f.pending != nil {
		r := f.pending
		f.pending = nil
		return r, nil
	}
	return f.takeAccepted()
}

func (f *fakeReader) Peek() (*sam.Record, error) {
	if f.pending == nil {
		r, err := f.takeAccepted()
		if err != nil {
			return nil, err
		}
		f.pending = r
	}
	return f.pending, nil
}

func (f *fakeReader) takeAccepted() (*sam.Record, error) {
	for f.idx < len(f.records) {
		r := f.records[f.idx]
		f.idx++
		if f.filter.Accept(r) {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeReader) Header() *sam.Header         { return f.header }
func (f *fakeReader) Region() (align.Region, bool) { return align.Region{}, false }
func (f *fakeReader) SetFilter(filt align.Filter)  { f.filter = filt }
func (f *fakeReader) Close() error                 { return nil }

// fakeFasta serves a single in-memory reference sequence.
type fakeFasta struct {
	name string
	seq  string
}

func (f *fakeFasta) Get(seqName string, start, end uint64) (string, error) {
	return f.seq[start:end], nil
}
func (f *fakeFasta) Len(seqName string) (uint64, error) { return uint64(len(f.seq)), nil }
func (f *fakeFasta) SeqNames() []string                 { return []string{f.name} }

func record(t *testing.T, ref *sam.Reference, begin int, seq string, qual byte) *sam.Record {
	quals := make([]byte, len(seq))
	for i := range quals {
		quals[i] = qual
	}
	rec, err := sam.NewRecord("r", ref, nil, begin, -1, 0, 60,
		[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(seq))}, []byte(seq), quals, nil)
	assert.NoError(t, err)
	return rec
}

func singlePosition(t *testing.T, normalSeq, tumorSeq string, refBase byte) (string, int, *pileup.Pileup, *pileup.Pileup) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	assert.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	assert.NoError(t, err)

	readerN := &fakeReader{header: h, records: []*sam.Record{record(t, ref, 100, normalSeq, 30)}}
	readerT := &fakeReader{header: h, records: []*sam.Record{record(t, ref, 100, tumorSeq, 30)}}

	var sequenceName string
	var pos int
	var normal, tumor *pileup.Pileup
	it := pileup.NewIntersector(readerN, readerT)
	err = it.Run(func(p int, n, tm *pileup.Pileup) error {
		sequenceName = readerN.Header().Refs()[it.Tid()].Name()
		pos, normal, tumor = p, n, tm
		return nil
	})
	assert.NoError(t, err)
	return sequenceName, pos, normal, tumor
}

func baseOptions() config.Options {
	o := config.Default()
	normalPurity, tumorPurity := 0.99, 0.7
	o.NormalPurity = &normalPurity
	o.TumorPurity = &tumorPurity
	return o
}

func TestCallPositionSkipsAllReferencePosition(t *testing.T) {
	sequenceName, pos, normal, tumor := singlePosition(t, "AAAA", "AAAA", 'A')

	var buf bytes.Buffer
	formatter := result.NewFormatter(&buf, false, 6)
	err := callPosition(baseOptions(), &fakeFasta{name: "chr1", seq: strings.Repeat("A", 200)}, formatter, sequenceName, pos, normal, tumor)
	assert.NoError(t, err)
	assert.NoError(t, formatter.Flush())
	assert.Empty(t, buf.String())
}

func TestCallPositionEmitsRowOnVariantSignal(t *testing.T) {
	sequenceName, pos, normal, tumor := singlePosition(t, "AAAA", "CCCC", 'A')

	ref := strings.Repeat("A", 200)
	var buf bytes.Buffer
	formatter := result.NewFormatter(&buf, false, 6)
	err := callPosition(baseOptions(), &fakeFasta{name: "chr1", seq: ref}, formatter, sequenceName, pos, normal, tumor)
	assert.NoError(t, err)
	assert.NoError(t, formatter.Flush())

	line := strings.TrimRight(buf.String(), "\n")
	assert.NotEmpty(t, line)
	fields := strings.Split(line, "\t")
	assert.Len(t, fields, 17)
	assert.Equal(t, "chr1", fields[0])
	assert.Equal(t, "C", fields[5]) // tumor variant allele
}

func TestCallPositionHonorsMinSomaticPvalue(t *testing.T) {
	sequenceName, pos, normal, tumor := singlePosition(t, "AAAA", "CCCC", 'A')

	opts := baseOptions()
	opts.MinSomaticPvalue = 1.1 // unattainable, forces the early return

	var buf bytes.Buffer
	formatter := result.NewFormatter(&buf, false, 6)
	err := callPosition(opts, &fakeFasta{name: "chr1", seq: strings.Repeat("A", 200)}, formatter, sequenceName, pos, normal, tumor)
	assert.NoError(t, err)
	assert.NoError(t, formatter.Flush())
	assert.Empty(t, buf.String())
}

func TestOpenOutputDefaultsToStdout(t *testing.T) {
	w, closeFn, err := openOutput("")
	assert.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.NotNil(t, w)

	w, closeFn, err = openOutput("-")
	assert.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.NotNil(t, w)
}

const testFastaData = ">chr1\nACGTACGTAC\nGT\n>chr2\nTTTT\n"

func writeTestFasta(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "ref.fa")
	assert.NoError(t, os.WriteFile(path, []byte(testFastaData), 0644))
	return path
}

func TestOpenFastaUnindexedLoadsWholeFile(t *testing.T) {
	path := writeTestFasta(t)

	fa, closer, err := openFasta(path, false)
	assert.NoError(t, err)
	assert.Nil(t, closer)

	seq, err := fa.Get("chr1", 0, 12)
	assert.NoError(t, err)
	assert.Equal(t, "ACGTACGTACGT", seq)
}

func TestOpenFastaIndexedGeneratesIndexWhenSidecarMissing(t *testing.T) {
	path := writeTestFasta(t)

	fa, closer, err := openFasta(path, true)
	assert.NoError(t, err)
	if assert.NotNil(t, closer) {
		defer closer.Close()
	}

	seq, err := fa.Get("chr2", 0, 4)
	assert.NoError(t, err)
	assert.Equal(t, "TTTT", seq)
}

func TestOpenFastaIndexedUsesSidecarWhenPresent(t *testing.T) {
	path := writeTestFasta(t)
	assert.NoError(t, os.WriteFile(path+".fai", []byte("chr1\t12\t6\t10\t11\nchr2\t4\t26\t4\t5\n"), 0644))

	fa, closer, err := openFasta(path, true)
	assert.NoError(t, err)
	if assert.NotNil(t, closer) {
		defer closer.Close()
	}

	seq, err := fa.Get("chr1", 0, 12)
	assert.NoError(t, err)
	assert.Equal(t, "ACGTACGTACGT", seq)
}

func TestReferenceNameResolvesTid(t *testing.T) {
	ref, err := sam.NewReference("chr2", "", "", 1000, nil, nil)
	assert.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	assert.NoError(t, err)
	readerN := &fakeReader{header: h}

	assert.Equal(t, "chr2", referenceName(readerN, 0))
	assert.Equal(t, "", referenceName(readerN, 5))
	assert.Equal(t, "", referenceName(readerN, -1))
}
