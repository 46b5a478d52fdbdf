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

// Package align exposes position-sorted BAM alignment streams as a small
// capability set (Peek, Take, Header, Region, SetFilter) that the pileup
// intersector is polymorphic over. Two concrete readers satisfy it: one
// that walks an entire file, and one limited to a region via its BAI index.
package align

import (
	"context"
	"fmt"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
)

// Filter accepts or rejects alignment records before they reach a buffer.
// The zero value accepts everything.
type Filter struct {
	// RejectMask is a bitmask of sam.Flags; a record is rejected if any bit
	// it sets is also set in RejectMask.
	RejectMask sam.Flags
	// MinMapQ is the minimum accepted mapping quality.
	MinMapQ byte
}

// DefaultFilter rejects unmapped, secondary, QC-fail, duplicate, and
// supplementary alignments, and requires mapping quality at least 1.
func DefaultFilter() Filter {
	return Filter{
		RejectMask: sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate | sam.Supplementary,
		MinMapQ:    1,
	}
}

// Accept reports whether r passes the filter.
func (f Filter) Accept(r *sam.Record) bool {
	return r.Flags&f.RejectMask == 0 && r.MapQ >= f.MinMapQ
}

// Reader is the capability set a pileup source must expose: pull the next
// record, look ahead without consuming it, learn the reference dictionary,
// report an optional bounding region, and install a Filter that Take/Peek
// apply transparently.
type Reader interface {
	// Take returns the next accepted record, or (nil, nil) at end of stream.
	Take() (*sam.Record, error)
	// Peek returns the next accepted record without consuming it. Repeated
	// calls to Peek with no intervening Take return the same record.
	Peek() (*sam.Record, error)
	// Header returns the alignment file's reference dictionary.
	Header() *sam.Header
	// Region returns the bounding region this reader is limited to, and
	// whether one is set.
	Region() (Region, bool)
	// SetFilter installs f; subsequent Take/Peek calls skip rejected records.
	SetFilter(f Filter)
	// Close releases underlying file handles.
	Close() error
}

// reader is the shared plumbing between the whole-file and region-limited
// variants: both pull sam.Records from a next func and buffer one
// lookahead record for Peek.
type reader struct {
	header  *sam.Header
	next    func() (*sam.Record, error)
	closer  io.Closer
	filter  Filter
	pending *sam.Record
	region  Region
	hasRgn  bool
}

func (r *reader) Take() (*sam.Record, error) {
	if r.pending != nil {
		rec := r.pending
		r.pending = nil
		return rec, nil
	}
	return r.takeAccepted()
}

func (r *reader) Peek() (*sam.Record, error) {
	if r.pending == nil {
		rec, err := r.takeAccepted()
		if err != nil {
			return nil, err
		}
		r.pending = rec
	}
	return r.pending, nil
}

func (r *reader) takeAccepted() (*sam.Record, error) {
	for {
		rec, err := r.next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}
		if r.filter.Accept(rec) {
			return rec, nil
		}
	}
}

func (r *reader) Header() *sam.Header { return r.header }

func (r *reader) Region() (Region, bool) { return r.region, r.hasRgn }

func (r *reader) SetFilter(f Filter) { r.filter = f }

func (r *reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// NewReader opens path and returns a Reader over the whole file.
func NewReader(path string) (Reader, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("align: opening %s", path))
	}
	br, err := bam.NewReader(f.Reader(ctx), 0)
	if err != nil {
		f.Close(ctx)
		return nil, errors.E(err, fmt.Sprintf("align: opening bam %s", path))
	}
	r := &reader{header: br.Header(), closer: fileCloser{f}}
	r.next = func() (*sam.Record, error) {
		rec, err := br.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return r, nil
}

// NewRegionReader opens path, loads its ".bai" index, and returns a Reader
// limited to region. It fails if the reference named by region is absent
// from the file's header. The underlying file must support seeking, since
// satisfying a region query means skipping straight to its first bgzf chunk.
func NewRegionReader(path string, region Region) (Reader, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("align: opening %s", path))
	}
	br, err := bam.NewReader(f.Reader(ctx), 0)
	if err != nil {
		f.Close(ctx)
		return nil, errors.E(err, fmt.Sprintf("align: opening bam %s", path))
	}

	idxFile, err := file.Open(ctx, path+".bai")
	if err != nil {
		f.Close(ctx)
		return nil, errors.E(err, fmt.Sprintf("align: opening index for %s", path))
	}
	defer idxFile.Close(ctx)
	idx, err := bam.ReadIndex(idxFile.Reader(ctx))
	if err != nil {
		f.Close(ctx)
		return nil, errors.E(err, fmt.Sprintf("align: reading index for %s", path))
	}

	ref := FindReference(br.Header(), region.Chrom)
	if ref == nil {
		f.Close(ctx)
		return nil, errors.E(fmt.Sprintf("align: %s: reference %q not found in %s", path, region.Chrom, path))
	}
	begin, end := region.Begin, region.End
	if end < 0 {
		end = ref.Len()
	}
	chunks, err := idx.Chunks(ref, begin, end)
	if err != nil {
		f.Close(ctx)
		return nil, errors.E(err, fmt.Sprintf("align: chunking %s at %s", path, region.Chrom))
	}

	it, err := bam.NewIterator(br, chunks)
	if err != nil {
		f.Close(ctx)
		return nil, errors.E(err, "align: building region iterator")
	}

	r := &reader{
		header: br.Header(),
		closer: fileCloser{f},
		region: Region{Chrom: region.Chrom, Begin: begin, End: end},
		hasRgn: true,
	}
	r.next = func() (*sam.Record, error) {
		if !it.Next() {
			return nil, it.Error()
		}
		return it.Record(), nil
	}
	return r, nil
}

// FindReference looks up a reference sequence by name in h's dictionary,
// returning nil if absent. Exported so the pileup intersector can resolve a
// region's chromosome name to the numeric target id alignment records carry.
func FindReference(h *sam.Header, name string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == name {
			return ref
		}
	}
	return nil
}

// fileCloser adapts a grailbio/base/file.File, whose Close takes a context,
// to the plain io.Closer the Reader interface exposes.
type fileCloser struct{ f file.File }

func (c fileCloser) Close() error {
	return c.f.Close(context.Background())
}
