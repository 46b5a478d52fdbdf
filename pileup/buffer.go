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

package pileup

import (
	"github.com/biogo/hts/sam"
	"github.com/ding-lab/bassovac/cigar"
)

// PosCompare orders two reference intervals (or buffers of them) by target
// and position.
type PosCompare int

const (
	Before PosCompare = iota
	Overlap
	After
)

// entry pairs one alignment record with the stateful CIGAR cursor used to
// resolve it against a monotonically increasing sequence of positions, and
// its precomputed reference end (Pos + reference-consuming CIGAR length).
type entry struct {
	rec      *sam.Record
	resolver *cigar.Resolver
	end      int
}

func newEntry(rec *sam.Record) *entry {
	refLen, _ := rec.Cigar.Lengths()
	return &entry{
		rec:      rec,
		resolver: cigar.NewResolver(rec.Pos, rec.Cigar),
		end:      rec.Pos + refLen,
	}
}

func (e *entry) tid() int { return e.rec.Ref.ID() }

func entryCmp(a, b *entry) PosCompare {
	return posCompare(a.tid(), a.rec.Pos, a.end, b.tid(), b.rec.Pos, b.end)
}

func posCompare(tidA, startA, endA, tidB, startB, endB int) PosCompare {
	if tidA < tidB {
		return Before
	}
	if tidB < tidA {
		return After
	}
	if endA <= startB {
		return Before
	}
	if endB <= startA {
		return After
	}
	return Overlap
}

// OverlapBuffer is a per-stream FIFO of alignment records currently
// covering a sliding reference interval. Its bounding end is the first
// (oldest) record's end, not the maximum over all records: only the front
// record bounds the guaranteed-contiguous overlap frontier, since records
// arrive in position-sorted order and later entries may start later but
// extend further.
type OverlapBuffer struct {
	entries []*entry
	end     int
}

// NewOverlapBuffer returns an empty buffer.
func NewOverlapBuffer() *OverlapBuffer {
	return &OverlapBuffer{}
}

// Empty reports whether the buffer holds no records.
func (b *OverlapBuffer) Empty() bool { return len(b.entries) == 0 }

// Tid returns the target id shared by every record in the buffer, or -1 if
// empty.
func (b *OverlapBuffer) Tid() int {
	if b.Empty() {
		return -1
	}
	return b.entries[0].tid()
}

// Start returns the front record's reference start, or 0 if empty.
func (b *OverlapBuffer) Start() int {
	if b.Empty() {
		return 0
	}
	return b.entries[0].rec.Pos
}

// End returns the buffer's bound: the front record's reference end.
func (b *OverlapBuffer) End() int { return b.end }

// FrontEnd returns the front record's reference end; identical to End, but
// named for call sites that mean to talk about the record rather than the
// buffer's derived bound.
func (b *OverlapBuffer) FrontEnd() int { return b.end }

// FrontCmp compares this buffer's front record against other's, the
// per-record comparison the intersector's outer loop uses to decide which
// stream is lagging.
func (b *OverlapBuffer) FrontCmp(other *OverlapBuffer) PosCompare {
	return entryCmp(b.entries[0], other.entries[0])
}

// Cmp compares the two buffers' aggregate bounds (front start, front-bound
// end), returning the overlap's [begin, end) when they intersect.
func (b *OverlapBuffer) Cmp(other *OverlapBuffer) (cmp PosCompare, begin, end int) {
	cmp = posCompare(b.Tid(), b.Start(), b.End(), other.Tid(), other.Start(), other.End())
	if cmp != Overlap {
		return cmp, 0, 0
	}
	begin = b.Start()
	if other.Start() > begin {
		begin = other.Start()
	}
	end = b.End()
	if other.End() < end {
		end = other.End()
	}
	return cmp, begin, end
}

// Push appends rec to the buffer if it belongs there: unconditionally when
// the buffer is empty (rec then defines the buffer's bounds), or when rec
// overlaps the front record's interval on the same target. It returns false
// when rec is nil or doesn't belong, leaving the buffer unchanged; the
// caller keeps rec (e.g. via a reader's Peek) to retry once the buffer
// advances.
func (b *OverlapBuffer) Push(rec *sam.Record) bool {
	if rec == nil {
		return false
	}
	e := newEntry(rec)
	if b.Empty() {
		b.entries = append(b.entries, e)
		b.end = e.end
		return true
	}
	if entryCmp(b.entries[0], e) == Overlap {
		b.entries = append(b.entries, e)
		return true
	}
	return false
}

// Clear discards every record in the buffer.
func (b *OverlapBuffer) Clear() {
	b.entries = nil
	b.end = 0
}

// ClearBefore discards every record that ends at or before pos on a target
// at or before tid, keeping records belonging to a later target or still
// covering pos or beyond.
func (b *OverlapBuffer) ClearBefore(tid, pos int) {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.tid() > tid || (e.tid() == tid && e.end > pos) {
			kept = append(kept, e)
		}
	}
	b.entries = kept
	b.end = 0
	if len(b.entries) > 0 {
		b.end = b.entries[0].end
	}
}

// Pileup resolves every buffered record against reference position pos,
// returning the observations of records that cover it. Records are visited
// in buffer (start) order; the scan stops at the first record whose start
// is past pos, since later records can only start later still.
func (b *OverlapBuffer) Pileup(pos int) *Pileup {
	p := &Pileup{obs: make([]Observation, 0, len(b.entries))}
	for _, e := range b.entries {
		if e.rec.Pos > pos {
			break
		}
		if e.end <= pos {
			continue
		}
		offset := e.resolver.Offset(pos)
		if offset < 0 {
			continue
		}
		p.obs = append(p.obs, Observation{
			Base:    baseAt(e.rec.Seq, offset),
			Quality: e.rec.Qual[offset],
		})
	}
	return p
}
