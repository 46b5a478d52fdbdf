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
	"fmt"

	"github.com/ding-lab/bassovac/align"
)

// Callback receives one jointly covered position's normal and tumor
// pileups. Returning an error stops the intersector.
type Callback func(pos int, normal, tumor *Pileup) error

// Intersector coordinates two position-sorted alignment readers, advancing
// whichever stream lags and emitting a pileup pair for every reference
// position both streams cover with at least one read each.
type Intersector struct {
	readerN, readerT align.Reader
	bufN, bufT       *OverlapBuffer

	tid int
	pos int

	hasRegion              bool
	regionTid              int
	regionBegin, regionEnd int
}

// Tid returns the reference target id of the position most recently (or
// currently being) emitted to a Callback.
func (it *Intersector) Tid() int { return it.tid }

// NewIntersector returns an Intersector over readerN (normal) and readerT
// (tumor). If readerN reports a bounding Region, every emitted position is
// additionally clipped to it.
func NewIntersector(readerN, readerT align.Reader) *Intersector {
	it := &Intersector{
		readerN: readerN,
		readerT: readerT,
		bufN:    NewOverlapBuffer(),
		bufT:    NewOverlapBuffer(),
	}
	if r, ok := readerN.Region(); ok {
		it.hasRegion = true
		it.regionBegin, it.regionEnd = r.Begin, r.End
		it.regionTid = -1
		if ref := align.FindReference(readerN.Header(), r.Chrom); ref != nil {
			it.regionTid = ref.ID()
		}
	}
	return it
}

// Run drives both streams to completion, invoking cb for every jointly
// covered position in increasing order.
func (it *Intersector) Run(cb Callback) error {
	if err := it.refill(it.readerN, it.bufN); err != nil {
		return err
	}
	if err := it.refill(it.readerT, it.bufT); err != nil {
		return err
	}

	for !it.bufN.Empty() && !it.bufT.Empty() {
		switch it.bufN.FrontCmp(it.bufT) {
		case Before:
			it.bufN.ClearBefore(it.bufT.Tid(), it.bufT.Start())
		case After:
			it.bufT.ClearBefore(it.bufN.Tid(), it.bufN.Start())
		default:
			if err := it.doPileup(cb); err != nil {
				return err
			}
		}
		if it.bufN.Empty() {
			if err := it.refill(it.readerN, it.bufN); err != nil {
				return err
			}
		}
		if it.bufT.Empty() {
			if err := it.refill(it.readerT, it.bufT); err != nil {
				return err
			}
		}
	}
	return nil
}

// refill pulls exactly one record into an empty buffer, the initial seed
// performed at startup and whenever a buffer is drained to empty.
func (it *Intersector) refill(r align.Reader, buf *OverlapBuffer) error {
	rec, err := r.Take()
	if err != nil {
		return err
	}
	buf.Push(rec)
	return nil
}

// doPileup greedily extends both buffers with every pending record that
// still overlaps their front, then emits a pileup for every position in the
// resulting overlap window, advancing the intersector's cursor.
func (it *Intersector) doPileup(cb Callback) error {
	if err := extend(it.readerN, it.bufN); err != nil {
		return err
	}
	if err := extend(it.readerT, it.bufT); err != nil {
		return err
	}

	if it.tid != it.bufN.Tid() {
		it.pos = 0
	}
	it.tid = it.bufN.Tid()

	if it.hasRegion && it.tid != it.regionTid {
		return fmt.Errorf("pileup: buffer target %d does not match region target %d", it.tid, it.regionTid)
	}

	cmp, begin, end := it.bufN.Cmp(it.bufT)
	if begin > it.pos {
		it.pos = begin
	}
	if frontEnd := it.bufN.FrontEnd(); frontEnd < end {
		end = frontEnd
	}

	if it.hasRegion {
		if it.regionBegin > it.pos {
			it.pos = it.regionBegin
		}
		if it.regionEnd >= 0 && it.regionEnd < end {
			end = it.regionEnd
		}
	}

	switch cmp {
	case Before:
		it.bufN.Clear()
	case After:
		it.bufT.Clear()
	default:
		for it.pos < end {
			normal := it.bufN.Pileup(it.pos)
			tumor := it.bufT.Pileup(it.pos)
			if !normal.Empty() && !tumor.Empty() {
				if err := cb(it.pos, normal, tumor); err != nil {
					return err
				}
			}
			it.pos++
		}
		it.bufN.ClearBefore(it.bufN.Tid(), it.pos)
		it.bufT.ClearBefore(it.bufT.Tid(), it.pos)
	}
	return nil
}

// extend repeatedly peeks the next record from r and pushes it into buf,
// consuming it only when accepted, until a record is rejected or the
// stream is exhausted. This is how a buffer picks up every alignment that
// extends its current overlap frontier before a position is resolved.
func extend(r align.Reader, buf *OverlapBuffer) error {
	for {
		rec, err := r.Peek()
		if err != nil {
			return err
		}
		if rec == nil || !buf.Push(rec) {
			return nil
		}
		if _, err := r.Take(); err != nil {
			return err
		}
	}
}
