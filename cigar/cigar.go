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

// Package cigar walks a read's CIGAR operations to map reference positions
// onto offsets into the read's sequence and quality arrays. A Resolver
// holds a cursor over one read's CIGAR; callers drive it forward with a
// non-decreasing sequence of reference positions, exactly as a pileup
// intersector visits positions left to right.
package cigar

import "github.com/biogo/hts/sam"

// Resolver maps reference positions to read offsets for a single alignment
// record's CIGAR. It is stateful: Offset must be called with non-decreasing
// positions, matching how a pileup scan only ever moves forward.
type Resolver struct {
	ops     []sam.CigarOp
	readPos int
	refPos  int
	opIdx   int
	started bool
}

// NewResolver returns a Resolver positioned at refStart, the 0-based
// reference coordinate of the read's first CIGAR operation (sam.Record.Pos).
func NewResolver(refStart int, ops []sam.CigarOp) *Resolver {
	return &Resolver{ops: ops, refPos: refStart}
}

// isRefAnchored reports whether op type occupies a reference coordinate:
// true for match/mismatch/equal (a real base call sits there) and for
// deletion/skip (the reference base exists but no read base covers it).
func isRefAnchored(t sam.CigarOpType) bool {
	switch t {
	case sam.CigarMatch, sam.CigarDeletion, sam.CigarSkipped, sam.CigarEqual, sam.CigarMismatch:
		return true
	}
	return false
}

// isCall reports whether op type contributes an observed base: a read
// offset with an associated quality score.
func isCall(t sam.CigarOpType) bool {
	switch t {
	case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
		return true
	}
	return false
}

func (r *Resolver) advance() {
	op := r.ops[r.opIdx]
	con := op.Type().Consumes()
	r.refPos += op.Len() * con.Reference
	r.readPos += op.Len() * con.Query
	r.opIdx++
}

func (r *Resolver) advanceToNextRefAnchoredOp() {
	for r.opIdx < len(r.ops) && !isRefAnchored(r.ops[r.opIdx].Type()) {
		r.advance()
	}
}

// Offset returns the 0-based index into the read's Seq/Qual arrays that
// covers reference position pos, or -1 if pos falls inside a deletion or
// reference skip, or beyond the end of the alignment. pos must be
// non-decreasing across successive calls on the same Resolver.
func (r *Resolver) Offset(pos int) int {
	if !r.started {
		r.advanceToNextRefAnchoredOp()
		r.started = true
	}
	for r.opIdx < len(r.ops) && pos-r.refPos >= r.ops[r.opIdx].Len() {
		r.advance()
		r.advanceToNextRefAnchoredOp()
	}
	if r.opIdx >= len(r.ops) || !isCall(r.ops[r.opIdx].Type()) {
		return -1
	}
	return r.readPos + (pos - r.refPos)
}

// Done reports whether the cursor has consumed every CIGAR operation.
func (r *Resolver) Done() bool {
	return r.opIdx >= len(r.ops)
}
