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

package align

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is a half-open, 0-based interval [Begin, End) on chromosome Chrom.
type Region struct {
	Chrom string
	Begin int
	End   int
}

// ParseRegion parses a samtools-style region string: "chrom", "chrom:pos", or
// "chrom:begin-end" with 1-based, inclusive begin and end. A bare "chrom"
// covers the whole reference and must be resolved against a header to learn
// its length.
func ParseRegion(s string) (Region, error) {
	if len(s) == 0 {
		return Region{}, fmt.Errorf("align: empty region string")
	}
	colon := strings.IndexByte(s, ':')
	if colon == -1 {
		return Region{Chrom: s, Begin: 0, End: -1}, nil
	}
	if colon == 0 {
		return Region{}, fmt.Errorf("align: region %q has an empty chromosome name", s)
	}
	chrom := s[:colon]
	rng := s[colon+1:]

	dash := strings.IndexByte(rng, '-')
	if dash == -1 {
		pos1, err := strconv.Atoi(rng)
		if err != nil {
			return Region{}, fmt.Errorf("align: region %q: %v", s, err)
		}
		if pos1 <= 0 {
			return Region{}, fmt.Errorf("align: region %q: position out of range", s)
		}
		return Region{Chrom: chrom, Begin: pos1 - 1, End: pos1}, nil
	}

	begin1, err := strconv.Atoi(rng[:dash])
	if err != nil {
		return Region{}, fmt.Errorf("align: region %q: %v", s, err)
	}
	if begin1 <= 0 {
		return Region{}, fmt.Errorf("align: region %q: begin out of range", s)
	}
	end, err := strconv.Atoi(rng[dash+1:])
	if err != nil {
		return Region{}, fmt.Errorf("align: region %q: %v", s, err)
	}
	if end < begin1-1 {
		return Region{}, fmt.Errorf("align: region %q: end before begin", s)
	}
	return Region{Chrom: chrom, Begin: begin1 - 1, End: end}, nil
}
