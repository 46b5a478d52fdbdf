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

// Package lut holds precomputed lookup tables shared by the binomial engine
// and probabilistic caller: phred score <-> error probability, log-gamma,
// and roots of unity. Tables are global and sized once, at startup, from the
// application's expected maximum read depth; Init is idempotent and the
// tables are safe for concurrent read access once it returns.
package lut

import (
	"math"
	"math/cmplx"
	"sync"
)

var (
	phred2p           [256]float64
	phred2pReciprocal [256]float64

	mu           sync.RWMutex
	lgammaTable  []float64
	rootsOfUnity []complex128
	maxReadDepth uint32

	once sync.Once
)

// Init sizes the lookup tables for read depths up to maxReadDepth. The first
// call wins; subsequent calls are no-ops, matching the single-process,
// single-configuration lifetime of the caller.
func Init(maxDepth uint32) {
	once.Do(func() {
		for i := 0; i < 256; i++ {
			p := math.Pow(10, float64(i)/-10.0)
			phred2p[i] = p
			phred2pReciprocal[i] = 1.0 / p
		}

		mu.Lock()
		defer mu.Unlock()
		maxReadDepth = maxDepth
		lgammaTable = make([]float64, maxDepth+1)
		for i := uint32(1); i <= maxDepth; i++ {
			lgammaTable[i], _ = math.Lgamma(float64(i))
		}
		rootsOfUnity = make([]complex128, maxDepth+1)
		for n := uint32(2); n <= maxDepth; n++ {
			rootsOfUnity[n] = cmplx.Exp(complex(0, 2*math.Pi/float64(n)))
		}
	})
}

// Phred2Prob returns 10^(-phred/10), the error probability implied by a phred
// quality score.
func Phred2Prob(phred byte) float64 {
	return phred2p[phred]
}

// Phred2ProbReciprocal returns the reciprocal of Phred2Prob(phred).
func Phred2ProbReciprocal(phred byte) float64 {
	return phred2pReciprocal[phred]
}

// Lgamma returns math.Lgamma(x) for positive integral x, served from the
// lookup table when x falls within the range passed to Init and computed
// directly otherwise.
func Lgamma(x uint32) float64 {
	mu.RLock()
	inRange := x > 0 && x < uint32(len(lgammaTable))
	var v float64
	if inRange {
		v = lgammaTable[x]
	}
	mu.RUnlock()
	if inRange {
		return v
	}
	r, _ := math.Lgamma(float64(x))
	return r
}

// RootOfUnity returns exp(2*pi*i/n). Unused by the core caller; retained to
// support future Fourier-domain convolution work.
func RootOfUnity(n uint32) complex128 {
	mu.RLock()
	inRange := n >= 2 && n < uint32(len(rootsOfUnity))
	var v complex128
	if inRange {
		v = rootsOfUnity[n]
	}
	mu.RUnlock()
	if inRange {
		return v
	}
	return cmplx.Exp(complex(0, 2*math.Pi/float64(n)))
}

// MaxReadDepth returns the depth Init was called with.
func MaxReadDepth() uint32 {
	mu.RLock()
	defer mu.RUnlock()
	return maxReadDepth
}
