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

// Package binomial computes binomial probability mass and the convolution
// of two independent binomial PMFs, both in log space to avoid underflow at
// the read depths typical of sequencing data.
package binomial

import (
	"fmt"
	"math"

	"github.com/ding-lab/bassovac/lut"
)

// PMF returns C(n,k) * p^k * (1-p)^(n-k), the probability of observing
// exactly k successes in n Bernoulli(p) trials.
func PMF(p float64, n, k int) (float64, error) {
	// p=0 and p=1 are handled directly: the log-space formula below computes
	// 0*log(0), an indeterminate form, when k or n-k is simultaneously zero.
	if p == 0 {
		if k == 0 {
			return 1, nil
		}
		return 0, nil
	}
	if p == 1 {
		if k == n {
			return 1, nil
		}
		return 0, nil
	}

	var logBinCoeff float64
	if k != 0 && k != n {
		logBinCoeff = lut.Lgamma(uint32(n+1)) - lut.Lgamma(uint32(k+1)) - lut.Lgamma(uint32(n-k+1))
	}
	v := math.Exp(logBinCoeff + float64(k)*math.Log(p) + float64(n-k)*math.Log1p(-p))
	if v > 1 {
		if v > 1+1e-9 {
			return 0, fmt.Errorf("binomial: PMF produced invalid probability %v for p=%v n=%v k=%v", v, p, n, k)
		}
		v = 1
	}
	return v, nil
}

// Convolve2PMF returns P(X+Y=k), where X ~ Binomial(n1, p1) and
// Y ~ Binomial(n2, p2) are independent. It sums
// pmf(p1,n1,i)*pmf(p2,n2,k-i) over the range of i for which both terms are
// defined, in log space.
func Convolve2PMF(p1, p2 float64, n1, n2, k int) (float64, error) {
	if p1 == 0 || p1 == 1 || p2 == 0 || p2 == 1 {
		return convolve2Edge(p1, p2, n1, n2, k)
	}

	lp1 := math.Log(p1)
	lq1 := math.Log1p(-p1)
	lp2 := math.Log(p2)
	lq2 := math.Log1p(-p2)

	begin := 0
	if k-n2 > begin {
		begin = k - n2
	}
	limit := k
	if n1 < limit {
		limit = n1
	}

	bcTop := lut.Lgamma(uint32(n1+1)) + lut.Lgamma(uint32(n2+1))

	var acc float64
	for i := begin; i <= limit; i++ {
		i2 := k - i
		bc := bcTop -
			lut.Lgamma(uint32(i+1)) -
			lut.Lgamma(uint32(n1-i+1)) -
			lut.Lgamma(uint32(i2+1)) -
			lut.Lgamma(uint32(n2-i2+1))

		logValue := bc +
			float64(i)*lp1 + float64(n1-i)*lq1 +
			float64(i2)*lp2 + float64(n2-i2)*lq2

		acc += math.Exp(logValue)
	}

	if acc > 1 {
		if acc > 1+1e-9 {
			return 0, fmt.Errorf("binomial: Convolve2PMF produced invalid probability %v", acc)
		}
		acc = 1
	}
	return acc, nil
}

// convolve2Edge handles p1 and/or p2 equal to 0 or 1 directly, avoiding the
// 0*-inf indeterminate form that the log-space sum would otherwise produce:
// ln(0) is -inf, and exp(-inf) is the correct limit only when its exponent's
// coefficient is strictly positive.
func convolve2Edge(p1, p2 float64, n1, n2, k int) (float64, error) {
	sum := 0.0
	begin := 0
	if k-n2 > begin {
		begin = k - n2
	}
	limit := k
	if n1 < limit {
		limit = n1
	}
	for i := begin; i <= limit; i++ {
		pi, err := PMF(p1, n1, i)
		if err != nil {
			return 0, err
		}
		pk, err := PMF(p2, n2, k-i)
		if err != nil {
			return 0, err
		}
		sum += pi * pk
	}
	return sum, nil
}
