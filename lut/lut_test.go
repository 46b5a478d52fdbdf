package lut_test

import (
	"math"
	"testing"

	"github.com/ding-lab/bassovac/lut"
	"github.com/stretchr/testify/assert"
)

func TestPhred2Prob(t *testing.T) {
	lut.Init(100)
	assert.InDelta(t, 1.0, lut.Phred2Prob(0), 1e-12)
	assert.InDelta(t, 0.1, lut.Phred2Prob(10), 1e-12)
	assert.InDelta(t, 0.01, lut.Phred2Prob(20), 1e-12)
	assert.InDelta(t, 1.0/lut.Phred2Prob(30), lut.Phred2ProbReciprocal(30), 1e-9)
}

func TestLgammaMatchesStdlibInAndOutOfRange(t *testing.T) {
	lut.Init(50)
	for _, x := range []uint32{1, 10, 50, 51, 1000} {
		want, _ := math.Lgamma(float64(x))
		assert.InDelta(t, want, lut.Lgamma(x), 1e-9)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	lut.Init(10)
	before := lut.MaxReadDepth()
	lut.Init(99999)
	assert.Equal(t, before, lut.MaxReadDepth())
}
