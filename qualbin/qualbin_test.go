package qualbin_test

import (
	"testing"

	"github.com/ding-lab/bassovac/lut"
	"github.com/ding-lab/bassovac/qualbin"
	"github.com/stretchr/testify/assert"
)

func init() {
	lut.Init(1000)
}

func totalSize(bins []qualbin.Bin) int {
	n := 0
	for _, b := range bins {
		n += int(b.Size)
	}
	return n
}

func TestBinEmpty(t *testing.T) {
	assert.Nil(t, qualbin.Bin(nil, 2))
}

func TestBinSingleValueCollapsesToOneBin(t *testing.T) {
	bins := qualbin.Bin([]byte{30, 30, 30}, 2)
	assert.Len(t, bins, 1)
	assert.Equal(t, uint32(3), bins[0].Size)
}

func TestBinMaxBinsOneAlwaysOneBin(t *testing.T) {
	bins := qualbin.Bin([]byte{2, 10, 10, 40}, 1)
	assert.Len(t, bins, 1)
	assert.Equal(t, uint32(4), bins[0].Size)
}

// TestBinTwoFindsLargestGap mirrors the worked example: scores cluster around
// 10 and around 30, so the 2-bin fast path must split between the clusters.
func TestBinTwoFindsLargestGap(t *testing.T) {
	quals := []byte{9, 10, 10, 11, 29, 30, 30, 31}
	bins := qualbin.Bin(quals, 2)
	assert.Len(t, bins, 2)
	assert.Equal(t, uint32(4), bins[0].Size)
	assert.Equal(t, uint32(4), bins[1].Size)
	assert.Equal(t, 8, totalSize(bins))
}

func TestBinPartitionIsContiguousAndNonEmpty(t *testing.T) {
	quals := []byte{5, 5, 6, 20, 21, 22, 40, 41}
	for maxBins := 1; maxBins <= 5; maxBins++ {
		bins := qualbin.Bin(quals, maxBins)
		assert.LessOrEqual(t, len(bins), maxBins)
		assert.Equal(t, len(quals), totalSize(bins))
		for _, b := range bins {
			assert.Greater(t, b.Size, uint32(0))
		}
	}
}

func TestBinGeneralKPrefersLargestGaps(t *testing.T) {
	// Three clusters separated by gaps of 19 and 10; requesting 3 bins should
	// split at both cluster boundaries.
	quals := []byte{10, 11, 30, 31, 41, 42}
	bins := qualbin.Bin(quals, 3)
	assert.Len(t, bins, 3)
	assert.Equal(t, uint32(2), bins[0].Size)
	assert.Equal(t, uint32(2), bins[1].Size)
	assert.Equal(t, uint32(2), bins[2].Size)
}

func TestBinHarmonicMeanMatchesDirectComputation(t *testing.T) {
	quals := []byte{10, 20, 30}
	bins := qualbin.Bin(quals, 1)
	var denom float64
	for _, q := range quals {
		denom += lut.Phred2ProbReciprocal(q)
	}
	want := float64(len(quals)) / denom
	assert.InDelta(t, want, bins[0].HarmonicMean, 1e-12)
}

func TestSortQualitiesStableAscending(t *testing.T) {
	qs := []byte{40, 0, 255, 10, 10, 3}
	qualbin.SortQualities(qs)
	assert.Equal(t, []byte{0, 3, 10, 10, 40, 255}, qs)
}
