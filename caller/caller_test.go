package caller

import (
	"testing"

	"github.com/ding-lab/bassovac/lut"
	"github.com/ding-lab/bassovac/qualbin"
	"github.com/stretchr/testify/assert"
)

func init() {
	lut.Init(1000)
}

func sampleWithBins(total, supporting uint32, purity, purityComplement float64, quals []byte, maxBins int) Sample {
	qualbin.SortQualities(quals)
	return NewSample(total, supporting, 0.5, purity, purityComplement, quals, maxBins)
}

func TestCallerProbabilitiesPartitionToOne(t *testing.T) {
	normal := sampleWithBins(40, 1, 0.99, 0.01, []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}, 1)
	tumor := sampleWithBins(40, 20, 0.6, 0.4, []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}, 1)

	c, err := NewCaller(normal, tumor, 0.001, 0.0005, 0.000002)
	assert.NoError(t, err)

	total := c.HomozygousVariantProbability() +
		c.HeterozygousVariantProbability() +
		c.LossOfHeterozygosityProbability() +
		c.NonNotableEventProbability()
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestCallerSomaticIsHomoPlusHetero(t *testing.T) {
	normal := sampleWithBins(40, 0, 0.99, 0.01, []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}, 1)
	tumor := sampleWithBins(40, 25, 0.6, 0.4, []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}, 1)

	c, err := NewCaller(normal, tumor, 0.001, 0.0005, 0.000002)
	assert.NoError(t, err)

	assert.InDelta(t,
		c.HomozygousVariantProbability()+c.HeterozygousVariantProbability(),
		c.SomaticVariantProbability(),
		1e-12,
	)
}

func TestCallerStrongSomaticSignalDominates(t *testing.T) {
	// Normal reads overwhelmingly match reference; tumor reads are split,
	// consistent with a real somatic variant.
	normalQuals := make([]byte, 40)
	for i := range normalQuals {
		normalQuals[i] = 35
	}
	tumorQuals := make([]byte, 40)
	for i := range tumorQuals {
		tumorQuals[i] = 35
	}

	normal := sampleWithBins(40, 40, 0.99, 0.01, normalQuals, 1)
	tumor := sampleWithBins(40, 20, 0.6, 0.4, tumorQuals, 1)

	c, err := NewCaller(normal, tumor, 0.001, 0.0005, 0.000002)
	assert.NoError(t, err)

	assert.Greater(t, c.SomaticVariantProbability(), 0.5)
}

func TestCallerTwoBinSampleUsesConvolution(t *testing.T) {
	quals := []byte{10, 10, 10, 40, 40, 40, 40, 40}
	normal := sampleWithBins(8, 0, 0.99, 0.01, quals, 2)
	assert.Len(t, normal.ReadErrorBins, 2)

	tumor := sampleWithBins(8, 3, 0.6, 0.4, append([]byte{}, quals...), 2)

	c, err := NewCaller(normal, tumor, 0.001, 0.0005, 0.000002)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, c.SomaticVariantProbability(), 0.0)
	assert.LessOrEqual(t, c.SomaticVariantProbability(), 1.0)
}

func TestCallerRejectsUnsupportedBinCount(t *testing.T) {
	normal := Sample{
		TotalReads:      10,
		SupportingReads: 0,
		ReadErrorBins:   make([]qualbin.Bin, 3),
		AdjustedPurity:  0.99,
	}
	tumor := sampleWithBins(10, 5, 0.6, 0.4, []byte{30, 30, 30, 30, 30}, 1)

	_, err := NewCaller(normal, tumor, 0.001, 0.0005, 0.000002)
	assert.Error(t, err)
}

func TestPiecewisePhiHomozygousAndHeterozygous(t *testing.T) {
	s := Sample{VariantFrequency: 0.42}
	assert.Equal(t, 0.0, s.piecewisePhi([2]AlleleType{Ref, Ref}))
	assert.Equal(t, 1.0, s.piecewisePhi([2]AlleleType{Var, Var}))
	assert.Equal(t, 0.42, s.piecewisePhi([2]AlleleType{Ref, Var}))
}
