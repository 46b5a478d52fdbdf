package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func float64Ptr(v float64) *float64 { return &v }

func TestDefaultValidateFailsUntilRequiredFieldsSet(t *testing.T) {
	o := Default()
	assert.Error(t, o.Validate())

	o.Fasta = "ref.fa"
	o.NormalBam = "n.bam"
	o.TumorBam = "t.bam"
	assert.Error(t, o.Validate())

	o.NormalPurity = float64Ptr(0.9)
	o.TumorPurity = float64Ptr(0.7)
	assert.NoError(t, o.Validate())
}

func TestValidateAcceptsExplicitZeroPurity(t *testing.T) {
	o := Default()
	o.Fasta = "ref.fa"
	o.NormalBam = "n.bam"
	o.TumorBam = "t.bam"
	o.NormalPurity = float64Ptr(0.0)
	o.TumorPurity = float64Ptr(0.0)
	assert.NoError(t, o.Validate())
}

func TestAdjustedPurityWeights(t *testing.T) {
	o := Default()
	o.NormalPurity = float64Ptr(0.99)
	o.TumorPurity = float64Ptr(0.6)
	o.TumorMassFraction = 0.5

	assert.Equal(t, 0.99, o.AdjustedNormalPurity())
	assert.InDelta(t, 0.5*(1-0.99), o.AdjustedNormalPurityComplement(), 1e-12)
	assert.InDelta(t, 0.5*0.6, o.AdjustedTumorPurity(), 1e-12)
	assert.Equal(t, 1-0.6, o.AdjustedTumorPurityComplement())
}
