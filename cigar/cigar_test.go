package cigar_test

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/ding-lab/bassovac/cigar"
	"github.com/stretchr/testify/assert"
)

func ops(pairs ...interface{}) []sam.CigarOp {
	out := make([]sam.CigarOp, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, sam.NewCigarOp(pairs[i].(sam.CigarOpType), pairs[i+1].(int)))
	}
	return out
}

func TestOffsetPlainMatch(t *testing.T) {
	r := cigar.NewResolver(100, ops(sam.CigarMatch, 10))
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, r.Offset(100+i))
	}
}

func TestOffsetSkipsSoftClip(t *testing.T) {
	// 2S8M: read offsets 0,1 are clipped; reference starts at the first M.
	r := cigar.NewResolver(100, ops(sam.CigarSoftClipped, 2, sam.CigarMatch, 8))
	assert.Equal(t, 2, r.Offset(100))
	assert.Equal(t, 5, r.Offset(103))
}

func TestOffsetInsertionShiftsReadPosition(t *testing.T) {
	// 5M2I3M: positions 100-104 map to read 0-4; insertion consumes read 5-6
	// without advancing the reference; positions 105-107 map to read 7-9.
	r := cigar.NewResolver(100, ops(sam.CigarMatch, 5, sam.CigarInsertion, 2, sam.CigarMatch, 3))
	assert.Equal(t, 4, r.Offset(104))
	assert.Equal(t, 7, r.Offset(105))
	assert.Equal(t, 9, r.Offset(107))
}

func TestOffsetDeletionReturnsNegativeOne(t *testing.T) {
	// 3M2D3M: positions 103,104 fall in the deletion and have no read base.
	r := cigar.NewResolver(100, ops(sam.CigarMatch, 3, sam.CigarDeletion, 2, sam.CigarMatch, 3))
	assert.Equal(t, 2, r.Offset(102))
	assert.Equal(t, -1, r.Offset(103))
	assert.Equal(t, -1, r.Offset(104))
	assert.Equal(t, 3, r.Offset(105))
}

func TestOffsetPastEndOfAlignment(t *testing.T) {
	r := cigar.NewResolver(100, ops(sam.CigarMatch, 3))
	assert.Equal(t, 2, r.Offset(102))
	assert.Equal(t, -1, r.Offset(103))
	assert.True(t, r.Done())
}

func TestOffsetMustBeCalledNonDecreasing(t *testing.T) {
	r := cigar.NewResolver(100, ops(sam.CigarMatch, 3, sam.CigarMatch, 3))
	assert.Equal(t, 0, r.Offset(100))
	assert.Equal(t, 4, r.Offset(104))
}
