package testutil

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestFingerprints(t *testing.T) {
	rng := NewRNG(1)
	hs := rng.Fingerprints(500)
	require.Len(t, hs, 500)

	seen := map[uint64]bool{}
	for _, h := range hs {
		assert.False(t, seen[h])
		seen[h] = true
	}

	again := NewRNG(1).Fingerprints(500)
	assert.Equal(t, hs, again)
}

func TestFlipBits(t *testing.T) {
	rng := NewRNG(2)
	h := rng.Uint64()
	for _, n := range []int{0, 1, 5, 64} {
		assert.Equal(t, n, bits.OnesCount64(h^rng.FlipBits(h, n)))
	}
}

func TestHashString(t *testing.T) {
	s := HashString(5)
	assert.Len(t, s, 66)
	assert.Equal(t, "0b", s[:2])
	assert.Equal(t, "101", s[63:])
}

func TestExactTopKAndRecall(t *testing.T) {
	vecs := Vectors([]uint64{0, 1, 3, 1 << 63})
	ids := []uint64{10, 11, 12, 13}

	got := ExactTopK(vecs[0], ids, vecs, 3)
	require.Len(t, got, 3)
	assert.Equal(t, SearchResult{ID: 10, Distance: 0}, got[0])
	// ids 11 and 13 are both one bit away; smaller id first.
	assert.Equal(t, SearchResult{ID: 11, Distance: 1}, got[1])
	assert.Equal(t, SearchResult{ID: 13, Distance: 1}, got[2])

	approx := []SearchResult{{ID: 10}, {ID: 13, Distance: 1}, {ID: 12, Distance: 2}}
	assert.InDelta(t, 2.0/3.0, ComputeRecall(got, approx), 1e-9)
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
}
