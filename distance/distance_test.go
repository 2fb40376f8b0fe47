package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Bits", []float32{1, 0, 1, 1}, []float32{0, 0, 1, 0}, 2},
		{"Empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-5)
		})
	}
}

func TestSquaredL2_Deterministic(t *testing.T) {
	a := make([]float32, 64)
	b := make([]float32, 64)
	for i := range a {
		a[i] = float32(i) * 0.1
		b[i] = float32(64-i) * 0.3
	}
	first := SquaredL2(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, math.Float32bits(first), math.Float32bits(SquaredL2(a, b)))
	}
}

func TestL2(t *testing.T) {
	assert.InDelta(t, float32(math.Sqrt2), L2([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), L2([]float32{3, 4}, []float32{3, 4}))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite([]float32{0, 1, -2.5}))
	assert.True(t, IsFinite(nil))
	assert.False(t, IsFinite([]float32{0, float32(math.NaN())}))
	assert.False(t, IsFinite([]float32{float32(math.Inf(1))}))
}
