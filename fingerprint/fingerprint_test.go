package fingerprint

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ones  []int
	}{
		{"Full", strings.Repeat("10", 32), evens(64)},
		{"Prefix", "0b1" + strings.Repeat("0", 63), []int{0}},
		{"UpperPrefix", "0B11", []int{0, 1}},
		{"ShortPadded", "101", []int{0, 2}},
		{"LongTruncated", strings.Repeat("0", 63) + "11111", []int{63}},
		{"AllZero", "0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := Encode(tt.input)
			require.NoError(t, err)
			require.Len(t, vec, DefaultDimension)

			want := make([]float32, DefaultDimension)
			for _, i := range tt.ones {
				want[i] = 1
			}
			assert.Equal(t, want, vec)
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		pos   int
		char  rune
	}{
		{"Empty", "", -1, 0},
		{"PrefixOnly", "0b", -1, 0},
		{"Letter", "01x1", 2, 'x'},
		{"DoublePrefix", "0b0b1", 1, 'b'},
		{"Space", " 0101", 0, ' '},
		{"PastDimension", strings.Repeat("1", 64) + "2", 64, '2'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.input)
			require.Error(t, err)

			var ife *ErrInvalidFingerprint
			require.True(t, errors.As(err, &ife))
			assert.Equal(t, tt.pos, ife.Pos)
			assert.Equal(t, tt.char, ife.Char)
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	h := "0b" + strings.Repeat("1100", 16)
	a, err := Encode(h)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := Encode(h)
			assert.NoError(t, err)
			assert.Equal(t, a, b)
		}()
	}
	wg.Wait()
}

func TestEncodeUint64(t *testing.T) {
	vec := EncodeUint64(1<<63 | 1)
	require.Len(t, vec, 64)
	assert.Equal(t, float32(1), vec[0])
	assert.Equal(t, float32(1), vec[63])
	for i := 1; i < 63; i++ {
		assert.Zero(t, vec[i])
	}

	s, err := Encode("1" + strings.Repeat("0", 62) + "1")
	require.NoError(t, err)
	assert.Equal(t, s, vec)
}

func TestEncoder_CustomDimension(t *testing.T) {
	enc := New(8)
	assert.Equal(t, 8, enc.Dimension())

	vec, err := enc.Encode("1111111111")
	require.NoError(t, err)
	assert.Len(t, vec, 8)

	vec = enc.EncodeUint64(math.MaxUint64)
	assert.Equal(t, "11111111", Decode(vec))

	assert.Panics(t, func() { New(0) })
}

func TestFromVector(t *testing.T) {
	enc := New(4)

	src := []float32{0.5, 1}
	vec, err := enc.FromVector(src)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1, 0, 0}, vec)

	src[0] = 9
	assert.Equal(t, float32(0.5), vec[0], "result must not alias input")

	vec, err = enc.FromVector([]float32{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, vec)

	_, err = enc.FromVector([]float32{float32(math.NaN())})
	var ife *ErrInvalidFingerprint
	assert.ErrorAs(t, err, &ife)

	_, err = enc.FromVector([]float32{float32(math.Inf(1))})
	assert.ErrorAs(t, err, &ife)

	_, err = enc.FromVector(nil)
	assert.ErrorAs(t, err, &ife)
}

func TestDecode(t *testing.T) {
	h := strings.Repeat("0110", 16)
	vec, err := Encode(h)
	require.NoError(t, err)
	assert.Equal(t, h, Decode(vec))
}

func evens(n int) []int {
	out := make([]int, 0, n/2)
	for i := 0; i < n; i += 2 {
		out = append(out, i)
	}
	return out
}
