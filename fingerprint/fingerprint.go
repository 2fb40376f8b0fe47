package fingerprint

import (
	"fmt"
	"math"
	"strings"
)

// DefaultDimension is the fingerprint length used for 64-bit perceptual hashes.
const DefaultDimension = 64

// ErrInvalidFingerprint is returned when a hash cannot be encoded.
type ErrInvalidFingerprint struct {
	Input string // Original input (strings only)
	Pos   int    // Offending position after prefix stripping, -1 if not positional
	Char  rune   // Offending character, 0 if not positional
	Msg   string // Optional reason for non-positional failures
}

func (e *ErrInvalidFingerprint) Error() string {
	if e.Pos < 0 {
		if e.Msg != "" {
			return fmt.Sprintf("invalid fingerprint: %s", e.Msg)
		}
		return "invalid fingerprint"
	}
	return fmt.Sprintf("invalid fingerprint %q: unexpected %q at position %d", e.Input, e.Char, e.Pos)
}

// Encoder turns hashes into vectors of a fixed dimension.
// The zero value is not usable; use New or Default.
type Encoder struct {
	dim int
}

// Default is the 64-dimensional encoder.
var Default = New(DefaultDimension)

// New returns an encoder producing vectors with dim components.
// Panics if dim is not positive.
func New(dim int) *Encoder {
	if dim <= 0 {
		panic("fingerprint: dimension must be positive")
	}
	return &Encoder{dim: dim}
}

// Dimension returns the vector length produced by the encoder.
func (e *Encoder) Dimension() int { return e.dim }

// Encode converts a '0'/'1' digit string into a vector.
//
// Exactly one leading "0b" or "0B" marker is stripped. The remaining digits
// are padded or truncated to the encoder dimension. Any character other than
// '0' or '1' among the digits that are kept yields *ErrInvalidFingerprint.
// Digits past the dimension are validated as well so that malformed input is
// never silently accepted.
func (e *Encoder) Encode(s string) ([]float32, error) {
	digits := stripPrefix(s)
	if digits == "" {
		return nil, &ErrInvalidFingerprint{Input: s, Pos: -1, Msg: "empty hash"}
	}

	vec := make([]float32, e.dim)
	for i, c := range digits {
		switch c {
		case '0':
		case '1':
			if i < e.dim {
				vec[i] = 1
			}
		default:
			return nil, &ErrInvalidFingerprint{Input: s, Pos: i, Char: c}
		}
	}
	return vec, nil
}

// EncodeUint64 converts a 64-bit hash into a vector, most significant bit first.
// For encoders with a dimension other than 64 the usual padding/truncation applies.
func (e *Encoder) EncodeUint64(v uint64) []float32 {
	vec := make([]float32, e.dim)
	for i := 0; i < 64 && i < e.dim; i++ {
		if v&(1<<(63-i)) != 0 {
			vec[i] = 1
		}
	}
	return vec
}

// FromVector normalises an already-numeric fingerprint.
// The result is an owned copy padded with zeros or truncated to the encoder dimension.
func (e *Encoder) FromVector(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, &ErrInvalidFingerprint{Pos: -1, Msg: "empty vector"}
	}
	vec := make([]float32, e.dim)
	copy(vec, v)
	for i, x := range vec {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, &ErrInvalidFingerprint{Pos: -1, Msg: fmt.Sprintf("non-finite component at %d", i)}
		}
	}
	return vec, nil
}

// Decode renders a vector back into a digit string. Components >= 0.5 map to '1'.
func Decode(v []float32) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, x := range v {
		if x >= 0.5 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Encode converts a digit string with the 64-dimensional encoder.
func Encode(s string) ([]float32, error) { return Default.Encode(s) }

// EncodeUint64 converts a 64-bit hash with the 64-dimensional encoder.
func EncodeUint64(v uint64) []float32 { return Default.EncodeUint64(v) }

func stripPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'b' || s[1] == 'B') {
		return s[2:]
	}
	return s
}
