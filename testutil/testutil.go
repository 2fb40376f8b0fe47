package testutil

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/asarangaram/clmediakit/distance"
	"github.com/asarangaram/clmediakit/fingerprint"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       uint64
	Distance float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// FillUniform fills dst with values in [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates num vectors with components in [0, 1).
func (r *RNG) UniformVectors(num, dimensions int) [][]float32 {
	out := make([][]float32, num)
	for i := range out {
		out[i] = make([]float32, dimensions)
		r.FillUniform(out[i])
	}
	return out
}

// Fingerprints generates num distinct random 64-bit hashes.
func (r *RNG) Fingerprints(num int) []uint64 {
	seen := make(map[uint64]struct{}, num)
	out := make([]uint64, 0, num)
	for len(out) < num {
		h := r.Uint64()
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// FlipBits returns h with n distinct random bits inverted.
func (r *RNG) FlipBits(h uint64, n int) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bit := range r.rand.Perm(64)[:min(n, 64)] {
		h ^= 1 << bit
	}
	return h
}

// HashString formats h the way bin()-style formatters do: "0b" followed by
// 64 binary digits.
func HashString(h uint64) string {
	return fmt.Sprintf("0b%064b", h)
}

// Vectors encodes hashes with the 64-dimensional fingerprint encoder.
func Vectors(hashes []uint64) [][]float32 {
	out := make([][]float32, len(hashes))
	for i, h := range hashes {
		out[i] = fingerprint.EncodeUint64(h)
	}
	return out
}

// ExactTopK returns the k nearest vectors to query by squared L2 distance,
// ties broken by smaller id. ids[i] identifies vecs[i].
func ExactTopK(query []float32, ids []uint64, vecs [][]float32, k int) []SearchResult {
	all := make([]SearchResult, len(vecs))
	for i, v := range vecs {
		all[i] = SearchResult{ID: ids[i], Distance: distance.SquaredL2(query, v)}
	}
	slices.SortFunc(all, func(a, b SearchResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return all[:min(k, len(all))]
}

// ComputeRecall returns the fraction of ground-truth slots matched by the
// approximate results. A result matches when its distance does not exceed the
// ground-truth distance at the same rank, so equally distant substitutes
// count as hits.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 {
		return 1
	}
	hits := 0
	for i, gt := range groundTruth {
		if i < len(approximate) && approximate[i].Distance <= gt.Distance {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}
