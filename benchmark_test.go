package clmediakit_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/asarangaram/clmediakit"
	"github.com/asarangaram/clmediakit/testutil"
)

func formatCount(n int) string { return fmt.Sprintf("n=%d", n) }

func openBench(b *testing.B, opts ...clmediakit.Option) *clmediakit.Index {
	b.Helper()
	opts = append([]clmediakit.Option{clmediakit.WithRandomSeed(1), clmediakit.WithCapacity(1 << 20)}, opts...)
	idx, err := clmediakit.Open(filepath.Join(b.TempDir(), "bench.clhx"), opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = idx.Close() })
	return idx
}

// BenchmarkIndex_AddDeferred measures insertion without a disk write per call.
func BenchmarkIndex_AddDeferred(b *testing.B) {
	idx := openBench(b, clmediakit.WithPersistMode(clmediakit.PersistDeferred))
	rng := testutil.NewRNG(1)
	ctx := context.Background()

	for i := 0; b.Loop(); i++ {
		if err := idx.AddVector(ctx, uint64(i), testutil.Vectors([]uint64{rng.Uint64()})[0]); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIndex_AddBatch measures one persisted batch of fingerprints.
func BenchmarkIndex_AddBatch(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(formatCount(size), func(b *testing.B) {
			idx := openBench(b)
			rng := testutil.NewRNG(2)
			ctx := context.Background()

			next := uint64(0)
			for b.Loop() {
				items := make([]clmediakit.Item, size)
				for j := range items {
					items[j] = clmediakit.Item{ID: next, Hash: testutil.HashString(rng.Uint64())}
					next++
				}
				if err := idx.AddBatch(ctx, items); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkIndex_Query measures k=5 queries and reports recall against brute force.
func BenchmarkIndex_Query(b *testing.B) {
	for _, size := range []int{1000, 10000} {
		b.Run(formatCount(size), func(b *testing.B) {
			idx := openBench(b, clmediakit.WithPersistMode(clmediakit.PersistDeferred))
			rng := testutil.NewRNG(3)
			ctx := context.Background()

			hashes := rng.Fingerprints(size)
			vecs := testutil.Vectors(hashes)
			ids := make([]uint64, size)
			items := make([]clmediakit.Item, size)
			for i := range items {
				ids[i] = uint64(i)
				items[i] = clmediakit.Item{ID: ids[i], Vector: vecs[i]}
			}
			if err := idx.AddBatch(ctx, items); err != nil {
				b.Fatal(err)
			}

			queries := make([]uint64, 100)
			for i := range queries {
				queries[i] = rng.FlipBits(hashes[rng.Intn(size)], 3)
			}

			var recall float64
			var measured int
			for i := 0; b.Loop(); i++ {
				q := queries[i%len(queries)]
				matches, err := idx.Query(ctx, testutil.HashString(q))
				if err != nil {
					b.Fatal(err)
				}
				if i < len(queries) {
					approx := make([]testutil.SearchResult, len(matches))
					for j, m := range matches {
						approx[j] = testutil.SearchResult{ID: m.ID, Distance: m.Distance}
					}
					gt := testutil.ExactTopK(testutil.Vectors([]uint64{q})[0], ids, vecs, clmediakit.DefaultQueryK)
					recall += testutil.ComputeRecall(gt, approx)
					measured++
				}
			}
			b.ReportMetric(recall/float64(measured), "recall")
		})
	}
}
