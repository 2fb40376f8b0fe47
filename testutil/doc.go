// Package testutil provides test fixtures for the similarity index.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random fingerprints, computing exact
// nearest neighbors, and verifying search recall.
//
// # Random Fingerprints
//
//	rng := testutil.NewRNG(seed)
//	hashes := rng.Fingerprints(1000)         // distinct 64-bit hashes
//	vecs := testutil.Vectors(hashes)         // encoded 0/1 vectors
//	near := rng.FlipBits(hashes[0], 3)       // near-duplicate of hashes[0]
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.ExactTopK(query, ids, vecs, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, approx)
package testutil
