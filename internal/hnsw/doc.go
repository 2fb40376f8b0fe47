// Package hnsw implements a Hierarchical Navigable Small World graph over
// fixed-length float32 vectors keyed by caller-assigned uint64 ids.
//
// # Model
//
// Nodes live in an append-only slot slice. A live id maps to exactly one slot;
// removing or replacing an id tombstones its slot (a roaring bitmap) and never
// reuses it. Tombstoned nodes keep routing searches but are never returned.
// Their incoming edges are dropped lazily when an insertion expands or
// overflows a neighbor list. Compact rebuilds a graph from live nodes only.
//
// # Ordering
//
// Distance is squared L2. Every comparison orders by (distance, id), so
// construction, pruning and results are deterministic for a given seed and
// ties resolve to the smaller id.
//
// # Concurrency
//
// Readers (Search, Stats, Encode) take a read lock. Mutations run inside a
// Txn, which holds the write lock and journals the pre-image of everything it
// touches. Publish releases the lock so readers observe the new state while
// the caller persists it; Rollback restores the pre-image.
//
// # Parameters
//
//   - M: max connections per node on layers > 0 (layer 0 allows 2*M)
//   - EFConstruction: candidate list size during insertion
//   - EFSearch: candidate list size during search (at least k)
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
