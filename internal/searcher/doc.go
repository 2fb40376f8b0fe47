// Package searcher provides pooled search context for graph traversal.
//
// The Searcher struct owns the reusable resources of one search:
//   - Priority queues (candidates, results)
//   - Visited set (bitset over internal slots)
//
// Searchers are pooled and reused across queries.
package searcher
