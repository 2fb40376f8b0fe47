package hnsw

import (
	"github.com/asarangaram/clmediakit/internal/searcher"
)

// Search returns up to k live nodes nearest to q, ordered by ascending
// squared L2 distance, ties by smaller id. The search breadth is
// max(EFSearch, k).
//
// A beam that ends with fewer than min(breadth, Len()) live nodes has run out
// of reachable nodes, which can happen in a graph fragmented by many
// removals. Search then falls back to an exact scan.
func (g *Graph) Search(q []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := g.checkVector(q); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.live == 0 {
		return nil, ErrEmptyIndex
	}

	ep := g.item(q, uint32(g.entry))
	for layer := g.maxLevel; layer > 0; layer-- {
		ep = g.greedy(q, ep, layer)
	}

	s := searcher.Get()
	defer searcher.Put(s)

	ef := max(g.opts.EFSearch, k)
	items := g.searchLayer(s, q, ep, 0, ef, false)
	if len(items) < min(ef, g.live) {
		items = g.exactScan(s, q, k)
	}
	return toResults(items, k), nil
}

// BruteSearch returns the exact k nearest live nodes.
func (g *Graph) BruteSearch(q []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := g.checkVector(q); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.live == 0 {
		return nil, ErrEmptyIndex
	}

	s := searcher.Get()
	defer searcher.Put(s)
	return toResults(g.exactScan(s, q, k), k), nil
}

// exactScan ranks every live node. The result aliases s.
func (g *Graph) exactScan(s *searcher.Searcher, q []float32, k int) []searcher.Item {
	s.Reset()
	g.ids.Scan(func(_ uint64, slot uint32) bool {
		s.Results.PushItemBounded(g.item(q, slot), k)
		return true
	})
	s.Scratch = s.Results.AppendSorted(s.Scratch[:0])
	return s.Scratch
}

func toResults(items []searcher.Item, k int) []SearchResult {
	n := min(k, len(items))
	out := make([]SearchResult, n)
	for i := range n {
		out[i] = SearchResult{ID: items[i].ID, Distance: items[i].Distance}
	}
	return out
}
