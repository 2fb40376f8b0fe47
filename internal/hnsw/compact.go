package hnsw

// Compact builds a new graph holding only the live nodes, inserted in slot
// order with their original levels. The receiver is not modified; the caller
// swaps the result in.
func (g *Graph) Compact() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	opts := g.opts
	seed := g.rng.Int63()
	opts.RandomSeed = &seed
	ng := newGraph(opts)
	ng.opts.RandomSeed = g.opts.RandomSeed

	for slot, n := range g.nodes {
		if g.dead(uint32(slot)) {
			continue
		}
		ng.insertLevel(n.id, n.vec, n.level)
	}
	return ng
}
