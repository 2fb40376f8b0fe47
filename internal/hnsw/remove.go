package hnsw

// remove tombstones the live node for id and re-elects the entry point if
// needed. It reports whether id was live. The caller holds the write lock.
func (g *Graph) remove(id uint64) bool {
	slot, ok := g.ids.Get(id)
	if !ok {
		return false
	}
	g.deleteID(id)
	g.tombstone(slot)
	g.live--

	if int32(slot) == g.entry {
		g.electEntry()
	}
	return true
}

// electEntry makes the live node with the highest level the entry point,
// ties resolved by the smallest slot.
func (g *Graph) electEntry() {
	g.entry = -1
	g.maxLevel = 0
	g.ids.Scan(func(_ uint64, slot uint32) bool {
		level := g.nodes[slot].level
		if g.entry < 0 || level > g.maxLevel || (level == g.maxLevel && int32(slot) < g.entry) {
			g.entry = int32(slot)
			g.maxLevel = level
		}
		return true
	})
}
