package hnsw

// Stats returns structural statistics. Level counts cover live nodes only.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := Stats{
		Live:       g.live,
		Tombstoned: int(g.tombstones.GetCardinality()),
		Slots:      len(g.nodes),
		MaxLevel:   g.maxLevel,
	}
	if g.entry >= 0 {
		st.HasEntry = true
		st.EntryID = g.nodes[g.entry].id
	}
	if g.live == 0 {
		return st
	}

	st.Levels = make([]LevelStats, g.maxLevel+1)
	for l := range st.Levels {
		st.Levels[l].Level = l
	}
	g.ids.Scan(func(_ uint64, slot uint32) bool {
		n := g.nodes[slot]
		for l := 0; l <= n.level && l < len(st.Levels); l++ {
			st.Levels[l].Nodes++
			st.Levels[l].Connections += len(n.friends[l])
		}
		return true
	})
	return st
}
