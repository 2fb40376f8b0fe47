package hnsw

import (
	"slices"

	"github.com/asarangaram/clmediakit/distance"
	"github.com/asarangaram/clmediakit/internal/searcher"
)

func (g *Graph) checkVector(vec []float32) error {
	if len(vec) != g.opts.Dimension {
		return &ErrDimensionMismatch{Expected: g.opts.Dimension, Actual: len(vec)}
	}
	return nil
}

// insert validates and links a new node for id at a random level.
// The caller holds the write lock.
func (g *Graph) insert(id uint64, vec []float32) error {
	if err := g.checkVector(vec); err != nil {
		return err
	}
	if _, ok := g.ids.Get(id); ok {
		return &ErrDuplicateID{ID: id}
	}
	if g.live >= g.opts.Capacity {
		return &ErrCapacityExceeded{Capacity: g.opts.Capacity}
	}
	g.insertLevel(id, append([]float32(nil), vec...), g.randomLevel())
	return nil
}

// insertLevel links a node with a fixed level. vec is owned by the graph.
func (g *Graph) insertLevel(id uint64, vec []float32, level int) {
	slot := uint32(len(g.nodes))
	g.nodes = append(g.nodes, &node{
		id:      id,
		vec:     vec,
		level:   level,
		friends: make([][]uint32, level+1),
	})
	g.setID(id, slot)
	g.live++

	if g.entry < 0 {
		g.entry = int32(slot)
		g.maxLevel = level
		return
	}

	// 1. Greedy descent from the top layer to level + 1.
	ep := g.item(vec, uint32(g.entry))
	for layer := g.maxLevel; layer > level; layer-- {
		ep = g.greedy(vec, ep, layer)
	}

	// 2. Search and link from min(level, maxLevel) down to 0.
	s := searcher.Get()
	defer searcher.Put(s)

	for layer := min(level, g.maxLevel); layer >= 0; layer-- {
		candidates := g.searchLayer(s, vec, ep, layer, g.opts.EFConstruction, true)
		if len(candidates) > 0 {
			ep = candidates[0]
		}

		neighbors := g.selectNeighbors(candidates, g.maxConns(layer))
		list := make([]uint32, len(neighbors))
		for i, n := range neighbors {
			list[i] = n.Slot
		}
		g.setFriends(slot, layer, list)

		for _, n := range neighbors {
			g.link(n.Slot, slot, layer)
		}
	}

	if level > g.maxLevel {
		g.entry = int32(slot)
		g.maxLevel = level
	}
}

// greedy walks layer towards q until no neighbor is closer than cur.
func (g *Graph) greedy(q []float32, cur searcher.Item, layer int) searcher.Item {
	for changed := true; changed; {
		changed = false
		for _, f := range g.friendsOf(cur.Slot, layer) {
			if next := g.item(q, f); searcher.Less(next, cur) {
				cur = next
				changed = true
			}
		}
	}
	return cur
}

// searchLayer runs a beam search of width ef on layer starting at ep and
// returns the live nodes found, nearest first. Tombstoned nodes are expanded
// but never returned. With prune set (write lock held) every expanded list
// that holds tombstoned slots is rebuilt by reselect.
//
// The returned slice aliases s and is valid until s is reset.
func (g *Graph) searchLayer(s *searcher.Searcher, q []float32, ep searcher.Item, layer, ef int, prune bool) []searcher.Item {
	s.Reset()
	s.Visited.Visit(ep.Slot)
	s.Candidates.PushItem(ep)
	if !g.dead(ep.Slot) {
		s.Results.PushItem(ep)
	}

	for s.Candidates.Len() > 0 {
		curr, _ := s.Candidates.PopItem()
		if s.Results.Len() >= ef {
			if worst, _ := s.Results.TopItem(); searcher.Less(worst, curr) {
				break
			}
		}

		friends := g.friendsOf(curr.Slot, layer)
		stale := 0
		for _, f := range friends {
			deadFriend := g.dead(f)
			if deadFriend {
				stale++
			}
			if !s.Visited.Visit(f) {
				continue
			}
			next := g.item(q, f)
			if s.Results.Len() >= ef {
				if worst, _ := s.Results.TopItem(); !searcher.Less(next, worst) {
					continue
				}
			}
			s.Candidates.PushItem(next)
			if !deadFriend {
				s.Results.PushItemBounded(next, ef)
			}
		}

		if prune && stale > 0 {
			g.reselect(curr.Slot, layer, friends)
		}
	}

	s.Scratch = s.Results.AppendSorted(s.Scratch[:0])
	return s.Scratch
}

// selectNeighbors picks up to m neighbors from candidates (sorted nearest
// first) with the diversity heuristic: a candidate is accepted only if it is
// closer to the base than to every neighbor accepted before it. Remaining
// room is filled with the nearest rejected candidates.
func (g *Graph) selectNeighbors(candidates []searcher.Item, m int) []searcher.Item {
	if len(candidates) <= m {
		return slices.Clone(candidates)
	}

	result := make([]searcher.Item, 0, m)
	var rejected []searcher.Item
	for _, c := range candidates {
		if len(result) >= m {
			break
		}
		cvec := g.nodes[c.Slot].vec
		good := true
		for _, r := range result {
			if distance.SquaredL2(cvec, g.nodes[r.Slot].vec) <= c.Distance {
				good = false
				break
			}
		}
		if good {
			result = append(result, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	for _, c := range rejected {
		if len(result) >= m {
			break
		}
		result = append(result, c)
	}
	return result
}

// link adds dst to the neighbor list of src on layer. An overflowing list is
// re-selected with dst as a candidate, evicting the worst.
func (g *Graph) link(src, dst uint32, layer int) {
	friends := g.friendsOf(src, layer)
	if slices.Contains(friends, dst) {
		return
	}

	maxConns := g.maxConns(layer)
	if len(friends) < maxConns {
		list := make([]uint32, len(friends), len(friends)+1)
		copy(list, friends)
		g.setFriends(src, layer, append(list, dst))
		return
	}

	g.reselect(src, layer, append(slices.Clone(friends), dst))
}

// reselect replaces the neighbor list of slot on layer with a heuristic
// selection from the live members of list. A tombstoned member is replaced by
// the live nodes reachable from it through tombstoned nodes only.
func (g *Graph) reselect(slot uint32, layer int, list []uint32) {
	base := g.nodes[slot].vec
	seen := map[uint32]struct{}{slot: {}}
	var candidates []searcher.Item
	var dead []uint32

	visit := func(f uint32) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		if g.dead(f) {
			dead = append(dead, f)
			return
		}
		candidates = append(candidates, g.item(base, f))
	}
	for _, f := range list {
		visit(f)
	}
	for len(dead) > 0 {
		d := dead[len(dead)-1]
		dead = dead[:len(dead)-1]
		for _, f := range g.friendsOf(d, layer) {
			visit(f)
		}
	}
	slices.SortFunc(candidates, compareItems)

	selected := g.selectNeighbors(candidates, g.maxConns(layer))
	friends := make([]uint32, len(selected))
	for i, n := range selected {
		friends[i] = n.Slot
	}
	g.setFriends(slot, layer, friends)
}

func compareItems(a, b searcher.Item) int {
	switch {
	case searcher.Less(a, b):
		return -1
	case searcher.Less(b, a):
		return 1
	}
	return 0
}
