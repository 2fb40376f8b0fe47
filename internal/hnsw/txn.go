package hnsw

type friendKey struct {
	slot  uint32
	layer int
}

type idPreimage struct {
	slot    uint32
	present bool
}

// journal records the pre-image of every field a transaction touches.
// Slots allocated inside the transaction are not journaled; rollback
// truncates them away.
type journal struct {
	nodes    int
	entry    int32
	maxLevel int
	live     int

	friends    map[friendKey][]uint32
	ids        map[uint64]idPreimage
	tombstoned []uint32
}

func newJournal(g *Graph) *journal {
	return &journal{
		nodes:    len(g.nodes),
		entry:    g.entry,
		maxLevel: g.maxLevel,
		live:     g.live,
		friends:  make(map[friendKey][]uint32),
		ids:      make(map[uint64]idPreimage),
	}
}

func (j *journal) recordFriends(g *Graph, slot uint32, layer int) {
	if int(slot) >= j.nodes {
		return
	}
	key := friendKey{slot: slot, layer: layer}
	if _, ok := j.friends[key]; ok {
		return
	}
	j.friends[key] = append([]uint32(nil), g.nodes[slot].friends[layer]...)
}

func (j *journal) recordID(g *Graph, id uint64) {
	if _, ok := j.ids[id]; ok {
		return
	}
	slot, ok := g.ids.Get(id)
	j.ids[id] = idPreimage{slot: slot, present: ok}
}

func (g *Graph) rollback() {
	j := g.j
	for key, list := range j.friends {
		g.nodes[key.slot].friends[key.layer] = list
	}
	for id, pre := range j.ids {
		if pre.present {
			g.ids.Set(id, pre.slot)
		} else {
			g.ids.Delete(id)
		}
	}
	for _, slot := range j.tombstoned {
		g.tombstones.Remove(slot)
	}
	clear(g.nodes[j.nodes:])
	g.nodes = g.nodes[:j.nodes]
	g.entry = j.entry
	g.maxLevel = j.maxLevel
	g.live = j.live
}

// Txn is a group of mutations applied under the graph write lock.
//
// A Txn is created by Begin and must end with Commit or Rollback. Publish
// may be called in between to let readers observe the mutated graph while
// the caller makes it durable; no further mutations are allowed after it.
type Txn struct {
	g         *Graph
	locked    bool
	done      bool
	mutations int
}

// Begin acquires the write lock and starts a transaction.
// Only one transaction may be open at a time.
func (g *Graph) Begin() *Txn {
	g.mu.Lock()
	g.j = newJournal(g)
	return &Txn{g: g, locked: true}
}

// Mutations returns the number of successful mutations applied so far.
func (t *Txn) Mutations() int { return t.mutations }

// Insert adds a new node for id.
func (t *Txn) Insert(id uint64, vec []float32) error {
	if !t.locked {
		return ErrTxnDone
	}
	if err := t.g.insert(id, vec); err != nil {
		return err
	}
	t.mutations++
	return nil
}

// Replace tombstones the live node for id, if any, and inserts vec under
// the same id. On an absent id it behaves as Insert.
func (t *Txn) Replace(id uint64, vec []float32) error {
	if !t.locked {
		return ErrTxnDone
	}
	if err := t.g.checkVector(vec); err != nil {
		return err
	}
	t.g.remove(id)
	if err := t.g.insert(id, vec); err != nil {
		return err
	}
	t.mutations++
	return nil
}

// Remove tombstones the live node for id. It reports whether id was live.
func (t *Txn) Remove(id uint64) (bool, error) {
	if !t.locked {
		return false, ErrTxnDone
	}
	removed := t.g.remove(id)
	if removed {
		t.mutations++
	}
	return removed, nil
}

// Publish releases the write lock. Readers see the mutated graph from now on.
func (t *Txn) Publish() {
	if t.locked {
		t.locked = false
		t.g.mu.Unlock()
	}
}

// Commit makes the mutations final.
func (t *Txn) Commit() {
	if t.done {
		return
	}
	t.done = true
	if !t.locked {
		t.g.mu.Lock()
	}
	t.locked = false
	t.g.j = nil
	t.g.mu.Unlock()
}

// Rollback restores the graph to its state at Begin.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	t.done = true
	if !t.locked {
		t.g.mu.Lock()
	}
	t.locked = false
	t.g.rollback()
	t.g.j = nil
	t.g.mu.Unlock()
}

// Insert adds id in its own transaction.
func (g *Graph) Insert(id uint64, vec []float32) error {
	return g.apply(func(t *Txn) error { return t.Insert(id, vec) })
}

// Replace replaces id in its own transaction.
func (g *Graph) Replace(id uint64, vec []float32) error {
	return g.apply(func(t *Txn) error { return t.Replace(id, vec) })
}

// Remove removes id in its own transaction.
func (g *Graph) Remove(id uint64) bool {
	var removed bool
	_ = g.apply(func(t *Txn) error {
		var err error
		removed, err = t.Remove(id)
		return err
	})
	return removed
}

func (g *Graph) apply(fn func(*Txn) error) error {
	t := g.Begin()
	if err := fn(t); err != nil {
		t.Rollback()
		return err
	}
	t.Commit()
	return nil
}
