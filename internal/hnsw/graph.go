package hnsw

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/tidwall/btree"

	"github.com/asarangaram/clmediakit/distance"
	"github.com/asarangaram/clmediakit/internal/searcher"
)

// node is one slot of the graph. id, vec and level never change after
// creation; friends[l] holds the neighbor slots at layer l.
type node struct {
	id      uint64
	vec     []float32
	level   int
	friends [][]uint32
}

// Graph is an HNSW proximity graph.
type Graph struct {
	mu sync.RWMutex

	opts      Options
	mmax      int
	mmax0     int
	levelMult float64
	rng       *rand.Rand

	nodes      []*node
	ids        btree.Map[uint64, uint32] // Live id -> slot
	tombstones *roaring.Bitmap
	entry      int32 // -1 when the graph has no live node
	maxLevel   int
	live       int

	j *journal // Non-nil while a Txn is open
}

// New creates an empty graph.
func New(optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newGraph(opts), nil
}

func newGraph(opts Options) *Graph {
	seed := time.Now().UnixNano()
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	}
	return &Graph{
		opts:       opts,
		mmax:       opts.M,
		mmax0:      opts.M * mmax0Multiplier,
		levelMult:  1 / math.Log(float64(opts.M)),
		rng:        rand.New(rand.NewSource(seed)),
		tombstones: roaring.New(),
		entry:      -1,
	}
}

// Options returns the graph parameters.
func (g *Graph) Options() Options { return g.opts }

// Dimension returns the vector length.
func (g *Graph) Dimension() int { return g.opts.Dimension }

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.live
}

// Slots returns the number of allocated slots, live or tombstoned.
func (g *Graph) Slots() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Tombstoned returns the number of tombstoned slots.
func (g *Graph) Tombstoned() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return int(g.tombstones.GetCardinality())
}

// Contains reports whether id is live.
func (g *Graph) Contains(id uint64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.ids.Get(id)
	return ok
}

// Vector returns a copy of the vector stored for a live id.
func (g *Graph) Vector(id uint64) ([]float32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	slot, ok := g.ids.Get(id)
	if !ok {
		return nil, false
	}
	return append([]float32(nil), g.nodes[slot].vec...), true
}

// IDs returns the live ids in ascending order.
func (g *Graph) IDs() []uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]uint64, 0, g.live)
	g.ids.Scan(func(id uint64, _ uint32) bool {
		out = append(out, id)
		return true
	})
	return out
}

func (g *Graph) maxConns(layer int) int {
	if layer == 0 {
		return g.mmax0
	}
	return g.mmax
}

func (g *Graph) dead(slot uint32) bool {
	return g.tombstones.Contains(slot)
}

func (g *Graph) friendsOf(slot uint32, layer int) []uint32 {
	n := g.nodes[slot]
	if layer >= len(n.friends) {
		return nil
	}
	return n.friends[layer]
}

func (g *Graph) item(q []float32, slot uint32) searcher.Item {
	n := g.nodes[slot]
	return searcher.Item{Slot: slot, ID: n.id, Distance: distance.SquaredL2(q, n.vec)}
}

func (g *Graph) randomLevel() int {
	r := 1 - g.rng.Float64() // (0, 1]
	level := int(math.Floor(-math.Log(r) * g.levelMult))
	return min(level, MaxLevel)
}

// setFriends replaces a neighbor list, journaling the pre-image.
func (g *Graph) setFriends(slot uint32, layer int, list []uint32) {
	if g.j != nil {
		g.j.recordFriends(g, slot, layer)
	}
	g.nodes[slot].friends[layer] = list
}

func (g *Graph) setID(id uint64, slot uint32) {
	if g.j != nil {
		g.j.recordID(g, id)
	}
	g.ids.Set(id, slot)
}

func (g *Graph) deleteID(id uint64) {
	if g.j != nil {
		g.j.recordID(g, id)
	}
	g.ids.Delete(id)
}

func (g *Graph) tombstone(slot uint32) {
	if g.tombstones.CheckedAdd(slot) && g.j != nil {
		g.j.tombstoned = append(g.j.tombstoned, slot)
	}
}
