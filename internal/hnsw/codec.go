package hnsw

import (
	"fmt"
	"io"
	"math"

	"github.com/asarangaram/clmediakit/distance"
	"github.com/asarangaram/clmediakit/persistence"
)

// maxPrealloc bounds allocations driven by untrusted counts.
const maxPrealloc = 1 << 16

// Encode writes the graph body:
//
//	[4 slots][4 live][4 maxLevel][4 entry][4 bitmapLen][tombstone bitmap]
//	per slot: [8 id][4 level][vector][per layer: 4 count, count x 4 slot]
func (g *Graph) Encode(w io.Writer, enc persistence.VectorEncoding) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bm, err := g.tombstones.ToBytes()
	if err != nil {
		return err
	}

	bw := persistence.NewWriter(w)
	bw.Uint32(uint32(len(g.nodes)))
	bw.Uint32(uint32(g.live))
	bw.Int32(int32(g.maxLevel))
	bw.Int32(g.entry)
	bw.Uint32(uint32(len(bm)))
	bw.Bytes(bm)

	for _, n := range g.nodes {
		bw.Uint64(n.id)
		bw.Uint32(uint32(n.level))
		if enc == persistence.VectorFloat16 {
			bw.Float16s(n.vec)
		} else {
			bw.Float32s(n.vec)
		}
		for _, list := range n.friends {
			bw.Uint32s(list)
		}
	}
	return bw.Err()
}

// Decode reads a graph body written by Encode and validates its structure.
// Violations are reported as *ErrCorrupt.
func Decode(r io.Reader, enc persistence.VectorEncoding, opts Options) (g *Graph, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	defer func() {
		// Malformed roaring containers can panic while unmarshalling.
		if p := recover(); p != nil {
			g, err = nil, corruptf("%v", p)
		}
	}()

	g = newGraph(opts)
	br := persistence.NewReader(r)

	slots := br.Uint32()
	live := br.Uint32()
	maxLevel := br.Int32()
	entry := br.Int32()
	bmLen := br.Uint32()
	if err := br.Err(); err != nil {
		return nil, corruptf("header: %v", err)
	}
	if slots > math.MaxInt32 {
		return nil, corruptf("slot count %d", slots)
	}
	if uint64(bmLen) > 8*uint64(slots)+1024 {
		return nil, corruptf("tombstone bitmap length %d", bmLen)
	}
	bm := br.Bytes(int(bmLen))
	if err := br.Err(); err != nil {
		return nil, corruptf("tombstones: %v", err)
	}
	if err := g.tombstones.UnmarshalBinary(bm); err != nil {
		return nil, corruptf("tombstones: %v", err)
	}
	if !g.tombstones.IsEmpty() && g.tombstones.Maximum() >= slots {
		return nil, corruptf("tombstone %d out of range", g.tombstones.Maximum())
	}

	g.nodes = make([]*node, 0, min(int(slots), maxPrealloc))
	for slot := uint32(0); slot < slots; slot++ {
		n, err := decodeNode(br, enc, opts.Dimension, g)
		if err != nil {
			return nil, corruptf("slot %d: %v", slot, err)
		}
		g.nodes = append(g.nodes, n)
		if g.dead(slot) {
			continue
		}
		if _, dup := g.ids.Set(n.id, slot); dup {
			return nil, corruptf("duplicate live id %d", n.id)
		}
	}

	if !br.AtEOF() {
		return nil, corruptf("trailing data")
	}
	if err := g.validate(int(live), int(maxLevel), entry); err != nil {
		return nil, err
	}
	g.live = int(live)
	g.maxLevel = int(maxLevel)
	g.entry = entry
	return g, nil
}

func decodeNode(br *persistence.Reader, enc persistence.VectorEncoding, dim int, g *Graph) (*node, error) {
	n := &node{id: br.Uint64()}
	level := br.Uint32()
	if err := br.Err(); err != nil {
		return nil, err
	}
	if level > MaxLevel {
		return nil, fmt.Errorf("level %d", level)
	}
	n.level = int(level)

	n.vec = make([]float32, dim)
	if enc == persistence.VectorFloat16 {
		br.Float16s(n.vec)
	} else {
		br.Float32s(n.vec)
	}
	if err := br.Err(); err != nil {
		return nil, err
	}
	if !distance.IsFinite(n.vec) {
		return nil, fmt.Errorf("non-finite vector")
	}

	n.friends = make([][]uint32, n.level+1)
	for l := range n.friends {
		n.friends[l] = br.Uint32s(g.maxConns(l))
		if err := br.Err(); err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
	}
	return n, nil
}

// validate checks the decoded graph against its recorded scalars.
func (g *Graph) validate(live, maxLevel int, entry int32) error {
	slots := len(g.nodes)
	if want := slots - int(g.tombstones.GetCardinality()); live != want || g.ids.Len() != want {
		return corruptf("live count %d, expected %d", live, want)
	}
	if live > g.opts.Capacity {
		return corruptf("live count %d exceeds capacity %d", live, g.opts.Capacity)
	}

	for slot, n := range g.nodes {
		for l, list := range n.friends {
			for _, f := range list {
				if int(f) >= slots || int(f) == slot {
					return corruptf("slot %d layer %d: neighbor %d", slot, l, f)
				}
				if g.nodes[f].level < l {
					return corruptf("slot %d layer %d: neighbor %d has level %d", slot, l, f, g.nodes[f].level)
				}
			}
		}
	}

	if live == 0 {
		if entry != -1 {
			return corruptf("entry %d in empty graph", entry)
		}
		return nil
	}
	if entry < 0 || int(entry) >= slots || g.dead(uint32(entry)) {
		return corruptf("entry %d is not a live slot", entry)
	}
	if g.nodes[entry].level != maxLevel {
		return corruptf("entry level %d, max level %d", g.nodes[entry].level, maxLevel)
	}

	var err error
	g.ids.Scan(func(_ uint64, slot uint32) bool {
		if g.nodes[slot].level > maxLevel {
			err = corruptf("slot %d level %d above max level %d", slot, g.nodes[slot].level, maxLevel)
			return false
		}
		return true
	})
	return err
}
