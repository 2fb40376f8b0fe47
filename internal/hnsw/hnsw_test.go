package hnsw

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asarangaram/clmediakit/persistence"
	"github.com/asarangaram/clmediakit/testutil"
)

func newTestGraph(t *testing.T, fns ...func(o *Options)) *Graph {
	t.Helper()
	seed := int64(42)
	fns = append([]func(o *Options){func(o *Options) { o.RandomSeed = &seed }}, fns...)
	g, err := New(fns...)
	require.NoError(t, err)
	return g
}

func fill(t *testing.T, g *Graph, n int, seed int64) ([]uint64, [][]float32) {
	t.Helper()
	vecs := testutil.Vectors(testutil.NewRNG(seed).Fingerprints(n))
	ids := make([]uint64, n)
	for i, v := range vecs {
		ids[i] = uint64(i + 1)
		require.NoError(t, g.Insert(ids[i], v))
	}
	return ids, vecs
}

func encode(t *testing.T, g *Graph) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, g.Encode(&buf, persistence.VectorFloat32))
	return buf.Bytes()
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(o *Options)
	}{
		{"Dimension", func(o *Options) { o.Dimension = 0 }},
		{"Capacity", func(o *Options) { o.Capacity = -1 }},
		{"M", func(o *Options) { o.M = 1 }},
		{"EFConstruction", func(o *Options) { o.EFConstruction = 0 }},
		{"EFSearch", func(o *Options) { o.EFSearch = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fn)
			assert.ErrorIs(t, err, ErrInvalidOption)
		})
	}
}

func TestBasisVectors(t *testing.T) {
	g := newTestGraph(t, func(o *Options) { o.Dimension = 3 })
	require.NoError(t, g.Insert(1, []float32{1, 0, 0}))
	require.NoError(t, g.Insert(2, []float32{0, 1, 0}))
	require.NoError(t, g.Insert(3, []float32{0, 0, 1}))

	res, err := g.Search([]float32{0, 1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{ID: 2, Distance: 0}, {ID: 1, Distance: 2}}, res)

	res, err = g.Search([]float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{ID: 2, Distance: 0}, {ID: 1, Distance: 2}, {ID: 3, Distance: 2}}, res)
}

func TestSearch_SelfMatch(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 200, 1)

	for i, v := range vecs {
		res, err := g.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, ids[i], res[0].ID)
		assert.Zero(t, res[0].Distance)
	}
}

func TestSearch_Recall(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 1000, 7)
	rng := testutil.NewRNG(99)

	const k = 10
	total := 0.0
	queries := 50
	for range queries {
		q := vecs[rng.Intn(len(vecs))]
		truth := testutil.ExactTopK(q, ids, vecs, k)
		res, err := g.Search(q, k)
		require.NoError(t, err)

		approx := make([]testutil.SearchResult, len(res))
		for i, r := range res {
			approx[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
		}
		total += testutil.ComputeRecall(truth, approx)
	}
	assert.GreaterOrEqual(t, total/float64(queries), 0.9)
}

func TestSearch_Errors(t *testing.T) {
	g := newTestGraph(t)

	_, err := g.Search(make([]float32, 64), 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	_, err = g.Search(make([]float32, 64), 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = g.Search(make([]float32, 3), 1)
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	_, err = g.BruteSearch(make([]float32, 64), 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestInsert_Errors(t *testing.T) {
	g := newTestGraph(t, func(o *Options) { o.Capacity = 3 })
	fill(t, g, 3, 1)

	err := g.Insert(1, make([]float32, 64))
	var dup *ErrDuplicateID
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, uint64(1), dup.ID)

	err = g.Insert(4, make([]float32, 64))
	var ce *ErrCapacityExceeded
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Capacity)

	err = g.Insert(5, make([]float32, 10))
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 3, g.Slots())

	// Replacing at capacity is allowed.
	require.NoError(t, g.Replace(2, make([]float32, 64)))
	assert.Equal(t, 3, g.Len())

	// Removing frees capacity.
	assert.True(t, g.Remove(1))
	require.NoError(t, g.Insert(4, make([]float32, 64)))
}

func TestInsert_CopiesVector(t *testing.T) {
	g := newTestGraph(t, func(o *Options) { o.Dimension = 2 })
	v := []float32{1, 1}
	require.NoError(t, g.Insert(1, v))
	v[0] = 9

	got, ok := g.Vector(1)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 1}, got)
}

func TestRemove(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 100, 3)

	assert.True(t, g.Remove(ids[10]))
	assert.False(t, g.Remove(ids[10]))
	assert.False(t, g.Remove(12345))
	assert.False(t, g.Contains(ids[10]))
	assert.Equal(t, 99, g.Len())
	assert.Equal(t, 1, g.Tombstoned())

	res, err := g.Search(vecs[10], 100)
	require.NoError(t, err)
	assert.Len(t, res, 99)
	for _, r := range res {
		assert.NotEqual(t, ids[10], r.ID)
	}
}

func TestRemove_EntryReelection(t *testing.T) {
	g := newTestGraph(t)
	_, vecs := fill(t, g, 50, 4)

	// Remove the entry repeatedly; the graph must stay searchable.
	for g.Len() > 1 {
		st := g.Stats()
		require.True(t, st.HasEntry)
		require.True(t, g.Remove(st.EntryID))

		st = g.Stats()
		require.True(t, st.HasEntry)
		assert.True(t, g.Contains(st.EntryID))
		assert.Positive(t, st.Levels[st.MaxLevel].Nodes, "entry must sit on the top live level")
	}

	last := g.IDs()
	require.Len(t, last, 1)
	res, err := g.Search(vecs[0], 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, last[0], res[0].ID)

	require.True(t, g.Remove(last[0]))
	_, err = g.Search(vecs[0], 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)
	assert.False(t, g.Stats().HasEntry)
}

func TestSearch_FragmentedFallsBackToExact(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 300, 5)

	for _, id := range ids[:290] {
		require.True(t, g.Remove(id))
	}

	for _, k := range []int{10, 20} {
		res, err := g.Search(vecs[0], k)
		require.NoError(t, err)
		exact, err := g.BruteSearch(vecs[0], k)
		require.NoError(t, err)
		assert.Len(t, res, 10)
		assert.Equal(t, exact, res)
	}
}

func TestSearch_HeavyChurn(t *testing.T) {
	g := newTestGraph(t)
	rng := testutil.NewRNG(11)
	live := make(map[uint64][]float32)
	next := uint64(1)

	for round := range 20 {
		for _, v := range testutil.Vectors(rng.Fingerprints(300)) {
			require.NoError(t, g.Insert(next, v))
			live[next] = v
			next++
		}
		for i, id := range g.IDs() {
			if i%10 != 0 {
				require.True(t, g.Remove(id))
				delete(live, id)
			}
		}
		require.Equal(t, len(live), g.Len())

		for id, v := range live {
			res, err := g.Search(v, 1)
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Zero(t, res[0].Distance, "round %d id %d", round, id)

			res, err = g.Search(v, 10)
			require.NoError(t, err)
			found := make([]uint64, len(res))
			for i, r := range res {
				found[i] = r.ID
			}
			assert.Contains(t, found, id, "round %d", round)
		}
	}
	assert.Greater(t, g.Tombstoned(), 5000)
}

func TestReselect_BridgesTombstonedNeighbors(t *testing.T) {
	g := newTestGraph(t, func(o *Options) { o.Dimension = 3 })
	require.NoError(t, g.Insert(1, []float32{0, 0, 0}))
	require.NoError(t, g.Insert(2, []float32{1, 0, 0}))
	require.NoError(t, g.Insert(3, []float32{2, 0, 0}))
	require.NoError(t, g.Insert(4, []float32{3, 0, 0}))

	a, _ := g.ids.Get(1)
	d1, _ := g.ids.Get(2)
	d2, _ := g.ids.Get(3)
	b, _ := g.ids.Get(4)

	// a -> d1 -> d2 -> b is the only path from a to b.
	g.nodes[a].friends[0] = []uint32{d1}
	g.nodes[d1].friends[0] = []uint32{d2}
	g.nodes[d2].friends[0] = []uint32{b}
	require.True(t, g.Remove(2))
	require.True(t, g.Remove(3))

	g.reselect(a, 0, g.nodes[a].friends[0])
	assert.Equal(t, []uint32{b}, g.nodes[a].friends[0])

	res, err := g.Search([]float32{3, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{ID: 4, Distance: 0}}, res)
}

func TestReplace(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 100, 6)

	replacement := testutil.Vectors([]uint64{0xdeadbeef})[0]
	require.NoError(t, g.Replace(ids[0], replacement))
	assert.Equal(t, 100, g.Len())
	assert.Equal(t, 101, g.Slots())

	res, err := g.Search(replacement, 1)
	require.NoError(t, err)
	assert.Equal(t, SearchResult{ID: ids[0]}, res[0])

	res, err = g.Search(vecs[0], 100)
	require.NoError(t, err)
	for _, r := range res {
		if r.ID == ids[0] {
			assert.NotZero(t, r.Distance, "old vector must not be findable under the id")
		}
	}

	// Absent id behaves as insert.
	require.NoError(t, g.Replace(9999, vecs[0]))
	assert.True(t, g.Contains(9999))

	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, g.Replace(ids[1], []float32{1}), &dm)
	assert.True(t, g.Contains(ids[1]))
}

func TestDeterministicConstruction(t *testing.T) {
	a := newTestGraph(t)
	b := newTestGraph(t)
	fill(t, a, 300, 8)
	fill(t, b, 300, 8)
	assert.Equal(t, encode(t, a), encode(t, b))
}

func TestNeighborListBounds(t *testing.T) {
	g := newTestGraph(t, func(o *Options) { o.M = 4 })
	fill(t, g, 500, 9)

	for _, n := range g.nodes {
		for l, list := range n.friends {
			assert.LessOrEqual(t, len(list), g.maxConns(l))
			for _, f := range list {
				assert.Less(t, int(f), len(g.nodes))
				assert.GreaterOrEqual(t, g.nodes[f].level, l)
			}
		}
	}
}

func TestTxn_Rollback(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 150, 10)
	before := encode(t, g)

	tx := g.Begin()
	extra := testutil.Vectors(testutil.NewRNG(11).Fingerprints(20))
	for i, v := range extra {
		require.NoError(t, tx.Insert(uint64(1000+i), v))
	}
	removed, err := tx.Remove(ids[0])
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, tx.Replace(ids[1], extra[0]))
	assert.Equal(t, 22, tx.Mutations())

	tx.Publish()
	assert.True(t, g.Contains(1000))
	assert.False(t, g.Contains(ids[0]))

	_, err = tx.Remove(ids[2])
	assert.ErrorIs(t, err, ErrTxnDone)

	tx.Rollback()
	tx.Rollback()

	assert.Equal(t, before, encode(t, g))
	assert.Equal(t, 150, g.Len())
	assert.True(t, g.Contains(ids[0]))
	assert.False(t, g.Contains(1000))

	res, err := g.Search(vecs[1], 1)
	require.NoError(t, err)
	assert.Equal(t, ids[1], res[0].ID)
}

func TestTxn_FailedInsertChangesNothing(t *testing.T) {
	g := newTestGraph(t, func(o *Options) { o.Capacity = 10 })
	fill(t, g, 10, 12)
	before := encode(t, g)

	err := g.Insert(11, make([]float32, 64))
	var ce *ErrCapacityExceeded
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, before, encode(t, g))
}

func TestTxn_Commit(t *testing.T) {
	g := newTestGraph(t)
	tx := g.Begin()
	require.NoError(t, tx.Insert(1, make([]float32, 64)))
	tx.Publish()
	tx.Commit()
	tx.Rollback()
	assert.True(t, g.Contains(1))
	assert.Nil(t, g.j)
}

func TestCompact(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 400, 13)
	for _, id := range ids[:200] {
		g.Remove(id)
	}
	require.NoError(t, g.Replace(ids[300], vecs[0]))

	c := g.Compact()
	assert.Equal(t, g.Len(), c.Len())
	assert.Equal(t, 0, c.Tombstoned())
	assert.Equal(t, g.Len(), c.Slots())
	assert.Equal(t, g.IDs(), c.IDs())

	for _, q := range vecs[:20] {
		want, err := g.BruteSearch(q, 5)
		require.NoError(t, err)
		got, err := c.Search(q, 5)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStats(t *testing.T) {
	g := newTestGraph(t)
	st := g.Stats()
	assert.Zero(t, st.Live)
	assert.False(t, st.HasEntry)

	ids, _ := fill(t, g, 100, 14)
	g.Remove(ids[0])

	st = g.Stats()
	assert.Equal(t, 99, st.Live)
	assert.Equal(t, 1, st.Tombstoned)
	assert.Equal(t, 100, st.Slots)
	require.Len(t, st.Levels, st.MaxLevel+1)
	assert.Equal(t, 99, st.Levels[0].Nodes)
	assert.Positive(t, st.Levels[0].Connections)
}
