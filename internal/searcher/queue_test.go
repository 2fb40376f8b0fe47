package searcher

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	t.Run("MinHeap", func(t *testing.T) {
		pq := NewPriorityQueue(false)
		pq.PushItem(Item{ID: 1, Distance: 10})
		pq.PushItem(Item{ID: 2, Distance: 5})
		pq.PushItem(Item{ID: 3, Distance: 20})
		require.Equal(t, 3, pq.Len())

		top, ok := pq.TopItem()
		require.True(t, ok)
		assert.Equal(t, float32(5), top.Distance)

		for _, want := range []float32{5, 10, 20} {
			item, ok := pq.PopItem()
			require.True(t, ok)
			assert.Equal(t, want, item.Distance)
		}

		_, ok = pq.PopItem()
		assert.False(t, ok)
	})

	t.Run("MaxHeap", func(t *testing.T) {
		pq := NewPriorityQueue(true)
		pq.PushItem(Item{ID: 1, Distance: 10})
		pq.PushItem(Item{ID: 2, Distance: 5})
		pq.PushItem(Item{ID: 3, Distance: 20})

		for _, want := range []float32{20, 10, 5} {
			item, ok := pq.PopItem()
			require.True(t, ok)
			assert.Equal(t, want, item.Distance)
		}
	})

	t.Run("TieBreakByID", func(t *testing.T) {
		pq := NewPriorityQueue(false)
		pq.PushItem(Item{ID: 9, Distance: 1})
		pq.PushItem(Item{ID: 3, Distance: 1})
		pq.PushItem(Item{ID: 5, Distance: 1})

		var ids []uint64
		for pq.Len() > 0 {
			item, _ := pq.PopItem()
			ids = append(ids, item.ID)
		}
		assert.Equal(t, []uint64{3, 5, 9}, ids)
	})
}

func TestPriorityQueue_Bounded(t *testing.T) {
	pq := NewPriorityQueue(true)
	for i := 0; i < 10; i++ {
		pq.PushItemBounded(Item{ID: uint64(i), Distance: float32(10 - i)}, 3)
	}
	require.Equal(t, 3, pq.Len())

	kept := pq.PushItemBounded(Item{ID: 100, Distance: 50}, 3)
	assert.False(t, kept)

	// Equal distance, smaller id wins.
	kept = pq.PushItemBounded(Item{ID: 0, Distance: 3}, 3)
	assert.True(t, kept)

	out := pq.AppendSorted(nil)
	assert.Equal(t, []Item{{ID: 9, Distance: 1}, {ID: 8, Distance: 2}, {ID: 0, Distance: 3}}, out)
	assert.Zero(t, pq.Len())
}

func TestPriorityQueue_AppendSortedRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, isMax := range []bool{true, false} {
		pq := NewPriorityQueue(isMax)
		var want []Item
		for i := 0; i < 200; i++ {
			item := Item{ID: uint64(i), Distance: float32(rng.Intn(20))}
			want = append(want, item)
			pq.PushItem(item)
		}
		sort.Slice(want, func(i, j int) bool { return Less(want[i], want[j]) })

		got := pq.AppendSorted([]Item{{ID: 999}})
		require.Len(t, got, 201)
		assert.Equal(t, want, got[1:])
	}
}

func TestVisitedSet(t *testing.T) {
	v := NewVisitedSet(10)
	assert.True(t, v.Visit(3))
	assert.False(t, v.Visit(3))
	assert.True(t, v.Visited(3))
	assert.False(t, v.Visited(4))

	// Grows past initial capacity.
	assert.True(t, v.Visit(1000))
	assert.True(t, v.Visited(1000))
	assert.False(t, v.Visited(5000))

	v.Reset()
	assert.False(t, v.Visited(3))
	assert.False(t, v.Visited(1000))
}

func TestSearcherPool(t *testing.T) {
	s := Get()
	s.Visited.Visit(1)
	s.Results.PushItem(Item{ID: 1})
	Put(s)

	s = Get()
	defer Put(s)
	assert.False(t, s.Visited.Visited(1))
	assert.Zero(t, s.Results.Len())
	assert.Zero(t, s.Candidates.Len())
}
