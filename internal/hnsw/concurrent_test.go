package hnsw

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asarangaram/clmediakit/internal/searcher"
	"github.com/asarangaram/clmediakit/testutil"
)

func TestConcurrentSearchDuringMutations(t *testing.T) {
	g := newTestGraph(t)
	ids, vecs := fill(t, g, 300, 30)
	extra := testutil.Vectors(testutil.NewRNG(31).Fingerprints(200))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				res, err := g.Search(vecs[(i*7+r)%len(vecs)], 10)
				if !assert.NoError(t, err) {
					return
				}
				assert.LessOrEqual(t, len(res), 10)
				assert.True(t, slices.IsSortedFunc(res, func(a, b SearchResult) int {
					return compareItems(searcher.Item{ID: a.ID, Distance: a.Distance}, searcher.Item{ID: b.ID, Distance: b.Distance})
				}))
			}
		}(r)
	}

	for i, v := range extra {
		tx := g.Begin()
		require.NoError(t, tx.Insert(uint64(10000+i), v))
		_, err := tx.Remove(ids[i%len(ids)])
		require.NoError(t, err)
		tx.Publish()
		if i%3 == 0 {
			tx.Rollback()
		} else {
			tx.Commit()
		}
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 300, g.Len())
}
