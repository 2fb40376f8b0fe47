package searcher

import "sync"

// Searcher is a reusable execution context for graph search.
//
// Searcher is NOT thread-safe. It is owned by a single goroutine
// between Get and Put.
type Searcher struct {
	// Visited tracks visited slots during graph traversal.
	Visited *VisitedSet

	// Candidates is a min-heap of slots still to expand.
	Candidates *PriorityQueue

	// Results is a max-heap holding the best ef items found so far.
	Results *PriorityQueue

	// Scratch collects sorted output before it is copied to the caller.
	Scratch []Item
}

// New creates a searcher sized for capacity slots.
func New(capacity int) *Searcher {
	return &Searcher{
		Visited:    NewVisitedSet(capacity),
		Candidates: NewPriorityQueue(false),
		Results:    NewPriorityQueue(true),
		Scratch:    make([]Item, 0, 64),
	}
}

// Reset prepares the searcher for another traversal.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.Results.Reset()
	s.Scratch = s.Scratch[:0]
}

var pool = sync.Pool{
	New: func() any { return New(1024) },
}

// Get returns a reset searcher from the pool.
func Get() *Searcher {
	s := pool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns s to the pool.
func Put(s *Searcher) {
	pool.Put(s)
}
