package hnsw

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned by searches when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
	// ErrEmptyIndex is returned by searches against a graph with no live nodes.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrInvalidOption is returned by New for unusable Options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrTxnDone is returned when a Txn is used after Publish, Commit or Rollback.
	ErrTxnDone = errors.New("transaction already published or finished")
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// graph dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicateID is returned by Insert for an id that is already live.
type ErrDuplicateID struct {
	ID uint64
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("id %d already exists", e.ID)
}

// ErrCapacityExceeded is returned by Insert when the graph already holds
// Capacity live nodes.
type ErrCapacityExceeded struct {
	Capacity int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity of %d live items exceeded", e.Capacity)
}

// ErrCorrupt is returned by Decode for an encoded graph that violates a
// structural invariant.
type ErrCorrupt struct {
	Reason string
}

func (e *ErrCorrupt) Error() string {
	return "corrupt graph: " + e.Reason
}

func corruptf(format string, args ...any) error {
	return &ErrCorrupt{Reason: fmt.Sprintf(format, args...)}
}

// SearchResult is one neighbor returned by a search.
type SearchResult struct {
	ID       uint64
	Distance float32 // Squared L2
}

// LevelStats describes one layer of the graph.
type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
}

// Stats is a snapshot of graph occupancy and layer structure.
type Stats struct {
	Live       int
	Tombstoned int
	Slots      int
	MaxLevel   int
	EntryID    uint64
	HasEntry   bool
	Levels     []LevelStats
}
