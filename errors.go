package clmediakit

import (
	"errors"
	"fmt"

	"github.com/asarangaram/clmediakit/fingerprint"
	"github.com/asarangaram/clmediakit/internal/fs"
	"github.com/asarangaram/clmediakit/internal/hnsw"
	"github.com/asarangaram/clmediakit/persistence"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptyIndex is returned by searches against an index with no live items.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("index is closed")

	// ErrInvalidOption is returned by Open for unusable configuration.
	ErrInvalidOption = errors.New("invalid option")

	// ErrLocked is returned by Open when another process holds the writer lock.
	ErrLocked = errors.New("index is locked by another process")

	// ErrNoMirror is returned by Backup when no mirror is configured.
	ErrNoMirror = errors.New("no mirror configured")
)

// ErrInvalidFingerprint indicates a malformed hash or fingerprint vector.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidFingerprint struct {
	Input string
	Pos   int // -1 if not positional
	Char  rune
	cause error
}

func (e *ErrInvalidFingerprint) Error() string { return e.cause.Error() }

func (e *ErrInvalidFingerprint) Unwrap() error { return e.cause }

// ErrDuplicateID indicates an Add for an id that is already live.
type ErrDuplicateID struct {
	ID    uint64
	cause error
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id %d", e.ID)
}

func (e *ErrDuplicateID) Unwrap() error { return e.cause }

// ErrCapacityExceeded indicates an insertion beyond the declared capacity.
type ErrCapacityExceeded struct {
	Capacity int
	cause    error
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: index holds at most %d items", e.Capacity)
}

func (e *ErrCapacityExceeded) Unwrap() error { return e.cause }

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrCorruptIndex indicates a persisted index that cannot be decoded or that
// disagrees with the configured dimension or capacity.
type ErrCorruptIndex struct {
	Path   string
	Reason string
	cause  error
}

func (e *ErrCorruptIndex) Error() string {
	if e.Path == "" {
		return "corrupt index: " + e.Reason
	}
	return fmt.Sprintf("corrupt index %s: %s", e.Path, e.Reason)
}

func (e *ErrCorruptIndex) Unwrap() error { return e.cause }

// ErrPersistence indicates a read or write failure at the storage boundary.
// A mutation that returns ErrPersistence has been rolled back.
type ErrPersistence struct {
	Op    string
	Path  string
	cause error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *ErrPersistence) Unwrap() error { return e.cause }

// translateError maps errors of the internal packages to the public types.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var fe *fingerprint.ErrInvalidFingerprint
	if errors.As(err, &fe) {
		return &ErrInvalidFingerprint{Input: fe.Input, Pos: fe.Pos, Char: fe.Char, cause: err}
	}
	var dup *hnsw.ErrDuplicateID
	if errors.As(err, &dup) {
		return &ErrDuplicateID{ID: dup.ID, cause: err}
	}
	var ce *hnsw.ErrCapacityExceeded
	if errors.As(err, &ce) {
		return &ErrCapacityExceeded{Capacity: ce.Capacity, cause: err}
	}
	var dm *hnsw.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	if errors.Is(err, hnsw.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, hnsw.ErrEmptyIndex) {
		return fmt.Errorf("%w: %w", ErrEmptyIndex, err)
	}
	if errors.Is(err, hnsw.ErrInvalidOption) {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if errors.Is(err, fs.ErrLocked) {
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}
	return err
}

// translateLoadError maps a failure to read path into ErrCorruptIndex or ErrPersistence.
func translateLoadError(path string, err error) error {
	if err == nil {
		return nil
	}
	var pc *persistence.ErrCorrupt
	if errors.As(err, &pc) {
		return &ErrCorruptIndex{Path: path, Reason: pc.Reason, cause: err}
	}
	var hc *hnsw.ErrCorrupt
	if errors.As(err, &hc) {
		return &ErrCorruptIndex{Path: path, Reason: hc.Reason, cause: err}
	}
	if errors.Is(err, hnsw.ErrInvalidOption) {
		return &ErrCorruptIndex{Path: path, Reason: err.Error(), cause: err}
	}
	var ce *ErrCorruptIndex
	if errors.As(err, &ce) {
		return err
	}
	return &ErrPersistence{Op: "load", Path: path, cause: err}
}
