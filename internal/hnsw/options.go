package hnsw

import "fmt"

const (
	// MaxLevel caps the layer a node can be assigned to.
	MaxLevel = 16

	// mmax0Multiplier is the multiplier for the maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	DefaultDimension      = 64
	DefaultCapacity       = 200000
	DefaultM              = 8
	DefaultEFConstruction = 100
	DefaultEFSearch       = 200
)

// Options represents the options for configuring HNSW.
type Options struct {
	Dimension      int
	Capacity       int // Maximum number of live nodes
	M              int
	EFConstruction int
	EFSearch       int
	RandomSeed     *int64 // nil seeds from the clock
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	Dimension:      DefaultDimension,
	Capacity:       DefaultCapacity,
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
}

// Validate checks that all parameters are usable.
func (o Options) Validate() error {
	switch {
	case o.Dimension <= 0:
		return fmt.Errorf("%w: dimension %d", ErrInvalidOption, o.Dimension)
	case o.Capacity <= 0:
		return fmt.Errorf("%w: capacity %d", ErrInvalidOption, o.Capacity)
	case o.M < minimumM:
		return fmt.Errorf("%w: M %d (minimum %d)", ErrInvalidOption, o.M, minimumM)
	case o.EFConstruction <= 0:
		return fmt.Errorf("%w: efConstruction %d", ErrInvalidOption, o.EFConstruction)
	case o.EFSearch <= 0:
		return fmt.Errorf("%w: efSearch %d", ErrInvalidOption, o.EFSearch)
	}
	return nil
}
