// Package distance provides the vector distance functions used by the
// similarity index.
//
// Squared L2 preserves the ordering of true Euclidean distance, so the index
// uses it for graph construction and query ranking alike and reports it as the
// match distance. Use L2 to convert to a true Euclidean distance.
//
// # Usage
//
//	dist := distance.SquaredL2(a, b)
//	euclid := distance.L2(a, b)
package distance
