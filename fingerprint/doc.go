// Package fingerprint converts perceptual hash values into the fixed-length
// vectors stored by the similarity index.
//
// A hash arrives either as a string of '0'/'1' digits (optionally carrying a
// single "0b" radix marker, as produced by most bin() style formatters), as a
// 64-bit integer, or as an already-numeric vector. Every form is normalised to
// exactly Dimension components:
//
//   - shorter inputs are right-padded with zeros
//   - longer inputs are truncated to the first Dimension digits
//
// Truncation is lossy: two hashes that differ only after the first Dimension
// bits produce identical vectors.
package fingerprint
