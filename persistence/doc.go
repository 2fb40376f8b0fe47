// Package persistence stores a similarity index as a single self-describing file.
//
// A file is a fixed 52-byte header followed by the (optionally compressed)
// index body:
//
//	magic "CLHX" | version | dimension | capacity | M | efConstruction | efSearch
//	compression | vector encoding | reserved | body length | stored length | CRC32C
//	stored body
//
// All integers are little-endian. The CRC32C (Castagnoli) checksum covers the
// header fields before it and the stored bytes, so corruption is detected
// before decompression.
//
// Files are replaced atomically: the new content is written to a temporary file
// in the same directory, synced, renamed over the target, and the directory is
// synced. A failed save leaves the previous file untouched.
package persistence
