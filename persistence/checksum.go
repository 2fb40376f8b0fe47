package persistence

import (
	"fmt"
	"hash/crc32"
)

// Checksums use CRC32 with the Castagnoli polynomial (hardware accelerated on
// amd64 and arm64). CRC32 detects accidental corruption only; it is not a
// tamper check.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum returns the CRC32C of the concatenation of parts.
func Checksum(parts ...[]byte) uint32 {
	var crc uint32
	for _, p := range parts {
		crc = crc32.Update(crc, crc32cTable, p)
	}
	return crc
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}
