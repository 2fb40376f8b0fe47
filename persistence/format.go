package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	// Magic identifies index files.
	Magic = "CLHX"
	// Version is the current file format version.
	Version = 1
	// HeaderSize is the encoded header length in bytes.
	HeaderSize = 52
	// MaxBodyLen bounds the uncompressed body length accepted on load.
	MaxBodyLen = 1 << 32

	checksumOffset = 48
)

var (
	// ErrNotFound is returned by Load when the index file does not exist.
	ErrNotFound = errors.New("persistence: index file not found")
	// ErrLimit is returned when an encoded length exceeds its allowed bound.
	ErrLimit = errors.New("persistence: length exceeds limit")
)

// Compression selects how the index body is stored.
type Compression uint8

const (
	// CompressionNone stores the body verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses Zstandard (better ratio). This is the default.
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression converts a name ("none", "lz4", "zstd") to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return 0, fmt.Errorf("persistence: unknown compression %q", s)
}

// VectorEncoding selects how vector components are stored in the body.
type VectorEncoding uint8

const (
	// VectorFloat32 stores components as IEEE 754 single precision.
	VectorFloat32 VectorEncoding = 0
	// VectorFloat16 stores components as IEEE 754 half precision.
	// It is exact for 0/1 fingerprints and lossy for arbitrary values.
	VectorFloat16 VectorEncoding = 1
)

func (e VectorEncoding) String() string {
	switch e {
	case VectorFloat32:
		return "float32"
	case VectorFloat16:
		return "float16"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// ParseVectorEncoding converts a name ("float32", "float16") to a VectorEncoding.
func ParseVectorEncoding(s string) (VectorEncoding, error) {
	switch strings.ToLower(s) {
	case "float32", "f32", "":
		return VectorFloat32, nil
	case "float16", "f16":
		return VectorFloat16, nil
	}
	return 0, fmt.Errorf("persistence: unknown vector encoding %q", s)
}

// Header describes an index file.
type Header struct {
	Dimension      uint32
	Capacity       uint32
	M              uint32
	EFConstruction uint32
	EFSearch       uint32
	Compression    Compression
	VectorEncoding VectorEncoding
	BodyLen        uint64 // Uncompressed body length
	StoredLen      uint64 // Length of the body as stored
	Checksum       uint32 // CRC32C of header[0:48] and the stored body
}

// appendTo encodes h without validating it.
func (h *Header) appendTo(dst []byte) []byte {
	le := binary.LittleEndian
	dst = append(dst, Magic...)
	dst = le.AppendUint32(dst, Version)
	dst = le.AppendUint32(dst, h.Dimension)
	dst = le.AppendUint32(dst, h.Capacity)
	dst = le.AppendUint32(dst, h.M)
	dst = le.AppendUint32(dst, h.EFConstruction)
	dst = le.AppendUint32(dst, h.EFSearch)
	dst = append(dst, byte(h.Compression), byte(h.VectorEncoding), 0, 0)
	dst = le.AppendUint64(dst, h.BodyLen)
	dst = le.AppendUint64(dst, h.StoredLen)
	dst = le.AppendUint32(dst, h.Checksum)
	return dst
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, corruptf("file too short: %d bytes", len(b))
	}
	if string(b[0:4]) != Magic {
		return h, corruptf("invalid magic %q", b[0:4])
	}
	le := binary.LittleEndian
	if v := le.Uint32(b[4:]); v != Version {
		return h, corruptf("unsupported version %d", v)
	}
	h.Dimension = le.Uint32(b[8:])
	h.Capacity = le.Uint32(b[12:])
	h.M = le.Uint32(b[16:])
	h.EFConstruction = le.Uint32(b[20:])
	h.EFSearch = le.Uint32(b[24:])
	h.Compression = Compression(b[28])
	h.VectorEncoding = VectorEncoding(b[29])
	h.BodyLen = le.Uint64(b[32:])
	h.StoredLen = le.Uint64(b[40:])
	h.Checksum = le.Uint32(b[checksumOffset:])

	switch {
	case h.Compression > CompressionZSTD:
		return h, corruptf("unknown compression %d", b[28])
	case h.VectorEncoding > VectorFloat16:
		return h, corruptf("unknown vector encoding %d", b[29])
	case b[30] != 0 || b[31] != 0:
		return h, corruptf("reserved bytes set")
	case h.Dimension == 0:
		return h, corruptf("zero dimension")
	case h.M < 2:
		return h, corruptf("invalid M %d", h.M)
	case h.BodyLen > MaxBodyLen:
		return h, corruptf("body length %d exceeds %d", h.BodyLen, uint64(MaxBodyLen))
	}
	return h, nil
}

// ErrCorrupt reports an index file that cannot be decoded.
type ErrCorrupt struct {
	Reason string
	Err    error
}

func (e *ErrCorrupt) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt index: %s: %v", e.Reason, e.Err)
	}
	return "corrupt index: " + e.Reason
}

func (e *ErrCorrupt) Unwrap() error { return e.Err }

func corruptf(format string, args ...any) error {
	return &ErrCorrupt{Reason: fmt.Sprintf(format, args...)}
}

// IOError reports a failure at the storage boundary.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
