package persistence

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// lz4MaxRatio bounds the expansion of an LZ4 block.
const lz4MaxRatio = 255

// ZSTD encoder/decoder pools.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxBodyLen),
	)
	return dec
}

// compress encodes data with c. It returns the compression actually used:
// data that does not shrink is stored uncompressed.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, 0, errors.New("persistence: unknown compression")
	}

	if len(out) == 0 || len(out) >= len(data) {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// decompress reverses compress and checks the result has bodyLen bytes.
// bodyLen has been checked against MaxBodyLen by parseHeader.
func decompress(stored []byte, c Compression, bodyLen uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(stored)) != bodyLen {
			return nil, corruptf("body length %d, header says %d", len(stored), bodyLen)
		}
		return stored, nil

	case CompressionLZ4:
		if bodyLen > uint64(len(stored))*lz4MaxRatio+16 {
			return nil, corruptf("implausible body length %d for %d stored bytes", bodyLen, len(stored))
		}
		out := make([]byte, bodyLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, &ErrCorrupt{Reason: "lz4 decompression", Err: err}
		}
		if uint64(n) != bodyLen {
			return nil, corruptf("decompressed %d bytes, header says %d", n, bodyLen)
		}
		return out, nil

	case CompressionZSTD:
		var fh zstd.Header
		if err := fh.Decode(stored); err != nil {
			return nil, &ErrCorrupt{Reason: "zstd frame header", Err: err}
		}
		if fh.HasFCS && fh.FrameContentSize != bodyLen {
			return nil, corruptf("zstd frame holds %d bytes, header says %d", fh.FrameContentSize, bodyLen)
		}
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, bodyLen))
		if err != nil {
			return nil, &ErrCorrupt{Reason: "zstd decompression", Err: err}
		}
		if uint64(len(out)) != bodyLen {
			return nil, corruptf("decompressed %d bytes, header says %d", len(out), bodyLen)
		}
		return out, nil
	}
	return nil, corruptf("unknown compression %d", c)
}
