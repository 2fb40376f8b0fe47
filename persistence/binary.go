package persistence

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/x448/float16"
)

// Writer writes little-endian primitives. The first error is sticky and
// every later call becomes a no-op.
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter creates a new binary writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered.
func (bw *Writer) Err() error { return bw.err }

func (bw *Writer) write(p []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(p)
}

// Bytes writes p verbatim.
func (bw *Writer) Bytes(p []byte) { bw.write(p) }

// Uint32 writes v.
func (bw *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(bw.buf[:4], v)
	bw.write(bw.buf[:4])
}

// Int32 writes v.
func (bw *Writer) Int32(v int32) { bw.Uint32(uint32(v)) }

// Uint64 writes v.
func (bw *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(bw.buf[:8], v)
	bw.write(bw.buf[:8])
}

// Float32s writes vec as IEEE 754 single precision values.
func (bw *Writer) Float32s(vec []float32) {
	for _, f := range vec {
		bw.Uint32(math.Float32bits(f))
	}
}

// Float16s writes vec as IEEE 754 half precision values.
func (bw *Writer) Float16s(vec []float32) {
	for _, f := range vec {
		binary.LittleEndian.PutUint16(bw.buf[:2], float16.Fromfloat32(f).Bits())
		bw.write(bw.buf[:2])
	}
}

// Uint32s writes a length-prefixed uint32 slice.
func (bw *Writer) Uint32s(s []uint32) {
	bw.Uint32(uint32(len(s)))
	for _, v := range s {
		bw.Uint32(v)
	}
}

// Reader reads little-endian primitives. The first error is sticky and
// every later call returns a zero value.
type Reader struct {
	r   io.Reader
	buf [8]byte
	err error
}

// NewReader creates a new binary reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered. A short read is reported as io.ErrUnexpectedEOF.
func (br *Reader) Err() error { return br.err }

func (br *Reader) read(p []byte) bool {
	if br.err != nil {
		return false
	}
	if _, err := io.ReadFull(br.r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		br.err = err
		return false
	}
	return true
}

// Bytes reads exactly n bytes.
func (br *Reader) Bytes(n int) []byte {
	p := make([]byte, n)
	if !br.read(p) {
		return nil
	}
	return p
}

// AtEOF reports whether the underlying reader is exhausted.
// It consumes one byte when it is not.
func (br *Reader) AtEOF() bool {
	if br.err != nil {
		return false
	}
	_, err := io.ReadFull(br.r, br.buf[:1])
	return err == io.EOF
}

// Uint32 reads a uint32.
func (br *Reader) Uint32() uint32 {
	if !br.read(br.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(br.buf[:4])
}

// Int32 reads an int32.
func (br *Reader) Int32() int32 { return int32(br.Uint32()) }

// Uint64 reads a uint64.
func (br *Reader) Uint64() uint64 {
	if !br.read(br.buf[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(br.buf[:8])
}

// Float32s fills vec with single precision values.
func (br *Reader) Float32s(vec []float32) {
	for i := range vec {
		vec[i] = math.Float32frombits(br.Uint32())
	}
}

// Float16s fills vec with half precision values widened to float32.
func (br *Reader) Float16s(vec []float32) {
	for i := range vec {
		if !br.read(br.buf[:2]) {
			return
		}
		vec[i] = float16.Frombits(binary.LittleEndian.Uint16(br.buf[:2])).Float32()
	}
}

// Uint32s reads a length-prefixed uint32 slice holding at most limit entries.
// A larger count sets ErrLimit.
func (br *Reader) Uint32s(limit int) []uint32 {
	n := br.Uint32()
	if br.err != nil {
		return nil
	}
	if int64(n) > int64(limit) {
		br.err = ErrLimit
		return nil
	}
	s := make([]uint32, n)
	for i := range s {
		s[i] = br.Uint32()
	}
	return s
}
