package persistence

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	ifs "github.com/asarangaram/clmediakit/internal/fs"
)

// Store reads and atomically replaces one index file.
// A Store is safe for concurrent Load calls; Save calls must be serialized
// by the caller.
type Store struct {
	path        string
	fs          ifs.FileSystem
	compression Compression
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCompression sets the body compression used by Save. Default: ZSTD.
func WithCompression(c Compression) Option {
	return func(s *Store) { s.compression = c }
}

// WithFileSystem sets the filesystem. Default: the local filesystem.
func WithFileSystem(fsys ifs.FileSystem) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store for the file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		fs:          ifs.Default,
		compression: CompressionZSTD,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the index file path.
func (s *Store) Path() string { return s.path }

// Compression returns the configured body compression.
func (s *Store) Compression() Compression { return s.compression }

// Exists reports whether the index file exists.
func (s *Store) Exists() (bool, error) {
	_, err := s.fs.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &IOError{Op: "stat", Path: s.path, Err: err}
}

// Save encodes an index file from h and the body written by body, then
// atomically replaces the file. The layout fields of h (lengths, checksum,
// effective compression) are filled in by Save.
//
// It returns the exact bytes written so that callers can mirror them.
func (s *Store) Save(h Header, body func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := body(&buf); err != nil {
		return nil, err
	}

	data, err := Encode(h, buf.Bytes(), s.compression)
	if err != nil {
		return nil, err
	}
	if err := s.WriteRaw(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Load reads and verifies the index file, then passes the decoded header and
// body to fn. It returns ErrNotFound when the file does not exist.
func (s *Store) Load(fn func(Header, io.Reader) error) (Header, error) {
	data, err := s.ReadRaw()
	if err != nil {
		return Header{}, err
	}
	h, body, err := Decode(data)
	if err != nil {
		return h, err
	}
	return h, fn(h, bytes.NewReader(body))
}

// ReadRaw returns the file content without verifying it.
func (s *Store) ReadRaw() ([]byte, error) {
	f, err := s.fs.OpenFile(s.path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &IOError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}
	return data, nil
}

// WriteRaw atomically replaces the file with data.
// On any failure the temporary file is removed and the previous file is untouched.
func (s *Store) WriteRaw(data []byte) error {
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	// Write to a temp file in the same directory so the rename is atomic.
	tmp, err := s.fs.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if tmpName == "" {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = s.fs.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		return &IOError{Op: "rename", Path: s.path, Err: err}
	}
	tmpName = ""

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if err := s.fs.SyncDir(dir); err != nil {
		s.logger.Warn("directory sync failed", "dir", dir, "error", err)
	}
	return nil
}

// Encode builds a complete index file from h and an uncompressed body.
func Encode(h Header, body []byte, c Compression) ([]byte, error) {
	stored, used, err := compress(body, c)
	if err != nil {
		return nil, err
	}
	h.Compression = used
	h.BodyLen = uint64(len(body))
	h.StoredLen = uint64(len(stored))
	h.Checksum = 0

	out := make([]byte, 0, HeaderSize+len(stored))
	out = h.appendTo(out)
	sum := Checksum(out[:checksumOffset], stored)
	out = out[:checksumOffset]
	out = append(out, byte(sum), byte(sum>>8), byte(sum>>16), byte(sum>>24))
	out = append(out, stored...)
	return out, nil
}

// Decode verifies an index file and returns its header and uncompressed body.
func Decode(data []byte) (Header, []byte, error) {
	h, err := Inspect(data)
	if err != nil {
		return h, nil, err
	}
	body, err := decompress(data[HeaderSize:], h.Compression, h.BodyLen)
	if err != nil {
		return h, nil, err
	}
	return h, body, nil
}

// Inspect decodes and verifies the header of an index file without
// decompressing the body.
func Inspect(data []byte) (Header, error) {
	h, err := parseHeader(data)
	if err != nil {
		return h, err
	}
	stored := data[HeaderSize:]
	if uint64(len(stored)) != h.StoredLen {
		return h, corruptf("stored length %d, header says %d", len(stored), h.StoredLen)
	}
	if sum := Checksum(data[:checksumOffset], stored); sum != h.Checksum {
		return h, &ErrCorrupt{Reason: "checksum", Err: &ChecksumMismatchError{Expected: h.Checksum, Actual: sum}}
	}
	return h, nil
}
