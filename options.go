package clmediakit

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/asarangaram/clmediakit/blobstore"
	"github.com/asarangaram/clmediakit/internal/fs"
	"github.com/asarangaram/clmediakit/internal/hnsw"
	"github.com/asarangaram/clmediakit/persistence"
)

const (
	// DefaultQueryK is the number of neighbors returned by Query.
	DefaultQueryK = 5

	// DefaultFlushInterval is the minimum spacing of writes in PersistDeferred mode.
	DefaultFlushInterval = 5 * time.Second
)

// PersistMode selects when mutations are written to disk.
type PersistMode int

const (
	// PersistSync writes the index file after every mutation. A mutation
	// returns only after its write succeeded; a failed write rolls it back.
	PersistSync PersistMode = iota

	// PersistDeferred writes at most once per flush interval and on Flush and
	// Close. Mutations are visible immediately but may be lost on a crash.
	PersistDeferred
)

func (m PersistMode) String() string {
	switch m {
	case PersistSync:
		return "sync"
	case PersistDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("PersistMode(%d)", int(m))
	}
}

// ParsePersistMode converts "sync" or "deferred" to a PersistMode.
func ParsePersistMode(s string) (PersistMode, error) {
	switch s {
	case "sync", "":
		return PersistSync, nil
	case "deferred":
		return PersistDeferred, nil
	default:
		return 0, fmt.Errorf("%w: unknown persist mode %q", ErrInvalidOption, s)
	}
}

type options struct {
	dimension      int
	capacity       int
	m              int
	efConstruction int
	efSearch       int
	efSearchSet    bool
	seed           *int64

	compression    persistence.Compression
	vectorEncoding persistence.VectorEncoding
	persistMode    PersistMode
	flushInterval  time.Duration
	compactRatio   float64

	logger           *Logger
	metricsCollector MetricsCollector

	mirrors           []blobstore.Store
	mirrorName        string
	restoreFromMirror bool

	fileLock bool
	fs       fs.FileSystem
}

// Option configures Open.
type Option func(*options)

// WithDimension sets the fingerprint length. Default: 64.
func WithDimension(dim int) Option {
	return func(o *options) { o.dimension = dim }
}

// WithCapacity sets the maximum number of live items. Default: 200000.
func WithCapacity(capacity int) Option {
	return func(o *options) { o.capacity = capacity }
}

// WithM sets the maximum neighbors per node on layers above 0 (layer 0 uses 2*M).
// Default: 8. Ignored when an existing index file is loaded.
func WithM(m int) Option {
	return func(o *options) { o.m = m }
}

// WithEFConstruction sets the beam width used while inserting. Default: 100.
// Ignored when an existing index file is loaded.
func WithEFConstruction(ef int) Option {
	return func(o *options) { o.efConstruction = ef }
}

// WithEFSearch sets the beam width used by searches. Default: 200.
// Unlike the construction parameters it also overrides the value stored in an
// existing index file.
func WithEFSearch(ef int) Option {
	return func(o *options) {
		o.efSearch = ef
		o.efSearchSet = true
	}
}

// WithRandomSeed makes level assignment deterministic.
func WithRandomSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithCompression sets the compression of the index file body. Default: ZSTD.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithVectorEncoding sets how vectors are stored in the index file.
// VectorFloat16 halves the file size and is exact for 0/1 fingerprints.
func WithVectorEncoding(e persistence.VectorEncoding) Option {
	return func(o *options) { o.vectorEncoding = e }
}

// WithPersistMode selects synchronous or deferred persistence. Default: PersistSync.
func WithPersistMode(m PersistMode) Option {
	return func(o *options) { o.persistMode = m }
}

// WithFlushInterval sets the minimum spacing of writes in PersistDeferred mode.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) { o.flushInterval = d }
}

// WithCompactionThreshold compacts the index after a mutation once the share
// of tombstoned slots reaches ratio. 0 disables automatic compaction.
func WithCompactionThreshold(ratio float64) Option {
	return func(o *options) { o.compactRatio = ratio }
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := clmediakit.NewJSONLogger(os.Stderr, slog.LevelInfo)
//	idx, _ := clmediakit.Open("phash.clhx", clmediakit.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(os.Stderr, level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(os.Stderr, level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &clmediakit.BasicMetricsCollector{}
//	idx, _ := clmediakit.Open("phash.clhx", clmediakit.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMirror adds stores that receive a copy of the index file after every
// successful write. Mirror failures are logged and counted but do not fail the
// mutation; Backup reports them.
func WithMirror(stores ...blobstore.Store) Option {
	return func(o *options) {
		for _, s := range stores {
			if s != nil {
				o.mirrors = append(o.mirrors, s)
			}
		}
	}
}

// WithMirrorName sets the blob name used in mirrors.
// Default: the base name of the index path.
func WithMirrorName(name string) Option {
	return func(o *options) { o.mirrorName = name }
}

// WithRestoreFromMirror restores the index file from the first mirror that
// holds a valid copy when the local file does not exist.
func WithRestoreFromMirror(enabled bool) Option {
	return func(o *options) { o.restoreFromMirror = enabled }
}

// WithFileLock enables the advisory writer lock on "<path>.lock". Default: true.
func WithFileLock(enabled bool) Option {
	return func(o *options) { o.fileLock = enabled }
}

// WithFileSystem sets the file system used for the index file.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) { o.fs = fsys }
}

func applyOptions(optFns []Option) options {
	o := options{
		dimension:        hnsw.DefaultDimension,
		capacity:         hnsw.DefaultCapacity,
		m:                hnsw.DefaultM,
		efConstruction:   hnsw.DefaultEFConstruction,
		efSearch:         hnsw.DefaultEFSearch,
		compression:      persistence.CompressionZSTD,
		vectorEncoding:   persistence.VectorFloat32,
		persistMode:      PersistSync,
		flushInterval:    DefaultFlushInterval,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fileLock:         true,
		fs:               fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) graphOptions() hnsw.Options {
	return hnsw.Options{
		Dimension:      o.dimension,
		Capacity:       o.capacity,
		M:              o.m,
		EFConstruction: o.efConstruction,
		EFSearch:       o.efSearch,
		RandomSeed:     o.seed,
	}
}

func (o *options) validate() error {
	if err := o.graphOptions().Validate(); err != nil {
		return translateError(err)
	}
	switch {
	case o.compression > persistence.CompressionZSTD:
		return fmt.Errorf("%w: compression %d", ErrInvalidOption, o.compression)
	case o.vectorEncoding > persistence.VectorFloat16:
		return fmt.Errorf("%w: vector encoding %d", ErrInvalidOption, o.vectorEncoding)
	case o.persistMode != PersistSync && o.persistMode != PersistDeferred:
		return fmt.Errorf("%w: persist mode %d", ErrInvalidOption, o.persistMode)
	case o.persistMode == PersistDeferred && o.flushInterval <= 0:
		return fmt.Errorf("%w: flush interval %s", ErrInvalidOption, o.flushInterval)
	case o.compactRatio < 0 || o.compactRatio > 1:
		return fmt.Errorf("%w: compaction threshold %g", ErrInvalidOption, o.compactRatio)
	}
	return nil
}
