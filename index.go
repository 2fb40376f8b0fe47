package clmediakit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/asarangaram/clmediakit/fingerprint"
	"github.com/asarangaram/clmediakit/internal/fs"
	"github.com/asarangaram/clmediakit/internal/hnsw"
	"github.com/asarangaram/clmediakit/persistence"
)

// Match is one search result.
type Match struct {
	ID       uint64
	Distance float32 // Squared Euclidean distance
}

// Item is one element of AddBatch. Vector takes precedence over Hash when set.
type Item struct {
	ID     uint64
	Hash   string
	Vector []float32
}

// Index is a persistent similarity index over fingerprints.
//
// Mutations are serialized per instance and, in PersistSync mode, written to
// disk before they return. Searches never wait for disk I/O: they observe the
// graph either before or after a concurrent mutation.
type Index struct {
	path    string
	opts    options
	logger  *Logger
	metrics MetricsCollector
	encoder *fingerprint.Encoder
	store   *persistence.Store
	lock    *fs.Lock

	graph  atomic.Pointer[hnsw.Graph]
	closed atomic.Bool

	// writeMu serializes every mutate-and-persist sequence.
	writeMu    sync.Mutex
	dirty      atomic.Bool // In-memory state not yet on disk (deferred mode)
	pendingErr error       // Last failed deferred write
	pace       rate.Sometimes
	flushes    singleflight.Group
}

// Open opens the index stored at path, creating an empty one if the file does
// not exist. See OpenContext.
func Open(path string, optFns ...Option) (*Index, error) {
	return OpenContext(context.Background(), path, optFns...)
}

// OpenContext opens the index stored at path. ctx bounds the restore from a
// mirror, if one is attempted.
//
// A file whose dimension or capacity differs from the configured values is
// rejected with *ErrCorruptIndex. The construction parameters stored in the
// file win over configured ones.
func OpenContext(ctx context.Context, path string, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	if o.mirrorName == "" {
		o.mirrorName = filepath.Base(path)
	}

	idx := &Index{
		path:    path,
		opts:    o,
		logger:  o.logger.WithPath(path),
		metrics: o.metricsCollector,
		encoder: fingerprint.New(o.dimension),
		pace:    rate.Sometimes{Interval: o.flushInterval},
	}
	idx.store = persistence.NewStore(path,
		persistence.WithCompression(o.compression),
		persistence.WithFileSystem(o.fs),
		persistence.WithLogger(idx.logger.Logger),
	)

	if o.fileLock {
		if err := o.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &ErrPersistence{Op: "mkdir", Path: path, cause: err}
		}
		lock, err := fs.TryLock(o.fs, path+".lock")
		if errors.Is(err, fs.ErrLocked) {
			return nil, translateError(err)
		}
		if err != nil {
			return nil, &ErrPersistence{Op: "lock", Path: path + ".lock", cause: err}
		}
		idx.lock = lock
	}

	if err := idx.load(ctx); err != nil {
		_ = idx.lock.Unlock()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) load(ctx context.Context) error {
	exists, err := idx.store.Exists()
	if err != nil {
		return translateLoadError(idx.path, err)
	}
	if !exists && idx.opts.restoreFromMirror && len(idx.opts.mirrors) > 0 {
		restored, err := idx.restoreFromMirrors(ctx)
		if err != nil {
			return err
		}
		exists = restored
	}

	if !exists {
		g, err := hnsw.New(func(o *hnsw.Options) { *o = idx.opts.graphOptions() })
		if err != nil {
			return translateError(err)
		}
		idx.graph.Store(g)
		idx.logger.LogLoad(ctx, idx.path, 0, true, nil)
		return nil
	}

	var g *hnsw.Graph
	_, err = idx.store.Load(func(h persistence.Header, r io.Reader) error {
		var err error
		g, err = idx.decodeGraph(h, r)
		return err
	})
	if err != nil {
		err = translateLoadError(idx.path, err)
		idx.logger.LogLoad(ctx, idx.path, 0, false, err)
		return err
	}
	idx.graph.Store(g)
	idx.logger.LogLoad(ctx, idx.path, g.Len(), false, nil)
	return nil
}

// decodeGraph checks a header against the configuration and decodes the body.
func (idx *Index) decodeGraph(h persistence.Header, r io.Reader) (*hnsw.Graph, error) {
	o := idx.opts
	if int(h.Dimension) != o.dimension {
		return nil, &ErrCorruptIndex{Path: idx.path, Reason: fmt.Sprintf("file dimension %d, configured %d", h.Dimension, o.dimension)}
	}
	if int(h.Capacity) != o.capacity {
		return nil, &ErrCorruptIndex{Path: idx.path, Reason: fmt.Sprintf("file capacity %d, configured %d", h.Capacity, o.capacity)}
	}

	gopts := headerOptions(h, o.seed)
	if gopts.M != o.m || gopts.EFConstruction != o.efConstruction {
		idx.logger.Warn("construction parameters differ from the index file; using the file",
			"file_m", gopts.M, "m", o.m,
			"file_ef_construction", gopts.EFConstruction, "ef_construction", o.efConstruction)
	}
	if o.efSearchSet {
		gopts.EFSearch = o.efSearch
	}
	return hnsw.Decode(r, h.VectorEncoding, gopts)
}

func headerOptions(h persistence.Header, seed *int64) hnsw.Options {
	return hnsw.Options{
		Dimension:      int(h.Dimension),
		Capacity:       int(h.Capacity),
		M:              int(h.M),
		EFConstruction: int(h.EFConstruction),
		EFSearch:       int(h.EFSearch),
		RandomSeed:     seed,
	}
}

// Path returns the index file path.
func (idx *Index) Path() string { return idx.path }

// Dimension returns the fingerprint length.
func (idx *Index) Dimension() int { return idx.opts.dimension }

// Len returns the number of live items.
func (idx *Index) Len() int { return idx.graph.Load().Len() }

// Contains reports whether id is live.
func (idx *Index) Contains(id uint64) bool { return idx.graph.Load().Contains(id) }

// IDs returns the live ids in ascending order.
func (idx *Index) IDs() []uint64 { return idx.graph.Load().IDs() }

// Vector returns a copy of the fingerprint vector stored for id.
func (idx *Index) Vector(id uint64) ([]float32, bool) { return idx.graph.Load().Vector(id) }

// Add encodes hash and inserts it under id.
func (idx *Index) Add(ctx context.Context, id uint64, hash string) error {
	vec, err := idx.encoder.Encode(hash)
	if err != nil {
		err = translateError(err)
		idx.logger.LogAdd(ctx, id, err)
		idx.metrics.RecordAdd(1, 0, err)
		return err
	}
	return idx.addVector(ctx, id, vec)
}

// AddVector inserts a fingerprint vector under id.
func (idx *Index) AddVector(ctx context.Context, id uint64, vec []float32) error {
	if err := idx.checkVector(vec); err != nil {
		idx.logger.LogAdd(ctx, id, err)
		idx.metrics.RecordAdd(1, 0, err)
		return err
	}
	return idx.addVector(ctx, id, vec)
}

func (idx *Index) addVector(ctx context.Context, id uint64, vec []float32) error {
	start := time.Now()
	err := idx.mutate(ctx, func(t *hnsw.Txn) error { return t.Insert(id, vec) })
	idx.logger.LogAdd(ctx, id, err)
	idx.metrics.RecordAdd(1, time.Since(start), err)
	return err
}

// AddBatch inserts all items in one transaction with a single write.
// If any item fails, none is added.
func (idx *Index) AddBatch(ctx context.Context, items []Item) error {
	start := time.Now()
	vecs := make([][]float32, len(items))
	var err error
	for i, it := range items {
		if it.Vector != nil {
			err = idx.checkVector(it.Vector)
			vecs[i] = it.Vector
		} else {
			vecs[i], err = idx.encoder.Encode(it.Hash)
			err = translateError(err)
		}
		if err != nil {
			err = fmt.Errorf("item %d (id %d): %w", i, it.ID, err)
			break
		}
	}
	if err == nil && len(items) > 0 {
		err = idx.mutate(ctx, func(t *hnsw.Txn) error {
			for i, it := range items {
				if err := t.Insert(it.ID, vecs[i]); err != nil {
					return fmt.Errorf("item %d (id %d): %w", i, it.ID, err)
				}
			}
			return nil
		})
	}
	idx.logger.LogBatchAdd(ctx, len(items), err)
	idx.metrics.RecordAdd(len(items), time.Since(start), err)
	return err
}

// Replace encodes hash and stores it as the fingerprint of id. An absent id
// is added.
func (idx *Index) Replace(ctx context.Context, id uint64, hash string) error {
	vec, err := idx.encoder.Encode(hash)
	if err != nil {
		err = translateError(err)
		idx.logger.LogReplace(ctx, id, err)
		idx.metrics.RecordReplace(0, err)
		return err
	}
	return idx.replaceVector(ctx, id, vec)
}

// ReplaceVector stores vec as the fingerprint of id. An absent id is added.
func (idx *Index) ReplaceVector(ctx context.Context, id uint64, vec []float32) error {
	if err := idx.checkVector(vec); err != nil {
		idx.logger.LogReplace(ctx, id, err)
		idx.metrics.RecordReplace(0, err)
		return err
	}
	return idx.replaceVector(ctx, id, vec)
}

func (idx *Index) replaceVector(ctx context.Context, id uint64, vec []float32) error {
	start := time.Now()
	err := idx.mutate(ctx, func(t *hnsw.Txn) error { return t.Replace(id, vec) })
	idx.logger.LogReplace(ctx, id, err)
	idx.metrics.RecordReplace(time.Since(start), err)
	return err
}

// Remove deletes id. It reports whether id was live; removing an absent id
// succeeds without writing.
func (idx *Index) Remove(ctx context.Context, id uint64) (bool, error) {
	start := time.Now()
	var removed bool
	err := idx.mutate(ctx, func(t *hnsw.Txn) error {
		var err error
		removed, err = t.Remove(id)
		return err
	})
	if err != nil {
		removed = false
	}
	idx.logger.LogRemove(ctx, id, removed, err)
	idx.metrics.RecordRemove(removed, time.Since(start), err)
	return removed, err
}

// checkVector validates a caller-supplied vector.
func (idx *Index) checkVector(vec []float32) error {
	if len(vec) != idx.opts.dimension {
		return &ErrDimensionMismatch{Expected: idx.opts.dimension, Actual: len(vec)}
	}
	_, err := idx.encoder.FromVector(vec)
	return translateError(err)
}

// mutate runs fn in a graph transaction and makes the result durable.
//
// In PersistSync mode the transaction is published before the write so that
// searches proceed during disk I/O, and rolled back if the write fails.
func (idx *Index) mutate(ctx context.Context, fn func(*hnsw.Txn) error) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if idx.closed.Load() {
		return ErrClosed
	}

	g := idx.graph.Load()
	t := g.Begin()
	if err := fn(t); err != nil {
		t.Rollback()
		return translateError(err)
	}
	if t.Mutations() == 0 {
		t.Commit()
		return nil
	}

	if idx.opts.persistMode == PersistDeferred {
		t.Commit()
		idx.dirty.Store(true)
		idx.pace.Do(func() { idx.flushLocked(ctx) })
	} else {
		t.Publish()
		if err := idx.persistLocked(ctx, g); err != nil {
			t.Rollback()
			return err
		}
		t.Commit()
	}

	idx.maybeCompactLocked(ctx)
	return nil
}

// persistLocked writes g to the index file and copies it to the mirrors.
// Mirror failures are logged and counted only.
func (idx *Index) persistLocked(ctx context.Context, g *hnsw.Graph) error {
	data, err := idx.writeLocked(ctx, g)
	if err != nil {
		return err
	}
	_ = idx.mirror(ctx, data)
	return nil
}

// writeLocked atomically replaces the index file with g and returns the bytes written.
func (idx *Index) writeLocked(ctx context.Context, g *hnsw.Graph) ([]byte, error) {
	start := time.Now()
	data, err := idx.store.Save(idx.header(g), func(w io.Writer) error {
		return g.Encode(w, idx.opts.vectorEncoding)
	})
	idx.metrics.RecordPersist(len(data), time.Since(start), err)
	if err != nil {
		err = &ErrPersistence{Op: "save", Path: idx.path, cause: err}
		idx.logger.LogPersist(ctx, idx.path, 0, err)
		return nil, err
	}
	idx.logger.LogPersist(ctx, idx.path, len(data), nil)
	idx.dirty.Store(false)
	idx.pendingErr = nil
	return data, nil
}

// flushLocked is the deferred-mode write. Failures are kept for Flush.
func (idx *Index) flushLocked(ctx context.Context) {
	if !idx.dirty.Load() {
		return
	}
	if err := idx.persistLocked(ctx, idx.graph.Load()); err != nil {
		idx.pendingErr = err
	}
}

func (idx *Index) header(g *hnsw.Graph) persistence.Header {
	o := g.Options()
	return persistence.Header{
		Dimension:      uint32(o.Dimension),
		Capacity:       uint32(o.Capacity),
		M:              uint32(o.M),
		EFConstruction: uint32(o.EFConstruction),
		EFSearch:       uint32(o.EFSearch),
		VectorEncoding: idx.opts.vectorEncoding,
	}
}

// Search returns up to k items nearest to vec, ascending by squared Euclidean
// distance with ties broken by smaller id.
func (idx *Index) Search(ctx context.Context, vec []float32, k int) ([]Match, error) {
	start := time.Now()
	matches, err := idx.search(vec, k)
	idx.logger.LogSearch(ctx, k, len(matches), err)
	idx.metrics.RecordSearch(k, time.Since(start), err)
	return matches, err
}

func (idx *Index) search(vec []float32, k int) ([]Match, error) {
	if idx.closed.Load() {
		return nil, ErrClosed
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := idx.checkVector(vec); err != nil {
		return nil, err
	}
	res, err := idx.graph.Load().Search(vec, k)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]Match, len(res))
	for i, r := range res {
		out[i] = Match{ID: r.ID, Distance: r.Distance}
	}
	return out, nil
}

// SearchHash encodes hash and searches for its k nearest items.
func (idx *Index) SearchHash(ctx context.Context, hash string, k int) ([]Match, error) {
	vec, err := idx.encoder.Encode(hash)
	if err != nil {
		err = translateError(err)
		idx.logger.LogSearch(ctx, k, 0, err)
		idx.metrics.RecordSearch(k, 0, err)
		return nil, err
	}
	return idx.Search(ctx, vec, k)
}

// Query returns the DefaultQueryK items nearest to hash.
func (idx *Index) Query(ctx context.Context, hash string) ([]Match, error) {
	return idx.SearchHash(ctx, hash, DefaultQueryK)
}

// Flush writes pending deferred mutations. In PersistSync mode there is
// nothing pending and Flush returns nil. Concurrent calls share one write.
func (idx *Index) Flush(ctx context.Context) error {
	_, err, _ := idx.flushes.Do("flush", func() (any, error) {
		idx.writeMu.Lock()
		defer idx.writeMu.Unlock()
		if idx.closed.Load() {
			return nil, ErrClosed
		}
		idx.flushLocked(ctx)
		return nil, idx.pendingErr
	})
	return err
}

// Backup copies the current index file to every mirror and reports the
// combined upload errors.
func (idx *Index) Backup(ctx context.Context) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if idx.closed.Load() {
		return ErrClosed
	}
	if len(idx.opts.mirrors) == 0 {
		return ErrNoMirror
	}

	exists, err := idx.store.Exists()
	if err != nil {
		return &ErrPersistence{Op: "stat", Path: idx.path, cause: err}
	}
	var data []byte
	if idx.dirty.Load() || !exists {
		data, err = idx.writeLocked(ctx, idx.graph.Load())
	} else {
		data, err = idx.store.ReadRaw()
		err = translateLoadError(idx.path, err)
	}
	if err != nil {
		return err
	}
	return idx.mirror(ctx, data)
}

// Compact rebuilds the graph without tombstones. The new graph replaces the
// current one only after it has been written.
func (idx *Index) Compact(ctx context.Context) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if idx.closed.Load() {
		return ErrClosed
	}
	return idx.compactLocked(ctx)
}

func (idx *Index) compactLocked(ctx context.Context) error {
	start := time.Now()
	old := idx.graph.Load()
	reclaimed := old.Tombstoned()

	ng := old.Compact()
	err := idx.persistLocked(ctx, ng)
	if err == nil {
		idx.graph.Store(ng)
	}
	idx.logger.LogCompact(ctx, reclaimed, err)
	idx.metrics.RecordCompact(reclaimed, time.Since(start), err)
	return err
}

func (idx *Index) maybeCompactLocked(ctx context.Context) {
	ratio := idx.opts.compactRatio
	if ratio <= 0 {
		return
	}
	g := idx.graph.Load()
	slots := g.Slots()
	if slots == 0 || float64(g.Tombstoned())/float64(slots) < ratio {
		return
	}
	// The mutation is already durable; a failed compaction only keeps the tombstones.
	_ = idx.compactLocked(ctx)
}

// Close writes pending deferred mutations and releases the writer lock.
// Every operation after Close returns ErrClosed. Closing twice is a no-op.
func (idx *Index) Close() error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if !idx.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if idx.dirty.Load() {
		err = idx.persistLocked(context.Background(), idx.graph.Load())
	}
	if uerr := idx.lock.Unlock(); uerr != nil {
		err = errors.Join(err, &ErrPersistence{Op: "unlock", Path: idx.lock.Path(), cause: uerr})
	}
	return err
}

// LevelStats describes one graph layer.
type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
}

// Stats describes the index.
type Stats struct {
	Path           string
	Dimension      int
	Capacity       int
	M              int
	EFConstruction int
	EFSearch       int
	Live           int
	Tombstoned     int
	Slots          int
	MaxLevel       int
	EntryID        uint64
	HasEntry       bool
	Levels         []LevelStats
	PersistMode    string
	Dirty          bool
}

// TombstoneRatio returns the share of slots that are tombstoned.
func (s Stats) TombstoneRatio() float64 {
	if s.Slots == 0 {
		return 0
	}
	return math.Round(float64(s.Tombstoned)/float64(s.Slots)*1000) / 1000
}

// Stats returns structural statistics.
func (idx *Index) Stats() Stats {
	g := idx.graph.Load()
	gs := g.Stats()
	o := g.Options()

	st := Stats{
		Path:           idx.path,
		Dimension:      o.Dimension,
		Capacity:       o.Capacity,
		M:              o.M,
		EFConstruction: o.EFConstruction,
		EFSearch:       o.EFSearch,
		Live:           gs.Live,
		Tombstoned:     gs.Tombstoned,
		Slots:          gs.Slots,
		MaxLevel:       gs.MaxLevel,
		EntryID:        gs.EntryID,
		HasEntry:       gs.HasEntry,
		PersistMode:    idx.opts.persistMode.String(),
		Dirty:          idx.dirty.Load(),
	}
	for _, l := range gs.Levels {
		st.Levels = append(st.Levels, LevelStats(l))
	}
	return st
}

// Fingerprint returns the stored fingerprint of id as a '0'/'1' string.
func (idx *Index) Fingerprint(id uint64) (string, bool) {
	vec, ok := idx.Vector(id)
	if !ok {
		return "", false
	}
	return fingerprint.Decode(vec), true
}
