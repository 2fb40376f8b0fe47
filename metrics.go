package clmediakit

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// promcollector package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each Add or AddBatch. count is the number
	// of items in the call.
	RecordAdd(count int, duration time.Duration, err error)

	// RecordReplace is called after each replace operation.
	RecordReplace(duration time.Duration, err error)

	// RecordRemove is called after each remove operation.
	RecordRemove(removed bool, duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordPersist is called after each write of the index file.
	RecordPersist(bytes int, duration time.Duration, err error)

	// RecordMirror is called after each upload to a mirror.
	RecordMirror(target string, duration time.Duration, err error)

	// RecordCompact is called after each compaction. reclaimed is the number
	// of tombstoned slots dropped.
	RecordCompact(reclaimed int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordReplace(time.Duration, error)        {}
func (NoopMetricsCollector) RecordRemove(bool, time.Duration, error)   {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordPersist(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordMirror(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordCompact(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount          atomic.Int64
	AddItems          atomic.Int64
	AddErrors         atomic.Int64
	ReplaceCount      atomic.Int64
	ReplaceErrors     atomic.Int64
	RemoveCount       atomic.Int64
	RemoveHits        atomic.Int64
	RemoveErrors      atomic.Int64
	SearchCount       atomic.Int64
	SearchErrors      atomic.Int64
	SearchTotalNanos  atomic.Int64
	PersistCount      atomic.Int64
	PersistErrors     atomic.Int64
	PersistBytes      atomic.Int64
	PersistTotalNanos atomic.Int64
	MirrorCount       atomic.Int64
	MirrorErrors      atomic.Int64
	CompactCount      atomic.Int64
	CompactReclaimed  atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(count int, _ time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	b.AddItems.Add(int64(count))
}

// RecordReplace implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReplace(_ time.Duration, err error) {
	b.ReplaceCount.Add(1)
	if err != nil {
		b.ReplaceErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(removed bool, _ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
		return
	}
	if removed {
		b.RemoveHits.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(bytes int, duration time.Duration, err error) {
	b.PersistCount.Add(1)
	b.PersistTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PersistErrors.Add(1)
		return
	}
	b.PersistBytes.Add(int64(bytes))
}

// RecordMirror implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMirror(_ string, _ time.Duration, err error) {
	b.MirrorCount.Add(1)
	if err != nil {
		b.MirrorErrors.Add(1)
	}
}

// RecordCompact implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompact(reclaimed int, _ time.Duration, err error) {
	b.CompactCount.Add(1)
	if err == nil {
		b.CompactReclaimed.Add(int64(reclaimed))
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:         b.AddCount.Load(),
		AddItems:         b.AddItems.Load(),
		AddErrors:        b.AddErrors.Load(),
		ReplaceCount:     b.ReplaceCount.Load(),
		ReplaceErrors:    b.ReplaceErrors.Load(),
		RemoveCount:      b.RemoveCount.Load(),
		RemoveHits:       b.RemoveHits.Load(),
		RemoveErrors:     b.RemoveErrors.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		PersistCount:     b.PersistCount.Load(),
		PersistErrors:    b.PersistErrors.Load(),
		PersistBytes:     b.PersistBytes.Load(),
		PersistAvgNanos:  avg(b.PersistTotalNanos.Load(), b.PersistCount.Load()),
		MirrorCount:      b.MirrorCount.Load(),
		MirrorErrors:     b.MirrorErrors.Load(),
		CompactCount:     b.CompactCount.Load(),
		CompactReclaimed: b.CompactReclaimed.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount         int64
	AddItems         int64
	AddErrors        int64
	ReplaceCount     int64
	ReplaceErrors    int64
	RemoveCount      int64
	RemoveHits       int64
	RemoveErrors     int64
	SearchCount      int64
	SearchErrors     int64
	SearchAvgNanos   int64
	PersistCount     int64
	PersistErrors    int64
	PersistBytes     int64
	PersistAvgNanos  int64
	MirrorCount      int64
	MirrorErrors     int64
	CompactCount     int64
	CompactReclaimed int64
}
