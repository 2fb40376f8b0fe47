package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/asarangaram/clmediakit"
)

// StatsProvider reports the current index statistics.
// *clmediakit.Index satisfies it.
type StatsProvider interface {
	Stats() clmediakit.Stats
}

// Collector implements clmediakit.MetricsCollector with Prometheus metrics.
type Collector struct {
	reg       prometheus.Registerer
	namespace string

	operations *prometheus.CounterVec
	items      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	persisted  prometheus.Counter
	mirrors    *prometheus.CounterVec
	reclaimed  prometheus.Counter
}

var _ clmediakit.MetricsCollector = (*Collector)(nil)

// New creates a collector whose metrics are registered with reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		reg:       reg,
		namespace: namespace,
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of index operations",
		}, []string{"operation", "status"}),
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Total number of items added or removed",
		}, []string{"operation"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Index operation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		persisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_bytes_total",
			Help:      "Total bytes written to the index file",
		}),
		mirrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_uploads_total",
			Help:      "Total number of mirror uploads",
		}, []string{"target", "status"}),
		reclaimed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_reclaimed_slots_total",
			Help:      "Total number of tombstoned slots dropped by compaction",
		}),
	}
}

// WatchIndex registers gauges that read the index statistics at scrape time.
func (c *Collector) WatchIndex(p StatsProvider) {
	f := promauto.With(c.reg)
	gauge := func(name, help string, value func(clmediakit.Stats) float64) {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return value(p.Stats()) })
	}
	gauge("live_items", "Number of live items in the index", func(s clmediakit.Stats) float64 { return float64(s.Live) })
	gauge("tombstoned_slots", "Number of tombstoned slots awaiting compaction", func(s clmediakit.Stats) float64 { return float64(s.Tombstoned) })
	gauge("capacity", "Maximum number of live items", func(s clmediakit.Stats) float64 { return float64(s.Capacity) })
	gauge("max_level", "Highest graph layer", func(s clmediakit.Stats) float64 { return float64(s.MaxLevel) })
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	c.operations.WithLabelValues(op, status(err)).Inc()
	if d > 0 {
		c.duration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// RecordAdd implements clmediakit.MetricsCollector.
func (c *Collector) RecordAdd(count int, d time.Duration, err error) {
	c.observe("add", d, err)
	if err == nil {
		c.items.WithLabelValues("add").Add(float64(count))
	}
}

// RecordReplace implements clmediakit.MetricsCollector.
func (c *Collector) RecordReplace(d time.Duration, err error) {
	c.observe("replace", d, err)
}

// RecordRemove implements clmediakit.MetricsCollector.
func (c *Collector) RecordRemove(removed bool, d time.Duration, err error) {
	c.observe("remove", d, err)
	if removed && err == nil {
		c.items.WithLabelValues("remove").Inc()
	}
}

// RecordSearch implements clmediakit.MetricsCollector.
func (c *Collector) RecordSearch(_ int, d time.Duration, err error) {
	c.observe("search", d, err)
}

// RecordPersist implements clmediakit.MetricsCollector.
func (c *Collector) RecordPersist(bytes int, d time.Duration, err error) {
	c.observe("persist", d, err)
	if err == nil {
		c.persisted.Add(float64(bytes))
	}
}

// RecordMirror implements clmediakit.MetricsCollector.
func (c *Collector) RecordMirror(target string, _ time.Duration, err error) {
	c.mirrors.WithLabelValues(target, status(err)).Inc()
}

// RecordCompact implements clmediakit.MetricsCollector.
func (c *Collector) RecordCompact(reclaimed int, d time.Duration, err error) {
	c.observe("compact", d, err)
	if err == nil {
		c.reclaimed.Add(float64(reclaimed))
	}
}
