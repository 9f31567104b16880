// Package metrics holds the prometheus collectors for the write path,
// admission, queries and the media result cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every mediadb collector. Collectors are registered on the
// Registerer passed to New, so tests can use a fresh registry.
type Metrics struct {
	Imports         *prometheus.CounterVec
	ContentUpdates  *prometheus.CounterVec
	WriteJobs       *prometheus.CounterVec
	WriteQueueDepth prometheus.Gauge
	QueryDuration   *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Imports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadb_imports_total",
				Help: "File admissions by resulting status.",
			},
			[]string{"status"},
		),
		ContentUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadb_content_updates_total",
				Help: "Content updates committed, by content type and action.",
			},
			[]string{"type", "action"},
		),
		WriteJobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediadb_write_jobs_total",
				Help: "Jobs run by the write queue, by job name and result.",
			},
			[]string{"job", "result"},
		),
		WriteQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "mediadb_write_queue_depth",
			Help: "Jobs waiting in the write queue.",
		}),
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediadb_query_duration_seconds",
				Help:    "Read query duration in seconds, by kind.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "mediadb_media_cache_hits_total",
			Help: "Media result cache hits.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "mediadb_media_cache_misses_total",
			Help: "Media result cache misses.",
		}),
	}
}

// NewNop creates collectors registered nowhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
