package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

const namespace = "daily_quote"

// DomainMetrics exports quote and engagement counters to Prometheus.
// It implements ports.Metrics.
type DomainMetrics struct {
	quotesServed     *prometheus.CounterVec
	activities       *prometheus.CounterVec
	collectionOps    *prometheus.CounterVec
	storageErrors    *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	corpusSize       prometheus.Gauge
	corpusReloadTime prometheus.Histogram
}

// NewDomainMetrics registers the domain collectors with reg.
// Passing prometheus.DefaultRegisterer exposes them on /-/metrics.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	f := promauto.With(reg)

	return &DomainMetrics{
		quotesServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_served_total",
			Help:      "Daily and random quotes served, by origin (cache, selector, fallback, random).",
		}, []string{"origin"}),
		activities: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_recorded_total",
			Help:      "Engagement activities recorded, by kind.",
		}, []string{"kind"}),
		collectionOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_changes_total",
			Help:      "Quotes added to or removed from a collection.",
		}, []string{"collection", "added"}),
		storageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed or unreadable storage operations, by key.",
		}, []string{"key"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read-through cache lookups, by result.",
		}, []string{"result"}),
		corpusSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_quotes",
			Help:      "Quotes in the current corpus snapshot.",
		}),
		corpusReloadTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_reload_seconds",
			Help:      "Time taken to reload every corpus source.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// QuoteServed counts a served quote.
func (m *DomainMetrics) QuoteServed(origin string) {
	m.quotesServed.WithLabelValues(origin).Inc()
}

// ActivityRecorded counts a recorded activity.
func (m *DomainMetrics) ActivityRecorded(kind domain.ActivityKind) {
	m.activities.WithLabelValues(string(kind)).Inc()
}

// CollectionChanged counts an add or remove on a collection.
func (m *DomainMetrics) CollectionChanged(name domain.CollectionName, added bool) {
	m.collectionOps.WithLabelValues(string(name), strconv.FormatBool(added)).Inc()
}

// StorageError counts a storage failure against its key.
func (m *DomainMetrics) StorageError(key string) {
	m.storageErrors.WithLabelValues(key).Inc()
}

// CacheLookup counts a cache hit or miss.
func (m *DomainMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.cacheLookups.WithLabelValues(result).Inc()
}

// CorpusReloaded records the new corpus size and how long the reload took.
func (m *DomainMetrics) CorpusReloaded(size int, took time.Duration) {
	m.corpusSize.Set(float64(size))
	m.corpusReloadTime.Observe(took.Seconds())
}
