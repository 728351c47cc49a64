// Package metrics provides Prometheus metrics for the document and thumbnail caches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Document cache
	documentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_document_cache_lookups_total",
			Help: "Document state cache lookups by result",
		},
		[]string{"result"},
	)

	documentLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_document_loads_total",
			Help: "Completed document loads by outcome",
		},
		[]string{"outcome"},
	)

	documentLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_document_load_duration_seconds",
			Help:    "Time spent reading and decoding documents",
			Buckets: prometheus.DefBuckets,
		},
	)

	documentViewFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_document_view_flushes_total",
			Help: "Debounced view state write-throughs",
		},
	)

	// Thumbnails
	thumbnailRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_thumbnail_requests_total",
			Help: "Thumbnail requests by cache result",
		},
		[]string{"result"},
	)

	thumbnailTiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_thumbnail_tier_total",
			Help: "Thumbnail generations by winning tier",
		},
		[]string{"tier"},
	)

	thumbnailTierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_thumbnail_tier_failures_total",
			Help: "Thumbnail tier failures",
		},
		[]string{"tier"},
	)

	thumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_thumbnail_cache_entries",
			Help: "Number of cached thumbnails",
		},
	)

	// Capabilities and access
	accessGuardsOutstanding = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_access_guards_outstanding",
			Help: "Scoped access guards currently held",
		},
	)

	accessAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_access_acquisitions_total",
			Help: "Scoped access acquisitions by source",
		},
		[]string{"source"},
	)

	capabilityStale = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_capability_stale_total",
			Help: "Capability tokens discarded as stale",
		},
		[]string{"scope"},
	)
)

// Handler returns the Prometheus metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Gatherer exposes the registry used by the promauto metrics.
func Gatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

// RecordDocumentLookup records a state cache lookup.
func RecordDocumentLookup(hit bool) {
	if hit {
		documentCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	documentCacheLookups.WithLabelValues("miss").Inc()
}

// RecordDocumentLoad records a finished load attempt.
func RecordDocumentLoad(outcome string, duration time.Duration) {
	documentLoads.WithLabelValues(outcome).Inc()
	documentLoadDuration.Observe(duration.Seconds())
}

// RecordViewFlush records a debounced write-through.
func RecordViewFlush() {
	documentViewFlushes.Inc()
}

// RecordThumbnailRequest records a thumbnail cache lookup.
func RecordThumbnailRequest(hit bool) {
	if hit {
		thumbnailRequests.WithLabelValues("hit").Inc()
		return
	}
	thumbnailRequests.WithLabelValues("miss").Inc()
}

// RecordThumbnailTier records the tier that produced a thumbnail.
func RecordThumbnailTier(tier string) {
	thumbnailTiers.WithLabelValues(tier).Inc()
}

// RecordThumbnailTierFailure records a failed tier attempt.
func RecordThumbnailTierFailure(tier string) {
	thumbnailTierFailures.WithLabelValues(tier).Inc()
}

// SetThumbnailCacheSize sets the current thumbnail cache size.
func SetThumbnailCacheSize(n int) {
	thumbnailCacheSize.Set(float64(n))
}

// SetGuardsOutstanding sets the number of held access guards.
func SetGuardsOutstanding(n int64) {
	accessGuardsOutstanding.Set(float64(n))
}

// RecordAccess records how a guard was obtained.
func RecordAccess(source string) {
	accessAcquisitions.WithLabelValues(source).Inc()
}

// RecordStaleCapability records a discarded stale token.
func RecordStaleCapability(scope string) {
	capabilityStale.WithLabelValues(scope).Inc()
}
