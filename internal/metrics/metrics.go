// Package metrics exposes Prometheus collectors for the goldpan pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal  *prometheus.CounterVec
	lookupChunksTotal   *prometheus.CounterVec
	batchItemsTotal     *prometheus.CounterVec
	pacingDelaySeconds  prometheus.Histogram
	enrichmentOmissions prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpan_fetch_requests_total",
				Help: "Total upstream requests, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		)

		lookupChunksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpan_lookup_chunks_total",
				Help: "Total lookup chunks issued, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		batchItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpan_batch_items_total",
				Help: "Total batch items reaching a terminal status.",
			},
			[]string{"status"},
		)

		pacingDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "goldpan_pacing_delay_seconds",
				Help:    "Histogram of inter-item pacing waits.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		enrichmentOmissions = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldpan_enrichment_omissions_total",
				Help: "Ranked identifiers for which enrichment returned no metadata.",
			},
		)
	})
}

// ObserveFetch increments the upstream request counter.
func ObserveFetch(endpoint, outcome string) {
	if fetchRequestsTotal != nil {
		fetchRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}
}

// ObserveLookupChunk increments the lookup chunk counter.
func ObserveLookupChunk(outcome string) {
	if lookupChunksTotal != nil {
		lookupChunksTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveBatchItem counts a batch item reaching a terminal status.
func ObserveBatchItem(status string) {
	if batchItemsTotal != nil {
		batchItemsTotal.WithLabelValues(status).Inc()
	}
}

// ObservePacingDelay records the duration of a pacing wait.
func ObservePacingDelay(d time.Duration) {
	if pacingDelaySeconds != nil {
		pacingDelaySeconds.Observe(d.Seconds())
	}
}

// ObserveOmissions adds to the enrichment omission counter.
func ObserveOmissions(n int) {
	if enrichmentOmissions != nil && n > 0 {
		enrichmentOmissions.Add(float64(n))
	}
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
