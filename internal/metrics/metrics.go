// Package metrics exposes the Prometheus collectors of the crawl and the
// consumer, plus a small timer helper for histograms.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scraper metrics
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiders_pages_fetched_total",
			Help: "EDGAR pages fetched by report kind and HTTP status",
		},
		[]string{"kind", "status"},
	)

	FetchDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiders_fetch_dropped_total",
			Help: "CIKs dropped from a batch by failure or timeout",
		},
		[]string{"kind"},
	)

	// Pipeline metrics
	ChunksDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "insiders_chunks_dispatched_total",
			Help: "Chunks published to the work queue",
		},
	)

	ChunksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "insiders_chunks_skipped_total",
			Help: "Deliveries skipped because the chunk was already processed",
		},
	)

	RecordsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiders_records_persisted_total",
			Help: "Records written to the store by kind",
		},
		[]string{"kind"},
	)

	FindingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "insiders_findings_total",
			Help: "Cluster-buying findings reported",
		},
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insiders_batch_duration_seconds",
			Help:    "Duration of a concurrent fetch batch",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(PagesFetched)
	prometheus.MustRegister(FetchDropped)
	prometheus.MustRegister(ChunksDispatched)
	prometheus.MustRegister(ChunksSkipped)
	prometheus.MustRegister(RecordsPersisted)
	prometheus.MustRegister(FindingsTotal)
	prometheus.MustRegister(BatchDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDurationVec records the elapsed seconds under the given labels.
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
