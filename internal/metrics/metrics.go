// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the click-recording pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method and status code.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "status"},
	)

	// Request duration in seconds partitioned by method and status code.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	// ClicksEnqueued counts click events accepted onto the recording queue.
	ClicksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_events_enqueued_total",
		Help: "Click events accepted onto the recording queue",
	})

	// ClicksDropped counts click events dropped because the queue was full.
	ClicksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_events_dropped_total",
		Help: "Click events dropped because the recording queue was full",
	})

	// ClicksRecorded counts click events durably persisted.
	ClicksRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_events_recorded_total",
		Help: "Click events persisted to the event store",
	})

	// ClickRecordFailures counts click events that failed to persist.
	ClickRecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_events_record_failures_total",
		Help: "Click events that could not be persisted",
	})

	// GeoLookupFailures counts geolocation lookups that returned no result.
	GeoLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geo_lookup_failures_total",
		Help: "Geolocation lookups that failed or timed out",
	})
)

// HTTP is a middleware that records request counts and latencies.
// Labels are kept low-cardinality: method and status only, since the
// redirect route embeds arbitrary short codes in the path.
func HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"status": strconv.Itoa(wrapped.status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
