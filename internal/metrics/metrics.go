// Package metrics declares the Prometheus collectors for the service and an
// HTTP middleware that feeds the request collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog
	CatalogTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_tracks",
			Help: "Number of tracks currently in the catalog",
		},
	)

	CatalogMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Catalog mutations by operation",
		},
		[]string{"operation"}, // add, update, delete, load
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_search_queries_total",
			Help: "Total number of catalog searches",
		},
	)

	// Best-effort collaborators; failures never surface to callers.
	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_persist_failures_total",
			Help: "Failed writes to the catalog store",
		},
		[]string{"backend"},
	)

	MediaCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_media_cleanup_failures_total",
			Help: "Media files that could not be removed",
		},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_event_publish_failures_total",
			Help: "Catalog events that could not be published",
		},
	)

	// Playback
	PlaybackOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_operations_total",
			Help: "Per-user playback operations",
		},
		[]string{"operation"},
	)

	// Realtime
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Currently connected websocket clients",
		},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)
)

func RecordAPIRequest(method, endpoint string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// Middleware records request count and latency labelled by the chi route
// pattern, so /api/songs/1 and /api/songs/2 share one series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status == http.StatusTooManyRequests {
			APIRateLimitHits.WithLabelValues(endpoint).Inc()
		}
		RecordAPIRequest(r.Method, endpoint, status, time.Since(start))
	})
}
