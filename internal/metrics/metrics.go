// Package metrics provides Prometheus instrumentation for the oddsboard
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollsTotal counts poll cycles by outcome: ok, stale, error, superseded.
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsboard_polls_total",
		Help: "Total market poll cycles by outcome",
	}, []string{"result"})

	// PollDuration tracks the duration of a full poll fan-out.
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsboard_poll_duration_seconds",
		Help:    "Market poll cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveSessions tracks the number of live overlay sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oddsboard_active_sessions",
		Help: "Number of live overlay sessions",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oddsboard_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsboard_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oddsboard_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// UpstreamRequestsTotal counts Kalshi API calls by resource and outcome.
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsboard_upstream_requests_total",
		Help: "Total upstream Kalshi API requests",
	}, []string{"resource", "outcome"})

	// CacheHitsTotal counts response cache lookups by result.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsboard_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics. The
// path label uses the route pattern registered on the mux, not the raw URL,
// to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
