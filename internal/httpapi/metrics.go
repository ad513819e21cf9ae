package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sleepy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sleepy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sleepy",
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "HTTP requests currently being served",
		},
	)

	sseConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sleepy",
			Subsystem: "sse",
			Name:      "open_channels",
			Help:      "Currently open SSE channels",
		},
	)

	sseMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sleepy",
			Subsystem: "sse",
			Name:      "messages_total",
			Help:      "SSE messages emitted",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, sseConnections, sseMessagesTotal)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
// Flush passes through so SSE keeps working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// metricsMiddleware instruments requests for Prometheus and feeds the
// per-path visit counters behind /api/metrics.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()
		next.ServeHTTP(sr, r)
		statusLabel := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
		if s.Cfg.Metrics.Enabled {
			s.visits.record(r.URL.Path)
		}
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// visitRecorder keeps plain per-path visit counts for the JSON /api/metrics
// endpoint. Reads never bump the store marker.
type visitRecorder struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newVisitRecorder() *visitRecorder {
	return &visitRecorder{counts: make(map[string]uint64)}
}

func (v *visitRecorder) record(path string) {
	v.mu.Lock()
	v.counts[path]++
	v.mu.Unlock()
}

func (v *visitRecorder) snapshot() map[string]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]uint64, len(v.counts))
	for k, n := range v.counts {
		out[k] = n
	}
	return out
}
