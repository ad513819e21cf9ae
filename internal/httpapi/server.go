package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/internal/config"
	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/internal/store"
)

// maxBodyBytes limits request bodies on JSON endpoints.
const maxBodyBytes int64 = 1 << 20

// Server bundles what the handlers need. Constructed once at startup and
// passed around explicitly; there is no package-level state besides metrics.
type Server struct {
	Log     zerolog.Logger
	Store   *store.Store
	Bus     *event.Bus
	Cfg     config.Config
	Version string

	// Heartbeat cadence for SSE channels; zero means the 30s default.
	HeartbeatInterval time.Duration

	visits *visitRecorder
}

// NewMux builds the router. Plugin routes are mounted onto the returned
// router by the plugin registry before the server starts listening.
func (s *Server) NewMux() chi.Router {
	if s.visits == nil {
		s.visits = newVisitRecorder()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if s.Cfg.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.Cfg.CORS.AllowedOrigins,
			AllowedMethods: s.Cfg.CORS.AllowedMethods,
			AllowedHeaders: s.Cfg.CORS.AllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Sleepy-Version", s.Version)
			next.ServeHTTP(w, r)
		})
	})
	r.Use(s.metricsMiddleware)
	r.Use(s.accessLog)

	r.Get("/api/status/query", s.handleQuery)
	r.Get("/api/status/list", s.handleStatusList)
	r.Get("/api/status/events", s.handleEvents)
	r.Group(func(r chi.Router) {
		r.Use(s.requireSecret)
		r.Get("/api/status/set", s.handleStatusSet)
		r.Get("/api/device/set", s.handleDeviceSetGET)
		r.Post("/api/device/set", s.handleDeviceSetPOST)
		r.Get("/api/device/remove", s.handleDeviceRemove)
		r.Get("/api/device/clear", s.handleDeviceClear)
		r.Get("/api/device/private", s.handleDevicePrivate)
	})

	r.Get("/api/meta", s.handleMeta)
	r.Get("/api/metrics", s.handleMetrics)

	r.Get("/none", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// accessLog writes one structured line per request, the way the original
// daemon logged "[Request] ip | path -> status (ms)".
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		s.Log.Info().
			Str("ip", r.RemoteAddr).
			Str("path", r.URL.Path).
			Int("status", sr.status).
			Dur("dur", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
