package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/pkg/api/handlers"
	"github.com/marmos91/iscsiprobe/pkg/metrics"
)

// NewRouter mounts the watch mode endpoints:
//
//	GET /health        liveness
//	GET /health/ready  200 only while the latest run passed
//	GET /report        latest report as JSON
//	GET /metrics       Prometheus exposition, when metrics are enabled
func NewRouter(source handlers.ReportSource) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(source)
	reportHandler := handlers.NewReportHandler(source)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/report", reportHandler.Get)

	if reg := metrics.GetRegistry(); reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry: reg,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusNotFound, handlers.ErrorResponse("not found"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs every request at DEBUG. Scrapers poll these
// endpoints constantly.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("API request",
			"request_id", requestID,
			logger.ClientAddr(r.RemoteAddr),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(logger.Duration(start)),
		)
	})
}
