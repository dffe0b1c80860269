// Package httpapi is the HTTP transport for spec.md §6: a single
// multipart/form-data endpoint wired through chi, the same router
// flightctl-flightctl composes its API servers with (chi.NewRouter +
// go-chi/chi/v5/middleware.RequestID/Recoverer + a request-size limiter),
// generalized here to this server's one-route, one-method surface.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/attestd/attestd/internal/metrics"
	"github.com/attestd/attestd/internal/orchestrator"
)

// Server serves the attestation endpoint.
type Server struct {
	orch            *orchestrator.Orchestrator
	log             logrus.FieldLogger
	maxRequestBytes int64
	maxPartBytes    int64
}

// New builds the chi-routed http.Handler for the attestation endpoint.
func New(orch *orchestrator.Orchestrator, log logrus.FieldLogger, maxRequestBytes, maxPartBytes int64) http.Handler {
	s := &Server{orch: orch, log: log, maxRequestBytes: maxRequestBytes, maxPartBytes: maxPartBytes}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		requestSizeLimiter(maxRequestBytes),
		loggingMiddleware(log),
	)
	r.Post("/", s.handleAttest)
	return r
}

// NewMetricsServer builds the separate internal handler that serves
// /metrics, kept off the attestation listener per spec.md §4.10.
func NewMetricsServer(handler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", handler)
	return r
}

func requestSizeLimiter(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
			}).Info("request handled")
		})
	}
}

func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RequestDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	req, err := parseMultipart(r, s.maxPartBytes)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp, err := s.orch.Handle(ctx, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Marshal())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	oerr, ok := err.(*orchestrator.Error)
	if !ok {
		metrics.RequestsTotal.WithLabelValues("internal").Inc()
		s.log.WithError(err).Error("unmapped orchestrator failure")
		http.Error(w, "INTERNAL", http.StatusInternalServerError)
		return
	}
	metrics.RequestsTotal.WithLabelValues(oerr.ReasonPhrase()).Inc()
	s.log.WithFields(logrus.Fields{
		"kind":   oerr.ReasonPhrase(),
		"detail": oerr.Detail,
	}).Warn("request rejected")
	http.Error(w, oerr.ReasonPhrase(), oerr.Status())
}

// readAllLimited guards against a part that lies about its own size.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit+1))
}
