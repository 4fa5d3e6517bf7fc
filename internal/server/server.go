// Package server exposes the question-answering pipeline over HTTP:
// POST /ask, POST /search, GET /healthz, and GET /metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjhuskey/copticqa/internal/config"
	"github.com/sjhuskey/copticqa/pkg/graph"
	"github.com/sjhuskey/copticqa/pkg/qa"
	"github.com/sjhuskey/copticqa/pkg/schema"
)

// Server serves the QA pipeline over HTTP.
type Server struct {
	session *qa.Session
	graph   *graph.Graph
	digest  *schema.Digest
	cfg     *config.Config
	logger  *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics

	httpServer *http.Server
}

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	outcomesTotal   *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "copticqa",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "copticqa",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "copticqa",
				Subsystem: "pipeline",
				Name:      "outcomes_total",
				Help:      "Pipeline outcomes by kind",
			},
			[]string{"kind"},
		),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.outcomesTotal)
	return m
}

// New assembles a server over an already-loaded graph.
func New(session *qa.Session, g *graph.Graph, digest *schema.Digest, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		session:  session,
		graph:    g,
		digest:   digest,
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  newMetrics(registry),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.instrument("ask", s.handleAsk))
	mux.HandleFunc("POST /search", s.instrument("search", s.handleSearch))
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealthz))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns each request an ID and records duration and status
// metrics.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next(recorder, r.WithContext(withRequestID(r.Context(), requestID)))

		duration := time.Since(start)
		s.metrics.requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", recorder.status)).Inc()
		s.metrics.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
		s.logger.Info("request handled",
			"request_id", requestID,
			"endpoint", endpoint,
			"status", recorder.status,
			"duration", duration)
	}
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID retrieves the request ID the middleware attached, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty question field")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AskTimeout)
	defer cancel()

	outcome, published := s.session.Ask(ctx, req.Question)
	s.metrics.outcomesTotal.WithLabelValues(outcome.Kind.String()).Inc()

	writeJSON(w, statusFor(outcome), newAnswerResponse(outcome, published, s.digest, RequestID(r.Context())))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Term == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty term field")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SearchTimeout)
	defer cancel()

	outcome, published := s.session.Search(ctx, req.Term)
	s.metrics.outcomesTotal.WithLabelValues(outcome.Kind.String()).Inc()

	writeJSON(w, statusFor(outcome), newAnswerResponse(outcome, published, s.digest, RequestID(r.Context())))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	count, err := s.graph.Count()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("store unavailable: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"triples": count,
	})
}

// statusFor maps outcome kinds onto HTTP statuses. Empty results are a
// successful response, not an error.
func statusFor(outcome *qa.Outcome) int {
	switch outcome.Kind {
	case qa.OutcomeAnswered, qa.OutcomeNoResults:
		return http.StatusOK
	case qa.OutcomeTranslationFailed, qa.OutcomeQueryInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
