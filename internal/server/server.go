// Package server exposes ingestion, lookup and setup over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
)

const defaultMaxUpload = 20 << 20

// Queue accepts runs and answers for their state.
type Queue interface {
	Enqueue(ctx context.Context, src pipeline.Source, sink pipeline.ProgressSink) (*pipeline.Run, error)
	Get(id uuid.UUID) (*pipeline.Run, bool)
}

type Server struct {
	repo      repository.AllocationRepository
	queue     Queue
	logger    *slog.Logger
	origins   []string
	maxUpload int64
	gatherer  prometheus.Gatherer
}

type Option func(*Server)

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithGatherer selects the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func New(repo repository.AllocationRepository, queue Queue, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		repo:      repo,
		queue:     queue,
		logger:    logger,
		origins:   []string{"*"},
		maxUpload: defaultMaxUpload,
		gatherer:  prometheus.DefaultGatherer,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed API wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/uploads", s.handleUpload)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)

	mux.HandleFunc("GET /api/setup", s.handleSetupStatus)
	mux.HandleFunc("POST /api/setup", s.handleProvision)

	mux.HandleFunc("GET /api/allocations", s.handleList)
	mux.HandleFunc("GET /api/allocations/{register_number}", s.handleLookup)
	mux.HandleFunc("GET /api/template", s.handleTemplate)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Location", "X-Request-ID"},
	})
	return c.Handler(s.logRequests(mux))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(common.WithRequestID(r.Context(), id)))

		s.logger.Info("http.request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	body := errorBody{Error: err.Error()}
	var ae *common.AppError
	if errors.As(err, &ae) {
		body.Code = ae.Code
		body.Stage = ae.Stage
		body.Error = ae.Message
	}
	if status >= http.StatusInternalServerError {
		common.LoggerFrom(r.Context(), s.logger).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
