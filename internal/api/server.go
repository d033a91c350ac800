// Package api exposes the analysis engine over HTTP: a blocking analyze
// endpoint, a server-sent-events stream, health, and usage counters.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/registrylens/registry-risk/internal/engine"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
	"github.com/registrylens/registry-risk/internal/usage"
	"github.com/registrylens/registry-risk/internal/utils"
)

// Analyzer runs company analyses. Implemented by engine.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, companyNumber string) (*models.CompanyReport, error)
	AnalyzeStream(ctx context.Context, companyNumber string) <-chan models.StreamMessage
}

// StatusSource reports registry client health figures. Implemented by
// registry.Client.
type StatusSource interface {
	Remaining() int
	CacheSize(ctx context.Context) int
}

// Server wires the engine and its supporting services to HTTP routes.
type Server struct {
	analyzer Analyzer
	status   StatusSource
	tracker  usage.Tracker
	latency  *utils.LatencyTracker
	logger   *slog.Logger
}

// NewServer constructs the HTTP adapter.
func NewServer(analyzer Analyzer, status StatusSource, tracker usage.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		analyzer: analyzer,
		status:   status,
		tracker:  tracker,
		latency:  utils.NewLatencyTracker(256),
		logger:   logger,
	}
}

// Routes mounts all endpoints on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Post("/api/analyze/stream", s.handleAnalyzeStream)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/usage/{companyNumber}", s.handleUsage)
	return r
}

type analyzeRequest struct {
	CompanyNumber string `json:"company_number"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	companyNumber, ok := s.decodeCompanyNumber(w, r)
	if !ok {
		return
	}

	start := time.Now()
	report, err := s.analyzer.Analyze(r.Context(), companyNumber)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrCompanyNotFound):
			writeError(w, http.StatusNotFound, "Company not found")
		case errors.Is(err, registry.ErrUpstreamUnavailable):
			writeError(w, http.StatusBadGateway, "Registry unavailable, try again later")
		default:
			s.logger.Error("analysis failed",
				slog.String("company_number", companyNumber),
				slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "Analysis failed")
		}
		return
	}
	s.latency.Observe(time.Since(start))

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	companyNumber, ok := s.decodeCompanyNumber(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	for msg := range s.analyzer.AnalyzeStream(r.Context(), companyNumber) {
		payload, err := json.Marshal(msg)
		if err != nil {
			s.logger.Error("stream encode failed", slog.Any("error", err))
			continue
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			// Client went away; the engine drains on context cancellation.
			return
		}
		flusher.Flush()
	}
	s.latency.Observe(time.Since(start))
}

type healthResponse struct {
	Status             string  `json:"status"`
	RateLimitRemaining int     `json:"rate_limit_remaining"`
	CacheSize          int     `json:"cache_size"`
	AnalysisP95Seconds float64 `json:"analysis_p95_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:             "ok",
		RateLimitRemaining: s.status.Remaining(),
		CacheSize:          s.status.CacheSize(r.Context()),
		AnalysisP95Seconds: s.latency.Percentile(95).Seconds(),
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	companyNumber, err := ValidateCompanyNumber(chi.URLParam(r, "companyNumber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid company number")
		return
	}

	stats, err := s.tracker.Stats(r.Context(), companyNumber)
	if err != nil {
		s.logger.Error("usage lookup failed",
			slog.String("company_number", companyNumber),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Usage lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) decodeCompanyNumber(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	companyNumber, err := ValidateCompanyNumber(req.CompanyNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid company number")
		return "", false
	}
	return companyNumber, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
