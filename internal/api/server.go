// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/crossover/internal/api/handler/api"
	"github.com/newthinker/crossover/internal/alert"
	"github.com/newthinker/crossover/internal/api/job"
	"github.com/newthinker/crossover/internal/api/middleware"
	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/metrics"
	"github.com/newthinker/crossover/internal/notifier"
	"github.com/newthinker/crossover/internal/storage/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the crossover API
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
	cfg        Config
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MaxJobs     int
	JobTTL      time.Duration
	JobTimeout  time.Duration
	MetricsPath string // empty disables the metrics endpoint
}

// Dependencies holds the collaborators the handlers need.
type Dependencies struct {
	Sources   *collector.Registry
	Defaults  handler.Defaults
	Reports   *report.Store      // nil disables archiving
	Notifiers *notifier.Registry // nil disables notifications
	Alerts    []alert.Rule       // checked against every completed result
	Metrics   *metrics.Registry  // nil disables metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sources == nil {
		return nil, fmt.Errorf("no price sources configured")
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
		jobs:   job.NewStore(cfg.MaxJobs, cfg.JobTTL),
		cfg:    cfg,
	}

	// Request logging wraps everything; metrics sit inside it
	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes(deps)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(deps Dependencies) {
	opts := handler.BacktestOptions{
		Defaults:  deps.Defaults,
		Reports:   deps.Reports,
		Notifiers: deps.Notifiers,
		Alerts:    deps.Alerts,
		Logger:    s.logger,
		Timeout:   s.cfg.JobTimeout,
	}
	if deps.Metrics != nil {
		opts.Recorder = deps.Metrics
	}

	backtests := handler.NewBacktestHandler(s.jobs, deps.Sources, opts)
	evaluate := handler.NewEvaluateHandler()
	reports := handler.NewReportsHandler(deps.Reports)

	auth := middleware.APIKeyAuth(s.cfg.APIKey)
	protect := func(fn http.HandlerFunc) http.Handler {
		return auth(fn)
	}

	s.mux.Handle("POST /api/v1/backtest", protect(backtests.Create))
	s.mux.Handle("GET /api/v1/backtest/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
		backtests.GetStatus(w, r, r.PathValue("id"))
	}))
	s.mux.Handle("POST /api/v1/evaluate", protect(evaluate.Evaluate))
	s.mux.Handle("GET /api/v1/reports", protect(reports.List))
	s.mux.Handle("GET /api/v1/reports/{id}", protect(func(w http.ResponseWriter, r *http.Request) {
		reports.Get(w, r, r.PathValue("id"))
	}))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil && s.cfg.MetricsPath != "" {
		s.mux.Handle("GET "+s.cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server and the job cleanup loop. It blocks until
// the server stops.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.JobTTL > 0 {
		s.jobs.StartCleanup(ctx, s.cfg.JobTTL/2+time.Second)
	}

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
