// Package http exposes the expense tracker services as a JSON REST API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expenses/internal/log"
	"expenses/internal/middleware/cors"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/recovery"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the server.
type Options struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	// Logger defaults to slog.Default tagged with the http component.
	Logger *log.Logger
	// Ready backs /readyz. A nil Ready is always ready.
	Ready Pinger
}

type Server struct {
	http.Server
	svc      *services.Services
	ready    Pinger
	logger   *log.Logger
	errors   *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, svc *services.Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentHTTP})
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		ready:    opts.Ready,
		logger:   logger,
		errors:   log.NewStructuredLogger(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux, opts.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("GET /categories/summary", s.handleCategoryUsage)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /seed/categories-default", s.handleSeedCategories)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /labeling/unlabeled", s.handleListUnlabeled)
	mux.HandleFunc("POST /labeling/{id}", s.handleAssignCategory)

	mux.HandleFunc("GET /reports/summary", s.handleSummary)
	mux.HandleFunc("GET /reports/daily", s.handleDaily)

	mux.HandleFunc("/", handleNotFound)
}

// middleware wraps h, outermost first: tracing, request logger, security
// headers, CORS, probe detection, rate limiting, panic recovery.
func (s *Server) middleware(h http.Handler, origins []string) http.Handler {
	chain := []func(http.Handler) http.Handler{
		s.tracer.Middleware,
		log.Middleware(s.logger),
		log.RequestIDMiddleware(trace.RequestID),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		cors.Middleware(origins),
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, handleRateLimited),
		recovery.Middleware(handlePanic),
	}
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeDetail(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, "Not Found")
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func handlePanic(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusInternalServerError, internalErrorDetail)
}
