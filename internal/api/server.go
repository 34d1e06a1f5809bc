package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"newsimpact/internal/api/health"
	"newsimpact/internal/api/monitoring"
	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes.
// monitoringHandler may be nil.
func NewServer(cfg ServerConfig, healthHandler *health.Handler, monitoringHandler *monitoring.Handler, log *logger.Logger) *Server {
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(cfg, healthHandler, monitoringHandler, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if httpServer.Addr == "" {
		httpServer.Addr = ":8080"
	}

	log.Infof("HTTP server configured on %s", httpServer.Addr)

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// NewRouter builds the route table
func NewRouter(cfg ServerConfig, healthHandler *health.Handler, monitoringHandler *monitoring.Handler, log *logger.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))

	// Health check endpoints (Kubernetes liveness and readiness)
	r.HandleFunc("/health", healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", healthHandler.HandleReadiness).Methods(http.MethodGet)
	r.HandleFunc("/live", healthHandler.HandleLiveness).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.Handler())

	if monitoringHandler != nil {
		monitoringHandler.Register(r.PathPrefix("/api/v1").Subrouter())
	}

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	}).Methods(http.MethodGet)

	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if r.URL.Path == "/metrics" || r.URL.Path == "/live" {
				return
			}
			log.Debugw("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"request_id", w.Header().Get("X-Request-ID"),
			)
		})
	}
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}
