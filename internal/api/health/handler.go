package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"newsimpact/internal/workers"
	"newsimpact/pkg/logger"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// Check pings one dependency
type Check func(ctx context.Context) error

// WorkerSource reports background worker health
type WorkerSource interface {
	GetAllHealth() map[string]workers.WorkerHealth
	GetUnhealthyWorkers(maxAge time.Duration) []string
}

// Handler provides health check endpoints
type Handler struct {
	log          *logger.Logger
	checks       map[string]Check
	workers      WorkerSource
	workerMaxAge time.Duration
	startTime    time.Time
	serviceName  string
	version      string
}

// New creates a new health check handler. checks are keyed by component name
// (postgres, clickhouse, redis); workers may be nil.
func New(
	log *logger.Logger,
	checks map[string]Check,
	workerSource WorkerSource,
	serviceName string,
	version string,
) *Handler {
	return &Handler{
		log:          log,
		checks:       checks,
		workers:      workerSource,
		workerMaxAge: time.Hour,
		startTime:    time.Now(),
		serviceName:  serviceName,
		version:      version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status      string                          `json:"status"` // "healthy", "degraded", "unhealthy"
	Service     string                          `json:"service"`
	Version     string                          `json:"version"`
	Uptime      string                          `json:"uptime"`
	Timestamp   string                          `json:"timestamp"`
	Checks      map[string]ComponentHealth      `json:"checks"`
	Workers     map[string]workers.WorkerHealth `json:"workers,omitempty"`
	Unhealthy   []string                        `json:"unhealthy_workers,omitempty"`
	ErrorDetail string                          `json:"error_detail,omitempty"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness checks
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness returns 503 unless every dependency answers
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.runChecks(ctx)
	status := h.status(checks)

	statusCode := http.StatusOK
	if healthy < len(checks) {
		status.Status = statusUnhealthy
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}
	writeJSON(w, statusCode, status)
}

// HandleHealth returns detailed health status including worker state.
// Some failing dependencies or stale workers report degraded with 200.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy := h.runChecks(ctx)
	status := h.status(checks)
	if h.workers != nil {
		status.Workers = h.workers.GetAllHealth()
		status.Unhealthy = h.workers.GetUnhealthyWorkers(h.workerMaxAge)
	}

	statusCode := http.StatusOK
	switch {
	case len(checks) > 0 && healthy == 0:
		status.Status = statusUnhealthy
		statusCode = http.StatusServiceUnavailable
	case healthy < len(checks) || len(status.Unhealthy) > 0:
		status.Status = statusDegraded
	}
	writeJSON(w, statusCode, status)
}

func (h *Handler) status(checks map[string]ComponentHealth) HealthStatus {
	return HealthStatus{
		Status:    statusHealthy,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) runChecks(ctx context.Context) (map[string]ComponentHealth, int) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]ComponentHealth, len(names))
	healthy := 0
	for _, name := range names {
		res := h.check(ctx, name, h.checks[name])
		if res.Status == statusHealthy {
			healthy++
		}
		results[name] = res
	}
	return results, healthy
}

func (h *Handler) check(ctx context.Context, name string, fn Check) ComponentHealth {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       statusUnhealthy,
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}
	return ComponentHealth{
		Status:       statusHealthy,
		ResponseTime: elapsed.String(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
