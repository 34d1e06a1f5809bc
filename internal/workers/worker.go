package workers

import (
	"context"
	"sync"
	"time"

	"newsimpact/pkg/logger"
)

// Worker defines the interface for background workers
type Worker interface {
	// Name returns the unique identifier for this worker
	Name() string

	// Run executes one iteration of the worker's task and returns
	Run(ctx context.Context) error

	// Interval returns how often this worker should run.
	// Ignored when Schedule returns a cron expression.
	Interval() time.Duration

	// Schedule returns a cron expression, or "" for interval scheduling
	Schedule() string

	// Enabled returns whether this worker is active
	Enabled() bool
}

// WorkerWithHealth extends Worker with health monitoring capabilities
type WorkerWithHealth interface {
	Worker
	Health() WorkerHealth
	SetEnabled(enabled bool)
}

// runRecorder is implemented by workers embedding BaseWorker
type runRecorder interface {
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration)
	setRunning(running bool)
}

// WorkerHealth contains health information for a worker
type WorkerHealth struct {
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	AvgDuration time.Duration `json:"avg_duration"`
	IsRunning   bool          `json:"is_running"`
	Enabled     bool          `json:"enabled"`
}

// BaseWorker provides common functionality for workers
type BaseWorker struct {
	name     string
	interval time.Duration
	schedule string
	enabled  bool
	log      *logger.Logger

	healthMu      sync.RWMutex
	lastRun       time.Time
	lastError     error
	runCount      int64
	errorCount    int64
	totalDuration time.Duration
	running       bool
}

// NewBaseWorker creates a worker that runs every interval
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

// NewCronWorker creates a worker that runs on a cron schedule
func NewCronWorker(name, schedule string, enabled bool) *BaseWorker {
	w := NewBaseWorker(name, 0, enabled)
	w.schedule = schedule
	return w
}

// Name returns the worker name
func (w *BaseWorker) Name() string {
	return w.name
}

// Interval returns the run interval
func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

// Schedule returns the cron expression, empty for interval workers
func (w *BaseWorker) Schedule() string {
	return w.schedule
}

// Enabled returns whether the worker is enabled
func (w *BaseWorker) Enabled() bool {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()
	return w.enabled
}

// SetEnabled updates the enabled status
func (w *BaseWorker) SetEnabled(enabled bool) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	w.enabled = enabled
	w.log.Infow("Worker enabled state changed", "enabled", enabled)
}

// Log returns the logger
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Health returns health information for the worker
func (w *BaseWorker) Health() WorkerHealth {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()

	avg := time.Duration(0)
	if w.runCount > 0 {
		avg = time.Duration(int64(w.totalDuration) / w.runCount)
	}

	h := WorkerHealth{
		LastRun:     w.lastRun,
		RunCount:    w.runCount,
		ErrorCount:  w.errorCount,
		AvgDuration: avg,
		IsRunning:   w.running,
		Enabled:     w.enabled,
	}
	if w.lastError != nil {
		h.LastError = w.lastError.Error()
	}
	return h
}

// RecordRun records a successful run
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.totalDuration += duration
	w.lastError = nil
}

// RecordError records a failed run
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.totalDuration += duration
	w.lastError = err
}

func (w *BaseWorker) setRunning(running bool) {
	w.healthMu.Lock()
	w.running = running
	w.healthMu.Unlock()
}
