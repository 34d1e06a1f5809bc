package workers

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

const shutdownTimeout = 2 * time.Minute

// Scheduler runs interval workers on tickers and cron workers on a robfig/cron
// instance. A worker never overlaps with itself.
type Scheduler struct {
	workers  []Worker
	location *time.Location
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	log      *logger.Logger
	started  bool
}

// NewScheduler creates a new worker scheduler. Cron expressions are evaluated in loc
// (UTC when nil).
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		workers:  make([]Worker, 0),
		location: loc,
		log:      logger.Get().With("component", "scheduler"),
	}
}

// RegisterWorker adds a worker to the scheduler
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval(), "schedule", w.Schedule())
}

// Start begins running all enabled workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}

	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	s.mu.Unlock()

	s.log.Infow("Starting worker scheduler", "workers", len(workers))

	var interval []Worker
	for _, worker := range workers {
		if !worker.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", worker.Name())
			continue
		}

		expr := worker.Schedule()
		if expr == "" {
			interval = append(interval, worker)
			continue
		}
		w := worker
		if _, err := s.cron.AddFunc(expr, func() { s.executeWorker(w) }); err != nil {
			s.cancel()
			s.mu.Lock()
			s.started = false
			s.mu.Unlock()
			return errors.Wrapf(err, "invalid schedule %q for worker %s", expr, worker.Name())
		}
	}

	for _, worker := range interval {
		if worker.Interval() <= 0 {
			s.log.Warnw("Worker has neither interval nor schedule, skipping", "worker", worker.Name())
			continue
		}
		s.wg.Add(1)
		go s.runWorker(worker)
	}

	s.cron.Start()
	s.log.Infow("All workers started", "cron_entries", len(s.cron.Entries()))
	return nil
}

// Stop gracefully shuts down all workers, waiting for in-flight runs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Info("Stopping worker scheduler...")

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Info("All workers stopped gracefully")
	case <-time.After(shutdownTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", shutdownTimeout)
		shutdownErr = errors.Wrapf(errors.ErrInternal, "shutdown timeout after %s", shutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

// runWorker executes an interval worker in a loop, immediately and then on every tick
func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	s.executeWorker(worker)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Infow("Worker stopping due to context cancellation", "worker", worker.Name())
			return

		case <-ticker.C:
			s.executeWorker(worker)
		}
	}
}

// executeWorker runs a single iteration with panic recovery, health and metrics
func (s *Scheduler) executeWorker(worker Worker) {
	if s.ctx.Err() != nil || !worker.Enabled() {
		return
	}

	start := time.Now()
	rec, _ := worker.(runRecorder)
	if rec != nil {
		rec.setRunning(true)
		defer rec.setRunning(false)
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("worker panicked: %v", r)
			s.log.Errorw("Worker panicked", "worker", worker.Name(), "panic", r)
		}

		duration := time.Since(start)
		metrics.RecordWorkerExecution(worker.Name(), duration, err)
		if rec != nil {
			if err != nil {
				rec.RecordError(err, duration)
			} else {
				rec.RecordRun(duration)
			}
		}
	}()

	err = worker.Run(s.ctx)
	if err != nil {
		s.log.Errorw("Worker execution failed",
			"worker", worker.Name(),
			"error", err,
			"duration", time.Since(start),
		)
		return
	}
	s.log.Debugw("Worker execution completed",
		"worker", worker.Name(),
		"duration", time.Since(start),
	)
}

// RunOnce executes a registered worker immediately, outside its schedule
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.RLock()
	var target Worker
	for _, w := range s.workers {
		if w.Name() == name {
			target = w
			break
		}
	}
	s.mu.RUnlock()

	if target == nil {
		return errors.Wrapf(errors.ErrNotFound, "worker %s", name)
	}
	return target.Run(ctx)
}

// GetWorkers returns a list of all registered workers
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
