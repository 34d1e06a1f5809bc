package workers

import (
	"sort"
	"sync"
	"time"

	"newsimpact/pkg/errors"
)

// Registry indexes workers by name for health reporting and manual runs
type Registry struct {
	workers map[string]WorkerWithHealth
	mu      sync.RWMutex
}

// NewRegistry creates a new worker registry
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]WorkerWithHealth),
	}
}

// Register adds a worker to the registry
func (r *Registry) Register(w WorkerWithHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := w.Name()
	if _, exists := r.workers[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "worker %s already registered", name)
	}
	r.workers[name] = w
	return nil
}

// Get returns a worker by name
func (r *Registry) Get(name string) (WorkerWithHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[name]
	return w, ok
}

// ListNames returns registered worker names in alphabetical order
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnableWorker enables or disables a worker by name
func (r *Registry) EnableWorker(name string, enabled bool) error {
	w, ok := r.Get(name)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "worker %s not found", name)
	}
	w.SetEnabled(enabled)
	return nil
}

// GetAllHealth returns a health snapshot of every worker
func (r *Registry) GetAllHealth() map[string]WorkerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make(map[string]WorkerHealth, len(r.workers))
	for name, w := range r.workers {
		health[name] = w.Health()
	}
	return health
}

// GetUnhealthyWorkers returns enabled interval workers that have not run within
// maxAge or whose last run failed. Cron workers are only checked for failures.
func (r *Registry) GetUnhealthyWorkers(maxAge time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var unhealthy []string
	now := time.Now()
	for name, w := range r.workers {
		h := w.Health()
		if !h.Enabled {
			continue
		}
		stale := w.Schedule() == "" && !h.LastRun.IsZero() && now.Sub(h.LastRun) > maxAge
		if stale || h.LastError != "" {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)
	return unhealthy
}
