package bootstrap

import (
	"context"
	"sync"
	"time"

	chclient "newsimpact/internal/adapters/clickhouse"
	"newsimpact/internal/adapters/kafka"
	pgclient "newsimpact/internal/adapters/postgres"
	redisclient "newsimpact/internal/adapters/redis"
	"newsimpact/internal/api"
	"newsimpact/internal/workers"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in order:
// 1. No new requests accepted
// 2. Workers finish the in-flight batch (its lock is released on return)
// 3. Consumer goroutines exit
// 4. Producer closes after everything that publishes
// 5. Error tracker flushed
// 6. Logs synced
// 7. Database connections last
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	workerScheduler *workers.Scheduler,
	kafkaProducer *kafka.Producer,
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/7] Stopping HTTP server...")
	if httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := httpServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	log.Info("[2/7] Stopping background workers...")
	if workerScheduler != nil && workerScheduler.IsRunning() {
		if err := workerScheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("Workers stopped")
		}
	}

	log.Info("[3/7] Waiting for consumer goroutines...")
	l.waitForGoroutines(wg, 10*time.Second, log)

	log.Info("[4/7] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("Kafka producer closed")
		}
	}

	log.Info("[5/7] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, errorTracker, log)

	log.Info("[6/7] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Debugw("Log sync completed with warnings", "error", err)
	}

	// LAST - other components may need them during shutdown
	log.Info("[7/7] Closing database connections...")
	l.closeDatabases(pgClient, chClient, redisClient, log)

	log.Info("Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var dbErrors errors.MultiError

	if pgClient != nil {
		dbErrors.Add(errors.Wrap(pgClient.Close(), "postgres"))
	}
	if chClient != nil {
		dbErrors.Add(errors.Wrap(chClient.Close(), "clickhouse"))
	}
	if redisClient != nil {
		dbErrors.Add(errors.Wrap(redisClient.Close(), "redis"))
	}

	if err := dbErrors.ToError(); err != nil {
		log.Errorw("Database close errors", "error", err)
	} else {
		log.Info("Database connections closed")
	}
}
