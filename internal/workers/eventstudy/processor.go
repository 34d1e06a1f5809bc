package eventstudy

import (
	"context"
	"time"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/events"
	esvc "newsimpact/internal/services/eventstudy"
	"newsimpact/internal/workers"
	"newsimpact/pkg/errors"
)

// LockKey is the Redis key guarding a running batch
const LockKey = "eventstudy:batch"

const (
	workerName = "eventstudy_processor"
	source     = "eventstudy"
)

// BatchRunner is the part of the event-study service the worker drives
type BatchRunner interface {
	DiscoverPairs(ctx context.Context, since time.Time, limit int) (int, error)
	ProcessPending(ctx context.Context) (*esvc.BatchSummary, error)
}

// Locker provides the single-writer batch lock
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Publisher emits alert and batch events
type Publisher interface {
	PublishScoreAlert(ctx context.Context, event *events.ScoreAlert) error
	PublishBatchCompleted(ctx context.Context, event *events.BatchCompleted) error
}

// SummaryStore keeps the most recent batch summaries for the monitoring API
type SummaryStore interface {
	Save(ctx context.Context, summary *esvc.BatchSummary) error
}

// Config configures the processor
type Config struct {
	Interval         time.Duration
	LockTTL          time.Duration
	DiscoverLookback time.Duration
	DiscoverLimit    int
	Enabled          bool
}

// Processor registers newly discovered pairs and runs one event-study batch per
// tick under a Redis lock, so overlapping instances never process the same rows.
type Processor struct {
	*workers.BaseWorker
	cfg       Config
	runner    BatchRunner
	locker    Locker
	articles  article.Repository
	publisher Publisher
	summaries SummaryStore
	now       func() time.Time
}

// NewProcessor creates the event-study batch worker
func NewProcessor(cfg Config, runner BatchRunner, locker Locker, articles article.Repository, publisher Publisher) *Processor {
	if cfg.DiscoverLimit <= 0 {
		cfg.DiscoverLimit = 500
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Minute
	}
	return &Processor{
		BaseWorker: workers.NewBaseWorker(workerName, cfg.Interval, cfg.Enabled),
		cfg:        cfg,
		runner:     runner,
		locker:     locker,
		articles:   articles,
		publisher:  publisher,
		now:        time.Now,
	}
}

// WithSummaryStore records every batch summary in store
func (p *Processor) WithSummaryStore(store SummaryStore) *Processor {
	p.summaries = store
	return p
}

// Run executes one iteration. A held lock is not an error.
func (p *Processor) Run(ctx context.Context) error {
	_, err := p.RunBatch(ctx)
	if errors.Is(err, errors.ErrLockHeld) {
		p.Log().Infow("Batch skipped, another run holds the lock")
		return nil
	}
	return err
}

// RunBatch discovers pairs, processes one batch and publishes its events.
// Returns errors.ErrLockHeld when another run is in progress.
func (p *Processor) RunBatch(ctx context.Context) (*esvc.BatchSummary, error) {
	token, ok, err := p.locker.AcquireLock(ctx, LockKey, p.cfg.LockTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire batch lock")
	}
	if !ok {
		return nil, errors.ErrLockHeld
	}
	defer func() {
		// release even when ctx is cancelled mid-batch
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.locker.ReleaseLock(releaseCtx, LockKey, token); err != nil {
			p.Log().Warnw("Failed to release batch lock", "error", err)
		}
	}()

	// discovery and processing both stop before the lock can expire
	ctx, cancel := context.WithTimeout(ctx, p.cfg.LockTTL)
	defer cancel()

	if p.cfg.DiscoverLookback > 0 {
		since := p.now().Add(-p.cfg.DiscoverLookback)
		if _, err := p.runner.DiscoverPairs(ctx, since, p.cfg.DiscoverLimit); err != nil {
			// registration failures of single articles must not block processing
			p.Log().Warnw("Pair discovery finished with errors", "error", err)
		}
	}

	summary, err := p.runner.ProcessPending(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "batch processing failed")
	}

	p.publishAlerts(ctx, summary)
	p.publishSummary(ctx, summary)
	if p.summaries != nil && summary.Selected > 0 {
		if err := p.summaries.Save(ctx, summary); err != nil {
			p.Log().Warnw("Failed to record batch summary", "error", err)
		}
	}
	return summary, nil
}

func (p *Processor) publishAlerts(ctx context.Context, summary *esvc.BatchSummary) {
	if p.publisher == nil {
		return
	}
	for _, a := range summary.Alerts {
		event := &events.ScoreAlert{
			Base:              events.NewBase(events.TypeScoreAlert, source),
			ArticleID:         a.ArticleID,
			Ticker:            a.Ticker,
			ScoreTotal:        a.Score,
			SurpriseDirection: a.Direction,
		}
		if p.articles != nil {
			if art, err := p.articles.GetByID(ctx, a.ArticleID); err == nil {
				event.Title = art.Title
				event.URL = art.URL
			}
		}
		if err := p.publisher.PublishScoreAlert(ctx, event); err != nil {
			p.Log().Errorw("Failed to publish score alert",
				"article_id", a.ArticleID,
				"ticker", a.Ticker,
				"error", err,
			)
		}
	}
}

func (p *Processor) publishSummary(ctx context.Context, s *esvc.BatchSummary) {
	if p.publisher == nil || s.Selected == 0 {
		return
	}
	event := &events.BatchCompleted{
		Base:          events.NewBase(events.TypeBatchCompleted, source),
		StartedAt:     s.StartedAt,
		DurationMs:    s.Duration.Milliseconds(),
		Selected:      s.Selected,
		Complete:      s.Complete,
		Partial:       s.Partial,
		Failed:        s.Failed,
		Transient:     s.Transient,
		Errors:        s.Errors,
		Skipped:       s.Skipped,
		ProviderCalls: s.ProviderCalls,
		Alerts:        len(s.Alerts),
	}
	if err := p.publisher.PublishBatchCompleted(ctx, event); err != nil {
		p.Log().Errorw("Failed to publish batch summary", "error", err)
	}
}
