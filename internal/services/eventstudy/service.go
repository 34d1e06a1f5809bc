package eventstudy

import (
	"context"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/domain/window"
	"newsimpact/internal/metrics"
	scoresvc "newsimpact/internal/services/scoring"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// PairScorer scores a pair once its window is saved
type PairScorer interface {
	ScorePair(ctx context.Context, a *article.Article, w *window.Window) (*scoresvc.ScoreOutcome, error)
}

// Config holds batch and retry settings
type Config struct {
	BatchSize     int
	BatchTimeout  time.Duration
	LookbackDays  int // calendar days of bars fetched before the earliest publication
	LookaheadDays int // calendar days of bars fetched after the latest publication

	DefaultBenchmark string
	PreferSector     bool

	TopTickers   int
	MinRelevance float64

	Retry      RetryPolicy
	Calculator CalculatorConfig
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:        50,
		BatchTimeout:     10 * time.Minute,
		LookbackDays:     45,
		LookaheadDays:    20,
		DefaultBenchmark: "SPY",
		PreferSector:     true,
		TopTickers:       3,
		MinRelevance:     0.3,
		Retry:            DefaultRetryPolicy(),
		Calculator:       DefaultCalculatorConfig(),
	}
}

// Alert is a pair whose score crossed the threshold during a batch
type Alert struct {
	ArticleID int64           `json:"article_id"`
	Ticker    string          `json:"ticker"`
	Score     decimal.Decimal `json:"score_total"`
	Direction string          `json:"surprise_direction"`
}

// BatchSummary aggregates the outcomes of one batch run
type BatchSummary struct {
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Selected      int           `json:"selected"`
	Complete      int           `json:"complete"`
	Partial       int           `json:"partial"`
	Failed        int           `json:"failed"`
	Transient     int           `json:"transient"`
	Errors        int           `json:"errors"`
	Skipped       int           `json:"skipped"`
	ProviderCalls int           `json:"provider_calls"`
	Alerts        []Alert       `json:"alerts,omitempty"`
}

// PairResult is the outcome of processing one pair
type PairResult struct {
	Window  *window.Window
	Outcome Outcome
	Score   *scoresvc.ScoreOutcome
}

// Service runs the event-study pipeline: window, abnormal returns, then scoring
type Service struct {
	cfg       Config
	windows   window.Repository
	articles  article.Repository
	tickers   ticker.Repository
	provider  price.Provider
	prices    price.Repository
	scorer    PairScorer
	relevance *scoresvc.RelevanceScorer
	calc      *Calculator
	adjuster  *Adjuster
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new event study service. scorer and relevance may be nil.
func NewService(
	cfg Config,
	windows window.Repository,
	articles article.Repository,
	tickers ticker.Repository,
	provider price.Provider,
	prices price.Repository,
	scorer PairScorer,
	relevance *scoresvc.RelevanceScorer,
) *Service {
	return &Service{
		cfg:       cfg,
		windows:   windows,
		articles:  articles,
		tickers:   tickers,
		provider:  provider,
		prices:    prices,
		scorer:    scorer,
		relevance: relevance,
		calc:      NewCalculator(cfg.Calculator),
		adjuster:  NewAdjuster(cfg.PreferSector, cfg.DefaultBenchmark),
		log:       logger.Get().With("component", "event_study"),
		now:       time.Now,
	}
}

// Policy returns the retry policy in use
func (s *Service) Policy() RetryPolicy {
	return s.cfg.Retry
}

// ProcessPending processes up to BatchSize eligible pairs, one provider call per ticker.
// A failure on one pair never stops the others.
func (s *Service) ProcessPending(ctx context.Context) (*BatchSummary, error) {
	started := s.now()
	summary := &BatchSummary{StartedAt: started}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	candidates, err := s.windows.ListPending(ctx, s.cfg.Retry.PendingFilter(started, s.cfg.BatchSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending windows")
	}

	var selected []*window.Window
	for i := range candidates {
		w := &candidates[i]
		if len(selected) < s.cfg.BatchSize && s.cfg.Retry.Eligible(w, started) {
			selected = append(selected, w)
			continue
		}
		summary.Skipped++
	}
	summary.Selected = len(selected)
	if len(selected) == 0 {
		summary.Duration = s.now().Sub(started)
		return summary, nil
	}

	byTicker := make(map[string][]*window.Window)
	for _, w := range selected {
		byTicker[w.Ticker] = append(byTicker[w.Ticker], w)
	}
	symbols := make([]string, 0, len(byTicker))
	for t := range byTicker {
		symbols = append(symbols, t)
	}
	sort.Strings(symbols)

	cache := NewBatchCache(s.provider, s.prices, s.tickers, s.log)
	articles := make(map[int64]*article.Article)

	for _, symbol := range symbols {
		group := byTicker[symbol]
		start, end := s.fetchRange(group)
		for _, w := range group {
			if ctx.Err() != nil {
				summary.Skipped++
				continue
			}
			res, err := s.process(ctx, cache, articles, w, start, end)
			s.tally(summary, w, res, err)
		}
	}

	summary.ProviderCalls = cache.ProviderCalls()
	summary.Duration = s.now().Sub(started)
	metrics.BatchDuration.Observe(summary.Duration.Seconds())

	if ctx.Err() != nil {
		s.log.Warnw("Batch budget exhausted, remaining pairs left for the next run",
			"skipped", summary.Skipped,
			"budget", s.cfg.BatchTimeout,
		)
	}

	s.log.Infow("Event study batch finished",
		"selected", summary.Selected,
		"complete", summary.Complete,
		"partial", summary.Partial,
		"failed", summary.Failed,
		"transient", summary.Transient,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"alerts", len(summary.Alerts),
		"provider_calls", summary.ProviderCalls,
		"duration", summary.Duration,
	)
	return summary, nil
}

// ProcessPair processes one pair outside a batch
func (s *Service) ProcessPair(ctx context.Context, articleID int64, symbol string) (*PairResult, error) {
	w, err := s.windows.Get(ctx, articleID, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load window")
	}
	cache := NewBatchCache(s.provider, s.prices, s.tickers, s.log)
	start, end := s.fetchRange([]*window.Window{w})
	return s.process(ctx, cache, map[int64]*article.Article{}, w, start, end)
}

// Recompute recomputes a pair. Rows that are not complete are processed normally.
// A complete row is recomputed in memory: identical metrics are a no-op and any
// difference is rejected with ErrInvariantViolation; the stored row is never changed.
func (s *Service) Recompute(ctx context.Context, articleID int64, symbol string) (*window.Window, error) {
	stored, err := s.windows.Get(ctx, articleID, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load window")
	}
	if stored.Status != window.StatusComplete {
		res, err := s.ProcessPair(ctx, articleID, symbol)
		if err != nil {
			return nil, err
		}
		return res.Window, nil
	}

	cache := NewBatchCache(s.provider, s.prices, s.tickers, s.log)
	start, end := s.fetchRange([]*window.Window{stored})
	fresh := *stored
	outcome, reason, err := s.compute(ctx, cache, &fresh, start, end)
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeTransient {
		return nil, errors.Transient(errors.New(reason))
	}
	if outcome != OutcomeComputed || !fresh.SameMetrics(stored) {
		s.log.Errorw("Recompute of complete window diverged",
			"article_id", articleID,
			"ticker", symbol,
			"outcome", outcome.String(),
		)
		return nil, errors.Wrapf(errors.ErrInvariantViolation, "complete window %d/%s would change", articleID, symbol)
	}
	return stored, nil
}

// process runs one attempt on w and persists it. Window and score are written in that order.
func (s *Service) process(
	ctx context.Context,
	cache *BatchCache,
	articles map[int64]*article.Article,
	w *window.Window,
	start, end time.Time,
) (*PairResult, error) {
	if w.Status.Terminal() {
		return nil, errors.Wrapf(errors.ErrInvariantViolation, "window %d/%s is complete", w.ArticleID, w.Ticker)
	}

	next := *w
	outcome, reason, err := s.compute(ctx, cache, &next, start, end)
	if err != nil {
		return nil, err
	}

	status, err := NextStatus(w.Status, outcome, next.Resolved())
	if err != nil {
		return nil, err
	}

	now := s.now()
	if outcome == OutcomeTransient {
		// keep the previous metrics, only bookkeeping moves
		next = *w
	}
	next.Status = status
	next.RetryCount = NextRetryCount(w.RetryCount, outcome)
	next.LastProcessedAt = &now
	switch outcome {
	case OutcomeComputed:
		next.FailureReason = nil
	default:
		next.FailureReason = &reason
	}

	if err := s.windows.Save(ctx, &next); err != nil {
		return nil, errors.Wrap(err, "failed to save window")
	}
	*w = next

	s.log.Debugw("Window processed",
		"article_id", w.ArticleID,
		"ticker", w.Ticker,
		"outcome", outcome.String(),
		"status", w.Status,
		"retry_count", w.RetryCount,
		"volume_1d", humanVolume(w.Volume1D),
	)

	res := &PairResult{Window: w, Outcome: outcome}
	if outcome != OutcomeComputed || s.scorer == nil {
		return res, nil
	}

	a, err := s.article(ctx, articles, w.ArticleID)
	if err != nil {
		return res, err
	}
	res.Score, err = s.scorer.ScorePair(ctx, a, w)
	if err != nil {
		return res, errors.Wrap(err, "failed to score pair")
	}
	return res, nil
}

// compute fills the metrics of w. Provider problems become outcomes; only
// storage failures are returned as errors.
func (s *Service) compute(ctx context.Context, cache *BatchCache, w *window.Window, start, end time.Time) (Outcome, string, error) {
	bars, err := cache.Bars(ctx, w.Ticker, start, end)
	if err != nil {
		switch {
		case errors.IsTransient(err):
			return OutcomeTransient, err.Error(), nil
		case errors.Is(err, errors.ErrDataUnavailable), errors.Is(err, errors.ErrNotFound):
			return OutcomeNoData, err.Error(), nil
		}
		// anything else from the provider is retried like a transient failure
		return OutcomeTransient, err.Error(), nil
	}

	idx, err := s.calc.EventIndex(bars, w.PublishedAt)
	if err != nil {
		return OutcomeNoData, err.Error(), nil
	}

	eventDate := bars[idx].Date
	base := cache.Baseline(w.Ticker, eventDate, func() Baseline { return s.calc.Baseline(bars, idx) })
	if err := s.calc.ComputeWindow(w, bars, idx, base); err != nil {
		return OutcomeNoData, err.Error(), nil
	}

	mapping, err := cache.Mapping(ctx, w.Ticker)
	if err != nil {
		return 0, "", err
	}
	benchmark := s.adjuster.SelectBenchmark(mapping)
	point, err := cache.BenchmarkPoint(ctx, benchmark, eventDate)
	if err != nil {
		return 0, "", err
	}
	s.adjuster.Adjust(w, benchmark, point)
	return OutcomeComputed, "", nil
}

func (s *Service) article(ctx context.Context, cache map[int64]*article.Article, id int64) (*article.Article, error) {
	if a, ok := cache[id]; ok {
		return a, nil
	}
	a, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load article %d", id)
	}
	cache[id] = a
	return a, nil
}

// fetchRange covers every window of a ticker group with a single provider call
func (s *Service) fetchRange(group []*window.Window) (time.Time, time.Time) {
	first, last := group[0].PublishedAt, group[0].PublishedAt
	for _, w := range group[1:] {
		if w.PublishedAt.Before(first) {
			first = w.PublishedAt
		}
		if w.PublishedAt.After(last) {
			last = w.PublishedAt
		}
	}
	start := first.AddDate(0, 0, -s.cfg.LookbackDays)
	end := last.AddDate(0, 0, s.cfg.LookaheadDays)
	if now := s.now(); end.After(now) {
		end = now
	}
	return start, end
}

func (s *Service) tally(summary *BatchSummary, w *window.Window, res *PairResult, err error) {
	if res != nil {
		switch res.Outcome {
		case OutcomeTransient:
			summary.Transient++
			metrics.RecordPair("transient")
		case OutcomeNoData:
			summary.Failed++
			metrics.RecordPair("failed")
		default:
			if res.Window.Status == window.StatusComplete {
				summary.Complete++
				metrics.RecordPair("complete")
			} else {
				summary.Partial++
				metrics.RecordPair("partial")
			}
		}
		if res.Score != nil {
			total, _ := res.Score.Score.ScoreTotal.Float64()
			metrics.RecordScore(total, res.Score.NewAlert)
			if res.Score.NewAlert {
				summary.Alerts = append(summary.Alerts, Alert{
					ArticleID: res.Score.Score.ArticleID,
					Ticker:    res.Score.Score.Ticker,
					Score:     res.Score.Score.ScoreTotal,
					Direction: string(res.Score.Score.SurpriseDirection),
				})
			}
		}
	}

	if err != nil {
		summary.Errors++
		metrics.RecordPair("error")
		s.log.Errorw("Pair processing failed",
			"article_id", w.ArticleID,
			"ticker", w.Ticker,
			"error", err,
		)
	}
}

func humanVolume(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return humanize.Comma(int64(*v))
}
