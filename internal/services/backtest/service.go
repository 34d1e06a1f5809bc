package backtest

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"newsimpact/internal/domain/backtest"
	"newsimpact/internal/events"
	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// Publisher announces completed runs
type Publisher interface {
	PublishBacktestCompleted(ctx context.Context, event *events.BacktestCompleted) error
}

// Config holds backtest service settings
type Config struct {
	LookbackDays int
	MinScore     float64
	Engine       EngineConfig
	Floors       Floors
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		LookbackDays: 30,
		MinScore:     5,
		Engine:       DefaultEngineConfig(),
		Floors:       DefaultFloors(),
	}
}

// Outcome is a persisted run together with its full report
type Outcome struct {
	Run    *backtest.Run
	Report *Report
}

// Service loads scored history, runs the engine and records the result
type Service struct {
	cfg       Config
	repo      backtest.Repository
	publisher Publisher
	engine    *Engine
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new backtest service. publisher may be nil.
func NewService(cfg Config, repo backtest.Repository, publisher Publisher) *Service {
	return &Service{
		cfg:       cfg,
		repo:      repo,
		publisher: publisher,
		engine:    NewEngine(cfg.Engine),
		log:       logger.Get().With("component", "backtest"),
		now:       time.Now,
	}
}

// RunBacktest evaluates pairs published in [from, to) scoring at least minScore.
// Zero bounds default to the configured lookback ending now; a negative minScore
// uses the configured minimum. An empty population returns ErrNotFound and
// records nothing.
func (s *Service) RunBacktest(ctx context.Context, from, to time.Time, minScore float64) (*Outcome, error) {
	now := s.now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -s.cfg.LookbackDays)
	}
	if !from.Before(to) {
		return nil, errors.NewValidationError("from", "must be before to", from)
	}
	if minScore < 0 {
		minScore = s.cfg.MinScore
	}

	observations, err := s.repo.ListObservations(ctx, from, to, minScore)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load observations")
	}
	if len(observations) == 0 {
		s.log.Warnw("No observations for backtest period", "from", from, "to", to, "min_score", minScore)
		return nil, errors.Wrap(errors.ErrNotFound, "no scored pairs with known abnormal returns in period")
	}

	report := s.engine.Run(observations)
	report.PeriodStart = from
	report.PeriodEnd = to

	recs := Recommend(report, s.engine.HighBucketLabel(), s.cfg.Floors)
	run := buildRun(uuid.New(), now, report, recs)

	if err := s.repo.SaveRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to save backtest run")
	}

	metrics.RecordBacktest(report.Precision.Precision, report.CorrelationMap())

	s.log.Infow("Backtest completed",
		"run_id", run.ID,
		"samples", humanize.Comma(int64(report.Samples)),
		"precision_at_k", report.Precision.Precision,
		"recommendations", len(recs),
	)

	s.publish(ctx, run, report)

	return &Outcome{Run: run, Report: report}, nil
}

// LatestRun returns the most recent persisted run
func (s *Service) LatestRun(ctx context.Context) (*backtest.Run, error) {
	run, err := s.repo.LatestRun(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest backtest run")
	}
	return run, nil
}

// publish failures are logged: the run is already persisted
func (s *Service) publish(ctx context.Context, run *backtest.Run, report *Report) {
	if s.publisher == nil {
		return
	}
	messages := make([]string, len(run.Recommendations))
	for i, r := range run.Recommendations {
		messages[i] = r.Message
	}
	event := &events.BacktestCompleted{
		RunID:           run.ID.String(),
		PeriodStart:     report.PeriodStart,
		PeriodEnd:       report.PeriodEnd,
		Samples:         report.Samples,
		PrecisionAtK:    report.Precision.Precision,
		K:               report.Precision.K,
		Correlations:    report.CorrelationMap(),
		Recommendations: messages,
	}
	if err := s.publisher.PublishBacktestCompleted(ctx, event); err != nil {
		s.log.Warnw("Failed to publish backtest completion", "run_id", run.ID, "error", err)
	}
}

// buildRun flattens a report into one row per populated bucket plus the "all"
// row, repeating the run-level metrics on each
func buildRun(id uuid.UUID, at time.Time, report *Report, recs []backtest.Recommendation) *backtest.Run {
	corr := report.CorrelationMap()
	run := &backtest.Run{ID: id, RunDate: at}

	for _, b := range report.Buckets {
		if b.Count == 0 {
			continue
		}
		run.Results = append(run.Results, backtest.Result{
			RunID:           id,
			RunDate:         at,
			PeriodStart:     report.PeriodStart,
			PeriodEnd:       report.PeriodEnd,
			Bucket:          b.Label,
			ArticleCount:    b.Count,
			MeanAbnormal1D:  b.MeanAbnormal1D,
			MeanAbnormal3D:  b.MeanAbnormal3D,
			MeanAbnormal5D:  b.MeanAbnormal5D,
			MeanAbnormal10D: b.MeanAbnormal10D,
			HitRate:         b.HitRate,
			PrecisionAtK:    report.Precision.Precision,
			CorrKeyword:     corr[string(backtest.LayerKeyword)],
			CorrSurprise:    corr[string(backtest.LayerSurprise)],
			CorrReaction:    corr[string(backtest.LayerMarketReaction)],
		})
	}

	for _, r := range recs {
		r.RunID = id
		run.Recommendations = append(run.Recommendations, r)
	}
	return run
}
