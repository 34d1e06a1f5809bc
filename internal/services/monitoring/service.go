package monitoring

import (
	"context"
	"time"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/backtest"
	"newsimpact/internal/domain/scoring"
	"newsimpact/internal/domain/window"
	"newsimpact/internal/services/eventstudy"
	scoresvc "newsimpact/internal/services/scoring"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

const defaultLimit = 100

// TextAnalyzer re-derives the text layers of an article
type TextAnalyzer interface {
	AnalyzeText(articleID int64, text string) scoresvc.TextLayers
}

// AttentionItem is a window that is no longer retried automatically
type AttentionItem struct {
	Window window.Window `json:"window"`
	Reason string        `json:"reason"`
}

// Explanation shows how a composite score was built
type Explanation struct {
	Score          *scoring.CompositeScore `json:"score"`
	Article        *article.Article        `json:"article"`
	Window         *window.Window          `json:"window,omitempty"`
	KeywordMatches []scoring.KeywordMatch  `json:"keyword_matches"`
	SurpriseHits   []scoring.SurpriseMatch `json:"surprise_matches"`
}

// Service is the read-only query surface over engine state
type Service struct {
	windows   window.Repository
	scores    scoring.Repository
	articles  article.Repository
	backtests backtest.Repository
	analyzer  TextAnalyzer
	policy    eventstudy.RetryPolicy
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new monitoring service. analyzer may be nil.
func NewService(
	windows window.Repository,
	scores scoring.Repository,
	articles article.Repository,
	backtests backtest.Repository,
	analyzer TextAnalyzer,
	policy eventstudy.RetryPolicy,
) *Service {
	return &Service{
		windows:   windows,
		scores:    scores,
		articles:  articles,
		backtests: backtests,
		analyzer:  analyzer,
		policy:    policy,
		log:       logger.Get().With("component", "monitoring"),
		now:       time.Now,
	}
}

// AttentionRequired lists windows past their retry cap, lookback or partial horizon
func (s *Service) AttentionRequired(ctx context.Context, limit int) ([]AttentionItem, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	now := s.now()

	rows, err := s.windows.ListStale(ctx, window.StaleFilter{
		PartialBefore: now.Add(-s.policy.StaleAfter),
		AnchorBefore:  now.Add(-s.policy.Lookback),
		MaxRetries:    s.policy.MaxRetries,
		Limit:         limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list stale windows")
	}

	items := make([]AttentionItem, 0, len(rows))
	for i := range rows {
		w := &rows[i]
		if !s.policy.NeedsAttention(w, now) {
			continue
		}
		items = append(items, AttentionItem{Window: *w, Reason: s.reason(w, now)})
	}
	return items, nil
}

func (s *Service) reason(w *window.Window, now time.Time) string {
	switch {
	case w.RetryCount >= s.policy.MaxRetries:
		return "retry cap reached"
	case w.Status == window.StatusPartial && now.After(anchor(w).Add(s.policy.PartialHorizon)):
		return "partial past horizon"
	case w.Status == window.StatusPartial:
		return "partial not refreshed"
	default:
		return "lookback expired"
	}
}

func anchor(w *window.Window) time.Time {
	if w.CreatedAt.After(w.PublishedAt) {
		return w.CreatedAt
	}
	return w.PublishedAt
}

// ListWindows returns windows in the given status; an empty status returns counts only
func (s *Service) ListWindows(ctx context.Context, status window.Status, limit int) ([]window.Window, map[window.Status]int, error) {
	counts, err := s.windows.CountByStatus(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to count windows")
	}
	if status == "" {
		return nil, counts, nil
	}
	if !status.Valid() {
		return nil, nil, errors.NewValidationError("status", "unknown processing status", status)
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.windows.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to list windows")
	}
	return rows, counts, nil
}

// LatestBacktest returns the most recent backtest run
func (s *Service) LatestBacktest(ctx context.Context) (*backtest.Run, error) {
	run, err := s.backtests.LatestRun(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest backtest")
	}
	return run, nil
}

// Explain gathers the inputs behind a stored score
func (s *Service) Explain(ctx context.Context, scoreID int64) (*Explanation, error) {
	score, err := s.scores.GetByID(ctx, scoreID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load score")
	}
	a, err := s.articles.GetByID(ctx, score.ArticleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load article")
	}
	matches, err := s.scores.ListKeywordMatches(ctx, score.ArticleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load keyword matches")
	}

	out := &Explanation{Score: score, Article: a, KeywordMatches: matches}

	w, err := s.windows.Get(ctx, score.ArticleID, score.Ticker)
	switch {
	case err == nil:
		out.Window = w
	case errors.Is(err, errors.ErrNotFound):
	default:
		return nil, errors.Wrap(err, "failed to load window")
	}

	if s.analyzer != nil {
		out.SurpriseHits = s.analyzer.AnalyzeText(a.ID, a.Text()).Surprise.Matches
	}
	return out, nil
}
