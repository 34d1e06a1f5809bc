package scoring

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/confounder"
	"newsimpact/internal/domain/scoring"
	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/domain/window"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// minBaselineMentions keeps the trend ratio finite for rarely covered tickers
const minBaselineMentions = 0.5

// ConfounderDetector annotates a scored pair with concurrent events
type ConfounderDetector interface {
	Detect(ctx context.Context, ticker string, date time.Time, windowDays int) ([]confounder.Record, error)
	Confidence(records []confounder.Record) float64
}

// ScoreOutcome is the result of scoring one pair
type ScoreOutcome struct {
	Score       *scoring.CompositeScore
	Reaction    scoring.ReactionBreakdown
	Surprise    SurpriseResult
	Confounders []confounder.Record
	// NewAlert is set when the pair crossed the threshold for the first time
	NewAlert bool
}

// TextLayers holds the article-level layers shared by every ticker of an article
type TextLayers struct {
	Matches    []scoring.KeywordMatch
	Distinct   []scoring.KeywordMatch
	KeywordSum decimal.Decimal
	Surprise   SurpriseResult
}

// Scorer runs the full composite scoring pipeline for an (article, ticker) pair
type Scorer struct {
	cfg         Config
	keywords    *KeywordMatcher
	surprise    *SurpriseDetector
	reaction    *ReactionScorer
	articles    article.Repository
	tickers     ticker.Repository
	scores      scoring.Repository
	confounders ConfounderDetector
	log         *logger.Logger
}

// NewScorer creates a new scorer. confounders may be nil.
func NewScorer(
	cfg Config,
	articles article.Repository,
	tickers ticker.Repository,
	scores scoring.Repository,
	confounders ConfounderDetector,
) *Scorer {
	return &Scorer{
		cfg:         cfg,
		keywords:    NewKeywordMatcher(cfg),
		surprise:    NewSurpriseDetector(cfg),
		reaction:    NewReactionScorer(cfg.Reaction),
		articles:    articles,
		tickers:     tickers,
		scores:      scores,
		confounders: confounders,
		log:         logger.Get().With("component", "composite_scorer"),
	}
}

// AnalyzeText computes layers 1 and 3. It touches no storage.
func (s *Scorer) AnalyzeText(articleID int64, text string) TextLayers {
	matches := s.keywords.Match(articleID, text)
	return TextLayers{
		Matches:    matches,
		Distinct:   DistinctKeywords(matches),
		KeywordSum: KeywordSum(matches),
		Surprise:   s.surprise.Detect(text),
	}
}

// ScorePair scores the pair from its current window and persists the result.
// The window must already hold its final metrics for this pass.
func (s *Scorer) ScorePair(ctx context.Context, a *article.Article, w *window.Window) (*ScoreOutcome, error) {
	if a == nil || w == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "article and window are required")
	}

	layers := s.AnalyzeText(a.ID, a.Text())
	if err := s.scores.SaveKeywordMatches(ctx, a.ID, layers.Matches); err != nil {
		return nil, errors.Wrap(err, "failed to save keyword matches")
	}

	marketCap, err := s.marketCap(ctx, w.Ticker)
	if err != nil {
		return nil, err
	}

	relevance, err := s.relevance(ctx, a.ID, w.Ticker)
	if err != nil {
		return nil, err
	}

	trend, err := s.MentionTrend(ctx, w.Ticker, a.PublishedAt)
	if err != nil {
		s.log.Warnw("Mention trend unavailable, trend score will be 0",
			"article_id", a.ID,
			"ticker", w.Ticker,
			"error", err,
		)
		trend = nil
	}

	reaction := s.reaction.Score(w, trend)
	res := Composite(CompositeInputs{
		Matches:   layers.Matches,
		MarketCap: marketCap,
		Surprise:  layers.Surprise,
		Reaction:  reaction,
	}, decimal.NewFromFloat(s.cfg.AlertThreshold))

	records, confidence := s.detectConfounders(ctx, w, a.PublishedAt)

	score := &scoring.CompositeScore{
		ArticleID:           a.ID,
		Ticker:              w.Ticker,
		Relevance:           decimal.NewFromFloat(relevance).Round(2),
		ScoreKeyword:        res.Keyword,
		ScoreCapMult:        res.CapMult,
		ScoreSurprise:       res.Surprise,
		ScoreMarketReaction: res.Reaction,
		ScoreTotal:          res.Total,
		SurpriseDirection:   res.Direction,
		Confidence:          decimal.NewFromFloat(confidence).Round(4),
		ConfounderCount:     len(records),
		AlertSent:           res.Alert,
	}

	existing, err := s.scores.Get(ctx, a.ID, w.Ticker)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to load existing score")
	}
	newAlert := res.Alert && (existing == nil || !existing.AlertSent)
	if existing != nil {
		score.ID = existing.ID
		score.CreatedAt = existing.CreatedAt
	}

	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, errors.Wrap(err, "failed to upsert composite score")
	}

	s.log.Debugw("Pair scored",
		"article_id", a.ID,
		"ticker", w.Ticker,
		"total", score.ScoreTotal.String(),
		"alert", score.AlertSent,
		"confounders", len(records),
	)

	return &ScoreOutcome{
		Score:       score,
		Reaction:    reaction,
		Surprise:    layers.Surprise,
		Confounders: records,
		NewAlert:    newAlert,
	}, nil
}

// MentionTrend compares mentions in the window before publication with the
// trailing daily average.
func (s *Scorer) MentionTrend(ctx context.Context, symbol string, publishedAt time.Time) (*float64, error) {
	if s.cfg.TrendWindow <= 0 || s.cfg.TrendBaselineDays <= 0 {
		return nil, nil
	}
	windowStart := publishedAt.Add(-s.cfg.TrendWindow)

	// publication instant is inclusive
	recent, err := s.articles.CountMentions(ctx, symbol, windowStart, publishedAt.Add(time.Nanosecond))
	if err != nil {
		return nil, errors.Wrap(err, "failed to count recent mentions")
	}
	baseline, err := s.articles.CountMentions(ctx, symbol, windowStart.AddDate(0, 0, -s.cfg.TrendBaselineDays), windowStart)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count baseline mentions")
	}

	daily := math.Max(float64(baseline)/float64(s.cfg.TrendBaselineDays), minBaselineMentions)
	ratio := float64(recent) / daily
	return &ratio, nil
}

func (s *Scorer) marketCap(ctx context.Context, symbol string) (decimal.NullDecimal, error) {
	profiles, err := s.tickers.GetProfiles(ctx, []string{symbol})
	if err != nil {
		return decimal.NullDecimal{}, errors.Wrap(err, "failed to load ticker profile")
	}
	p, ok := profiles[symbol]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return p.MarketCap, nil
}

func (s *Scorer) relevance(ctx context.Context, articleID int64, symbol string) (float64, error) {
	candidates, err := s.articles.ListTickers(ctx, articleID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load article tickers")
	}
	for _, c := range candidates {
		if c.Ticker == symbol {
			return c.Relevance, nil
		}
	}
	return 1, nil
}

// detectConfounders never fails the pair; detection errors leave confidence at 1
func (s *Scorer) detectConfounders(ctx context.Context, w *window.Window, publishedAt time.Time) ([]confounder.Record, float64) {
	if s.confounders == nil {
		return nil, 1
	}
	date := publishedAt
	if w.EventDate != nil {
		date = *w.EventDate
	}
	records, err := s.confounders.Detect(ctx, w.Ticker, date, s.cfg.ConfounderWindowDays)
	if err != nil {
		s.log.Warnw("Confounder detection failed",
			"ticker", w.Ticker,
			"date", date.Format("2006-01-02"),
			"error", err,
		)
		return nil, 1
	}
	return records, s.confounders.Confidence(records)
}
