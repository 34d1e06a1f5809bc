package scoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/confounder"
	"newsimpact/internal/domain/scoring"
	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/domain/window"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

type mockArticles struct {
	article.Repository
	tickers      []article.Ticker
	countFunc    func(ctx context.Context, symbol string, from, to time.Time) (int, error)
	countWindows [][2]time.Time
}

func (m *mockArticles) ListTickers(ctx context.Context, articleID int64) ([]article.Ticker, error) {
	return m.tickers, nil
}

func (m *mockArticles) CountMentions(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	m.countWindows = append(m.countWindows, [2]time.Time{from, to})
	if m.countFunc != nil {
		return m.countFunc(ctx, symbol, from, to)
	}
	return 0, nil
}

type mockTickers struct {
	ticker.Repository
	profiles map[string]ticker.Profile
}

func (m *mockTickers) GetProfiles(ctx context.Context, symbols []string) (map[string]ticker.Profile, error) {
	out := make(map[string]ticker.Profile)
	for _, s := range symbols {
		if p, ok := m.profiles[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type memScores struct {
	rows    map[string]*scoring.CompositeScore
	matches map[int64][]scoring.KeywordMatch
	nextID  int64
}

func newMemScores() *memScores {
	return &memScores{rows: map[string]*scoring.CompositeScore{}, matches: map[int64][]scoring.KeywordMatch{}}
}

func scoreKey(articleID int64, ticker string) string {
	return fmt.Sprintf("%d/%s", articleID, ticker)
}

func (m *memScores) Upsert(ctx context.Context, s *scoring.CompositeScore) error {
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	cp := *s
	m.rows[scoreKey(s.ArticleID, s.Ticker)] = &cp
	return nil
}

func (m *memScores) Get(ctx context.Context, articleID int64, ticker string) (*scoring.CompositeScore, error) {
	s, ok := m.rows[scoreKey(articleID, ticker)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memScores) GetByID(ctx context.Context, id int64) (*scoring.CompositeScore, error) {
	for _, s := range m.rows {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (m *memScores) SaveKeywordMatches(ctx context.Context, articleID int64, matches []scoring.KeywordMatch) error {
	m.matches[articleID] = matches
	return nil
}

func (m *memScores) ListKeywordMatches(ctx context.Context, articleID int64) ([]scoring.KeywordMatch, error) {
	return m.matches[articleID], nil
}

type stubConfounders struct {
	records []confounder.Record
	err     error
}

func (s *stubConfounders) Detect(ctx context.Context, ticker string, date time.Time, windowDays int) ([]confounder.Record, error) {
	return s.records, s.err
}

func (s *stubConfounders) Confidence(records []confounder.Record) float64 {
	return 1 - 0.3*float64(len(records))
}

func newTestScorer(arts *mockArticles, scores *memScores, conf ConfounderDetector) *Scorer {
	tickers := &mockTickers{profiles: map[string]ticker.Profile{
		"XYZ": {Symbol: "XYZ", MarketCap: decimal.NewNullDecimal(decimal.NewFromInt(400_000_000))},
	}}
	s := NewScorer(testConfig(), arts, tickers, scores, conf)
	s.log = logger.Nop()
	return s
}

func testArticle() *article.Article {
	return &article.Article{
		ID:          42,
		Title:       "XYZ phase 3 rare disease study",
		Summary:     "An unexpected result as the drug exceeded primary endpoint",
		PublishedAt: time.Date(2024, 3, 12, 14, 30, 0, 0, time.UTC),
	}
}

func TestScorePairPersistsScoreAndAudit(t *testing.T) {
	scores := newMemScores()
	s := newTestScorer(&mockArticles{}, scores, nil)

	out, err := s.ScorePair(context.Background(), testArticle(), window.New(42, "XYZ", testArticle().PublishedAt))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("25.8").Equal(out.Score.ScoreTotal), "total %s", out.Score.ScoreTotal)
	assert.True(t, out.Score.AlertSent)
	assert.True(t, out.NewAlert)
	assert.Equal(t, 0, out.Reaction.Total)
	assert.True(t, decimal.NewFromInt(1).Equal(out.Score.Relevance))
	assert.True(t, decimal.NewFromInt(1).Equal(out.Score.Confidence))
	assert.Equal(t, scoring.DirectionPositive, out.Score.SurpriseDirection)

	assert.Len(t, scores.matches[42], 2)
	stored, err := scores.Get(context.Background(), 42, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, out.Score.ID, stored.ID)
}

func TestScorePairAlertsOnlyOnce(t *testing.T) {
	scores := newMemScores()
	s := newTestScorer(&mockArticles{}, scores, nil)
	ctx := context.Background()
	w := window.New(42, "XYZ", testArticle().PublishedAt)

	first, err := s.ScorePair(ctx, testArticle(), w)
	require.NoError(t, err)
	second, err := s.ScorePair(ctx, testArticle(), w)
	require.NoError(t, err)

	assert.True(t, first.NewAlert)
	assert.False(t, second.NewAlert)
	assert.True(t, second.Score.AlertSent)
	assert.Equal(t, first.Score.ID, second.Score.ID)
	assert.True(t, first.Score.ScoreTotal.Equal(second.Score.ScoreTotal))
	assert.Len(t, scores.rows, 1)
}

func TestScorePairUsesRelevanceAndConfounders(t *testing.T) {
	arts := &mockArticles{tickers: []article.Ticker{
		{ArticleID: 42, Ticker: "XYZ", Relevance: 0.64, Selected: true},
		{ArticleID: 42, Ticker: "ABC", Relevance: 0.2},
	}}
	conf := &stubConfounders{records: []confounder.Record{{Type: confounder.TypeEarnings}}}
	s := newTestScorer(arts, newMemScores(), conf)

	out, err := s.ScorePair(context.Background(), testArticle(), window.New(42, "XYZ", testArticle().PublishedAt))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.64").Equal(out.Score.Relevance))
	assert.Equal(t, 1, out.Score.ConfounderCount)
	assert.True(t, decimal.RequireFromString("0.7").Equal(out.Score.Confidence), "confidence %s", out.Score.Confidence)
}

func TestScorePairConfounderErrorKeepsFullConfidence(t *testing.T) {
	conf := &stubConfounders{err: errors.ErrUnavailable}
	s := newTestScorer(&mockArticles{}, newMemScores(), conf)

	out, err := s.ScorePair(context.Background(), testArticle(), window.New(42, "XYZ", testArticle().PublishedAt))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Score.ConfounderCount)
	assert.True(t, decimal.NewFromInt(1).Equal(out.Score.Confidence))
}

func TestScorePairReactionFromWindow(t *testing.T) {
	pub := testArticle().PublishedAt
	arts := &mockArticles{countFunc: func(ctx context.Context, symbol string, from, to time.Time) (int, error) {
		if to.After(pub) {
			return 8, nil // recent
		}
		return 7, nil // one per day over the baseline
	}}
	s := newTestScorer(arts, newMemScores(), nil)

	w := window.New(42, "XYZ", pub)
	w.VolumeRatio1D = f64(3.5)
	w.GapMagnitude = f64(-4)

	out, err := s.ScorePair(context.Background(), testArticle(), w)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Reaction.VolumeScore)
	assert.Equal(t, 1, out.Reaction.GapScore)
	assert.Equal(t, 1, out.Reaction.TrendScore)
	assert.True(t, decimal.RequireFromString("29.8").Equal(out.Score.ScoreTotal), "total %s", out.Score.ScoreTotal)
}

func TestMentionTrendWindows(t *testing.T) {
	pub := time.Date(2024, 3, 12, 14, 30, 0, 0, time.UTC)
	arts := &mockArticles{countFunc: func(ctx context.Context, symbol string, from, to time.Time) (int, error) {
		if to.After(pub) {
			return 2, nil
		}
		return 0, nil
	}}
	s := newTestScorer(arts, newMemScores(), nil)

	ratio, err := s.MentionTrend(context.Background(), "XYZ", pub)
	require.NoError(t, err)
	require.NotNil(t, ratio)
	// an empty baseline is floored at half a mention per day
	assert.InDelta(t, 4.0, *ratio, 1e-9)

	require.Len(t, arts.countWindows, 2)
	assert.Equal(t, pub.Add(-24*time.Hour), arts.countWindows[0][0])
	assert.Equal(t, pub.Add(-24*time.Hour).AddDate(0, 0, -7), arts.countWindows[1][0])
	assert.Equal(t, pub.Add(-24*time.Hour), arts.countWindows[1][1])
}

func TestAnalyzeTextDistinct(t *testing.T) {
	s := newTestScorer(&mockArticles{}, newMemScores(), nil)

	layers := s.AnalyzeText(1, "Phase 3 win. FDA did not approve yet but phase 3 data strong")
	assert.Len(t, layers.Matches, 3)
	assert.Len(t, layers.Distinct, 2)
	assert.True(t, decimal.RequireFromString("7.8").Equal(layers.KeywordSum), "sum %s", layers.KeywordSum)
}
