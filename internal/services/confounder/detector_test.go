package confounder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/confounder"
	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/ticker"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

type mockCalendar struct {
	confounder.Repository
	records  []confounder.Record
	from, to time.Time
}

func (m *mockCalendar) Find(ctx context.Context, symbol string, from, to time.Time) ([]confounder.Record, error) {
	m.from, m.to = from, to
	return m.records, nil
}

type mockTickers struct {
	ticker.Repository
	mappings map[string]*ticker.Mapping
}

func (m *mockTickers) GetMapping(ctx context.Context, symbol string) (*ticker.Mapping, error) {
	if mp, ok := m.mappings[symbol]; ok {
		return mp, nil
	}
	return nil, errors.ErrNotFound
}

type mockPrices struct {
	price.Repository
	points map[string]*price.BenchmarkPoint
}

func (m *mockPrices) GetBenchmarkPoint(ctx context.Context, benchmark string, date time.Time) (*price.BenchmarkPoint, error) {
	if p, ok := m.points[benchmark+date.Format("2006-01-02")]; ok {
		return p, nil
	}
	return nil, errors.ErrNotFound
}

type mockArticles struct {
	article.Repository
	byTicker map[string][]article.Article
}

func (m *mockArticles) ListByTicker(ctx context.Context, symbol string, from, to time.Time) ([]article.Article, error) {
	var out []article.Article
	for _, a := range m.byTicker[symbol] {
		if !a.PublishedAt.Before(from) && a.PublishedAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
func f64(v float64) *float64  { return &v }
func day(d int) time.Time     { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
func at(d, h int) time.Time   { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }

func newTestDetector(cfg Config, cal *mockCalendar, arts *mockArticles, prices *mockPrices) *Detector {
	tickers := &mockTickers{mappings: map[string]*ticker.Mapping{
		"XYZ": {Ticker: "XYZ", MarketBenchmark: "SPY", SectorBenchmark: strPtr("XBI")},
		"ABC": {Ticker: "ABC", MarketBenchmark: "SPY"},
	}}
	if prices == nil {
		prices = &mockPrices{}
	}
	d := NewDetector(cfg, cal, tickers, prices, arts)
	d.log = logger.Nop()
	return d
}

func TestDetectCalendarWindow(t *testing.T) {
	cal := &mockCalendar{records: []confounder.Record{
		{Ticker: strPtr("XYZ"), EventDate: day(13), Type: confounder.TypeEarnings},
		{EventDate: day(12), Type: confounder.TypeCPIRelease},
	}}
	d := newTestDetector(DefaultConfig(), cal, &mockArticles{}, nil)

	records, err := d.Detect(context.Background(), "XYZ", at(12, 15), 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, day(11), cal.from)
	assert.Equal(t, day(13), cal.to)
}

func TestDetectClusteredArticlesLowerConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClusterThreshold = 1

	single := &mockArticles{byTicker: map[string][]article.Article{
		"XYZ": {{ID: 1, Title: "XYZ wins approval", PublishedAt: at(12, 13)}},
	}}
	clustered := &mockArticles{byTicker: map[string][]article.Article{
		"XYZ": {
			{ID: 1, Title: "XYZ wins approval", PublishedAt: at(12, 13)},
			{ID: 2, Title: "XYZ wins FDA approval", PublishedAt: at(12, 16)},
		},
	}}

	d1 := newTestDetector(cfg, &mockCalendar{}, single, nil)
	r1, err := d1.Detect(context.Background(), "XYZ", day(12), 0)
	require.NoError(t, err)
	assert.Empty(t, r1)

	d2 := newTestDetector(cfg, &mockCalendar{}, clustered, nil)
	r2, err := d2.Detect(context.Background(), "XYZ", day(12), 0)
	require.NoError(t, err)
	require.Len(t, r2, 1)
	assert.Equal(t, confounder.TypeArticleClustering, r2[0].Type)

	assert.Less(t, d2.Confidence(r2), d1.Confidence(r1))
	assert.Equal(t, 1.0, d1.Confidence(r1))
}

func TestDetectClusteringUsesTitleSimilarity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClusterThreshold = 1
	cfg.TitleSimilarity = 0.5

	arts := &mockArticles{byTicker: map[string][]article.Article{
		"XYZ": {
			{ID: 1, Title: "XYZ wins approval", PublishedAt: at(12, 13)},
			{ID: 2, Title: "Analysts cut targets on biotech peers", PublishedAt: at(12, 16)},
		},
	}}
	d := newTestDetector(cfg, &mockCalendar{}, arts, nil)

	records, err := d.Detect(context.Background(), "XYZ", day(12), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDetectSectorMove(t *testing.T) {
	prices := &mockPrices{points: map[string]*price.BenchmarkPoint{
		"XBI2024-03-12": {Benchmark: "XBI", Date: day(12), DayChange: f64(-3.4)},
		"XBI2024-03-13": {Benchmark: "XBI", Date: day(13), DayChange: f64(3)},
	}}
	d := newTestDetector(DefaultConfig(), &mockCalendar{}, &mockArticles{}, prices)

	records, err := d.Detect(context.Background(), "XYZ", day(12), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, confounder.TypeSectorMove, records[0].Type)
	assert.Equal(t, "XBI moved -3.40% on 2024-03-12", records[0].Description)

	// exactly at the threshold is not a move
	records, err = d.Detect(context.Background(), "XYZ", day(13), 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	// no sector mapping
	records, err = d.Detect(context.Background(), "ABC", day(12), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConfidenceMonotonicAndBounded(t *testing.T) {
	d := newTestDetector(DefaultConfig(), &mockCalendar{}, &mockArticles{}, nil)

	var records []confounder.Record
	prev := d.Confidence(records)
	assert.Equal(t, 1.0, prev)

	for _, typ := range []confounder.Type{
		confounder.TypeEarnings, confounder.TypeFedMeeting, confounder.TypeSectorMove,
		confounder.Type("split"), confounder.TypeEarnings, confounder.TypeFDAPDUFA, confounder.TypeCPIRelease,
	} {
		records = append(records, confounder.Record{Type: typ})
		cur := d.Confidence(records)
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
	assert.Equal(t, 0.0, prev)
}

func TestConfidenceUnknownTypeUsesOther(t *testing.T) {
	d := newTestDetector(DefaultConfig(), &mockCalendar{}, &mockArticles{}, nil)
	assert.InDelta(t, 0.9, d.Confidence([]confounder.Record{{Type: confounder.Type("split")}}), 1e-9)
}
