package eventstudy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/scoring"
	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/domain/window"
	scoresvc "newsimpact/internal/services/scoring"
	"newsimpact/pkg/errors"
)

func f64(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

// tradingDays returns n weekdays starting at from
func tradingDays(from time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := from; len(days) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

// makeBars builds flat-range bars from closes on consecutive trading days from 2024-02-01
func makeBars(symbol string, closes []float64) []price.Bar {
	dates := tradingDays(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), len(closes))
	bars := make([]price.Bar, len(closes))
	for i, c := range closes {
		bars[i] = price.Bar{
			Ticker: symbol,
			Date:   dates[i],
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// eventBars is 25 flat bars at 100, day 0 at index 25, then the given post-event closes.
// Day +1 trades 3.5M shares and day 0 gaps up 6%.
func eventBars(symbol string, post ...float64) []price.Bar {
	closes := append(flat(26, 100), post...)
	bars := makeBars(symbol, closes)
	bars[25].Open = 106
	if len(bars) > 26 {
		bars[26].Volume = 3_500_000
		bars[26].Open, bars[26].High, bars[26].Low = 102, 105, 101
	}
	return bars
}

const day0 = 25

// fakeProvider serves bars per ticker and counts calls
type fakeProvider struct {
	bars  map[string][]price.Bar
	errs  map[string]error
	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{bars: map[string][]price.Bar{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (p *fakeProvider) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]price.Bar, error) {
	p.calls[symbol]++
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	var out []price.Bar
	for _, b := range p.bars[symbol] {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// memPrices is an in-memory price.Repository
type memPrices struct {
	saved  map[string][]price.Bar
	points map[string]*price.BenchmarkPoint
}

func newMemPrices() *memPrices {
	return &memPrices{saved: map[string][]price.Bar{}, points: map[string]*price.BenchmarkPoint{}}
}

func pointKeyOf(benchmark string, d time.Time) string {
	return benchmark + "@" + d.Format("2006-01-02")
}

func (m *memPrices) SaveBars(ctx context.Context, bars []price.Bar) error {
	for _, b := range bars {
		m.saved[b.Ticker] = append(m.saved[b.Ticker], b)
	}
	return nil
}

func (m *memPrices) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]price.Bar, error) {
	var out []price.Bar
	for _, b := range m.saved[symbol] {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memPrices) SaveBenchmarkPoints(ctx context.Context, points []price.BenchmarkPoint) error {
	for i := range points {
		p := points[i]
		m.points[pointKeyOf(p.Benchmark, p.Date)] = &p
	}
	return nil
}

func (m *memPrices) GetBenchmarkPoint(ctx context.Context, benchmark string, date time.Time) (*price.BenchmarkPoint, error) {
	if p, ok := m.points[pointKeyOf(benchmark, date)]; ok {
		return p, nil
	}
	return nil, errors.ErrNotFound
}

// memTickers is an in-memory ticker.Repository
type memTickers struct {
	profiles map[string]ticker.Profile
	mappings map[string]*ticker.Mapping
}

func (m *memTickers) GetProfiles(ctx context.Context, symbols []string) (map[string]ticker.Profile, error) {
	out := map[string]ticker.Profile{}
	for _, s := range symbols {
		if p, ok := m.profiles[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func (m *memTickers) GetMapping(ctx context.Context, symbol string) (*ticker.Mapping, error) {
	if mp, ok := m.mappings[symbol]; ok {
		return mp, nil
	}
	return nil, errors.ErrNotFound
}

func (m *memTickers) ListBenchmarks(ctx context.Context) ([]string, error) {
	return []string{"SPY"}, nil
}

// memWindows is an in-memory window.Repository honoring the complete-row guard
type memWindows struct {
	rows   map[string]*window.Window
	saves  int
	nextID int64
}

func newMemWindows() *memWindows {
	return &memWindows{rows: map[string]*window.Window{}}
}

func windowKey(articleID int64, symbol string) string {
	return fmt.Sprintf("%d/%s", articleID, symbol)
}

func (m *memWindows) put(w *window.Window) {
	m.nextID++
	w.ID = m.nextID
	cp := *w
	m.rows[windowKey(w.ArticleID, w.Ticker)] = &cp
}

func (m *memWindows) Register(ctx context.Context, w *window.Window) (bool, error) {
	if _, ok := m.rows[windowKey(w.ArticleID, w.Ticker)]; ok {
		return false, nil
	}
	m.put(w)
	return true, nil
}

func (m *memWindows) Get(ctx context.Context, articleID int64, symbol string) (*window.Window, error) {
	w, ok := m.rows[windowKey(articleID, symbol)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWindows) Save(ctx context.Context, w *window.Window) error {
	if cur, ok := m.rows[windowKey(w.ArticleID, w.Ticker)]; ok && cur.Status == window.StatusComplete {
		return errors.ErrInvariantViolation
	}
	m.saves++
	cp := *w
	m.rows[windowKey(w.ArticleID, w.Ticker)] = &cp
	return nil
}

func (m *memWindows) sorted() []window.Window {
	out := make([]window.Window, 0, len(m.rows))
	for _, w := range m.rows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPending mirrors the SQL filter: eligible rows, oldest published first, capped at Limit
func (m *memWindows) ListPending(ctx context.Context, f window.PendingFilter) ([]window.Window, error) {
	rows := m.sorted()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PublishedAt.Before(rows[j].PublishedAt) })

	var out []window.Window
	for _, w := range rows {
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
		if pendingMatch(&w, f) {
			out = append(out, w)
		}
	}
	return out, nil
}

func pendingMatch(w *window.Window, f window.PendingFilter) bool {
	if w.Status == window.StatusNotStarted && w.RetryCount == 0 {
		return true
	}
	if w.RetryCount >= f.MaxRetries {
		return false
	}
	anchor := w.PublishedAt
	if w.CreatedAt.After(anchor) {
		anchor = w.CreatedAt
	}
	switch w.Status {
	case window.StatusNotStarted, window.StatusFailed:
		return !anchor.Before(f.RetryAnchorAfter)
	case window.StatusPartial:
		return !anchor.Before(f.PartialAnchorAfter) &&
			(w.LastProcessedAt == nil || !w.LastProcessedAt.After(f.PartialProcessedBefore))
	}
	return false
}

func (m *memWindows) ListByStatus(ctx context.Context, status window.Status, limit int) ([]window.Window, error) {
	var out []window.Window
	for _, w := range m.sorted() {
		if w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memWindows) ListStale(ctx context.Context, f window.StaleFilter) ([]window.Window, error) {
	var out []window.Window
	for _, w := range m.sorted() {
		if w.Status != window.StatusComplete {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memWindows) CountByStatus(ctx context.Context) (map[window.Status]int, error) {
	out := map[window.Status]int{}
	for _, w := range m.rows {
		out[w.Status]++
	}
	return out, nil
}

// memArticles is an in-memory article.Repository
type memArticles struct {
	articles map[int64]*article.Article
	tickers  map[int64][]article.Ticker
	getErr   map[int64]error
}

func newMemArticles() *memArticles {
	return &memArticles{articles: map[int64]*article.Article{}, tickers: map[int64][]article.Ticker{}, getErr: map[int64]error{}}
}

func (m *memArticles) Create(ctx context.Context, a *article.Article) error {
	m.articles[a.ID] = a
	return nil
}

func (m *memArticles) GetByID(ctx context.Context, id int64) (*article.Article, error) {
	if err := m.getErr[id]; err != nil {
		return nil, err
	}
	a, ok := m.articles[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return a, nil
}

func (m *memArticles) SaveTickers(ctx context.Context, articleID int64, tickers []article.Ticker) error {
	m.tickers[articleID] = append([]article.Ticker(nil), tickers...)
	return nil
}

func (m *memArticles) ListTickers(ctx context.Context, articleID int64) ([]article.Ticker, error) {
	return append([]article.Ticker(nil), m.tickers[articleID]...), nil
}

func (m *memArticles) ListUnregistered(ctx context.Context, since time.Time, limit int) ([]article.Article, error) {
	var out []article.Article
	for _, a := range m.articles {
		if !a.PublishedAt.Before(since) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memArticles) ListByTicker(ctx context.Context, symbol string, from, to time.Time) ([]article.Article, error) {
	return nil, nil
}

func (m *memArticles) CountMentions(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	return 0, nil
}

// stubScorer records scored pairs
type stubScorer struct {
	scored []string
	alert  map[string]bool
}

func (s *stubScorer) ScorePair(ctx context.Context, a *article.Article, w *window.Window) (*scoresvc.ScoreOutcome, error) {
	key := windowKey(a.ID, w.Ticker)
	s.scored = append(s.scored, key)
	out := &scoresvc.ScoreOutcome{NewAlert: s.alert[key]}
	out.Score = newStubScore(a.ID, w.Ticker)
	return out, nil
}

func newStubScore(articleID int64, symbol string) *scoring.CompositeScore {
	return &scoring.CompositeScore{
		ArticleID:         articleID,
		Ticker:            symbol,
		ScoreTotal:        decimal.NewFromInt(20),
		SurpriseDirection: scoring.DirectionPositive,
	}
}
