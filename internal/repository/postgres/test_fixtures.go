package postgres

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// TestFixtures provides factory methods for creating test data
type TestFixtures struct {
	db DBTX
	t  *testing.T
}

// NewTestFixtures creates a new test fixtures factory
func NewTestFixtures(t *testing.T, db DBTX) *TestFixtures {
	t.Helper()
	return &TestFixtures{
		db: db,
		t:  t,
	}
}

// ArticleFixture holds the inserted article columns
type ArticleFixture struct {
	Title       string
	Summary     string
	URL         string
	Source      string
	PublishedAt time.Time
	Tickers     []string
}

// CreateArticle inserts an article with its candidate tickers and returns its id
func (f *TestFixtures) CreateArticle(opts ...func(*ArticleFixture)) int64 {
	f.t.Helper()

	fixture := &ArticleFixture{
		Title:       "Acme beats estimates",
		Summary:     "Acme reported record quarterly revenue.",
		URL:         fmt.Sprintf("https://news.test/%d", rand.Int63()),
		Source:      "test-feed",
		PublishedAt: time.Date(2024, 3, 12, 14, 30, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(fixture)
	}

	var id int64
	query := `INSERT INTO articles (title, summary, url, source, published_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`
	err := f.db.QueryRowContext(context.Background(), query,
		fixture.Title, fixture.Summary, fixture.URL, fixture.Source, fixture.PublishedAt,
	).Scan(&id)
	require.NoError(f.t, err, "Failed to create test article")

	for _, t := range fixture.Tickers {
		_, err := f.db.ExecContext(context.Background(),
			`INSERT INTO article_tickers (article_id, ticker, relevance, selected) VALUES ($1, $2, 1, true)`,
			id, t)
		require.NoError(f.t, err, "Failed to create article ticker")
	}
	return id
}

// WithTickers sets the candidate tickers
func WithTickers(tickers ...string) func(*ArticleFixture) {
	return func(a *ArticleFixture) { a.Tickers = tickers }
}

// WithPublishedAt sets the publication time
func WithPublishedAt(ts time.Time) func(*ArticleFixture) {
	return func(a *ArticleFixture) { a.PublishedAt = ts }
}

// WithTitle sets the headline
func WithTitle(title string) func(*ArticleFixture) {
	return func(a *ArticleFixture) { a.Title = title }
}

// CleanupBacktestRun removes a committed run; backtest writes bypass the test transaction
func CleanupBacktestRun(t *testing.T, db *sqlx.DB, runID interface{}) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM backtest_recommendations WHERE run_id = $1`, runID)
		_, _ = db.Exec(`DELETE FROM scoring_backtest_results WHERE run_id = $1`, runID)
	})
}
