package postgres

import (
	"context"
	"database/sql"
	"time"

	"newsimpact/internal/domain/article"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ article.Repository = (*ArticleRepository)(nil)

// ArticleRepository implements article.Repository using sqlx
type ArticleRepository struct {
	db DBTX
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db DBTX) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts an article. Articles are deduplicated by URL: a known URL
// leaves the row untouched and fills in the existing id.
func (r *ArticleRepository) Create(ctx context.Context, a *article.Article) (err error) {
	defer observe("article_create", time.Now(), &err)

	query := `
		WITH ins AS (
			INSERT INTO articles (title, summary, url, source, published_at, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (url) DO NOTHING
			RETURNING id, created_at
		)
		SELECT id, created_at FROM ins
		UNION ALL
		SELECT id, created_at FROM articles WHERE url = $3
		LIMIT 1`

	if err := r.db.QueryRowContext(ctx, query,
		a.Title, a.Summary, a.URL, a.Source, a.PublishedAt,
	).Scan(&a.ID, &a.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to create article")
	}
	return nil
}

// GetByID retrieves an article by ID
func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (_ *article.Article, err error) {
	defer observe("article_get", time.Now(), &err)

	var a article.Article
	query := `
		SELECT id, title, summary, url, source, published_at, created_at
		FROM articles
		WHERE id = $1`

	err = r.db.GetContext(ctx, &a, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "article %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get article")
	}
	return &a, nil
}

// SaveTickers replaces the candidate tickers of an article atomically
func (r *ArticleRepository) SaveTickers(ctx context.Context, articleID int64, tickers []article.Ticker) (err error) {
	defer observe("article_save_tickers", time.Now(), &err)

	query := `
		INSERT INTO article_tickers (article_id, ticker, relevance, selected)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (article_id, ticker) DO UPDATE SET
			relevance = EXCLUDED.relevance,
			selected = EXCLUDED.selected`

	return inTx(ctx, r.db, func(q DBTX) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM article_tickers WHERE article_id = $1`, articleID); err != nil {
			return errors.Wrap(err, "failed to clear article tickers")
		}
		for _, t := range tickers {
			if _, err := q.ExecContext(ctx, query, articleID, t.Ticker, t.Relevance, t.Selected); err != nil {
				return errors.Wrapf(err, "failed to insert article ticker %s", t.Ticker)
			}
		}
		return nil
	})
}

// ListTickers returns the candidate tickers of an article by descending relevance
func (r *ArticleRepository) ListTickers(ctx context.Context, articleID int64) (_ []article.Ticker, err error) {
	defer observe("article_list_tickers", time.Now(), &err)

	var tickers []article.Ticker
	query := `
		SELECT article_id, ticker, relevance, selected
		FROM article_tickers
		WHERE article_id = $1
		ORDER BY relevance DESC, ticker ASC`

	if err := r.db.SelectContext(ctx, &tickers, query, articleID); err != nil {
		return nil, errors.Wrap(err, "failed to list article tickers")
	}
	return tickers, nil
}

// ListUnregistered returns articles with candidate tickers but no windows, oldest first
func (r *ArticleRepository) ListUnregistered(ctx context.Context, since time.Time, limit int) (_ []article.Article, err error) {
	defer observe("article_list_unregistered", time.Now(), &err)

	var articles []article.Article
	query := `
		SELECT a.id, a.title, a.summary, a.url, a.source, a.published_at, a.created_at
		FROM articles a
		WHERE a.published_at >= $1
		  AND EXISTS (SELECT 1 FROM article_tickers t WHERE t.article_id = a.id)
		  AND NOT EXISTS (SELECT 1 FROM article_ticker_windows w WHERE w.article_id = a.id)
		ORDER BY a.published_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &articles, query, since, defaultLimit(limit)); err != nil {
		return nil, errors.Wrap(err, "failed to list unregistered articles")
	}
	return articles, nil
}

// ListByTicker returns articles mentioning ticker published in [from, to)
func (r *ArticleRepository) ListByTicker(ctx context.Context, ticker string, from, to time.Time) (_ []article.Article, err error) {
	defer observe("article_list_by_ticker", time.Now(), &err)

	var articles []article.Article
	query := `
		SELECT a.id, a.title, a.summary, a.url, a.source, a.published_at, a.created_at
		FROM articles a
		JOIN article_tickers t ON t.article_id = a.id
		WHERE t.ticker = $1 AND a.published_at >= $2 AND a.published_at < $3
		ORDER BY a.published_at ASC`

	if err := r.db.SelectContext(ctx, &articles, query, ticker, from, to); err != nil {
		return nil, errors.Wrap(err, "failed to list articles by ticker")
	}
	return articles, nil
}

// CountMentions counts articles mentioning ticker published in [from, to)
func (r *ArticleRepository) CountMentions(ctx context.Context, ticker string, from, to time.Time) (_ int, err error) {
	defer observe("article_count_mentions", time.Now(), &err)

	var n int
	query := `
		SELECT COUNT(DISTINCT a.id)
		FROM articles a
		JOIN article_tickers t ON t.article_id = a.id
		WHERE t.ticker = $1 AND a.published_at >= $2 AND a.published_at < $3`

	if err := r.db.GetContext(ctx, &n, query, ticker, from, to); err != nil {
		return 0, errors.Wrap(err, "failed to count mentions")
	}
	return n, nil
}
