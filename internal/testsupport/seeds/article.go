package seeds

import (
	"context"
	"time"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/testsupport"
	"newsimpact/pkg/errors"
)

// ArticleBuilder provides a fluent API for creating articles and their tickers
type ArticleBuilder struct {
	db      DBTX
	ctx     context.Context
	entity  *article.Article
	tickers []string
}

// NewArticleBuilder creates an article with a unique URL published an hour ago
func NewArticleBuilder(db DBTX, ctx context.Context) *ArticleBuilder {
	return &ArticleBuilder{
		db:  db,
		ctx: ctx,
		entity: &article.Article{
			Title:       "Test article",
			URL:         testsupport.UniqueURL(),
			Source:      "seed",
			PublishedAt: time.Now().UTC().Add(-time.Hour),
		},
	}
}

// WithTitle sets the title
func (b *ArticleBuilder) WithTitle(title string) *ArticleBuilder {
	b.entity.Title = title
	return b
}

// WithSummary sets the summary
func (b *ArticleBuilder) WithSummary(summary string) *ArticleBuilder {
	b.entity.Summary = summary
	return b
}

// WithURL sets the URL
func (b *ArticleBuilder) WithURL(url string) *ArticleBuilder {
	b.entity.URL = url
	return b
}

// WithSource sets the source
func (b *ArticleBuilder) WithSource(source string) *ArticleBuilder {
	b.entity.Source = source
	return b
}

// PublishedAt sets the publication time
func (b *ArticleBuilder) PublishedAt(t time.Time) *ArticleBuilder {
	b.entity.PublishedAt = t
	return b
}

// WithTickers sets the mentioned tickers
func (b *ArticleBuilder) WithTickers(symbols ...string) *ArticleBuilder {
	b.tickers = symbols
	return b
}

// Insert inserts the article and its tickers. A URL that already exists
// resolves to the stored article.
func (b *ArticleBuilder) Insert() (*article.Article, error) {
	query := `
		INSERT INTO articles (title, summary, url, source, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		RETURNING id, created_at
	`

	err := b.db.QueryRowContext(
		b.ctx,
		query,
		b.entity.Title,
		b.entity.Summary,
		b.entity.URL,
		b.entity.Source,
		b.entity.PublishedAt,
	).Scan(&b.entity.ID, &b.entity.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert article")
	}

	for _, symbol := range b.tickers {
		_, err := b.db.ExecContext(b.ctx, `
			INSERT INTO article_tickers (article_id, ticker)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, b.entity.ID, symbol)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to insert ticker %s", symbol)
		}
	}
	return b.entity, nil
}

// MustInsert inserts and panics on error
func (b *ArticleBuilder) MustInsert() *article.Article {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}
