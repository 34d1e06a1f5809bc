package article

import (
	"context"
	"time"
)

// Repository defines the interface for article data access
type Repository interface {
	Create(ctx context.Context, a *Article) error
	GetByID(ctx context.Context, id int64) (*Article, error)

	// SaveTickers replaces the candidate tickers of an article
	SaveTickers(ctx context.Context, articleID int64, tickers []Ticker) error
	ListTickers(ctx context.Context, articleID int64) ([]Ticker, error)

	// ListUnregistered returns articles published since the given time that have
	// candidate tickers but no return-window rows yet
	ListUnregistered(ctx context.Context, since time.Time, limit int) ([]Article, error)

	// ListByTicker returns articles mentioning ticker published in [from, to)
	ListByTicker(ctx context.Context, ticker string, from, to time.Time) ([]Article, error)

	// CountMentions counts articles mentioning ticker published in [from, to)
	CountMentions(ctx context.Context, ticker string, from, to time.Time) (int, error)
}
