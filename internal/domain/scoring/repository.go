package scoring

import (
	"context"
)

// Repository defines the interface for composite score persistence.
// (article_id, ticker) is unique.
type Repository interface {
	Upsert(ctx context.Context, s *CompositeScore) error
	// Get returns errors.ErrNotFound when the pair has not been scored
	Get(ctx context.Context, articleID int64, ticker string) (*CompositeScore, error)
	GetByID(ctx context.Context, id int64) (*CompositeScore, error)

	// SaveKeywordMatches replaces the audit trail of matches for an article
	SaveKeywordMatches(ctx context.Context, articleID int64, matches []KeywordMatch) error
	ListKeywordMatches(ctx context.Context, articleID int64) ([]KeywordMatch, error)
}
