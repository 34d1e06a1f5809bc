package window

import (
	"context"
	"time"
)

// PendingFilter selects the rows a processing batch may attempt.
// Rows are anchored at the later of publication and registration.
// Fresh not_started rows always match; retried rows must be under MaxRetries and:
//   - failed or retried not_started: anchored at or after RetryAnchorAfter
//   - partial: anchored at or after PartialAnchorAfter and last attempted
//     at or before PartialProcessedBefore (or never)
type PendingFilter struct {
	MaxRetries             int
	RetryAnchorAfter       time.Time
	PartialAnchorAfter     time.Time
	PartialProcessedBefore time.Time
	Limit                  int
}

// StaleFilter selects candidate rows needing operator attention.
// The retry policy makes the final decision.
type StaleFilter struct {
	PartialBefore time.Time // partial rows not processed since
	AnchorBefore  time.Time // failed or partial rows whose retry anchor is older
	MaxRetries    int       // rows at or above this retry count
	Limit         int
}

// Repository defines the interface for window persistence.
// (article_id, ticker) is unique.
type Repository interface {
	// Register inserts a not_started row; returns false if the pair already exists
	Register(ctx context.Context, w *Window) (bool, error)

	// Get returns errors.ErrNotFound when the pair is unknown
	Get(ctx context.Context, articleID int64, ticker string) (*Window, error)

	// Save upserts the row. Rows already complete are never overwritten;
	// such an attempt fails with errors.ErrInvariantViolation.
	Save(ctx context.Context, w *Window) error

	ListPending(ctx context.Context, f PendingFilter) ([]Window, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Window, error)
	ListStale(ctx context.Context, f StaleFilter) ([]Window, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
