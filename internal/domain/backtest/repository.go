package backtest

import (
	"context"
	"time"
)

// Repository defines backtest data access
type Repository interface {
	// ListObservations returns scored pairs published in [from, to) with
	// score_total >= minScore and a known 1-day abnormal return
	ListObservations(ctx context.Context, from, to time.Time, minScore float64) ([]Observation, error)

	// SaveRun writes all result and recommendation rows of a run atomically
	SaveRun(ctx context.Context, run *Run) error

	// LatestRun returns errors.ErrNotFound when no run has been recorded
	LatestRun(ctx context.Context) (*Run, error)
}
