package confounder

import (
	"context"
	"time"
)

// Repository reads the confounder calendar
type Repository interface {
	// Find returns events for the ticker and market-wide events dated within [from, to]
	Find(ctx context.Context, ticker string, from, to time.Time) ([]Record, error)

	// Import bulk-inserts calendar events, ignoring duplicates; returns rows inserted
	Import(ctx context.Context, records []Record) (int, error)
}
