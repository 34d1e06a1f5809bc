package price

import (
	"context"
	"time"
)

// Provider fetches daily bars from an external market-data source.
// Unknown tickers fail with errors.ErrDataUnavailable; rate limits, timeouts and
// network failures are transient (errors.IsTransient).
type Provider interface {
	GetDailyBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// Repository stores daily bars and benchmark series (ClickHouse)
type Repository interface {
	SaveBars(ctx context.Context, bars []Bar) error
	GetBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)

	SaveBenchmarkPoints(ctx context.Context, points []BenchmarkPoint) error
	// GetBenchmarkPoint returns errors.ErrNotFound when no point exists for the date
	GetBenchmarkPoint(ctx context.Context, benchmark string, date time.Time) (*BenchmarkPoint, error)
}
