package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"newsimpact/internal/domain/price"
	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ price.Repository = (*PriceRepository)(nil)

// PriceRepository implements price.Repository using ClickHouse.
// Both tables are ReplacingMergeTree keyed by symbol and date, so re-inserting a
// day replaces it and reads use FINAL.
type PriceRepository struct {
	conn driver.Conn
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(conn driver.Conn) *PriceRepository {
	return &PriceRepository{conn: conn}
}

// SaveBars inserts daily bars in batch
func (r *PriceRepository) SaveBars(ctx context.Context, bars []price.Bar) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer observe("save_bars", time.Now(), &err)

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (ticker, date, open, high, low, close, volume)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, b := range bars {
		if err := batch.Append(b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return errors.Wrap(err, "failed to append bar")
		}
	}

	return batch.Send()
}

// GetBars retrieves bars dated within [start, end], ascending
func (r *PriceRepository) GetBars(ctx context.Context, ticker string, start, end time.Time) (_ []price.Bar, err error) {
	defer observe("get_bars", time.Now(), &err)

	var bars []price.Bar
	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM daily_bars FINAL
		WHERE ticker = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	if err := r.conn.Select(ctx, &bars, query, ticker, start, end); err != nil {
		return nil, errors.Wrap(err, "failed to select bars")
	}
	return bars, nil
}

// SaveBenchmarkPoints inserts benchmark series rows in batch
func (r *PriceRepository) SaveBenchmarkPoints(ctx context.Context, points []price.BenchmarkPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer observe("save_benchmark", time.Now(), &err)

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO benchmark_series (
			benchmark, date, close, day_change,
			return_1d, return_3d, return_5d, return_10d
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, p := range points {
		err := batch.Append(
			p.Benchmark, p.Date, p.Close, p.DayChange,
			p.Return1D, p.Return3D, p.Return5D, p.Return10D,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append benchmark point")
		}
	}

	return batch.Send()
}

// GetBenchmarkPoint returns the point for benchmark on date, or errors.ErrNotFound
func (r *PriceRepository) GetBenchmarkPoint(ctx context.Context, benchmark string, date time.Time) (_ *price.BenchmarkPoint, err error) {
	defer observe("get_benchmark", time.Now(), &err)

	var points []price.BenchmarkPoint
	query := `
		SELECT benchmark, date, close, day_change, return_1d, return_3d, return_5d, return_10d
		FROM benchmark_series FINAL
		WHERE benchmark = $1 AND date = $2
		LIMIT 1`

	if err := r.conn.Select(ctx, &points, query, benchmark, date); err != nil {
		return nil, errors.Wrap(err, "failed to select benchmark point")
	}
	if len(points) == 0 {
		return nil, errors.ErrNotFound
	}
	return &points[0], nil
}

func observe(op string, started time.Time, err *error) {
	var e error
	if err != nil && !errors.Is(*err, errors.ErrNotFound) {
		e = *err
	}
	metrics.RecordDBQuery("clickhouse", op, time.Since(started), e)
}
