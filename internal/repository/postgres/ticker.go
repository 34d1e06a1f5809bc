package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"newsimpact/internal/domain/ticker"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ ticker.Repository = (*TickerRepository)(nil)

// TickerRepository implements ticker.Repository over ticker_profiles and ticker_benchmarks
type TickerRepository struct {
	db DBTX
}

// NewTickerRepository creates a new ticker repository
func NewTickerRepository(db DBTX) *TickerRepository {
	return &TickerRepository{db: db}
}

// GetProfiles returns profiles keyed by symbol
func (r *TickerRepository) GetProfiles(ctx context.Context, symbols []string) (_ map[string]ticker.Profile, err error) {
	out := make(map[string]ticker.Profile, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}
	defer observe("ticker_profiles", time.Now(), &err)

	var rows []ticker.Profile
	query := `
		SELECT symbol, company_name, market_cap, sector, updated_at
		FROM ticker_profiles
		WHERE symbol = ANY($1)`

	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(symbols)); err != nil {
		return nil, errors.Wrap(err, "failed to get ticker profiles")
	}
	for _, p := range rows {
		out[p.Symbol] = p
	}
	return out, nil
}

// GetMapping returns the benchmark mapping of a ticker
func (r *TickerRepository) GetMapping(ctx context.Context, symbol string) (_ *ticker.Mapping, err error) {
	defer observe("ticker_mapping", time.Now(), &err)

	var m ticker.Mapping
	query := `
		SELECT ticker, market_benchmark, sector_benchmark
		FROM ticker_benchmarks
		WHERE ticker = $1`

	err = r.db.GetContext(ctx, &m, query, symbol)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "benchmark mapping for %s", symbol)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get benchmark mapping")
	}
	return &m, nil
}

// ListBenchmarks returns every distinct benchmark referenced by a mapping
func (r *TickerRepository) ListBenchmarks(ctx context.Context) (_ []string, err error) {
	defer observe("ticker_list_benchmarks", time.Now(), &err)

	var out []string
	query := `
		SELECT market_benchmark FROM ticker_benchmarks
		UNION
		SELECT sector_benchmark FROM ticker_benchmarks WHERE sector_benchmark IS NOT NULL AND sector_benchmark <> ''
		ORDER BY 1`

	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, errors.Wrap(err, "failed to list benchmarks")
	}
	return out, nil
}

// UpsertProfile inserts or refreshes a ticker profile
func (r *TickerRepository) UpsertProfile(ctx context.Context, p ticker.Profile) (err error) {
	defer observe("ticker_upsert_profile", time.Now(), &err)

	query := `
		INSERT INTO ticker_profiles (symbol, company_name, market_cap, sector, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			market_cap = EXCLUDED.market_cap,
			sector = EXCLUDED.sector,
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, p.Symbol, p.CompanyName, p.MarketCap, p.Sector); err != nil {
		return errors.Wrapf(err, "failed to upsert profile %s", p.Symbol)
	}
	return nil
}

// UpsertMapping inserts or replaces a ticker's benchmark mapping
func (r *TickerRepository) UpsertMapping(ctx context.Context, m ticker.Mapping) (err error) {
	defer observe("ticker_upsert_mapping", time.Now(), &err)

	query := `
		INSERT INTO ticker_benchmarks (ticker, market_benchmark, sector_benchmark)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker) DO UPDATE SET
			market_benchmark = EXCLUDED.market_benchmark,
			sector_benchmark = EXCLUDED.sector_benchmark`

	if _, err := r.db.ExecContext(ctx, query, m.Ticker, m.MarketBenchmark, m.SectorBenchmark); err != nil {
		return errors.Wrapf(err, "failed to upsert mapping %s", m.Ticker)
	}
	return nil
}
