package seeds

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/testsupport"
	"newsimpact/pkg/errors"
)

// ProfileBuilder provides a fluent API for creating ticker profiles
type ProfileBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *ticker.Profile
}

// NewProfileBuilder creates a new ProfileBuilder with a unique symbol
func NewProfileBuilder(db DBTX, ctx context.Context) *ProfileBuilder {
	return &ProfileBuilder{
		db:  db,
		ctx: ctx,
		entity: &ticker.Profile{
			Symbol:      testsupport.UniqueSymbol("T"),
			CompanyName: "Test Corp",
			Sector:      "Technology",
			UpdatedAt:   time.Now().UTC(),
		},
	}
}

// WithSymbol sets the symbol
func (b *ProfileBuilder) WithSymbol(symbol string) *ProfileBuilder {
	b.entity.Symbol = symbol
	return b
}

// WithCompany sets the company name
func (b *ProfileBuilder) WithCompany(name string) *ProfileBuilder {
	b.entity.CompanyName = name
	return b
}

// WithSector sets the sector
func (b *ProfileBuilder) WithSector(sector string) *ProfileBuilder {
	b.entity.Sector = sector
	return b
}

// WithMarketCap sets the market cap in USD
func (b *ProfileBuilder) WithMarketCap(usd float64) *ProfileBuilder {
	b.entity.MarketCap = decimal.NewNullDecimal(decimal.NewFromFloat(usd))
	return b
}

// Build returns the profile without inserting it
func (b *ProfileBuilder) Build() *ticker.Profile {
	return b.entity
}

// Insert upserts the profile and returns it
func (b *ProfileBuilder) Insert() (*ticker.Profile, error) {
	query := `
		INSERT INTO ticker_profiles (symbol, company_name, market_cap, sector, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			market_cap = EXCLUDED.market_cap,
			sector = EXCLUDED.sector,
			updated_at = EXCLUDED.updated_at
	`

	_, err := b.db.ExecContext(
		b.ctx,
		query,
		b.entity.Symbol,
		b.entity.CompanyName,
		b.entity.MarketCap,
		b.entity.Sector,
		b.entity.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to insert profile %s", b.entity.Symbol)
	}
	return b.entity, nil
}

// MustInsert inserts and panics on error
func (b *ProfileBuilder) MustInsert() *ticker.Profile {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}

// MappingBuilder provides a fluent API for creating benchmark mappings
type MappingBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *ticker.Mapping
}

// NewMappingBuilder creates a MappingBuilder against SPY with no sector ETF
func NewMappingBuilder(db DBTX, ctx context.Context) *MappingBuilder {
	return &MappingBuilder{
		db:  db,
		ctx: ctx,
		entity: &ticker.Mapping{
			Ticker:          testsupport.UniqueSymbol("T"),
			MarketBenchmark: "SPY",
		},
	}
}

// WithTicker sets the mapped ticker
func (b *MappingBuilder) WithTicker(symbol string) *MappingBuilder {
	b.entity.Ticker = symbol
	return b
}

// WithMarket sets the market benchmark
func (b *MappingBuilder) WithMarket(benchmark string) *MappingBuilder {
	b.entity.MarketBenchmark = benchmark
	return b
}

// WithSector sets the sector ETF
func (b *MappingBuilder) WithSector(etf string) *MappingBuilder {
	if etf == "" {
		b.entity.SectorBenchmark = nil
		return b
	}
	b.entity.SectorBenchmark = &etf
	return b
}

// Build returns the mapping without inserting it
func (b *MappingBuilder) Build() *ticker.Mapping {
	return b.entity
}

// Insert upserts the mapping and returns it
func (b *MappingBuilder) Insert() (*ticker.Mapping, error) {
	query := `
		INSERT INTO ticker_benchmarks (ticker, market_benchmark, sector_benchmark)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker) DO UPDATE SET
			market_benchmark = EXCLUDED.market_benchmark,
			sector_benchmark = EXCLUDED.sector_benchmark
	`

	_, err := b.db.ExecContext(b.ctx, query, b.entity.Ticker, b.entity.MarketBenchmark, b.entity.SectorBenchmark)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to insert mapping %s", b.entity.Ticker)
	}
	return b.entity, nil
}

// MustInsert inserts and panics on error
func (b *MappingBuilder) MustInsert() *ticker.Mapping {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}
