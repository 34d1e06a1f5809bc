package ticker

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile holds reference data for a listed company
type Profile struct {
	Symbol      string              `db:"symbol"`
	CompanyName string              `db:"company_name"`
	MarketCap   decimal.NullDecimal `db:"market_cap"` // USD, null when unknown
	Sector      string              `db:"sector"`
	UpdatedAt   time.Time           `db:"updated_at"`
}

// Mapping links a ticker to its benchmarks
type Mapping struct {
	Ticker          string  `db:"ticker"`
	MarketBenchmark string  `db:"market_benchmark"`
	SectorBenchmark *string `db:"sector_benchmark"`
}

// Benchmark picks the benchmark for abnormal returns. The sector ETF wins when
// preferSector is set and one is mapped; otherwise the market benchmark, then fallback.
func (m *Mapping) Benchmark(preferSector bool, fallback string) string {
	if m == nil {
		return fallback
	}
	if preferSector && m.SectorBenchmark != nil && *m.SectorBenchmark != "" {
		return *m.SectorBenchmark
	}
	if m.MarketBenchmark != "" {
		return m.MarketBenchmark
	}
	if m.SectorBenchmark != nil && *m.SectorBenchmark != "" {
		return *m.SectorBenchmark
	}
	return fallback
}

// Sector returns the sector ETF or an empty string
func (m *Mapping) Sector() string {
	if m == nil || m.SectorBenchmark == nil {
		return ""
	}
	return *m.SectorBenchmark
}
