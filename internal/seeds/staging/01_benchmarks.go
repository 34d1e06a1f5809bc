package staging

import (
	"context"

	"newsimpact/internal/testsupport/seeds"
)

// SeedBenchmarks maps the sector ETFs to themselves against SPY so their
// own articles resolve a benchmark (idempotent)
func SeedBenchmarks(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	etfs := []string{"XBI", "XLV", "XLK", "XLF", "XLE", "XLI", "XLY", "XLP", "XLU", "XLB", "XLRE", "XLC"}
	for _, etf := range etfs {
		if _, err := s.Mapping().WithTicker(etf).WithMarket("SPY").Insert(); err != nil {
			return err
		}
	}

	log.Infow("Benchmark mappings seeded", "count", len(etfs))
	return nil
}
