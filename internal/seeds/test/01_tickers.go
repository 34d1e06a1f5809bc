package test

import (
	"context"

	"newsimpact/internal/testsupport/seeds"
)

// SeedTickers creates the minimal universe integration tests rely on
func SeedTickers(ctx context.Context, s *seeds.Seeder) error {
	s.Profile().WithSymbol("TEST").WithCompany("Test Corp").WithSector("Biotechnology").WithMarketCap(5e8).MustInsert()
	s.Mapping().WithTicker("TEST").WithMarket("SPY").WithSector("XBI").MustInsert()
	return nil
}
