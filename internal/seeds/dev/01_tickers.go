package dev

import (
	"context"

	"newsimpact/internal/testsupport/seeds"
)

// SeedTickers creates profiles and benchmark mappings for a development universe
func SeedTickers(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	universe := []struct {
		symbol    string
		company   string
		sector    string
		marketCap float64
		etf       string
	}{
		{"AAPL", "Apple Inc.", "Technology", 3.4e12, "XLK"},
		{"MSFT", "Microsoft Corporation", "Technology", 3.1e12, "XLK"},
		{"NVDA", "NVIDIA Corporation", "Technology", 2.9e12, "XLK"},
		{"JPM", "JPMorgan Chase & Co.", "Financials", 6.1e11, "XLF"},
		{"XOM", "Exxon Mobil Corporation", "Energy", 4.7e11, "XLE"},
		{"PFE", "Pfizer Inc.", "Healthcare", 1.6e11, "XLV"},
		{"MRNA", "Moderna, Inc.", "Biotechnology", 4.1e10, "XBI"},
		{"VRTX", "Vertex Pharmaceuticals", "Biotechnology", 1.2e11, "XBI"},
		{"SAVA", "Cassava Sciences, Inc.", "Biotechnology", 1.1e9, "XBI"},
		{"TSLA", "Tesla, Inc.", "Consumer Discretionary", 7.9e11, "XLY"},
	}

	for _, t := range universe {
		s.Profile().
			WithSymbol(t.symbol).
			WithCompany(t.company).
			WithSector(t.sector).
			WithMarketCap(t.marketCap).
			MustInsert()

		s.Mapping().
			WithTicker(t.symbol).
			WithMarket("SPY").
			WithSector(t.etf).
			MustInsert()
	}

	log.Infow("Created ticker universe", "tickers", len(universe))
	return nil
}
