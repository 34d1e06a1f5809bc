package dev

import (
	"context"
	"time"

	"newsimpact/internal/domain/confounder"
	"newsimpact/internal/testsupport/seeds"
)

// SeedEarnings adds a handful of ticker-specific confounders so the
// development data exercises earnings and PDUFA penalties
func SeedEarnings(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	events := []struct {
		ticker string
		date   time.Time
		kind   confounder.Type
		desc   string
	}{
		{"AAPL", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), confounder.TypeEarnings, "Q2 FY24 earnings"},
		{"NVDA", time.Date(2024, 5, 22, 0, 0, 0, 0, time.UTC), confounder.TypeEarnings, "Q1 FY25 earnings"},
		{"MRNA", time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), confounder.TypeFDAPDUFA, "mRNA-1345 RSV PDUFA date"},
		{"VRTX", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), confounder.TypeEarnings, "Q1 2024 earnings"},
	}

	inserted := 0
	for _, e := range events {
		ok, err := s.CalendarEvent().
			ForTicker(e.ticker).
			On(e.date).
			WithType(e.kind).
			WithDescription(e.desc).
			Insert()
		if err != nil {
			return err
		}
		if ok {
			inserted++
		}
	}

	log.Infow("Created ticker calendar", "events", len(events), "inserted", inserted)
	return nil
}
