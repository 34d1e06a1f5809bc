// Package macro seeds the market-wide part of the confounder calendar:
// FOMC rate decisions and CPI releases.
package macro

import (
	"context"
	"time"

	"newsimpact/internal/domain/confounder"
	"newsimpact/internal/testsupport/seeds"
)

// FOMC decision days
var fedMeetings = []string{
	"2024-01-31", "2024-03-20", "2024-05-01", "2024-06-12",
	"2024-07-31", "2024-09-18", "2024-11-07", "2024-12-18",
	"2025-01-29", "2025-03-19", "2025-05-07", "2025-06-18",
	"2025-07-30", "2025-09-17", "2025-10-29", "2025-12-10",
}

// BLS CPI release days
var cpiReleases = []string{
	"2024-01-11", "2024-02-13", "2024-03-12", "2024-04-10",
	"2024-05-15", "2024-06-12", "2024-07-11", "2024-08-14",
	"2024-09-11", "2024-10-10", "2024-11-13", "2024-12-11",
	"2025-01-15", "2025-02-12", "2025-03-12", "2025-04-10",
	"2025-05-13", "2025-06-11", "2025-07-15", "2025-08-12",
	"2025-09-11",
}

// SeedCalendar inserts the macro calendar (idempotent)
func SeedCalendar(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	inserted, err := insertAll(s, fedMeetings, confounder.TypeFedMeeting, "FOMC rate decision")
	if err != nil {
		return err
	}
	n, err := insertAll(s, cpiReleases, confounder.TypeCPIRelease, "CPI release")
	if err != nil {
		return err
	}
	inserted += n

	log.Infow("Macro calendar seeded",
		"fed_meetings", len(fedMeetings),
		"cpi_releases", len(cpiReleases),
		"inserted", inserted,
	)
	return nil
}

func insertAll(s *seeds.Seeder, dates []string, t confounder.Type, desc string) (int, error) {
	inserted := 0
	for _, d := range dates {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return inserted, err
		}
		ok, err := s.CalendarEvent().On(day).WithType(t).WithDescription(desc).Insert()
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
