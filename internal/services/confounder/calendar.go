package confounder

import (
	"context"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"newsimpact/internal/domain/confounder"
	"newsimpact/pkg/errors"
)

const defaultEarningsDescription = "Earnings call"

// CalendarEntry is one line of an imported calendar file
type CalendarEntry struct {
	Ticker      string `yaml:"ticker"`
	Date        string `yaml:"date"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// ParseCalendar decodes a YAML (or JSON) list of calendar entries.
// Type defaults to earnings, which must name a ticker; other types without
// a ticker are market-wide.
func ParseCalendar(data []byte) ([]confounder.Record, error) {
	var entries []CalendarEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decode calendar")
	}

	records := make([]confounder.Record, 0, len(entries))
	for i, e := range entries {
		rec, err := e.record()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i+1)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e CalendarEntry) record() (confounder.Record, error) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(e.Date))
	if err != nil {
		return confounder.Record{}, errors.NewValidationError("date", "expected YYYY-MM-DD", e.Date)
	}

	typ := confounder.TypeEarnings
	if raw := strings.ToLower(strings.TrimSpace(e.Type)); raw != "" {
		typ = confounder.ParseType(raw)
		if string(typ) != raw {
			return confounder.Record{}, errors.NewValidationError("type", "unknown event type", e.Type)
		}
	}

	rec := confounder.Record{
		EventDate:   date,
		Type:        typ,
		Description: strings.TrimSpace(e.Description),
	}
	if symbol := strings.ToUpper(strings.TrimSpace(e.Ticker)); symbol != "" {
		rec.Ticker = &symbol
	}

	if typ == confounder.TypeEarnings {
		if rec.Ticker == nil {
			return confounder.Record{}, errors.NewValidationError("ticker", "earnings events need a ticker", e.Ticker)
		}
		if rec.Description == "" {
			rec.Description = defaultEarningsDescription
		}
	}
	return rec, nil
}

// ImportCalendar stores calendar events, skipping ones already known; returns rows inserted
func (d *Detector) ImportCalendar(ctx context.Context, records []confounder.Record) (int, error) {
	inserted, err := d.calendar.Import(ctx, records)
	if err != nil {
		return inserted, errors.Wrap(err, "failed to import calendar")
	}
	d.log.Infow("Imported confounder calendar",
		"records", len(records),
		"inserted", inserted,
		"duplicates", len(records)-inserted,
	)
	return inserted, nil
}
