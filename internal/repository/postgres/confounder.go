package postgres

import (
	"context"
	"time"

	"newsimpact/internal/domain/confounder"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ confounder.Repository = (*ConfounderRepository)(nil)

// ConfounderRepository implements confounder.Repository over confounder_events
type ConfounderRepository struct {
	db DBTX
}

// NewConfounderRepository creates a new confounder calendar repository
func NewConfounderRepository(db DBTX) *ConfounderRepository {
	return &ConfounderRepository{db: db}
}

// Find returns ticker and market-wide events dated within [from, to]
func (r *ConfounderRepository) Find(ctx context.Context, ticker string, from, to time.Time) (_ []confounder.Record, err error) {
	defer observe("confounder_find", time.Now(), &err)

	var records []confounder.Record
	query := `
		SELECT id, ticker, event_date, event_type, description
		FROM confounder_events
		WHERE (ticker = $1 OR ticker IS NULL)
		  AND event_date >= $2::date AND event_date <= $3::date
		ORDER BY event_date ASC, id ASC`

	if err := r.db.SelectContext(ctx, &records, query, ticker, from, to); err != nil {
		return nil, errors.Wrap(err, "failed to find confounders")
	}
	for i := range records {
		records[i].Type = confounder.ParseType(string(records[i].Type))
	}
	return records, nil
}

// Import inserts calendar events in one transaction; duplicates of (ticker, date, type) are skipped
func (r *ConfounderRepository) Import(ctx context.Context, records []confounder.Record) (_ int, err error) {
	if len(records) == 0 {
		return 0, nil
	}
	defer observe("confounder_import", time.Now(), &err)

	query := `
		INSERT INTO confounder_events (ticker, event_date, event_type, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`

	inserted := 0
	err = inTx(ctx, r.db, func(q DBTX) error {
		for _, rec := range records {
			res, err := q.ExecContext(ctx, query, rec.Ticker, rec.EventDate, rec.Type, rec.Description)
			if err != nil {
				return errors.Wrapf(err, "failed to import %s event on %s", rec.Type, rec.EventDate.Format("2006-01-02"))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errors.Wrap(err, "failed to get rows affected")
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
