package seeds

import (
	"context"
	"time"

	"newsimpact/internal/domain/confounder"
	"newsimpact/pkg/errors"
)

// CalendarEventBuilder provides a fluent API for confounder calendar entries
type CalendarEventBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *confounder.Record
}

// NewCalendarEventBuilder creates a market-wide event dated today
func NewCalendarEventBuilder(db DBTX, ctx context.Context) *CalendarEventBuilder {
	return &CalendarEventBuilder{
		db:  db,
		ctx: ctx,
		entity: &confounder.Record{
			EventDate: time.Now().UTC().Truncate(24 * time.Hour),
			Type:      confounder.TypeOther,
		},
	}
}

// ForTicker scopes the event to one ticker
func (b *CalendarEventBuilder) ForTicker(symbol string) *CalendarEventBuilder {
	b.entity.Ticker = &symbol
	return b
}

// On sets the event date
func (b *CalendarEventBuilder) On(date time.Time) *CalendarEventBuilder {
	b.entity.EventDate = date
	return b
}

// WithType sets the event type
func (b *CalendarEventBuilder) WithType(t confounder.Type) *CalendarEventBuilder {
	b.entity.Type = t
	return b
}

// WithDescription sets the description
func (b *CalendarEventBuilder) WithDescription(desc string) *CalendarEventBuilder {
	b.entity.Description = desc
	return b
}

// Build returns the record without inserting it
func (b *CalendarEventBuilder) Build() *confounder.Record {
	return b.entity
}

// Insert adds the event. An existing (ticker, date, type) entry is left
// untouched and reported as inserted=false.
func (b *CalendarEventBuilder) Insert() (bool, error) {
	query := `
		INSERT INTO confounder_events (ticker, event_date, event_type, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	res, err := b.db.ExecContext(
		b.ctx,
		query,
		b.entity.Ticker,
		b.entity.EventDate,
		string(b.entity.Type),
		b.entity.Description,
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to insert %s event", b.entity.Type)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n > 0, nil
}
