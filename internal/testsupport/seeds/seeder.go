package seeds

import (
	"context"
	"database/sql"

	"newsimpact/pkg/logger"
)

// DBTX is the interface that both *sql.DB and *sql.Tx satisfy
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Seeder is the central orchestrator for creating seed data
// It provides a fluent API to build reference data and test scenarios
type Seeder struct {
	db  DBTX
	ctx context.Context
	log *logger.Logger
}

// New creates a new Seeder instance
func New(db DBTX) *Seeder {
	return &Seeder{
		db:  db,
		ctx: context.Background(),
		log: logger.Get().With("component", "seeds"),
	}
}

// WithContext sets the context for database operations
func (s *Seeder) WithContext(ctx context.Context) *Seeder {
	s.ctx = ctx
	return s
}

// Log returns the logger instance
func (s *Seeder) Log() *logger.Logger {
	return s.log
}

// Profile starts building a ticker profile
func (s *Seeder) Profile() *ProfileBuilder {
	return NewProfileBuilder(s.db, s.ctx)
}

// Mapping starts building a ticker benchmark mapping
func (s *Seeder) Mapping() *MappingBuilder {
	return NewMappingBuilder(s.db, s.ctx)
}

// CalendarEvent starts building a confounder calendar entry
func (s *Seeder) CalendarEvent() *CalendarEventBuilder {
	return NewCalendarEventBuilder(s.db, s.ctx)
}

// Article starts building an article with its mentioned tickers
func (s *Seeder) Article() *ArticleBuilder {
	return NewArticleBuilder(s.db, s.ctx)
}
