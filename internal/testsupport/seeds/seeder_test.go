package seeds

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/confounder"
)

func newMockSeeder(t *testing.T) (*Seeder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db).WithContext(context.Background()), mock
}

func TestProfileAndMappingInsert(t *testing.T) {
	s, mock := newMockSeeder(t)

	mock.ExpectExec("INSERT INTO ticker_profiles").
		WithArgs("MRNA", "Moderna Inc.", sqlmock.AnyArg(), "Healthcare", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ticker_benchmarks").
		WithArgs("MRNA", "SPY", "XBI").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ticker_benchmarks").
		WithArgs("AAPL", "SPY", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := s.Profile().WithSymbol("MRNA").WithCompany("Moderna Inc.").WithSector("Healthcare").WithMarketCap(4.1e10).MustInsert()
	assert.True(t, profile.MarketCap.Valid)

	m := s.Mapping().WithTicker("MRNA").WithSector("XBI").MustInsert()
	assert.Equal(t, "XBI", m.Sector())

	m = s.Mapping().WithTicker("AAPL").WithSector("").MustInsert()
	assert.Nil(t, m.SectorBenchmark)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarEventInsertReportsDuplicates(t *testing.T) {
	s, mock := newMockSeeder(t)
	day := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO confounder_events").
		WithArgs(nil, day, "fed_meeting", "FOMC decision").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO confounder_events").
		WithArgs(nil, day, "fed_meeting", "FOMC decision").
		WillReturnResult(sqlmock.NewResult(0, 0))

	build := func() *CalendarEventBuilder {
		return s.CalendarEvent().On(day).WithType(confounder.TypeFedMeeting).WithDescription("FOMC decision")
	}

	inserted, err := build().Insert()
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = build().Insert()
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleInsertWithTickers(t *testing.T) {
	s, mock := newMockSeeder(t)

	mock.ExpectQuery("INSERT INTO articles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))
	mock.ExpectExec("INSERT INTO article_tickers").
		WithArgs(int64(7), "MRNA").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO article_tickers").
		WithArgs(int64(7), "PFE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := s.Article().WithTitle("Moderna beats estimates").WithTickers("MRNA", "PFE").Insert()
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
