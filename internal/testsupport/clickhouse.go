package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsimpact/internal/adapters/clickhouse"
	"newsimpact/internal/adapters/config"
	"newsimpact/internal/domain/price"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper creates a ClickHouse client for tests.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	helper := &ClickHouseTestHelper{client: client}
	t.Cleanup(func() { _ = client.Close() })
	return helper
}

// Client exposes the raw ClickHouse client for queries.
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// CreateTempTable creates a temporary table and registers cleanup.
func (h *ClickHouseTestHelper) CreateTempTable(t *testing.T, schema string) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, schema)

	if err := h.client.Conn().Exec(context.Background(), query); err != nil {
		t.Fatalf("failed to create clickhouse table: %v", err)
	}

	t.Cleanup(func() {
		_ = h.client.Conn().Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}

// CleanupTable drops the provided table immediately.
func (h *ClickHouseTestHelper) CleanupTable(ctx context.Context, table string) error {
	return h.client.Conn().Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
}

// RegisterTableCleanup schedules deletion of rows matching condition after the test
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, condition string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// lightweight DELETE is synchronous, ALTER TABLE DELETE is not
		_ = h.client.Conn().Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, condition))
	})
}

// BarFixture builds a daily bar with fluent setters
type BarFixture struct {
	bar price.Bar
}

// NewBarFixture returns a flat bar at 100 with 1M volume
func NewBarFixture(ticker string, date time.Time) *BarFixture {
	return &BarFixture{bar: price.Bar{
		Ticker: ticker,
		Date:   date,
		Open:   100,
		High:   100,
		Low:    100,
		Close:  100,
		Volume: 1_000_000,
	}}
}

// WithPrices sets open, high, low and close
func (f *BarFixture) WithPrices(open, high, low, close float64) *BarFixture {
	f.bar.Open, f.bar.High, f.bar.Low, f.bar.Close = open, high, low, close
	return f
}

// WithVolume sets the session volume
func (f *BarFixture) WithVolume(v float64) *BarFixture {
	f.bar.Volume = v
	return f
}

// Build returns the bar
func (f *BarFixture) Build() price.Bar {
	return f.bar
}

// NewBarSeries returns n weekday bars starting at start whose close moves by step each session
func NewBarSeries(ticker string, start time.Time, first, step float64, n int) []price.Bar {
	bars := make([]price.Bar, 0, n)
	day := start
	closePrice := first
	for len(bars) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			bars = append(bars, NewBarFixture(ticker, day).
				WithPrices(closePrice, closePrice+1, closePrice-1, closePrice).
				Build())
			closePrice += step
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}
