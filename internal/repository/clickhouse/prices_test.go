package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/price"
	"newsimpact/internal/testsupport"
	"newsimpact/pkg/errors"
)

func TestPriceRepository_Bars(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testsupport.LoadIntegrationConfig(t)
	helper := testsupport.NewClickHouseTestHelper(t, cfg.ClickHouse)
	helper.RegisterTableCleanup(t, "daily_bars", "ticker = 'TSTBAR'")

	repo := NewPriceRepository(helper.Client().Conn())
	ctx := context.Background()

	bars := testsupport.NewBarSeries("TSTBAR", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 100, 1.5, 6)
	require.NoError(t, repo.SaveBars(ctx, bars))

	// re-inserting a day replaces it
	fixed := bars[2]
	fixed.Close = 42
	require.NoError(t, repo.SaveBars(ctx, []price.Bar{fixed}))

	got, err := repo.GetBars(ctx, "TSTBAR", bars[1].Date, bars[4].Date)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[0].Date.Equal(bars[1].Date))
	assert.Equal(t, 42.0, got[1].Close)
}

func TestPriceRepository_BenchmarkPoints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testsupport.LoadIntegrationConfig(t)
	helper := testsupport.NewClickHouseTestHelper(t, cfg.ClickHouse)
	helper.RegisterTableCleanup(t, "benchmark_series", "benchmark = 'TSTBM'")

	repo := NewPriceRepository(helper.Client().Conn())
	ctx := context.Background()

	bars := testsupport.NewBarSeries("TSTBM", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 400, 2, 12)
	points := price.BuildBenchmarkSeries("TSTBM", bars)
	require.NoError(t, repo.SaveBenchmarkPoints(ctx, points))

	p, err := repo.GetBenchmarkPoint(ctx, "TSTBM", bars[0].Date)
	require.NoError(t, err)
	assert.Nil(t, p.DayChange)
	require.NotNil(t, p.Return10D)
	assert.InDelta(t, *points[0].Return10D, *p.Return10D, 1e-9)

	last, err := repo.GetBenchmarkPoint(ctx, "TSTBM", bars[11].Date)
	require.NoError(t, err)
	assert.Nil(t, last.Return1D)

	_, err = repo.GetBenchmarkPoint(ctx, "TSTBM", bars[0].Date.AddDate(0, 0, -30))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
