package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/price"
	"newsimpact/pkg/errors"
)

type fakeProvider struct {
	bars  map[string][]price.Bar
	calls []string
}

func (f *fakeProvider) GetDailyBars(ctx context.Context, ticker string, start, end time.Time) ([]price.Bar, error) {
	f.calls = append(f.calls, ticker)
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "no bars for %s", ticker)
	}
	return bars, nil
}

type memPrices struct {
	bars   []price.Bar
	points map[string][]price.BenchmarkPoint
}

func (m *memPrices) SaveBars(ctx context.Context, bars []price.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

func (m *memPrices) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]price.Bar, error) {
	return nil, nil
}

func (m *memPrices) SaveBenchmarkPoints(ctx context.Context, points []price.BenchmarkPoint) error {
	if m.points == nil {
		m.points = make(map[string][]price.BenchmarkPoint)
	}
	for _, p := range points {
		m.points[p.Benchmark] = append(m.points[p.Benchmark], p)
	}
	return nil
}

func (m *memPrices) GetBenchmarkPoint(ctx context.Context, benchmark string, date time.Time) (*price.BenchmarkPoint, error) {
	return nil, errors.ErrNotFound
}

type staticSource []string

func (s staticSource) ListBenchmarks(ctx context.Context) ([]string, error) { return s, nil }

func series(ticker string, closes ...float64) []price.Bar {
	bars := make([]price.Bar, len(closes))
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = price.Bar{Ticker: ticker, Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func TestBenchmarkCollector_Run(t *testing.T) {
	provider := &fakeProvider{bars: map[string][]price.Bar{
		"SPY": series("SPY", 100, 101, 102),
		"XBI": series("XBI", 50, 45),
	}}
	store := &memPrices{}

	c := NewBenchmarkCollector(provider, store, staticSource{"XBI", "SPY", ""}, []string{"SPY"}, 30*24*time.Hour, time.Hour, true)
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"SPY", "XBI"}, provider.calls, "deduplicated and sorted")
	assert.Len(t, store.bars, 5)

	spy := store.points["SPY"]
	require.Len(t, spy, 3)
	require.NotNil(t, spy[0].Return1D)
	assert.InDelta(t, 1.0, *spy[0].Return1D, 1e-9)
	assert.Nil(t, spy[2].Return1D)

	xbi := store.points["XBI"]
	require.Len(t, xbi, 2)
	require.NotNil(t, xbi[1].DayChange)
	assert.InDelta(t, -10.0, *xbi[1].DayChange, 1e-9)
}

func TestBenchmarkCollector_ContinuesPastFailures(t *testing.T) {
	provider := &fakeProvider{bars: map[string][]price.Bar{
		"XLK": series("XLK", 10, 11),
	}}
	store := &memPrices{}

	c := NewBenchmarkCollector(provider, store, nil, []string{"NOPE", "XLK"}, 24*time.Hour, time.Hour, true)
	err := c.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)
	assert.Len(t, store.points["XLK"], 2, "other benchmarks are still refreshed")
}
