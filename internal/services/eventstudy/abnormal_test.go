package eventstudy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/domain/window"
)

func TestAdjustSubtractsBenchmark(t *testing.T) {
	bars := eventBars("XYZ", 103, 105, 108, 104, 101)
	w := computeAt(t, bars, bars[day0].Date.Add(15*time.Hour))

	// benchmark closes 400, 404, 408 at +3, 396 at +5
	spy := makeBars("SPY", append(flat(26, 400), 404, 406, 408, 402, 396))
	series := price.BuildBenchmarkSeries("SPY", spy)
	point := series[day0]
	require.Equal(t, *w.EventDate, point.Date)

	NewAdjuster(true, "SPY").Adjust(w, "SPY", &point)

	assert.Equal(t, "SPY", *w.Benchmark)
	assert.Equal(t, 2.0, *w.AbnormalReturn1D)
	assert.Equal(t, 6.0, *w.AbnormalReturn3D)
	assert.Equal(t, 2.0, *w.AbnormalReturn5D)
	assert.Nil(t, w.AbnormalReturn10D)

	for _, k := range window.PostHorizons {
		if w.Abnormal(k) == nil {
			continue
		}
		assert.InDelta(t, *w.Return(k)-*point.Return(k), *w.Abnormal(k), 1e-4)
	}
	assert.Equal(t, 3, w.Resolved())
}

func TestAdjustRequiresAlignedPoint(t *testing.T) {
	bars := eventBars("XYZ", 103, 105, 108, 104, 101)
	w := computeAt(t, bars, bars[day0].Date.Add(15*time.Hour))

	other := price.BenchmarkPoint{Benchmark: "SPY", Date: bars[day0-1].Date, Return1D: f64(1)}
	NewAdjuster(true, "SPY").Adjust(w, "SPY", &other)
	assert.Nil(t, w.AbnormalReturn1D)

	NewAdjuster(true, "SPY").Adjust(w, "SPY", nil)
	assert.Nil(t, w.AbnormalReturn1D)
	assert.Equal(t, 0, w.Resolved())
	assert.NotNil(t, w.Return1D, "raw return is kept")
}

func TestAdjustMissingBenchmarkHorizon(t *testing.T) {
	bars := eventBars("XYZ", 103, 105, 108, 104, 101)
	w := computeAt(t, bars, bars[day0].Date.Add(15*time.Hour))

	point := price.BenchmarkPoint{Benchmark: "XBI", Date: *w.EventDate, Return1D: f64(0.5)}
	NewAdjuster(true, "SPY").Adjust(w, "XBI", &point)

	assert.Equal(t, 2.5, *w.AbnormalReturn1D)
	assert.Nil(t, w.AbnormalReturn3D, "never substitutes the raw return")
}

func TestSelectBenchmark(t *testing.T) {
	sector := &ticker.Mapping{Ticker: "XYZ", MarketBenchmark: "SPY", SectorBenchmark: strPtr("XBI")}
	market := &ticker.Mapping{Ticker: "ABC", MarketBenchmark: "QQQ"}

	assert.Equal(t, "XBI", NewAdjuster(true, "SPY").SelectBenchmark(sector))
	assert.Equal(t, "SPY", NewAdjuster(false, "SPY").SelectBenchmark(sector))
	assert.Equal(t, "QQQ", NewAdjuster(true, "SPY").SelectBenchmark(market))
	assert.Equal(t, "SPY", NewAdjuster(true, "SPY").SelectBenchmark(nil))
	assert.Equal(t, "SPY", NewAdjuster(true, "").SelectBenchmark(nil))
}
