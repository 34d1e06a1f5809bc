package price

import (
	"sort"
	"time"
)

// Bar is one daily OHLCV bar. Date is the session date at midnight UTC.
type Bar struct {
	Ticker string    `ch:"ticker"`
	Date   time.Time `ch:"date"`
	Open   float64   `ch:"open"`
	High   float64   `ch:"high"`
	Low    float64   `ch:"low"`
	Close  float64   `ch:"close"`
	Volume float64   `ch:"volume"`
}

// BenchmarkPoint is one row of a benchmark series: the close on Date and the
// forward returns (percent) from that close. DayChange is close-to-close from the prior session.
type BenchmarkPoint struct {
	Benchmark string    `ch:"benchmark"`
	Date      time.Time `ch:"date"`
	Close     float64   `ch:"close"`
	DayChange *float64  `ch:"day_change"`
	Return1D  *float64  `ch:"return_1d"`
	Return3D  *float64  `ch:"return_3d"`
	Return5D  *float64  `ch:"return_5d"`
	Return10D *float64  `ch:"return_10d"`
}

// Return gives the forward return for horizon k (1, 3, 5 or 10 sessions)
func (p *BenchmarkPoint) Return(k int) *float64 {
	if p == nil {
		return nil
	}
	switch k {
	case 1:
		return p.Return1D
	case 3:
		return p.Return3D
	case 5:
		return p.Return5D
	case 10:
		return p.Return10D
	}
	return nil
}

// SortBars orders bars by date ascending and drops duplicate dates (last one wins)
func SortBars(bars []Bar) []Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	out := bars[:0]
	for i, b := range bars {
		if i > 0 && len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// PctChange returns (to - from) / from in percent, or nil when from is not positive
func PctChange(from, to float64) *float64 {
	if from <= 0 {
		return nil
	}
	v := (to - from) / from * 100
	return &v
}

// BuildBenchmarkSeries turns ascending daily bars into benchmark points with forward returns.
// Horizons that run past the last bar stay nil.
func BuildBenchmarkSeries(benchmark string, bars []Bar) []BenchmarkPoint {
	bars = SortBars(bars)
	points := make([]BenchmarkPoint, len(bars))

	forward := func(i, k int) *float64 {
		if i+k >= len(bars) {
			return nil
		}
		return PctChange(bars[i].Close, bars[i+k].Close)
	}

	for i, b := range bars {
		p := BenchmarkPoint{
			Benchmark: benchmark,
			Date:      b.Date,
			Close:     b.Close,
			Return1D:  forward(i, 1),
			Return3D:  forward(i, 3),
			Return5D:  forward(i, 5),
			Return10D: forward(i, 10),
		}
		if i > 0 {
			p.DayChange = PctChange(bars[i-1].Close, b.Close)
		}
		points[i] = p
	}
	return points
}
