package eventstudy

import (
	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/ticker"
	"newsimpact/internal/domain/window"
)

// Adjuster fills abnormal returns against the ticker's benchmark
type Adjuster struct {
	preferSector bool
	fallback     string
}

// NewAdjuster creates a new abnormal return adjuster. fallback is the broad
// market benchmark used when a ticker has no mapping.
func NewAdjuster(preferSector bool, fallback string) *Adjuster {
	if fallback == "" {
		fallback = "SPY"
	}
	return &Adjuster{preferSector: preferSector, fallback: fallback}
}

// SelectBenchmark picks one benchmark per ticker; the choice depends only on the mapping
func (a *Adjuster) SelectBenchmark(m *ticker.Mapping) string {
	return m.Benchmark(a.preferSector, a.fallback)
}

// Adjust sets abnormal_return_k = return_k - benchmark return_k for every horizon.
// The point must be dated on the window's event date; otherwise every abnormal
// return stays nil. A raw return is never used as a substitute.
func (a *Adjuster) Adjust(w *window.Window, benchmark string, point *price.BenchmarkPoint) {
	w.Benchmark = &benchmark

	aligned := point != nil && w.EventDate != nil && point.Date.Equal(*w.EventDate)
	for _, k := range window.PostHorizons {
		stock := w.Return(k)
		if !aligned || stock == nil {
			w.SetAbnormal(k, nil)
			continue
		}
		bench := point.Return(k)
		if bench == nil {
			w.SetAbnormal(k, nil)
			continue
		}
		w.SetAbnormal(k, round4(*stock-*bench))
	}
}
