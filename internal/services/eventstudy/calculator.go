package eventstudy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/window"
	"newsimpact/pkg/errors"
)

// CalculatorConfig controls event-day alignment and baselines
type CalculatorConfig struct {
	BaselineDays int            // trading days before day 0 used for volume and volatility baselines
	MaxGapDays   int            // day 0 older than this many calendar days before publication means no data
	Location     *time.Location // market timezone for the publication date
}

// DefaultCalculatorConfig returns the standard configuration
func DefaultCalculatorConfig() CalculatorConfig {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return CalculatorConfig{
		BaselineDays: 20,
		MaxGapDays:   7,
		Location:     loc,
	}
}

// Baseline holds the pre-event statistics of one (ticker, event day)
type Baseline struct {
	VolumeMean *float64
	VolumeStd  *float64
	Volatility *float64 // stddev of daily percent returns, not annualized
}

// Calculator computes event-study metrics from ascending daily bars
type Calculator struct {
	cfg CalculatorConfig
}

// NewCalculator creates a new return window calculator
func NewCalculator(cfg CalculatorConfig) *Calculator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BaselineDays <= 0 {
		cfg.BaselineDays = 20
	}
	return &Calculator{cfg: cfg}
}

// EventIndex returns the index of day 0: the last bar dated on or before the
// publication date in the market timezone.
func (c *Calculator) EventIndex(bars []price.Bar, publishedAt time.Time) (int, error) {
	if len(bars) == 0 {
		return -1, errors.Wrap(errors.ErrDataUnavailable, "no price bars in range")
	}
	y, m, d := publishedAt.In(c.cfg.Location).Date()
	pubDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	idx := -1
	for i, b := range bars {
		if b.Date.After(pubDay) {
			break
		}
		idx = i
	}
	if idx < 0 {
		return -1, errors.Wrapf(errors.ErrDataUnavailable, "no price bar on or before %s", pubDay.Format("2006-01-02"))
	}

	if c.cfg.MaxGapDays > 0 {
		gap := int(pubDay.Sub(bars[idx].Date).Hours() / 24)
		if gap > c.cfg.MaxGapDays {
			return -1, errors.Wrapf(errors.ErrDataUnavailable,
				"last price bar %s is %d days before publication", bars[idx].Date.Format("2006-01-02"), gap)
		}
	}
	return idx, nil
}

// Baseline computes volume and volatility statistics over the bars strictly before day 0
func (c *Calculator) Baseline(bars []price.Bar, idx int) Baseline {
	var b Baseline
	from := idx - c.cfg.BaselineDays
	if from < 0 {
		from = 0
	}
	prior := bars[from:idx]

	volumes := make([]float64, 0, len(prior))
	for _, bar := range prior {
		if bar.Volume > 0 {
			volumes = append(volumes, bar.Volume)
		}
	}
	if n := len(volumes); n > 0 {
		sum := 0.0
		for _, v := range volumes {
			sum += v
		}
		mean := sum / float64(n)
		std := talib.StdDev(volumes, n, 1)[n-1]
		b.VolumeMean = &mean
		b.VolumeStd = &std
	}

	var returns []float64
	for i := from + 1; i < idx; i++ {
		if r := price.PctChange(bars[i-1].Close, bars[i].Close); r != nil {
			returns = append(returns, *r)
		}
	}
	if n := len(returns); n >= 2 {
		vol := talib.StdDev(returns, n, 1)[n-1]
		b.Volatility = round4(vol)
	}
	return b
}

// ComputeWindow fills the metric fields of w from bars. Abnormal returns are
// cleared; they are filled by the Adjuster. Bookkeeping fields are untouched.
func (c *Calculator) ComputeWindow(w *window.Window, bars []price.Bar, idx int, base Baseline) error {
	if idx < 0 || idx >= len(bars) {
		return errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("event index %d outside %d bars", idx, len(bars)))
	}

	day0 := bars[idx]
	eventDate := day0.Date
	w.EventDate = &eventDate

	for _, k := range window.PreHorizons {
		var r *float64
		if idx-k >= 0 {
			r = round4p(price.PctChange(bars[idx-k].Close, day0.Close))
		}
		w.SetPreReturn(k, r)
	}
	for _, k := range window.PostHorizons {
		var r *float64
		if idx+k < len(bars) {
			r = round4p(price.PctChange(day0.Close, bars[idx+k].Close))
		}
		w.SetReturn(k, r)
		w.SetAbnormal(k, nil)
	}

	w.VolumeBaseline20D = round4p(base.VolumeMean)
	w.VolatilityBaseline20D = base.Volatility
	w.Volume1D, w.VolumeRatio1D, w.VolumeZScore1D, w.IntradayRange1D = nil, nil, nil, nil

	if idx+1 < len(bars) {
		next := bars[idx+1]
		vol := next.Volume
		w.Volume1D = &vol

		if base.VolumeMean != nil && *base.VolumeMean > 0 {
			w.VolumeRatio1D = round4(vol / *base.VolumeMean)
			if base.VolumeStd != nil && *base.VolumeStd > 0 {
				w.VolumeZScore1D = round4((vol - *base.VolumeMean) / *base.VolumeStd)
			}
		}
		if next.Open > 0 {
			w.IntradayRange1D = round4((next.High - next.Low) / next.Open * 100)
		}
	}

	w.GapMagnitude = nil
	if idx >= 1 {
		w.GapMagnitude = round4p(price.PctChange(bars[idx-1].Close, day0.Open))
	}
	return nil
}

func round4(v float64) *float64 {
	r := decimal.NewFromFloat(v).Round(4).InexactFloat64()
	return &r
}

func round4p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return round4(*v)
}
