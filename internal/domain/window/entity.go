package window

import (
	"time"
)

// Status is the processing state of an article-ticker window
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusPartial    Status = "partial"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusPartial, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed
func (s Status) Terminal() bool {
	return s == StatusComplete
}

// String implements fmt.Stringer
func (s Status) String() string {
	return string(s)
}

// PreHorizons are the look-back offsets in trading days
var PreHorizons = []int{1, 3, 5}

// PostHorizons are the look-forward offsets in trading days
var PostHorizons = []int{1, 3, 5, 10}

// Window is the event-study record for one (article, ticker) pair.
// Returns are percentages; nil means not resolvable from the available data.
type Window struct {
	ID          int64      `db:"id"`
	ArticleID   int64      `db:"article_id"`
	Ticker      string     `db:"ticker"`
	PublishedAt time.Time  `db:"published_at"`
	EventDate   *time.Time `db:"event_date"`
	Benchmark   *string    `db:"benchmark"`

	ReturnPre1D *float64 `db:"return_pre_1d"`
	ReturnPre3D *float64 `db:"return_pre_3d"`
	ReturnPre5D *float64 `db:"return_pre_5d"`

	Return1D  *float64 `db:"return_1d"`
	Return3D  *float64 `db:"return_3d"`
	Return5D  *float64 `db:"return_5d"`
	Return10D *float64 `db:"return_10d"`

	AbnormalReturn1D  *float64 `db:"abnormal_return_1d"`
	AbnormalReturn3D  *float64 `db:"abnormal_return_3d"`
	AbnormalReturn5D  *float64 `db:"abnormal_return_5d"`
	AbnormalReturn10D *float64 `db:"abnormal_return_10d"`

	VolumeBaseline20D     *float64 `db:"volume_baseline_20d"`
	Volume1D              *float64 `db:"volume_1d"`
	VolumeRatio1D         *float64 `db:"volume_ratio_1d"`
	VolumeZScore1D        *float64 `db:"volume_zscore_1d"`
	VolatilityBaseline20D *float64 `db:"volatility_baseline_20d"`
	IntradayRange1D       *float64 `db:"intraday_range_1d"`
	GapMagnitude          *float64 `db:"gap_magnitude"`

	Status          Status     `db:"processing_status"`
	RetryCount      int        `db:"retry_count"`
	FailureReason   *string    `db:"failure_reason"`
	LastProcessedAt *time.Time `db:"last_processed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// New creates a not_started window for a newly discovered pair
func New(articleID int64, ticker string, publishedAt time.Time) *Window {
	return &Window{
		ArticleID:   articleID,
		Ticker:      ticker,
		PublishedAt: publishedAt,
		Status:      StatusNotStarted,
	}
}

// PreReturn returns the pre-event return for horizon k
func (w *Window) PreReturn(k int) *float64 {
	switch k {
	case 1:
		return w.ReturnPre1D
	case 3:
		return w.ReturnPre3D
	case 5:
		return w.ReturnPre5D
	}
	return nil
}

// SetPreReturn sets the pre-event return for horizon k
func (w *Window) SetPreReturn(k int, v *float64) {
	switch k {
	case 1:
		w.ReturnPre1D = v
	case 3:
		w.ReturnPre3D = v
	case 5:
		w.ReturnPre5D = v
	}
}

// Return returns the post-event return for horizon k
func (w *Window) Return(k int) *float64 {
	switch k {
	case 1:
		return w.Return1D
	case 3:
		return w.Return3D
	case 5:
		return w.Return5D
	case 10:
		return w.Return10D
	}
	return nil
}

// SetReturn sets the post-event return for horizon k
func (w *Window) SetReturn(k int, v *float64) {
	switch k {
	case 1:
		w.Return1D = v
	case 3:
		w.Return3D = v
	case 5:
		w.Return5D = v
	case 10:
		w.Return10D = v
	}
}

// Abnormal returns the abnormal return for horizon k
func (w *Window) Abnormal(k int) *float64 {
	switch k {
	case 1:
		return w.AbnormalReturn1D
	case 3:
		return w.AbnormalReturn3D
	case 5:
		return w.AbnormalReturn5D
	case 10:
		return w.AbnormalReturn10D
	}
	return nil
}

// SetAbnormal sets the abnormal return for horizon k
func (w *Window) SetAbnormal(k int, v *float64) {
	switch k {
	case 1:
		w.AbnormalReturn1D = v
	case 3:
		w.AbnormalReturn3D = v
	case 5:
		w.AbnormalReturn5D = v
	case 10:
		w.AbnormalReturn10D = v
	}
}

// Resolved counts post-event horizons whose return and abnormal return are both present
func (w *Window) Resolved() int {
	n := 0
	for _, k := range PostHorizons {
		if w.Return(k) != nil && w.Abnormal(k) != nil {
			n++
		}
	}
	return n
}

// SameMetrics reports whether two windows carry identical computed values.
// Bookkeeping fields (status, retries, timestamps, ids) are ignored.
func (w *Window) SameMetrics(o *Window) bool {
	if w.EventDate == nil || o.EventDate == nil {
		if w.EventDate != o.EventDate {
			return false
		}
	} else if !w.EventDate.Equal(*o.EventDate) {
		return false
	}
	if !eqString(w.Benchmark, o.Benchmark) {
		return false
	}

	a := w.metrics()
	b := o.metrics()
	for i := range a {
		if !eqFloat(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (w *Window) metrics() []*float64 {
	return []*float64{
		w.ReturnPre1D, w.ReturnPre3D, w.ReturnPre5D,
		w.Return1D, w.Return3D, w.Return5D, w.Return10D,
		w.AbnormalReturn1D, w.AbnormalReturn3D, w.AbnormalReturn5D, w.AbnormalReturn10D,
		w.VolumeBaseline20D, w.Volume1D, w.VolumeRatio1D, w.VolumeZScore1D,
		w.VolatilityBaseline20D, w.IntradayRange1D, w.GapMagnitude,
	}
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
