package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestStatus(t *testing.T) {
	assert.True(t, StatusPartial.Valid())
	assert.False(t, Status("done").Valid())
	assert.True(t, StatusComplete.Terminal())
	assert.False(t, StatusFailed.Terminal())
	assert.Equal(t, "not_started", StatusNotStarted.String())
}

func TestHorizonAccessors(t *testing.T) {
	w := New(1, "XYZ", time.Now())
	assert.Equal(t, StatusNotStarted, w.Status)

	for _, k := range PostHorizons {
		w.SetReturn(k, f(float64(k)))
		w.SetAbnormal(k, f(float64(k)/2))
	}
	for _, k := range PreHorizons {
		w.SetPreReturn(k, f(-float64(k)))
	}

	assert.Equal(t, 10.0, *w.Return(10))
	assert.Equal(t, 2.5, *w.Abnormal(5))
	assert.Equal(t, -3.0, *w.PreReturn(3))
	assert.Nil(t, w.Return(2))
	assert.Equal(t, 4, w.Resolved())

	w.SetAbnormal(10, nil)
	assert.Equal(t, 3, w.Resolved())
}

func TestSameMetrics(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &Window{EventDate: &d, Return1D: f(3), GapMagnitude: f(1.5), RetryCount: 2}
	b := &Window{EventDate: &d, Return1D: f(3), GapMagnitude: f(1.5), Status: StatusComplete}

	assert.True(t, a.SameMetrics(b), "bookkeeping fields are ignored")

	b.Return1D = f(3.0001)
	assert.False(t, a.SameMetrics(b))

	b.Return1D = nil
	assert.False(t, a.SameMetrics(b))

	c := &Window{}
	assert.False(t, a.SameMetrics(c))
}
