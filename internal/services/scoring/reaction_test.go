package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsimpact/internal/domain/window"
)

func f64(v float64) *float64 { return &v }

func TestReactionHeavyVolumeAndGap(t *testing.T) {
	r := NewReactionScorer(DefaultReactionConfig())
	w := &window.Window{
		VolumeBaseline20D: f64(1_000_000),
		Volume1D:          f64(3_500_000),
		VolumeRatio1D:     f64(3.5),
		GapMagnitude:      f64(6),
	}

	b := r.Score(w, f64(1.5))
	assert.Equal(t, 2, b.VolumeScore)
	assert.Equal(t, 2, b.GapScore)
	assert.Equal(t, 0, b.TrendScore)
	assert.Equal(t, 4, b.Total)
}

func TestReactionThresholdsAreStrict(t *testing.T) {
	r := NewReactionScorer(DefaultReactionConfig())

	tests := []struct {
		name                 string
		ratio, gap, trend    *float64
		volume, gapS, trendS int
	}{
		{"all missing", nil, nil, nil, 0, 0, 0},
		{"at mid thresholds", f64(2), f64(3), f64(3), 0, 0, 0},
		{"above mid", f64(2.01), f64(-3.5), f64(3.01), 1, 1, 1},
		{"at high thresholds", f64(3), f64(5), nil, 1, 1, 0},
		{"negative gap counts by magnitude", nil, f64(-7.2), nil, 0, 2, 0},
		{"maxima", f64(10), f64(12), f64(9), 2, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := r.Score(&window.Window{VolumeRatio1D: tt.ratio, GapMagnitude: tt.gap}, tt.trend)
			assert.Equal(t, tt.volume, b.VolumeScore)
			assert.Equal(t, tt.gapS, b.GapScore)
			assert.Equal(t, tt.trendS, b.TrendScore)
			assert.Equal(t, b.VolumeScore+b.GapScore+b.TrendScore, b.Total)
			assert.GreaterOrEqual(t, b.Total, 0)
			assert.LessOrEqual(t, b.Total, 5)
		})
	}
}

func TestReactionNilWindow(t *testing.T) {
	b := NewReactionScorer(DefaultReactionConfig()).Score(nil, f64(4))
	assert.Equal(t, 1, b.Total)
}

func TestReactionCap(t *testing.T) {
	cfg := DefaultReactionConfig()
	cfg.Max = 3
	b := NewReactionScorer(cfg).Score(&window.Window{VolumeRatio1D: f64(4), GapMagnitude: f64(6)}, nil)
	assert.Equal(t, 3, b.Total)
}
