package scoring

import (
	"math"

	"newsimpact/internal/domain/scoring"
	"newsimpact/internal/domain/window"
)

// ReactionScorer derives the Layer-4 score from post-event day +1 metrics
type ReactionScorer struct {
	cfg ReactionConfig
}

// NewReactionScorer creates a new reaction scorer
func NewReactionScorer(cfg ReactionConfig) *ReactionScorer {
	return &ReactionScorer{cfg: cfg}
}

// Score treats a missing input as a zero sub-score
func (r *ReactionScorer) Score(w *window.Window, trendRatio *float64) scoring.ReactionBreakdown {
	var b scoring.ReactionBreakdown

	if w != nil && w.VolumeRatio1D != nil {
		switch v := *w.VolumeRatio1D; {
		case v > r.cfg.VolumeHigh:
			b.VolumeScore = 2
		case v > r.cfg.VolumeMid:
			b.VolumeScore = 1
		}
	}

	if w != nil && w.GapMagnitude != nil {
		switch g := math.Abs(*w.GapMagnitude); {
		case g > r.cfg.GapHigh:
			b.GapScore = 2
		case g > r.cfg.GapMid:
			b.GapScore = 1
		}
	}

	if trendRatio != nil && *trendRatio > r.cfg.TrendRatio {
		b.TrendScore = 1
	}

	b.Total = b.VolumeScore + b.GapScore + b.TrendScore
	if r.cfg.Max > 0 && b.Total > r.cfg.Max {
		b.Total = r.cfg.Max
	}
	return b
}
