package backtest

import (
	"fmt"
	"math"

	"newsimpact/internal/domain/backtest"
)

// Rule identifiers
const (
	RuleLayerCorrelation = "layer_correlation"
	RuleHighBucketHits   = "high_bucket_hit_rate"
	RulePrecision        = "precision_at_k"
	RuleHealthy          = "healthy"
)

// Floors are the thresholds below which a recommendation is emitted
type Floors struct {
	Correlation float64
	HitRate     float64
	Precision   float64
}

// DefaultFloors returns the standard thresholds
func DefaultFloors() Floors {
	return Floors{Correlation: 0.1, HitRate: 0.3, Precision: 0.5}
}

// HighBucketLabel is the bucket whose hit rate is checked: the last closed range,
// "20-30" with the default edges
func (e *Engine) HighBucketLabel() string {
	edges := e.cfg.BucketEdges
	if len(edges) < 2 {
		return formatEdge(edges[0]) + "+"
	}
	n := len(edges)
	return formatEdge(edges[n-2]) + "-" + formatEdge(edges[n-1])
}

// Recommend applies the tuning rules to a report. Unknown correlations and
// empty buckets count as zero. A healthy report yields a single info entry.
func Recommend(r *Report, highBucket string, f Floors) []backtest.Recommendation {
	var out []backtest.Recommendation

	for _, c := range r.Correlations {
		coef := 0.0
		if c.Coefficient != nil {
			coef = *c.Coefficient
		}
		if math.Abs(coef) < f.Correlation {
			out = append(out, backtest.Recommendation{
				Rule:     RuleLayerCorrelation,
				Severity: "warning",
				Message: fmt.Sprintf("%s layer shows negligible correlation (%.2f) with returns. "+
					"Consider adjusting weights or removing.", c.Layer, coef),
			})
		}
	}

	hitRate := 0.0
	if b, ok := r.Bucket(highBucket); ok && b.HitRate != nil {
		hitRate = *b.HitRate
	}
	if hitRate < f.HitRate {
		out = append(out, backtest.Recommendation{
			Rule:     RuleHighBucketHits,
			Severity: "warning",
			Message: fmt.Sprintf("High-score articles (%s) have low hit rate (%.0f%%). "+
				"Consider raising alert threshold or adjusting scoring weights.", highBucket, hitRate*100),
		})
	}

	if r.Precision.Precision < f.Precision {
		out = append(out, backtest.Recommendation{
			Rule:     RulePrecision,
			Severity: "warning",
			Message: fmt.Sprintf("Precision@%d is low (%.0f%%). Top-scored articles are not reliably predicting moves.",
				r.Precision.K, r.Precision.Precision*100),
		})
	}

	if len(out) == 0 {
		out = append(out, backtest.Recommendation{
			Rule:     RuleHealthy,
			Severity: "info",
			Message:  "Model performance looks good. No immediate tuning needed.",
		})
	}
	return out
}
