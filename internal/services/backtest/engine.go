package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/backtest"
)

// AllBucket labels the row aggregating the whole population
const AllBucket = "all"

// EngineConfig holds the metric parameters of a run
type EngineConfig struct {
	TopK            int
	SignificancePct float64   // |abnormal_return_1d| above this counts as a hit
	BucketEdges     []float64 // ascending lower bounds, the last bucket is open-ended
}

// DefaultEngineConfig returns the standard configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TopK:            10,
		SignificancePct: 2,
		BucketEdges:     []float64{5, 10, 15, 20, 30},
	}
}

// Precision is precision@K over the highest-scored observations
type Precision struct {
	K         int     `json:"k"`
	Hits      int     `json:"hits"`
	Total     int     `json:"total"`
	Precision float64 `json:"precision"`
}

// Bucket aggregates the observations whose score falls in [Lower, Upper)
type Bucket struct {
	Label           string   `json:"label"`
	Lower           float64  `json:"lower"`
	Upper           *float64 `json:"upper,omitempty"`
	Count           int      `json:"count"`
	Hits            int      `json:"hits"`
	HitRate         *float64 `json:"hit_rate"`
	MeanAbnormal1D  *float64 `json:"mean_abnormal_1d"`
	MinAbnormal1D   *float64 `json:"min_abnormal_1d"`
	MaxAbnormal1D   *float64 `json:"max_abnormal_1d"`
	MeanAbnormal3D  *float64 `json:"mean_abnormal_3d"`
	MeanAbnormal5D  *float64 `json:"mean_abnormal_5d"`
	MeanAbnormal10D *float64 `json:"mean_abnormal_10d"`
}

// Decile is the mean 1-day abnormal return of one score decile
type Decile struct {
	Label          string  `json:"label"`
	Count          int     `json:"count"`
	MinScore       float64 `json:"min_score"`
	MaxScore       float64 `json:"max_score"`
	MeanAbnormal1D float64 `json:"mean_abnormal_1d"`
}

// Correlation is the Pearson coefficient of one layer against abnormal_return_1d
type Correlation struct {
	Layer          backtest.Layer `json:"layer"`
	Coefficient    *float64       `json:"coefficient"`
	Interpretation string         `json:"interpretation"`
}

// Report holds every metric of one run
type Report struct {
	PeriodStart  time.Time     `json:"period_start"`
	PeriodEnd    time.Time     `json:"period_end"`
	Samples      int           `json:"samples"`
	Precision    Precision     `json:"precision_at_k"`
	Buckets      []Bucket      `json:"buckets"`
	Deciles      []Decile      `json:"deciles"`
	Correlations []Correlation `json:"layer_contribution"`
}

// Bucket returns the bucket with the given label
func (r *Report) Bucket(label string) (Bucket, bool) {
	for _, b := range r.Buckets {
		if b.Label == label {
			return b, true
		}
	}
	return Bucket{}, false
}

// CorrelationMap returns coefficients keyed by layer name
func (r *Report) CorrelationMap() map[string]*float64 {
	out := make(map[string]*float64, len(r.Correlations))
	for _, c := range r.Correlations {
		out[string(c.Layer)] = c.Coefficient
	}
	return out
}

// Engine computes backtest metrics over a population of observations
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates a new engine
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultEngineConfig().TopK
	}
	if len(cfg.BucketEdges) == 0 {
		cfg.BucketEdges = DefaultEngineConfig().BucketEdges
	}
	edges := append([]float64(nil), cfg.BucketEdges...)
	sort.Float64s(edges)
	cfg.BucketEdges = edges
	return &Engine{cfg: cfg}
}

// Run computes precision@K, hit rate by bucket, decile returns and layer
// contribution. The input slice is not modified.
func (e *Engine) Run(observations []backtest.Observation) *Report {
	obs := append([]backtest.Observation(nil), observations...)
	sort.SliceStable(obs, func(i, j int) bool {
		return less(obs[i], obs[j])
	})

	return &Report{
		Samples:      len(obs),
		Precision:    e.precision(obs),
		Buckets:      e.buckets(obs),
		Deciles:      deciles(obs),
		Correlations: correlations(obs),
	}
}

// less orders by ascending score, then article and ticker
func less(a, b backtest.Observation) bool {
	if a.ScoreTotal != b.ScoreTotal {
		return a.ScoreTotal < b.ScoreTotal
	}
	if a.ArticleID != b.ArticleID {
		return a.ArticleID < b.ArticleID
	}
	return a.Ticker < b.Ticker
}

func (e *Engine) hit(o backtest.Observation) bool {
	return math.Abs(o.AbnormalReturn1D) > e.cfg.SignificancePct
}

// precision expects obs sorted ascending; K larger than the population
// measures the whole population.
func (e *Engine) precision(obs []backtest.Observation) Precision {
	k := e.cfg.TopK
	total := min(k, len(obs))
	p := Precision{K: k, Total: total}
	if total == 0 {
		return p
	}
	for i := len(obs) - 1; i >= len(obs)-total; i-- {
		if e.hit(obs[i]) {
			p.Hits++
		}
	}
	p.Precision = round4(float64(p.Hits) / float64(total))
	return p
}

type accumulator struct {
	bucket            Bucket
	sum1              float64
	sum3, sum5, sum10 float64
	n3, n5, n10       int
}

func (a *accumulator) add(o backtest.Observation, hit bool) {
	b := &a.bucket
	b.Count++
	if hit {
		b.Hits++
	}
	r := o.AbnormalReturn1D
	a.sum1 += r
	if b.MinAbnormal1D == nil || r < *b.MinAbnormal1D {
		b.MinAbnormal1D = ptr(r)
	}
	if b.MaxAbnormal1D == nil || r > *b.MaxAbnormal1D {
		b.MaxAbnormal1D = ptr(r)
	}
	if o.AbnormalReturn3D != nil {
		a.sum3 += *o.AbnormalReturn3D
		a.n3++
	}
	if o.AbnormalReturn5D != nil {
		a.sum5 += *o.AbnormalReturn5D
		a.n5++
	}
	if o.AbnormalReturn10D != nil {
		a.sum10 += *o.AbnormalReturn10D
		a.n10++
	}
}

func (a *accumulator) finish() Bucket {
	b := a.bucket
	if b.Count == 0 {
		return b
	}
	b.HitRate = ptr(round4(float64(b.Hits) / float64(b.Count)))
	b.MeanAbnormal1D = ptr(round4(a.sum1 / float64(b.Count)))
	b.MinAbnormal1D = ptr(round4(*b.MinAbnormal1D))
	b.MaxAbnormal1D = ptr(round4(*b.MaxAbnormal1D))
	b.MeanAbnormal3D = mean(a.sum3, a.n3)
	b.MeanAbnormal5D = mean(a.sum5, a.n5)
	b.MeanAbnormal10D = mean(a.sum10, a.n10)
	return b
}

// buckets returns one row per configured range followed by the "all" row.
// Scores under the first edge get a leading "<edge" row only when present.
func (e *Engine) buckets(obs []backtest.Observation) []Bucket {
	edges := e.cfg.BucketEdges
	accs := make([]*accumulator, len(edges)+1)
	accs[0] = &accumulator{bucket: Bucket{Label: "<" + formatEdge(edges[0]), Upper: ptr(edges[0])}}
	for i, lower := range edges {
		b := Bucket{Lower: lower}
		if i+1 < len(edges) {
			b.Upper = ptr(edges[i+1])
			b.Label = formatEdge(lower) + "-" + formatEdge(edges[i+1])
		} else {
			b.Label = formatEdge(lower) + "+"
		}
		accs[i+1] = &accumulator{bucket: b}
	}
	all := &accumulator{bucket: Bucket{Label: AllBucket}}

	for _, o := range obs {
		// number of edges <= score; 0 is the leading row
		idx := sort.Search(len(edges), func(i int) bool { return edges[i] > o.ScoreTotal })
		hit := e.hit(o)
		accs[idx].add(o, hit)
		all.add(o, hit)
	}

	out := make([]Bucket, 0, len(accs)+1)
	for i, a := range accs {
		if i == 0 && a.bucket.Count == 0 {
			continue
		}
		out = append(out, a.finish())
	}
	return append(out, all.finish())
}

// deciles assigns item i of n (ascending by score) to decile floor(10i/n)
func deciles(obs []backtest.Observation) []Decile {
	n := len(obs)
	if n == 0 {
		return nil
	}
	var (
		out  []Decile
		sums []float64
	)
	last := -1
	for i, o := range obs {
		if d := 10 * i / n; d != last {
			out = append(out, Decile{Label: decileLabel(d), MinScore: o.ScoreTotal})
			sums = append(sums, 0)
			last = d
		}
		cur := &out[len(out)-1]
		cur.Count++
		cur.MaxScore = o.ScoreTotal
		sums[len(sums)-1] += o.AbnormalReturn1D
	}
	for i := range out {
		out[i].MeanAbnormal1D = round4(sums[i] / float64(out[i].Count))
	}
	return out
}

func decileLabel(d int) string {
	return fmt.Sprintf("D%d", d+1)
}

// correlations measures each layer's isolated score against abnormal_return_1d.
// Fewer than two observations leave the coefficient unknown.
func correlations(obs []backtest.Observation) []Correlation {
	layers := []struct {
		layer backtest.Layer
		value func(backtest.Observation) float64
	}{
		{backtest.LayerKeyword, func(o backtest.Observation) float64 { return o.ScoreKeyword }},
		{backtest.LayerSurprise, func(o backtest.Observation) float64 { return o.ScoreSurprise }},
		{backtest.LayerMarketReaction, func(o backtest.Observation) float64 { return o.ScoreMarketReaction }},
	}

	n := len(obs)
	returns := make([]float64, n)
	for i, o := range obs {
		returns[i] = o.AbnormalReturn1D
	}

	out := make([]Correlation, 0, len(layers))
	for _, l := range layers {
		c := Correlation{Layer: l.layer, Interpretation: Interpret(nil)}
		if n >= 2 {
			xs := make([]float64, n)
			for i, o := range obs {
				xs[i] = l.value(o)
			}
			// Correl yields 0 when either series has no variance
			coef := round4(talib.Correl(xs, returns, n)[n-1])
			c.Coefficient = &coef
			c.Interpretation = Interpret(c.Coefficient)
		}
		out = append(out, c)
	}
	return out
}

// Interpret labels the strength of a correlation coefficient
func Interpret(coef *float64) string {
	if coef == nil {
		return "insufficient data"
	}
	abs := math.Abs(*coef)
	switch {
	case abs > 0.7:
		return "strong"
	case abs > 0.4:
		return "moderate"
	case abs > 0.2:
		return "weak"
	default:
		return "negligible"
	}
}

func formatEdge(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func mean(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	return ptr(round4(sum / float64(n)))
}

func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}

func ptr(v float64) *float64 {
	return &v
}
