package backtest

import (
	"time"

	"github.com/google/uuid"
)

// Observation pairs a stored composite score with the realised abnormal returns
type Observation struct {
	ArticleID           int64     `db:"article_id"`
	Ticker              string    `db:"ticker"`
	PublishedAt         time.Time `db:"published_at"`
	ScoreTotal          float64   `db:"score_total"`
	ScoreKeyword        float64   `db:"score_keyword"`
	ScoreSurprise       float64   `db:"score_surprise"`
	ScoreMarketReaction float64   `db:"score_market_reaction"`
	AbnormalReturn1D    float64   `db:"abnormal_return_1d"`
	AbnormalReturn3D    *float64  `db:"abnormal_return_3d"`
	AbnormalReturn5D    *float64  `db:"abnormal_return_5d"`
	AbnormalReturn10D   *float64  `db:"abnormal_return_10d"`
}

// Layer names a scoring layer whose contribution is measured
type Layer string

const (
	LayerKeyword        Layer = "keyword"
	LayerSurprise       Layer = "surprise"
	LayerMarketReaction Layer = "market_reaction"
)

// Result is one persisted row of a backtest run: one per score bucket.
// Run-level metrics are repeated on every row of the run.
type Result struct {
	RunID           uuid.UUID `db:"run_id"`
	RunDate         time.Time `db:"run_date"`
	PeriodStart     time.Time `db:"period_start"`
	PeriodEnd       time.Time `db:"period_end"`
	Bucket          string    `db:"score_bucket"`
	ArticleCount    int       `db:"article_count"`
	MeanAbnormal1D  *float64  `db:"mean_abnormal_1d"`
	MeanAbnormal3D  *float64  `db:"mean_abnormal_3d"`
	MeanAbnormal5D  *float64  `db:"mean_abnormal_5d"`
	MeanAbnormal10D *float64  `db:"mean_abnormal_10d"`
	HitRate         *float64  `db:"hit_rate"`
	PrecisionAtK    float64   `db:"precision_at_k"`
	CorrKeyword     *float64  `db:"corr_keyword"`
	CorrSurprise    *float64  `db:"corr_surprise"`
	CorrReaction    *float64  `db:"corr_market_reaction"`
}

// Recommendation is a tuning suggestion emitted by a backtest run
type Recommendation struct {
	RunID    uuid.UUID `db:"run_id"`
	Rule     string    `db:"rule"`
	Severity string    `db:"severity"`
	Message  string    `db:"message"`
}

// Run is a persisted backtest run
type Run struct {
	ID              uuid.UUID
	RunDate         time.Time
	Results         []Result
	Recommendations []Recommendation
}
