package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArticleDiscovered is consumed from the feed collectors: a new article and the
// tickers extracted from it
type ArticleDiscovered struct {
	Base
	ArticleID   int64             `json:"article_id"`
	Title       string            `json:"title"`
	Summary     string            `json:"summary"`
	URL         string            `json:"url"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Tickers     []DiscoveredTicker `json:"tickers"`
}

// DiscoveredTicker is one candidate ticker of a discovered article
type DiscoveredTicker struct {
	Symbol string `json:"symbol"`
}

// ScoreAlert is published the first time a pair's composite crosses the alert threshold
type ScoreAlert struct {
	Base
	ArticleID         int64           `json:"article_id"`
	Ticker            string          `json:"ticker"`
	Title             string          `json:"title,omitempty"`
	URL               string          `json:"url,omitempty"`
	ScoreTotal        decimal.Decimal `json:"score_total"`
	SurpriseDirection string          `json:"surprise_direction"`
}

// BatchCompleted summarises one event-study batch run
type BatchCompleted struct {
	Base
	StartedAt     time.Time `json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
	Selected      int       `json:"selected"`
	Complete      int       `json:"complete"`
	Partial       int       `json:"partial"`
	Failed        int       `json:"failed"`
	Transient     int       `json:"transient"`
	Errors        int       `json:"errors"`
	Skipped       int       `json:"skipped"`
	ProviderCalls int       `json:"provider_calls"`
	Alerts        int       `json:"alerts"`
}

// BacktestCompleted is published after a backtest run has been persisted
type BacktestCompleted struct {
	Base
	RunID           string              `json:"run_id"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       time.Time           `json:"period_end"`
	Samples         int                 `json:"samples"`
	PrecisionAtK    float64             `json:"precision_at_k"`
	K               int                 `json:"k"`
	Correlations    map[string]*float64 `json:"correlations"`
	Recommendations []string            `json:"recommendations"`
}
