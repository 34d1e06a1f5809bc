package scoring

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction summarises which surprise polarities contributed
type Direction string

const (
	DirectionNone     Direction = "none"
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionMixed    Direction = "mixed"
)

// KeywordMatch is one occurrence of a configured keyword in article text
type KeywordMatch struct {
	ArticleID      int64   `db:"article_id"`
	Keyword        string  `db:"keyword"`
	EventScore     float64 `db:"event_score"`
	IsNegated      bool    `db:"is_negated"`
	Confidence     float64 `db:"confidence"`
	ContextSnippet string  `db:"context_snippet"`
	Position       int     `db:"position"`
}

// SurpriseMatch is one matched surprise phrase
type SurpriseMatch struct {
	Phrase   string  `json:"phrase"`
	Score    float64 `json:"score"`
	Polarity string  `json:"polarity"`
	Position int     `json:"position"`
}

// ReactionBreakdown is the Layer-4 sub-score decomposition
type ReactionBreakdown struct {
	VolumeScore int `json:"volume_score"`
	GapScore    int `json:"gap_score"`
	TrendScore  int `json:"trend_score"`
	Total       int `json:"total"`
}

// CompositeScore is the scored result for one (article, ticker) pair
type CompositeScore struct {
	ID                  int64           `db:"id"`
	ArticleID           int64           `db:"article_id"`
	Ticker              string          `db:"ticker"`
	Relevance           decimal.Decimal `db:"relevance"`
	ScoreKeyword        decimal.Decimal `db:"score_keyword"`
	ScoreCapMult        decimal.Decimal `db:"score_cap_mult"`
	ScoreSurprise       decimal.Decimal `db:"score_surprise"`
	ScoreMarketReaction decimal.Decimal `db:"score_market_reaction"`
	ScoreTotal          decimal.Decimal `db:"score_total"`
	SurpriseDirection   Direction       `db:"surprise_direction"`
	Confidence          decimal.Decimal `db:"confidence"`
	ConfounderCount     int             `db:"confounder_count"`
	AlertSent           bool            `db:"alert_sent"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}
