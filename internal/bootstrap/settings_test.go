package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/adapters/config"
	confdomain "newsimpact/internal/domain/confounder"
	scoresvc "newsimpact/internal/services/scoring"
)

func testConfig() *config.Config {
	return &config.Config{
		EventStudy: config.EventStudyConfig{
			BatchSize:            25,
			BatchTimeout:         5 * time.Minute,
			MaxRetries:           4,
			RetryLookback:        72 * time.Hour,
			PartialRetryInterval: 6 * time.Hour,
			PartialHorizon:       384 * time.Hour,
			StaleAfter:           24 * time.Hour,
			LookbackDays:         45,
			LookaheadDays:        20,
			BaselineDays:         20,
			DefaultBenchmark:     "SPY",
			PreferSector:         true,
			MarketTimezone:       "America/New_York",
		},
		Scoring: config.ScoringConfig{
			NegationPenalty: 0.7,
			TopTickers:      2,
			MinRelevance:    0.4,
			AlertThreshold:  18,
			SurpriseCap:     5,
			TrendRatio:      2.5,
		},
		Confounder: config.ConfounderConfig{
			WindowDays:       2,
			SectorMovePct:    3,
			ClusterThreshold: 3,
			TitleSimilarity:  0.6,
			Penalties:        map[string]float64{"earnings": 0.4, "bogus": 0.9},
		},
		Backtest: config.BacktestConfig{
			LookbackDays:   30,
			MinScore:       5,
			TopK:           10,
			BucketEdges:    []float64{5, 10, 15, 20, 30},
			PrecisionFloor: 0.5,
		},
	}
}

func TestEventStudySettings(t *testing.T) {
	got := eventStudySettings(testConfig())

	assert.Equal(t, 25, got.BatchSize)
	assert.Equal(t, 4, got.Retry.MaxRetries)
	assert.Equal(t, 72*time.Hour, got.Retry.Lookback)
	assert.Equal(t, 2, got.TopTickers)
	assert.Equal(t, "America/New_York", got.Calculator.Location.String())
	assert.Equal(t, 20, got.Calculator.BaselineDays)
}

func TestScoringSettings(t *testing.T) {
	phrases := &config.Phrases{
		Keywords: []config.Phrase{{Phrase: "phase 3", Score: 6}},
		Surprise: []config.Phrase{{Phrase: "unexpected", Score: 2, Polarity: config.PolarityPositive}},
		Triggers: []string{"approval"},
	}

	got := scoringSettings(testConfig(), phrases)

	require.Len(t, got.Keywords, 1)
	assert.Equal(t, 6.0, got.Keywords[0].EventScore)
	require.Len(t, got.Surprise, 1)
	assert.Equal(t, scoresvc.Positive, got.Surprise[0].Polarity)
	assert.NotEmpty(t, got.NegationMarkers, "defaults kept when the document has none")
	assert.Equal(t, []string{"approval"}, got.TriggerPhrases)
	assert.Equal(t, 18.0, got.AlertThreshold)
	assert.Equal(t, 2.5, got.Reaction.TrendRatio)
	assert.Equal(t, 2, got.ConfounderWindowDays)
}

func TestConfounderSettings_IgnoresUnknownPenalties(t *testing.T) {
	got := confounderSettings(testConfig())

	assert.Equal(t, 0.4, got.Penalties[confdomain.TypeEarnings])
	assert.Equal(t, 0.1, got.Penalties[confdomain.TypeOther])
}

func TestConfounderSettings_TitleSimilarity(t *testing.T) {
	got := confounderSettings(testConfig())
	assert.Equal(t, 0.6, got.TitleSimilarity)
	assert.Equal(t, 3, got.ClusterThreshold)
}

func TestBacktestSettings(t *testing.T) {
	got := backtestSettings(testConfig())
	assert.Equal(t, 10, got.Engine.TopK)
	assert.Equal(t, []float64{5, 10, 15, 20, 30}, got.Engine.BucketEdges)
	assert.Equal(t, 0.5, got.Floors.Precision)
}
