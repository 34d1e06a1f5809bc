package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.EventStudy.MaxRetries)
	assert.Equal(t, "SPY", cfg.EventStudy.DefaultBenchmark)
	assert.Equal(t, 0.7, cfg.Scoring.NegationPenalty)
	assert.Equal(t, 3, cfg.Scoring.TopTickers)
	assert.Equal(t, 8, cfg.PriceProvider.CallsPerMinute)
	assert.Equal(t, []float64{5, 10, 15, 20, 30}, cfg.Backtest.BucketEdges)
	assert.InDelta(t, 0.3, cfg.Confounder.Penalties["earnings"], 1e-9)
	assert.InDelta(t, 0.15, cfg.Confounder.Penalties["sector_move"], 1e-9)
	assert.Zero(t, cfg.Confounder.TitleSimilarity)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCORING_NEGATION_PENALTY", "0.5")
	t.Setenv("CONFOUNDER_PENALTIES", "earnings:0.4,other:0.05")
	t.Setenv("EVENT_STUDY_PREFER_SECTOR", "false")
	t.Setenv("CONFOUNDER_TITLE_SIMILARITY", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Scoring.NegationPenalty)
	assert.False(t, cfg.EventStudy.PreferSector)
	assert.Len(t, cfg.Confounder.Penalties, 2)
	assert.Equal(t, 0.5, cfg.Confounder.TitleSimilarity)
}

func TestValidate(t *testing.T) {
	t.Setenv("SCORING_NEGATION_PENALTY", "1.5")
	t.Setenv("BACKTEST_BUCKET_EDGES", "10,5")

	_, err := Load()
	require.Error(t, err)

	var multi *errors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 2)
	assert.True(t, errors.Is(multi.Errors[0], errors.ErrInvalidInput))
}

func TestValidateLockOutlivesBatch(t *testing.T) {
	t.Setenv("WORKER_LOCK_TTL", "10m")
	t.Setenv("EVENT_STUDY_BATCH_TIMEOUT", "10m")

	_, err := Load()
	require.Error(t, err)

	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "WORKER_LOCK_TTL", verr.Field)
}

func TestLoadPhrasesDefaults(t *testing.T) {
	p, err := LoadPhrases("")
	require.NoError(t, err)

	assert.NotEmpty(t, p.Keywords)
	assert.Contains(t, p.Negation, "did not")
	assert.Contains(t, p.Triggers, "phase 3")

	var found bool
	for _, s := range p.Surprise {
		if s.Phrase == "exceeded primary endpoint" {
			found = true
			assert.Equal(t, PolarityPositive, s.Polarity)
			assert.Equal(t, 3.0, s.Score)
		}
	}
	assert.True(t, found)
}

func TestParsePhrasesRejectsBadPolarity(t *testing.T) {
	_, err := ParsePhrases([]byte("surprise:\n  - {phrase: shock, score: 2, polarity: sideways}\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
