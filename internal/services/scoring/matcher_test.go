package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/scoring"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Keywords = []Keyword{
		{Phrase: "approve", EventScore: 6},
		{Phrase: "phase 3", EventScore: 6},
		{Phrase: "rare disease", EventScore: 7},
	}
	cfg.Surprise = []SurprisePhrase{
		{Phrase: "unexpected", Score: 2, Polarity: Positive},
		{Phrase: "exceeded primary endpoint", Score: 3, Polarity: Positive},
		{Phrase: "complete response", Score: 3, Polarity: Positive},
		{Phrase: "breakthrough", Score: 2, Polarity: Positive},
		{Phrase: "beat estimates", Score: 2, Polarity: Positive},
		{Phrase: "complete response letter", Score: 3, Polarity: Negative},
		{Phrase: "clinical hold", Score: 3, Polarity: Negative},
		{Phrase: "disappointing", Score: 1, Polarity: Negative},
	}
	cfg.TriggerPhrases = []string{"fda approval", "acquisition", "phase 3", "announced"}
	return cfg
}

func TestMatchNegatedKeyword(t *testing.T) {
	m := NewKeywordMatcher(testConfig())

	matches := m.Match(7, "FDA did not approve the drug")
	require.Len(t, matches, 1)

	got := matches[0]
	assert.Equal(t, int64(7), got.ArticleID)
	assert.Equal(t, "approve", got.Keyword)
	assert.True(t, got.IsNegated)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
	assert.Equal(t, "FDA did not approve the drug", got.ContextSnippet)
	assert.Less(t, got.EventScore*got.Confidence, 6.0)
}

func TestMatchUnnegatedKeyword(t *testing.T) {
	m := NewKeywordMatcher(testConfig())

	matches := m.Match(1, "Regulators expected to APPROVE the therapy next week")
	require.Len(t, matches, 1)
	assert.False(t, matches[0].IsNegated)
	assert.Equal(t, 1.0, matches[0].Confidence)
}

func TestMatchNegationOutsideWindow(t *testing.T) {
	m := NewKeywordMatcher(testConfig())

	// six words between the marker and the keyword
	matches := m.Match(1, "Not a surprise: the panel voted unanimously today to approve it")
	require.Len(t, matches, 1)
	assert.False(t, matches[0].IsNegated)
}

func TestMatchRequiresWordBoundary(t *testing.T) {
	m := NewKeywordMatcher(testConfig())

	assert.Empty(t, m.Match(1, "The agency approved nothing; approval pending"))
	assert.Empty(t, m.Match(1, ""))
}

func TestMatchEveryOccurrence(t *testing.T) {
	m := NewKeywordMatcher(testConfig())

	text := "The FDA rejected, did not approve the filing. Europe may approve it in a Phase 3 follow-up."
	matches := m.Match(1, text)
	require.Len(t, matches, 3)

	assert.Equal(t, "approve", matches[0].Keyword)
	assert.True(t, matches[0].IsNegated)
	assert.Equal(t, "approve", matches[1].Keyword)
	assert.False(t, matches[1].IsNegated)
	assert.Equal(t, "phase 3", matches[2].Keyword)
}

func TestMatchSnippetIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.SnippetChars = 10
	m := NewKeywordMatcher(cfg)

	matches := m.Match(1, "A long preamble that goes on and on before the rare disease program update and more trailing text")
	require.Len(t, matches, 1)
	assert.Equal(t, "efore the rare disease program u", matches[0].ContextSnippet)
}

func TestDistinctKeywordsKeepsBestOccurrence(t *testing.T) {
	matches := []scoring.KeywordMatch{
		{Keyword: "approve", EventScore: 6, IsNegated: true, Confidence: 0.3, Position: 4},
		{Keyword: "approve", EventScore: 6, Confidence: 1, Position: 40},
		{Keyword: "phase 3", EventScore: 6, Confidence: 1, Position: 60},
		{Keyword: "phase 3", EventScore: 6, Confidence: 1, Position: 90},
	}

	distinct := DistinctKeywords(matches)
	require.Len(t, distinct, 2)
	assert.Equal(t, "approve", distinct[0].Keyword)
	assert.False(t, distinct[0].IsNegated)
	assert.Equal(t, 60, distinct[1].Position)
}
