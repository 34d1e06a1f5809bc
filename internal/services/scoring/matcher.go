package scoring

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/scoring"
)

// KeywordMatcher finds keyword phrases in text and flags negated occurrences
type KeywordMatcher struct {
	keywords     []compiledKeyword
	negations    [][]string // markers split into words
	window       int
	negatedConf  float64
	snippetChars int
}

type compiledKeyword struct {
	Keyword
	re *regexp.Regexp
}

// NewKeywordMatcher compiles the keyword table and negation markers
func NewKeywordMatcher(cfg Config) *KeywordMatcher {
	m := &KeywordMatcher{
		window:       cfg.NegationWindow,
		negatedConf:  decimal.NewFromInt(1).Sub(decimal.NewFromFloat(cfg.NegationPenalty)).InexactFloat64(),
		snippetChars: cfg.SnippetChars,
	}
	for _, kw := range cfg.Keywords {
		if strings.TrimSpace(kw.Phrase) == "" {
			continue
		}
		m.keywords = append(m.keywords, compiledKeyword{
			Keyword: Keyword{Phrase: strings.ToLower(strings.TrimSpace(kw.Phrase)), EventScore: kw.EventScore},
			re:      phrasePattern(kw.Phrase),
		})
	}
	for _, marker := range cfg.NegationMarkers {
		if parts := strings.Fields(strings.ToLower(marker)); len(parts) > 0 {
			m.negations = append(m.negations, parts)
		}
	}
	return m
}

// Match returns every occurrence of every keyword, ordered by position.
// A negated occurrence keeps 1 - penalty of full confidence.
func (m *KeywordMatcher) Match(articleID int64, text string) []scoring.KeywordMatch {
	if text == "" || len(m.keywords) == 0 {
		return nil
	}

	tokens := tokenize(text)
	var matches []scoring.KeywordMatch

	for _, kw := range m.keywords {
		for _, loc := range kw.re.FindAllStringIndex(text, -1) {
			negated := m.negated(tokens, loc[0])
			confidence := 1.0
			if negated {
				confidence = m.negatedConf
			}
			matches = append(matches, scoring.KeywordMatch{
				ArticleID:      articleID,
				Keyword:        kw.Phrase,
				EventScore:     kw.EventScore,
				IsNegated:      negated,
				Confidence:     confidence,
				ContextSnippet: snippet(text, loc[0], loc[1], m.snippetChars),
				Position:       loc[0],
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Position != matches[j].Position {
			return matches[i].Position < matches[j].Position
		}
		return matches[i].Keyword < matches[j].Keyword
	})
	return matches
}

// negated scans the words preceding offset for a negation marker
func (m *KeywordMatcher) negated(tokens words, offset int) bool {
	end := tokens.indexAt(offset)
	start := end - m.window
	if start < 0 {
		start = 0
	}
	preceding := tokens.lower[start:end]

	for _, marker := range m.negations {
		for i := 0; i+len(marker) <= len(preceding); i++ {
			hit := true
			for j, w := range marker {
				if preceding[i+j] != w {
					hit = false
					break
				}
			}
			if hit {
				return true
			}
		}
	}
	return false
}

// DistinctKeywords keeps one match per keyword: the one with the highest confidence,
// earliest position on ties. Output is ordered by keyword.
func DistinctKeywords(matches []scoring.KeywordMatch) []scoring.KeywordMatch {
	best := make(map[string]scoring.KeywordMatch, len(matches))
	for _, m := range matches {
		cur, ok := best[m.Keyword]
		if !ok || m.Confidence > cur.Confidence || (m.Confidence == cur.Confidence && m.Position < cur.Position) {
			best[m.Keyword] = m
		}
	}

	out := make([]scoring.KeywordMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out
}
