package scoring

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/scoring"
)

// SurpriseResult is the Layer-3 outcome
type SurpriseResult struct {
	Score     decimal.Decimal // capped
	RawScore  decimal.Decimal
	Direction scoring.Direction
	Matches   []scoring.SurpriseMatch
}

// SurpriseDetector scans text for surprise phrases of either polarity
type SurpriseDetector struct {
	phrases []compiledPhrase
	cap     decimal.Decimal
}

type compiledPhrase struct {
	SurprisePhrase
	re *regexp.Regexp
}

// NewSurpriseDetector compiles the phrase table
func NewSurpriseDetector(cfg Config) *SurpriseDetector {
	d := &SurpriseDetector{cap: decimal.NewFromFloat(cfg.SurpriseCap)}
	for _, p := range cfg.Surprise {
		if strings.TrimSpace(p.Phrase) == "" {
			continue
		}
		d.phrases = append(d.phrases, compiledPhrase{
			SurprisePhrase: SurprisePhrase{Phrase: strings.ToLower(strings.TrimSpace(p.Phrase)), Score: p.Score, Polarity: p.Polarity},
			re:             phrasePattern(p.Phrase),
		})
	}
	return d
}

// Detect matches phrases longest first across both polarities; a span already
// claimed by a longer phrase is not counted again.
func (d *SurpriseDetector) Detect(text string) SurpriseResult {
	res := SurpriseResult{Score: decimal.Zero, RawScore: decimal.Zero, Direction: scoring.DirectionNone}
	if text == "" {
		return res
	}

	type hit struct {
		p   compiledPhrase
		loc span
	}
	var hits []hit
	for _, p := range d.phrases {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{p, span{loc[0], loc[1]}})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		li, lj := hits[i].loc.end-hits[i].loc.start, hits[j].loc.end-hits[j].loc.start
		if li != lj {
			return li > lj
		}
		return hits[i].loc.start < hits[j].loc.start
	})

	var claimed []span
	var positive, negative bool
	for _, h := range hits {
		overlap := false
		for _, c := range claimed {
			if c.overlaps(h.loc) {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		claimed = append(claimed, h.loc)
		res.Matches = append(res.Matches, scoring.SurpriseMatch{
			Phrase:   h.p.Phrase,
			Score:    h.p.Score,
			Polarity: string(h.p.Polarity),
			Position: h.loc.start,
		})
		res.RawScore = res.RawScore.Add(decimal.NewFromFloat(h.p.Score))
		if h.p.Polarity == Negative {
			negative = true
		} else {
			positive = true
		}
	}

	sort.Slice(res.Matches, func(i, j int) bool { return res.Matches[i].Position < res.Matches[j].Position })

	res.Score = decimal.Min(res.RawScore, d.cap)
	res.Direction = direction(positive, negative)
	return res
}

func direction(positive, negative bool) scoring.Direction {
	switch {
	case positive && negative:
		return scoring.DirectionMixed
	case positive:
		return scoring.DirectionPositive
	case negative:
		return scoring.DirectionNegative
	}
	return scoring.DirectionNone
}
