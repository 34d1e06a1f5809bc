package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	titleWeight     = 0.5
	mentionWeight   = 0.3
	proximityWeight = 0.2
)

// Candidate is a ticker named by an article
type Candidate struct {
	Ticker      string
	CompanyName string
}

// RelevanceScorer weighs how central each candidate ticker is to an article
type RelevanceScorer struct {
	triggers       []*regexp.Regexp
	proximityWords int
}

// NewRelevanceScorer compiles the trigger phrases
func NewRelevanceScorer(cfg Config) *RelevanceScorer {
	r := &RelevanceScorer{proximityWords: cfg.ProximityWords}
	for _, t := range cfg.TriggerPhrases {
		if strings.TrimSpace(t) != "" {
			r.triggers = append(r.triggers, phrasePattern(t))
		}
	}
	return r
}

// Score returns a weight in [0,1] per candidate ticker. A lone candidate gets 1.
func (r *RelevanceScorer) Score(title, body string, candidates []Candidate) map[string]float64 {
	weights := make(map[string]float64, len(candidates))
	if len(candidates) == 0 {
		return weights
	}
	if len(candidates) == 1 {
		weights[candidates[0].Ticker] = 1
		return weights
	}

	full := title + ". " + body
	tokens := tokenize(full)
	triggerWords := r.triggerWordIndexes(full, tokens)

	mentions := make([]int, len(candidates))
	maxMentions := 0
	for i, c := range candidates {
		mentions[i] = len(entityLocations(body, c))
		if mentions[i] > maxMentions {
			maxMentions = mentions[i]
		}
	}

	for i, c := range candidates {
		w := 0.0
		if len(entityLocations(title, c)) > 0 {
			w += titleWeight
		}
		if maxMentions > 0 {
			w += mentionWeight * float64(mentions[i]) / float64(maxMentions)
		}
		if r.nearTrigger(full, tokens, triggerWords, c) {
			w += proximityWeight
		}
		weights[c.Ticker] = clamp01(round2(w))
	}
	return weights
}

func (r *RelevanceScorer) triggerWordIndexes(text string, tokens words) []int {
	var idx []int
	for _, re := range r.triggers {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			idx = append(idx, tokens.indexAt(loc[0]))
		}
	}
	return idx
}

func (r *RelevanceScorer) nearTrigger(text string, tokens words, triggerWords []int, c Candidate) bool {
	if len(triggerWords) == 0 {
		return false
	}
	for _, loc := range entityLocations(text, c) {
		w := tokens.indexAt(loc.start)
		for _, t := range triggerWords {
			if abs(w-t) <= r.proximityWords {
				return true
			}
		}
	}
	return false
}

// entityLocations finds the ticker symbol (case-sensitive) and the company name
// or its short form (case-insensitive), without double counting overlaps
func entityLocations(text string, c Candidate) []span {
	if text == "" {
		return nil
	}

	var found []span
	add := func(s span) {
		for _, f := range found {
			if f.overlaps(s) {
				return
			}
		}
		found = append(found, s)
	}

	for _, name := range companyAliases(c.CompanyName) {
		for _, loc := range phrasePattern(name).FindAllStringIndex(text, -1) {
			add(span{loc[0], loc[1]})
		}
	}
	if c.Ticker != "" {
		for _, loc := range symbolPattern(c.Ticker).FindAllStringSubmatchIndex(text, -1) {
			add(span{loc[2], loc[3]})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	return found
}

var corporateSuffix = regexp.MustCompile(`(?i)[,\s]+(inc\.?|incorporated|corp\.?|corporation|co\.?|company|ltd\.?|limited|plc|llc|n\.v\.|s\.a\.|ag|se|holdings?|group|therapeutics|pharmaceuticals)$`)

// companyAliases returns the full name and the name stripped of corporate suffixes, longest first
func companyAliases(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	aliases := []string{name}
	short := name
	for {
		trimmed := strings.TrimSpace(corporateSuffix.ReplaceAllString(short, ""))
		if trimmed == short || trimmed == "" {
			break
		}
		short = trimmed
	}
	if short != name && len(short) >= 3 {
		aliases = append(aliases, short)
	}
	return aliases
}

// TopTickers keeps at most n tickers with weight >= minWeight, highest weight first.
// Ties break on ticker symbol so the result is deterministic.
func TopTickers(weights map[string]float64, n int, minWeight float64) []string {
	type tw struct {
		ticker string
		weight float64
	}
	list := make([]tw, 0, len(weights))
	for t, w := range weights {
		if w >= minWeight {
			list = append(list, tw{t, w})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].weight != list[j].weight {
			return list[i].weight > list[j].weight
		}
		return list[i].ticker < list[j].ticker
	})

	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, x := range list {
		out[i] = x.ticker
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
