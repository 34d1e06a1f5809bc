package scoring

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9]+(?:['’\-][A-Za-z0-9]+)*`)

// span is a half-open byte range in the source text
type span struct {
	start, end int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// words holds the byte offsets of every word in a text
type words struct {
	spans []span
	lower []string
}

func tokenize(text string) words {
	idx := wordRe.FindAllStringIndex(text, -1)
	w := words{spans: make([]span, len(idx)), lower: make([]string, len(idx))}
	for i, m := range idx {
		w.spans[i] = span{m[0], m[1]}
		w.lower[i] = strings.ToLower(text[m[0]:m[1]])
	}
	return w
}

// indexAt returns the index of the first word starting at or after offset
func (w words) indexAt(offset int) int {
	return sort.Search(len(w.spans), func(i int) bool { return w.spans[i].start >= offset })
}

// phrasePattern matches a phrase case-insensitively on word boundaries
func phrasePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(phrase)) + `\b`)
}

// symbolPattern matches a ticker symbol case-sensitively, optionally prefixed by '$'
func symbolPattern(symbol string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^A-Za-z0-9$])\$?(` + regexp.QuoteMeta(symbol) + `)\b`)
}

// snippet cuts up to n characters around [start, end) on rune boundaries
func snippet(text string, start, end, n int) string {
	from := start - n
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + n
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return strings.TrimSpace(text[from:to])
}
