package config

import (
	_ "embed"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"newsimpact/pkg/errors"
)

//go:embed phrases.yaml
var defaultPhrases []byte

// Polarity of a surprise phrase
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Phrase is a scored phrase from the keyword or surprise tables
type Phrase struct {
	Phrase   string   `yaml:"phrase"`
	Score    float64  `yaml:"score"`
	Polarity Polarity `yaml:"polarity,omitempty"`
}

// Phrases is the externally managed phrase configuration
type Phrases struct {
	Keywords []Phrase `yaml:"keywords"`
	Surprise []Phrase `yaml:"surprise"`
	Negation []string `yaml:"negation"`
	Triggers []string `yaml:"triggers"`
}

// LoadPhrases reads the phrase tables from path, or the embedded defaults when path is empty
func LoadPhrases(path string) (*Phrases, error) {
	data := defaultPhrases
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read phrases file %s", path)
		}
		data = raw
	}
	return ParsePhrases(data)
}

// ParsePhrases decodes and validates a phrase document
func ParsePhrases(data []byte) (*Phrases, error) {
	var p Phrases
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "decode phrases")
	}

	for i := range p.Keywords {
		p.Keywords[i].Phrase = strings.ToLower(strings.TrimSpace(p.Keywords[i].Phrase))
		if p.Keywords[i].Phrase == "" {
			return nil, errors.NewValidationError("keywords", "empty phrase", i)
		}
	}
	for i := range p.Surprise {
		s := &p.Surprise[i]
		s.Phrase = strings.ToLower(strings.TrimSpace(s.Phrase))
		if s.Phrase == "" {
			return nil, errors.NewValidationError("surprise", "empty phrase", i)
		}
		if s.Polarity != PolarityPositive && s.Polarity != PolarityNegative {
			return nil, errors.NewValidationError("surprise", "polarity must be positive or negative", s.Phrase)
		}
		if s.Score < 0 {
			return nil, errors.NewValidationError("surprise", "score must not be negative", s.Phrase)
		}
	}
	p.Negation = normalize(p.Negation)
	p.Triggers = normalize(p.Triggers)

	return &p, nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
