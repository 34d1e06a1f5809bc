package scoring

import "time"

// Keyword is a Layer-1 phrase with its importance
type Keyword struct {
	Phrase     string
	EventScore float64
}

// Polarity of a surprise phrase
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
)

// SurprisePhrase is a Layer-3 phrase
type SurprisePhrase struct {
	Phrase   string
	Score    float64
	Polarity Polarity
}

// Config holds every tunable of the scoring model
type Config struct {
	Keywords        []Keyword
	Surprise        []SurprisePhrase
	NegationMarkers []string
	TriggerPhrases  []string

	NegationPenalty float64 // fraction of confidence removed from a negated match
	NegationWindow  int     // words scanned before a match
	SnippetChars    int     // characters kept on each side of a match

	TopTickers     int
	MinRelevance   float64
	ProximityWords int

	SurpriseCap    float64
	AlertThreshold float64

	TrendWindow          time.Duration // recent mention window before publication
	TrendBaselineDays    int           // trailing days forming the normal mention rate
	ConfounderWindowDays int

	Reaction ReactionConfig
}

// ReactionConfig holds the Layer-4 thresholds. All comparisons are strict.
type ReactionConfig struct {
	VolumeHigh float64 // ratio above which volume scores 2
	VolumeMid  float64 // ratio above which volume scores 1
	GapHigh    float64 // |gap| percent above which gap scores 2
	GapMid     float64 // |gap| percent above which gap scores 1
	TrendRatio float64 // mention ratio above which trend scores 1
	Max        int
}

// DefaultReactionConfig returns the standard Layer-4 thresholds
func DefaultReactionConfig() ReactionConfig {
	return ReactionConfig{
		VolumeHigh: 3,
		VolumeMid:  2,
		GapHigh:    5,
		GapMid:     3,
		TrendRatio: 3,
		Max:        5,
	}
}

// DefaultConfig returns defaults with empty phrase tables
func DefaultConfig() Config {
	return Config{
		NegationMarkers: []string{"not", "no", "never", "without", "failed", "failed to", "did not", "denied", "rejected"},
		NegationPenalty: 0.7,
		NegationWindow:  5,
		SnippetChars:    50,
		TopTickers:      3,
		MinRelevance:    0.3,
		ProximityWords:  10,
		SurpriseCap:     5,
		AlertThreshold:  15,

		TrendWindow:          24 * time.Hour,
		TrendBaselineDays:    7,
		ConfounderWindowDays: 1,

		Reaction: DefaultReactionConfig(),
	}
}
