package events

import (
	"fmt"
	"strings"
	"time"
)

// Event type constants
const (
	TypeScoreAlert        = "score.alert"
	TypeBatchCompleted    = "eventstudy.batch_completed"
	TypeBacktestCompleted = "backtest.completed"
	TypeArticleDiscovered = "article.discovered"
)

const schemaVersion = "1.0"

// Base is the envelope shared by every event
type Base struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBase creates a new base event with defaults
func NewBase(eventType, source string) Base {
	return Base{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   schemaVersion,
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	// Format: timestamp_nanoseconds
	now := time.Now()
	return fmt.Sprintf("%d_%d", now.Unix(), now.Nanosecond())
}

// SanitizeUTF8 drops invalid UTF-8 sequences. Feed titles occasionally carry
// broken bytes that downstream JSON consumers reject.
func SanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
