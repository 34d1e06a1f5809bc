package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid UTF-8 string unchanged",
			input:    "Hello, World! ä½ å¥½ä¸–ç•Œ",
			expected: "Hello, World! ä½ å¥½ä¸–ç•Œ",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name: "invalid UTF-8 bytes removed",
			// \xff is invalid UTF-8
			input:    "Hello\xffWorld",
			expected: "HelloWorld",
		},
		{
			name: "multiple invalid UTF-8 sequences",
			// Multiple invalid bytes
			input:    "Start\xffMiddle\xfeEnd\xfd",
			expected: "StartMiddleEnd",
		},
		{
			name: "mixed valid and invalid UTF-8",
			// Valid emoji followed by invalid bytes
			input:    "Test ðŸš€\xff error\xfe message",
			expected: "Test ðŸš€ error message",
		},
		{
			name: "feed title with invalid UTF-8",
			// Press-release feeds sometimes ship latin-1 bytes
			input:    "Acme\xff Announces Positive Phase 3 Results",
			expected: "Acme Announces Positive Phase 3 Results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeUTF8(tt.input)
			assert.Equal(t, tt.expected, result, "SanitizeUTF8 should remove invalid UTF-8 sequences")
		})
	}
}


