package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const maskingChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, maskingChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			words:    []string{"badger", "badger", "badger"},
		},
		{
			name:     "Leet speak",
			input:    "what a b4dg3r",
			expected: "what a ******",
			words:    []string{"badger"},
		},
		{
			name:     "Uppercase and internal punctuation",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
			words:    []string{"snake", "badger"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger.",
			expected: "I love ******.",
			words:    []string{"badger"},
		},
		{
			name:     "Nothing to censor",
			input:    "everything is fine",
			expected: "everything is fine",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}
