// Package moderation masks forbidden words in outgoing message text.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	maskingChar rune
}

// NewModerator builds the Aho-Corasick automaton over a normalized version
// of the word list, so obfuscated spellings (leet speak, punctuation noise)
// still match.
func NewModerator(words []string, maskingChar rune) (Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word), nil)
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, maskingChar: maskingChar}, nil
}

// Censor replaces every character of a matched word with the masking rune,
// preserving the original length and spacing. It returns the censored text
// and the normalized words that matched.
func (m *Moderator) Censor(original string) (string, []string) {
	origRunes := []rune(original)
	origIdx := make([]int, 0, len(origRunes))
	normalized := normalize(origRunes, &origIdx)
	if len(normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	var found []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.maskingChar
		}
		found = append(found, string(span.Word))
	}
	return string(origRunes), found
}

// normalize lowercases, folds common leet substitutions and drops noise
// runes. When idx is non-nil it records, per kept rune, the index of that
// rune in the input so matches can be mapped back.
func normalize(input []rune, idx *[]int) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		folded := foldLeet(r)
		if isNoise(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
		if idx != nil {
			*idx = append(*idx, i)
		}
	}
	return out
}

func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
