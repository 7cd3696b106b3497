// Package textproc cleans raw speech-to-text output before it is stored or
// corrected.
//
// Whisper-style engines frequently stutter on noisy audio, emitting the same
// word two or three times in a row. The package applies two normalisation
// passes with deliberately different equality rules:
//
//  1. [RemoveConsecutiveDuplicates] compares tokens after stripping
//     punctuation and lowercasing, so "hello" and "Hello," collapse.
//  2. [CapRepetition] compares tokens by exact lowercase match only, so a
//     run like "no, no, no no" is capped per punctuation variant.
//
// The asymmetry is intentional and pinned by tests: the first pass targets
// engine stutter (where punctuation placement is arbitrary), the second
// targets genuine spoken repetition (where punctuation carries meaning).
package textproc

import (
	"strings"
	"unicode"
)

// DefaultMaxRepetitions is the consecutive-repetition cap applied by
// [Cleaner.Clean].
const DefaultMaxRepetitions = 2

// RemoveConsecutiveDuplicates drops tokens that repeat their immediate
// predecessor, comparing after punctuation stripping and lowercasing. The
// first token is always kept and surviving tokens are rejoined with single
// spaces; original inter-word spacing is not preserved. Empty or
// whitespace-only input is returned unchanged.
func RemoveConsecutiveDuplicates(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))

	for i, word := range words {
		if i == 0 {
			kept = append(kept, word)
			continue
		}
		if normalizeToken(word) != normalizeToken(words[i-1]) {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

// CapRepetition limits runs of the same token to max consecutive occurrences.
// Tokens are compared by exact lowercase match — punctuation is NOT stripped,
// so "hello" and "hello," count as different tokens here. Kept tokens retain
// their original casing. Empty or whitespace-only input is returned unchanged.
func CapRepetition(text string, max int) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))

	var current string
	count := 0

	for _, word := range words {
		lower := strings.ToLower(word)
		if lower == current {
			count++
			if count <= max {
				kept = append(kept, word)
			}
		} else {
			current = lower
			count = 1
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

// Cleaner composes the normalisation passes into a single transcript cleanup
// step. The zero value uses [DefaultMaxRepetitions].
//
// Cleaner is stateless and safe for concurrent use.
type Cleaner struct {
	// MaxRepetitions caps consecutive occurrences of the same token.
	// Values below 1 fall back to [DefaultMaxRepetitions].
	MaxRepetitions int
}

// Clean applies duplicate removal, the repetition cap, a trim, and whitespace
// collapsing, in that order. It operates purely on in-memory strings and
// never fails.
//
// Clean is idempotent for typical inputs; the exception is punctuation-only
// repeats that straddle the two passes' different equality rules (see the
// package comment).
func (c Cleaner) Clean(text string) string {
	max := c.MaxRepetitions
	if max < 1 {
		max = DefaultMaxRepetitions
	}

	text = RemoveConsecutiveDuplicates(text)
	text = CapRepetition(text, max)
	text = strings.TrimSpace(text)

	// Fields+Join collapses any run of whitespace to a single space.
	return strings.Join(strings.Fields(text), " ")
}

// normalizeToken strips non-word runes and lowercases for stutter comparison.
// Word runes follow the \w class: letters, digits, and underscore.
func normalizeToken(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
