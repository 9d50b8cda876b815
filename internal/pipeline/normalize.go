package pipeline

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a message for scripted matching: lowercase,
// stretched letters collapsed ("heyyyy" → "heyy" → capped at two),
// punctuation stripped, whitespace collapsed. Script phrases are stored
// normalized by the same function, so matching is exact.
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			continue
		}
		if unicode.IsSpace(r) {
			r = ' '
		}
		if r == prev {
			run++
			if run >= 2 {
				continue
			}
		} else {
			prev = r
			run = 0
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// WordSet splits a normalized string into its distinct words.
func WordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
