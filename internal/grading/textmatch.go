package grading

import (
	"strings"
	"unicode"
)

// normalize casefolds, trims and collapses runs of whitespace to one space.
// Punctuation is kept: "O(n)" and "On" are different answers.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Match reports whether a submitted answer equals the key under normalize.
func Match(submitted, key string) bool {
	return normalize(submitted) == normalize(key)
}
