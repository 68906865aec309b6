// Package slugify derives stable, idempotent identifiers from author-facing
// display names.
package slugify

import "strings"

// Slugify lowercases input, maps spaces and hyphens to a single hyphen,
// strips every other non-alphanumeric character, collapses consecutive
// hyphens, and trims leading/trailing hyphens. It is idempotent:
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, ch := range input {
		switch {
		case isASCIIAlphanumeric(ch):
			b.WriteRune(toASCIILower(ch))
		case ch == ' ' || ch == '-':
			b.WriteByte('-')
		}
	}

	var collapsed strings.Builder
	collapsed.Grow(b.Len())
	prevHyphen := false
	for _, ch := range b.String() {
		if ch == '-' {
			if !prevHyphen {
				collapsed.WriteByte('-')
			}
			prevHyphen = true
		} else {
			collapsed.WriteRune(ch)
			prevHyphen = false
		}
	}

	return strings.Trim(collapsed.String(), "-")
}

func isASCIIAlphanumeric(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func toASCIILower(ch rune) rune {
	if ch >= 'A' && ch <= 'Z' {
		return ch + ('a' - 'A')
	}
	return ch
}
