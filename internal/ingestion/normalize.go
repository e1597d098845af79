package ingestion

import (
	"regexp"
	"strings"
)

// escapeArtifact matches literal "\uXXXX" sequences left behind by bad exports.
var escapeArtifact = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)

// Normalize strips characters that break embedding providers and the database:
// NUL, replacement and non-characters, control characters other than tab, LF
// and CR, invalid UTF-8, and literal \uXXXX escape artifacts. The result is
// trimmed. Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	text = strings.Map(keepRune, strings.ToValidUTF8(text, ""))

	// Removing one artifact can splice together another (`\u00\u004141`).
	for escapeArtifact.MatchString(text) {
		text = escapeArtifact.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text)
}

// keepRune returns -1 for runes Normalize drops.
func keepRune(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r == '\uFFFD', r == '\uFFFE', r == '\uFFFF':
		return -1
	case r >= 0x20 && r <= 0x7E:
		return r
	case r >= 0xA0:
		return r
	default:
		// C0 controls, DEL and C1 controls
		return -1
	}
}
