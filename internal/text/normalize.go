// Package text provides text normalization for TTS requests.
//
// Only whitespace is normalized. Rewrites that change what the backend
// speaks (abbreviation or number expansion) are out of scope for the
// gateway: they would silently alter cache identity for equivalent input.
package text

import (
	"regexp"
	"strings"
)

const whitespaceRegexPattern = `\s+`

var whitespacePattern = regexp.MustCompile(whitespaceRegexPattern)

// Normalize collapses every run of whitespace, including newlines and tabs,
// into a single space and trims the result. Whitespace-only input normalizes
// to the empty string.
func Normalize(input string) string {
	collapsed := whitespacePattern.ReplaceAllString(input, " ")

	return strings.TrimSpace(collapsed)
}
