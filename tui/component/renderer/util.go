package renderer

import (
	"strings"
)

// Truncate cuts s to maxLen runes, ending with an ellipsis.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}

// ShortenURL drops the scheme and caps the length.
func ShortenURL(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "www.")
	return Truncate(url, 40)
}

// oneLine collapses whitespace so previews fit a single row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
