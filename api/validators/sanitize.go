package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString trims input and caps it at maxLen bytes without splitting a
// UTF-8 sequence. A non-positive maxLen disables the cap.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen <= 0 || len(out) <= maxLen {
		return out
	}
	out = out[:maxLen]
	for len(out) > 0 && !utf8.ValidString(out) {
		out = out[:len(out)-1]
	}
	return out
}

// SanitizeToken is SanitizeString for values echoed into headers and logs.
// Control and whitespace runes are dropped.
func SanitizeToken(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	return SanitizeString(cleaned, maxLen)
}
