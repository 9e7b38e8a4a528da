package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the value at maxLen
// runes. Names and phone numbers arrive from scanner UIs with stray
// whitespace, so every free-text field passes through here.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
