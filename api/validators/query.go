package validators

import (
	"net/http"
	"strconv"
	"strings"
)

// ParseLimit reads a ?limit= query parameter, falling back to the default
// when absent or unparseable.
func ParseLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// SanitizeString trims whitespace and caps the length of user input.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
