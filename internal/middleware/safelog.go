package middleware

import "strings"

// MaskToken shortens tokens for log lines (never log a full credential).
func MaskToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
