package resolver

import "strings"

// Mask keeps the first 6 and last 4 characters of a token.
func Mask(s string) string {
	if len(s) <= 10 {
		return strings.Repeat("*", len(s))
	}
	return s[:6] + "..." + s[len(s)-4:]
}
