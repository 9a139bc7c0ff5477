package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeName trims a display name and collapses inner whitespace runs.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
