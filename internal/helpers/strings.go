package helpers

import "unicode/utf8"

// String returns the dereferenced value of the input pointer if it's not nil, otherwise, it returns an empty string.
func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Truncate shortens the given string to the specified length, appending "..." if truncation occurs.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:runeBoundary(s, n)]
	}
	return s[:runeBoundary(s, n-3)] + "..."
}

// runeBoundary backs i off to the start of the rune it falls inside.
func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
