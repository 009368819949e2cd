package text

import "strings"

// Truncate shortens s to at most max runes and appends "...". max <= 0
// leaves s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// Preview collapses whitespace runs so a multi-line reply fits one log line,
// then truncates it.
func Preview(s string, max int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), max)
}
