// Package util provides shared string utility functions used across packages.
package util

import (
	"fmt"
	"strings"
	"unicode"
)

// TruncateRunes truncates s to at most maxRunes Unicode code points,
// appending "..." if truncation occurred.
// If maxRunes <= 0, s is returned unchanged.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// TruncateMiddle keeps the first and last maxRunes/2 code points of s and
// replaces the middle with a marker naming the original length.
// If maxRunes <= 0 or s already fits, s is returned unchanged.
func TruncateMiddle(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	half := maxRunes / 2
	return fmt.Sprintf("%s\n\n... [Content truncated - showing first %d and last %d chars of %d total] ...\n\n%s",
		string(runes[:half]), half, half, len(runes), string(runes[len(runes)-half:]))
}

// SafeName lowercases s and replaces every non-alphanumeric rune with '_'.
func SafeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
