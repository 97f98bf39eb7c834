package output

import (
	"strings"
	"unicode/utf8"
)

// Banner centers title within width, padding both sides with fill.
// A title at least as wide as width is returned unchanged.
func Banner(title string, width int, fill string) string {
	n := utf8.RuneCountInString(title)
	if width <= n {
		return title
	}
	margin := width - n
	// Odd margins put the extra fill on the left when width is odd.
	left := margin/2 + (margin & width & 1)
	return strings.Repeat(fill, left) + title + strings.Repeat(fill, margin-left)
}

// Rule returns a horizontal rule of width fill characters.
func Rule(width int, fill string) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat(fill, width)
}
