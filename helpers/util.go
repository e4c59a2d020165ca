package helpers

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s\s+`)

// CleanText collapses runs of whitespace (including newlines and non-breaking
// spaces) into single spaces and trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// CleanLink makes a scraped URL whitespace-safe. The marketplace occasionally
// emits non-breaking spaces inside hrefs where a '+' belongs.
func CleanLink(link string) string {
	return strings.TrimSpace(strings.ReplaceAll(link, "\u00a0", "+"))
}
