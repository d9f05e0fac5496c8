package loader

import (
	"regexp"
	"strings"
)

var (
	multiNewline = regexp.MustCompile(`\n\s*\n\s*\n+`)
	multiSpace   = regexp.MustCompile(` +`)
)

// Normalize collapses runs of blank lines to a single blank line and runs of
// spaces to one space, then trims surrounding whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
