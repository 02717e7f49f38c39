package charset

import (
	"regexp"
	"strings"
)

var (
	newlineRun    = regexp.MustCompile(`\r?\n+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// PrepareForCSV makes a value safe for a CSV cell: trims, doubles quotes,
// and collapses newlines and whitespace runs to single spaces. It never
// folds characters, so Unicode survives the round trip. Idempotent.
func PrepareForCSV(s string) string {
	s = strings.TrimSpace(s)
	// Collapse already-doubled quotes before escaping so applying the
	// function twice yields the same output.
	s = strings.ReplaceAll(s, `""`, `"`)
	s = strings.ReplaceAll(s, `"`, `""`)
	s = newlineRun.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
