package charset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Transliterations applied by the full diacritic fold. German-style digraph
// expansion first, then generic accent stripping for the remainder.
var digraphFold = strings.NewReplacer(
	"ä", "ae", "Ä", "Ae",
	"ö", "oe", "Ö", "Oe",
	"ü", "ue", "Ü", "Ue",
	"ß", "ss", "ẞ", "Ss",
	"å", "aa", "Å", "Aa",
	"æ", "ae", "Æ", "Ae",
	"ø", "oe", "Ø", "Oe",
)

// lightFold keeps ß->ss (it has no accent-stripped form) but leaves umlauts
// to plain accent removal (ä->a rather than ae).
var lightFold = strings.NewReplacer(
	"ß", "ss", "ẞ", "Ss",
)

// Trailing legal-entity suffixes removed for the suffix-stripped variant.
var legalSuffixes = []string{
	"gmbh & co. kg", "gesellschaft", "company", "gmbh", "ag", "ab", "as",
	"aps", "a/s", "oy", "ltd", "llc", "inc", "co.",
}

// SearchVariants produces the ordered retry set for a search term: the
// original, a diacritic-folded form, a lightly folded form, and the name
// with trailing legal suffixes removed. Variants are deduplicated
// case-insensitively and entries of length <= 1 are dropped.
func SearchVariants(s string) []string {
	s = strings.TrimSpace(s)
	candidates := []string{
		s,
		stripAccents(digraphFold.Replace(s)),
		stripAccents(lightFold.Replace(s)),
		stripLegalSuffix(s),
	}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len([]rune(c)) <= 1 {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, c)
	}
	return variants
}

// stripAccents removes combining marks: é->e, à->a, ñ->n.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func stripLegalSuffix(s string) string {
	lower := strings.ToLower(s)
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(lower, " "+suffix) {
			return strings.TrimSpace(s[:len(s)-len(suffix)-1])
		}
		if strings.HasSuffix(lower, ","+suffix) || strings.HasSuffix(lower, ", "+suffix) {
			idx := strings.LastIndex(lower, ",")
			return strings.TrimSpace(s[:idx])
		}
	}
	return s
}
