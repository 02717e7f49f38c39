package scraper

import (
	"regexp"
	"strings"
)

var phonePunct = regexp.MustCompile(`[\s\-()./\x{00A0}]`)

// countryGroupings describes how national digits are grouped after the
// country code when reformatting to international form.
var countryGroupings = map[string][]int{
	"+41": {2, 3, 2, 2}, // 44 123 45 67
	"+49": {3, 4, 4},
	"+43": {3, 4, 4},
	"+33": {1, 2, 2, 2, 2},
	"+39": {3, 3, 4},
	"+34": {3, 3, 3},
	"+57": {3, 3, 4},
	"+1":  {3, 3, 4},
}

// NormalizePhone canonicalizes a raw phone string to international form.
// Punctuation is stripped; numbers starting with "+" keep their country
// code; national numbers drop a single leading zero and take the locale's
// prefix. Too-short inputs are returned cleaned, best effort.
func NormalizePhone(raw string, loc Locale) string {
	cleaned := phonePunct.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return ""
	}

	// "00" international prefix is equivalent to "+".
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	}

	if strings.HasPrefix(cleaned, "+") {
		prefix, national := splitCountryCode(cleaned)
		if prefix == "" || len(national) < 6 {
			return cleaned
		}
		return prefix + " " + groupDigits(national, countryGroupings[prefix])
	}

	national := strings.TrimPrefix(cleaned, "0")
	prefix := loc.PhonePrefix
	if prefix == "" {
		prefix = "+1"
	}
	if len(national) < 6 {
		return prefix + national
	}
	return prefix + " " + groupDigits(national, countryGroupings[prefix])
}

// splitCountryCode separates a known country code from the national digits.
// Longest known prefix wins; unknown codes fall back to a 2-digit guess.
func splitCountryCode(number string) (prefix, national string) {
	for _, cc := range []string{"+41", "+49", "+43", "+33", "+39", "+34", "+57", "+1"} {
		if strings.HasPrefix(number, cc) {
			return cc, strings.TrimPrefix(strings.TrimPrefix(number, cc), "0")
		}
	}
	if len(number) > 3 {
		return number[:3], number[3:]
	}
	return "", number
}

func groupDigits(digits string, groups []int) string {
	if len(groups) == 0 {
		// No grouping table: split into blocks of three with a final block
		// absorbing the remainder.
		var parts []string
		for len(digits) > 4 {
			parts = append(parts, digits[:3])
			digits = digits[3:]
		}
		parts = append(parts, digits)
		return strings.Join(parts, " ")
	}

	var parts []string
	rest := digits
	for _, g := range groups {
		if len(rest) <= g {
			break
		}
		parts = append(parts, rest[:g])
		rest = rest[g:]
	}
	parts = append(parts, rest)
	return strings.Join(parts, " ")
}
