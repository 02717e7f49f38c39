package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Field validators. Extraction tries ordered selector lists; the first
// (selector, text) pair whose text passes the field's validator wins. The
// validator is part of the extraction contract.

// searchResultWords appearing in a heading mean we are still on a results
// list, not a business detail page.
var searchResultWords = []string{"ergebnisse", "results", "resultados", "résultats", "resultats", "risultati"}

var (
	pureNumeric   = regexp.MustCompile(`^[\d\s.,]+$`)
	decimalLook   = regexp.MustCompile(`^\d+[.,]\d+$`)
	ratingNumber  = regexp.MustCompile(`\d+[.,]\d+|\d+`)
	reviewsParen  = regexp.MustCompile(`\(([\d.,\x{2009}\x{00A0} ]+)\)`)
	reviewsNumber = regexp.MustCompile(`\d[\d.,\x{2009}\x{00A0} ]*`)
	ratingLook    = regexp.MustCompile(`^\d[.,]\d$`)
	nonDigit      = regexp.MustCompile(`\D`)

	phoneIntl     = regexp.MustCompile(`^\+\d{7,17}$`)
	phoneNational = regexp.MustCompile(`^0\d{6,14}$`)
	phoneBare     = regexp.MustCompile(`^\d{7,15}$`)

	// Loose page-scan patterns used as a last resort over full page text.
	phoneScanPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s\-.]?\(?\d{1,4}\)?(?:[\s\-.]?\d{2,4}){2,4}`),
		regexp.MustCompile(`\b0\d{1,4}[\s\-./]?\d{2,4}(?:[\s\-.]?\d{2,4}){1,3}\b`),
	}

	phoneRejectTokens  = []string{"★", "·", "€", "$", "£", "chf", "review", "bewertung", "stern", "rating", "avis", "recensioni"}
	websiteRejectHosts = []string{"google.", "gstatic.", "googleusercontent."}
)

// ValidName accepts a business title that is not a search-result heading and
// not purely numeric.
func ValidName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || pureNumeric.MatchString(s) {
		return false
	}
	folded := strings.ToLower(s)
	for _, w := range searchResultWords {
		if strings.Contains(folded, w) {
			return false
		}
	}
	return true
}

// ValidAddress accepts any non-empty text with at least one letter.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !pureNumeric.MatchString(s)
}

// ValidPhoneCandidate accepts international, national-with-leading-zero,
// bare-digit and common grouped formats, and rejects text polluted with
// rating or currency vocabulary.
func ValidPhoneCandidate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 50 {
		return false
	}
	folded := strings.ToLower(s)
	for _, tok := range phoneRejectTokens {
		if strings.Contains(folded, tok) {
			return false
		}
	}

	cleaned := phonePunct.ReplaceAllString(s, "")
	return phoneIntl.MatchString(cleaned) ||
		phoneNational.MatchString(cleaned) ||
		phoneBare.MatchString(cleaned)
}

// ScanForPhone scans free page text with phone regexes; used only when no
// phone selector matched.
func ScanForPhone(pageText string) string {
	for _, re := range phoneScanPatterns {
		for _, candidate := range re.FindAllString(pageText, 10) {
			if ValidPhoneCandidate(candidate) {
				return strings.TrimSpace(candidate)
			}
		}
	}
	return ""
}

// ParseRating extracts the first numeric token and accepts it when within
// [0, 5]. Integral values render with one decimal ("4" -> "4.0").
func ParseRating(s string) (string, bool) {
	m := ratingNumber.FindString(s)
	if m == "" {
		return "", false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil || v < 0 || v > 5 {
		return "", false
	}
	return fmt.Sprintf("%.1f", v), true
}

// ParseReviews accepts "(123)", "123 reviews", localized variants or a bare
// number, strips thousand separators and returns the integer as a string.
func ParseReviews(s string) (string, bool) {
	m := ""
	if paren := reviewsParen.FindStringSubmatch(s); paren != nil {
		m = paren[1]
	} else {
		m = reviewsNumber.FindString(s)
	}
	m = strings.TrimSpace(m)
	if m == "" || ratingLook.MatchString(m) {
		return "", false
	}
	digits := nonDigit.ReplaceAllString(m, "")
	if digits == "" {
		return "", false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// ValidWebsite accepts an href that parses as http(s) and does not point
// back into the search engine's own domains.
func ValidWebsite(href string) bool {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, reject := range websiteRejectHosts {
		if strings.Contains(host, reject) {
			return false
		}
	}
	return true
}

// ValidCategory rejects pure numerics, star literals and decimal-looking
// strings that would collide with the rating field.
func ValidCategory(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "★") {
		return false
	}
	if pureNumeric.MatchString(s) || decimalLook.MatchString(s) {
		return false
	}
	return true
}

// ValidCoordinates range-checks a parsed latitude/longitude pair.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
