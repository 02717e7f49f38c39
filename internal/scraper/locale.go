package scraper

import (
	"regexp"
	"strings"

	"github.com/ternarybob/reperio/internal/models"
)

// Locale is the {language, region, timezone, phone prefix, UA} tuple chosen
// from the input record. The browser context is always opened with en-US
// language to stabilize extraction; only the region (gl) parameter and the
// phone prefix follow the detected country.
type Locale struct {
	Country     string
	Language    string
	Region      string // gl parameter
	Timezone    string
	PhonePrefix string
	Currency    string
	UserAgent   string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var locales = map[string]Locale{
	"CH": {Country: "CH", Language: "de", Region: "ch", Timezone: "Europe/Zurich", PhonePrefix: "+41", Currency: "CHF", UserAgent: defaultUserAgent},
	"DE": {Country: "DE", Language: "de", Region: "de", Timezone: "Europe/Berlin", PhonePrefix: "+49", Currency: "EUR", UserAgent: defaultUserAgent},
	"FR": {Country: "FR", Language: "fr", Region: "fr", Timezone: "Europe/Paris", PhonePrefix: "+33", Currency: "EUR", UserAgent: defaultUserAgent},
	"IT": {Country: "IT", Language: "it", Region: "it", Timezone: "Europe/Rome", PhonePrefix: "+39", Currency: "EUR", UserAgent: defaultUserAgent},
	"ES": {Country: "ES", Language: "es", Region: "es", Timezone: "Europe/Madrid", PhonePrefix: "+34", Currency: "EUR", UserAgent: defaultUserAgent},
	"AT": {Country: "AT", Language: "de", Region: "at", Timezone: "Europe/Vienna", PhonePrefix: "+43", Currency: "EUR", UserAgent: defaultUserAgent},
	"CO": {Country: "CO", Language: "es", Region: "co", Timezone: "America/Bogota", PhonePrefix: "+57", Currency: "COP", UserAgent: defaultUserAgent},
	"US": {Country: "US", Language: "en", Region: "us", Timezone: "America/New_York", PhonePrefix: "+1", Currency: "USD", UserAgent: defaultUserAgent},
}

// City token sets used to disambiguate 5-digit postal codes and to override
// the postal-shape guess. Keys are folded (lowercase, accents kept simple).
var (
	swissCities = tokenSet(
		"zürich", "zurich", "geneva", "genève", "genf", "basel", "bern",
		"lausanne", "lucerne", "luzern", "lugano", "st. gallen", "st gallen",
		"winterthur", "biel", "bienne", "thun", "schaffhausen", "chur", "zug",
	)
	germanCities = tokenSet(
		"berlin", "hamburg", "münchen", "munich", "köln", "cologne",
		"frankfurt", "stuttgart", "düsseldorf", "leipzig", "dortmund",
		"essen", "bremen", "dresden", "hannover", "nürnberg",
	)
	frenchCities = tokenSet(
		"paris", "marseille", "lyon", "toulouse", "nice", "nantes",
		"strasbourg", "montpellier", "bordeaux", "lille",
	)
	italianCities = tokenSet(
		"roma", "rome", "milano", "milan", "napoli", "naples", "torino",
		"turin", "palermo", "genova", "bologna", "firenze", "florence",
	)
	spanishCities = tokenSet(
		"madrid", "barcelona", "valencia", "sevilla", "seville", "zaragoza",
		"málaga", "malaga", "bilbao",
	)
	colombianCities = tokenSet(
		"bogotá", "bogota", "medellín", "medellin", "cali", "cartagena",
		"barranquilla",
	)
)

var (
	chPostalPrefix = regexp.MustCompile(`(?i)\bCH[- ]\d{4}\b`)
	fourDigits     = regexp.MustCompile(`\b\d{4}\b`)
	fiveDigits     = regexp.MustCompile(`\b\d{5}\b`)
)

// DetectLocale picks a locale config from postal-code shape and known
// city/address tokens. Token matches override the postal-shape guess.
func DetectLocale(rec models.InputRecord) Locale {
	city := foldToken(rec.City)
	address := foldToken(rec.Address)
	postal := strings.TrimSpace(rec.PostalCode)

	// Address tokens and explicit country prefixes are the strongest signal.
	if chPostalPrefix.MatchString(address) || chPostalPrefix.MatchString(postal) {
		return locales["CH"]
	}
	if country, ok := cityCountry(city); ok {
		return locales[country]
	}
	if country, ok := addressTokenCountry(address); ok {
		// Swiss street names share the German "strasse" family; prefer CH
		// when any Swiss city appears in the address.
		if country == "DE" && containsAny(address, swissCities) {
			return locales["CH"]
		}
		return locales[country]
	}

	// Postal-code shape.
	switch {
	case fourDigits.MatchString(postal) && !fiveDigits.MatchString(postal):
		return locales["CH"]
	case fiveDigits.MatchString(postal):
		// Ambiguous between DE/FR/IT/ES; the city list above already had its
		// chance, so default to the largest market.
		return locales["DE"]
	}

	return locales["US"]
}

func cityCountry(city string) (string, bool) {
	switch {
	case city == "":
		return "", false
	case containsAny(city, swissCities):
		return "CH", true
	case containsAny(city, germanCities):
		return "DE", true
	case containsAny(city, frenchCities):
		return "FR", true
	case containsAny(city, italianCities):
		return "IT", true
	case containsAny(city, spanishCities):
		return "ES", true
	case containsAny(city, colombianCities):
		return "CO", true
	}
	return "", false
}

func addressTokenCountry(address string) (string, bool) {
	switch {
	case address == "":
		return "", false
	case strings.Contains(address, "strasse") || strings.Contains(address, "straße") || strings.Contains(address, "str."):
		return "DE", true
	case strings.Contains(address, "rue ") || strings.Contains(address, "avenue ") || strings.HasPrefix(address, "rue"):
		return "FR", true
	case strings.Contains(address, "via ") || strings.Contains(address, "piazza "):
		return "IT", true
	case strings.Contains(address, "calle ") || strings.Contains(address, "carrera "):
		return "ES", true
	}
	return "", false
}

func containsAny(s string, set map[string]bool) bool {
	if set[s] {
		return true
	}
	for token := range set {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}

func foldToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tokenSet(tokens ...string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
