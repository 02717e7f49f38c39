package scraper

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Reserved opening-hour literals.
const (
	HoursClosed = "Closed"
	HoursOpen24 = "Open 24 hours"
)

// dayNames maps localized day names (en/de/fr/it/es/pt) to the English
// bucket literal. Keys are lowercase; diacritic variants are listed
// explicitly because page text arrives unfolded.
var dayNames = map[string]string{
	"monday": "Monday", "montag": "Monday", "lundi": "Monday",
	"lunedì": "Monday", "lunedi": "Monday", "lunes": "Monday",
	"segunda-feira": "Monday", "segunda": "Monday",

	"tuesday": "Tuesday", "dienstag": "Tuesday", "mardi": "Tuesday",
	"martedì": "Tuesday", "martedi": "Tuesday", "martes": "Tuesday",
	"terça-feira": "Tuesday", "terca-feira": "Tuesday", "terça": "Tuesday",

	"wednesday": "Wednesday", "mittwoch": "Wednesday", "mercredi": "Wednesday",
	"mercoledì": "Wednesday", "mercoledi": "Wednesday", "miércoles": "Wednesday",
	"miercoles": "Wednesday", "quarta-feira": "Wednesday", "quarta": "Wednesday",

	"thursday": "Thursday", "donnerstag": "Thursday", "jeudi": "Thursday",
	"giovedì": "Thursday", "giovedi": "Thursday", "jueves": "Thursday",
	"quinta-feira": "Thursday", "quinta": "Thursday",

	"friday": "Friday", "freitag": "Friday", "vendredi": "Friday",
	"venerdì": "Friday", "venerdi": "Friday", "viernes": "Friday",
	"sexta-feira": "Friday", "sexta": "Friday",

	"saturday": "Saturday", "samstag": "Saturday", "sonnabend": "Saturday",
	"samedi": "Saturday", "sabato": "Saturday", "sábado": "Saturday",
	"sabado": "Saturday",

	"sunday": "Sunday", "sonntag": "Sunday", "dimanche": "Sunday",
	"domenica": "Sunday", "domingo": "Sunday",
}

// dayTokens is dayNames flattened and sorted longest-first so that
// "segunda-feira" wins over "segunda" when both occur.
var dayTokens = func() []string {
	tokens := make([]string, 0, len(dayNames))
	for token := range dayNames {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}()

var (
	closedWords = []string{"closed", "geschlossen", "fermé", "ferme", "chiuso", "cerrado", "fechado"}
	open24Words = []string{
		"open 24 hours", "24 hours", "24 stunden geöffnet", "durchgehend geöffnet",
		"ouvert 24h/24", "24h/24", "aperto 24 ore su 24", "aperto 24 ore",
		"abierto 24 horas", "24 horas", "aberto 24 horas",
	}
)

var (
	meridiemGlue   = regexp.MustCompile(`(?i)(\d)(am|pm)`)
	meridiemSplit  = regexp.MustCompile(`(?i)(am|pm)(\d)`)
	meridiemTime   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))? ?(am|pm)\b`)
	rangeSeparator = regexp.MustCompile(`\s*(?:–|—|-|\bto\b)\s*`)
	listSeparator  = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)
	spaceRun       = regexp.MustCompile(`\s+`)
)

// DetectDay finds a localized day name anywhere in a row's text and returns
// the English bucket plus the remaining time text. Row order on the page is
// never trusted; the day label decides the bucket.
func DetectDay(rowText string) (day string, rest string, ok bool) {
	folded := strings.ToLower(rowText)
	bestIdx := -1
	bestToken := ""
	for _, token := range dayTokens {
		idx := strings.Index(folded, token)
		if idx < 0 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx || (idx == bestIdx && len(token) > len(bestToken)) {
			bestIdx = idx
			bestToken = token
		}
	}
	if bestIdx < 0 {
		return "", "", false
	}

	rest = rowText[:bestIdx] + rowText[bestIdx+len(bestToken):]
	rest = strings.TrimLeft(rest, ": \t")
	return dayNames[bestToken], strings.TrimSpace(rest), true
}

// NormalizeHours canonicalizes one day's raw hours text to 24-hour form:
// "HH:MM - HH:MM", multiple ranges joined by " & ", or a reserved literal.
// Idempotent for already-normalized input.
func NormalizeHours(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Localized day names may still prefix the text ("Montag: 9-17").
	if day, rest, ok := DetectDay(s); ok && day != "" {
		s = rest
	}

	if lit, ok := normalizeLiterals(s); ok {
		return lit
	}

	// Repair glued meridiems before time conversion: "9 am7 pm" -> "9 am 7 pm",
	// "9am" -> "9 am".
	s = meridiemSplit.ReplaceAllString(s, "$1 $2")
	s = meridiemGlue.ReplaceAllString(s, "$1 $2")

	// Convert every am/pm time to 24-hour HH:MM. This must happen before
	// separator rewriting so "12:00 pm - 9:00 pm" cannot collapse into
	// "12:0021:00".
	s = meridiemTime.ReplaceAllStringFunc(s, convertMeridiem)

	s = rangeSeparator.ReplaceAllString(s, " - ")
	s = listSeparator.ReplaceAllString(s, " & ")
	s = spaceRun.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

func normalizeLiterals(s string) (string, bool) {
	folded := strings.ToLower(strings.TrimSpace(s))
	folded = strings.Trim(folded, ".")
	for _, w := range open24Words {
		if folded == w {
			return HoursOpen24, true
		}
	}
	for _, w := range closedWords {
		if folded == w {
			return HoursClosed, true
		}
	}
	return "", false
}

// convertMeridiem rewrites one "H[:MM] am/pm" occurrence into zero-padded
// 24-hour form. 12am -> 00, 12pm -> 12, 1-11pm -> +12, minutes default 00.
func convertMeridiem(match string) string {
	parts := meridiemTime.FindStringSubmatch(match)
	if parts == nil {
		return match
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 1 || hour > 12 {
		return match
	}
	minute := 0
	if parts[2] != "" {
		minute, err = strconv.Atoi(parts[2])
		if err != nil || minute > 59 {
			return match
		}
	}

	meridiem := strings.ToLower(parts[3])
	switch {
	case meridiem == "am" && hour == 12:
		hour = 0
	case meridiem == "pm" && hour != 12:
		hour += 12
	}

	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// ValidHours reports whether a normalized value matches the invariant shape:
// empty, a reserved literal, or "HH:MM - HH:MM" ranges joined by " & ".
var (
	hoursShape = regexp.MustCompile(`^(Closed|Open 24 hours|(\d{2}:\d{2} - \d{2}:\d{2})( & \d{2}:\d{2} - \d{2}:\d{2})*)$`)
	hhmm       = regexp.MustCompile(`(\d{2}):(\d{2})`)
)

func ValidHours(s string) bool {
	if s == "" {
		return true
	}
	if !hoursShape.MatchString(s) {
		return false
	}
	for _, m := range hhmm.FindAllStringSubmatch(s, -1) {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h > 23 || min > 59 {
			return false
		}
	}
	return true
}
