package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidName(t *testing.T) {
	valid := []string{"Café Sprüngli", "Bäckerei Müller AG", "7-Eleven"}
	invalid := []string{"", "   ", "12345", "Ergebnisse für Bäckerei", "15 results", "3 résultats"}

	for _, s := range valid {
		assert.True(t, ValidName(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		assert.False(t, ValidName(s), "expected invalid: %q", s)
	}
}

func TestValidPhoneCandidate(t *testing.T) {
	valid := []string{
		"+41 44 224 46 46",
		"044 224 46 46",
		"+49 30 1234567",
		"0791234567",
		"44 224 46 46",
	}
	invalid := []string{
		"",
		"4.5 ★ (123)",
		"CHF 25 · Bakery",
		"123",                 // too short
		"+12",                 // too short for international
		"3 reviews 044 123 45 67", // review vocabulary
		"044 224 46 46 extra long trailing text over the length cap",
	}

	for _, s := range valid {
		assert.True(t, ValidPhoneCandidate(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		assert.False(t, ValidPhoneCandidate(s), "expected invalid: %q", s)
	}
}

func TestScanForPhone(t *testing.T) {
	page := "Opening hours · Monday 9-5 · Call us at +41 44 224 46 46 or visit us."
	assert.Equal(t, "+41 44 224 46 46", ScanForPhone(page))

	assert.Empty(t, ScanForPhone("no numbers to find here"))
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"4.5", "4.5", true},
		{"4,5", "4.5", true},
		{"4.5 stars", "4.5", true},
		{"4", "4.0", true},
		{"5.0", "5.0", true},
		{"0", "0.0", true},
		{"5.1", "", false},
		{"9,9", "", false},
		{"no rating", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseReviews(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"(1,234)", "1234", true},
		{"(2.847)", "2847", true},
		{"123 reviews", "123", true},
		{"4.8 stars (1,234)", "1234", true},
		{"567", "567", true},
		{"4,8", "", false}, // rating-shaped, not a count
		{"no digits", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseReviews(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestValidWebsite(t *testing.T) {
	valid := []string{"https://www.spruengli.ch", "http://example.com/menu"}
	invalid := []string{
		"",
		"not a url",
		"ftp://example.com",
		"https://www.google.com/maps/place/foo",
		"https://lh3.googleusercontent.com/img.png",
		"https://maps.gstatic.com/x",
	}

	for _, s := range valid {
		assert.True(t, ValidWebsite(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		assert.False(t, ValidWebsite(s), "expected invalid: %q", s)
	}
}

func TestValidCategory(t *testing.T) {
	valid := []string{"Bakery", "Café", "Schweizer Restaurant"}
	invalid := []string{"", "4.5", "4,5", "★★★★", "123"}

	for _, s := range valid {
		assert.True(t, ValidCategory(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		assert.False(t, ValidCategory(s), "expected invalid: %q", s)
	}
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(47.3769, 8.5417))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
