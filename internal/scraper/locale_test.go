package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/reperio/internal/models"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name string
		rec  models.InputRecord
		want string
	}{
		{"swiss city", models.InputRecord{City: "Zürich"}, "CH"},
		{"swiss city ascii", models.InputRecord{City: "zurich"}, "CH"},
		{"ch postal prefix", models.InputRecord{Address: "Bahnhofstrasse 1, CH-8001"}, "CH"},
		{"four digit postal", models.InputRecord{PostalCode: "8001"}, "CH"},
		{"german city", models.InputRecord{City: "Berlin"}, "DE"},
		{"five digit postal", models.InputRecord{PostalCode: "10115"}, "DE"},
		{"strasse address", models.InputRecord{Address: "Hauptstrasse 12"}, "DE"},
		{"strasse with swiss city in address", models.InputRecord{Address: "Bahnhofstrasse 21, Zürich"}, "CH"},
		{"french city", models.InputRecord{City: "Lyon"}, "FR"},
		{"rue address", models.InputRecord{Address: "Rue du Rhône 5"}, "FR"},
		{"italian city", models.InputRecord{City: "Milano"}, "IT"},
		{"via address", models.InputRecord{Address: "Via Nassa 10"}, "IT"},
		{"spanish city", models.InputRecord{City: "Barcelona"}, "ES"},
		{"calle address", models.InputRecord{Address: "Calle Mayor 3"}, "ES"},
		{"colombian city", models.InputRecord{City: "Bogotá"}, "CO"},
		{"no signal defaults to US", models.InputRecord{Name: "Acme Corp"}, "US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := DetectLocale(tt.rec)
			assert.Equal(t, tt.want, loc.Country)
		})
	}
}

func TestDetectLocale_CityOverridesPostalShape(t *testing.T) {
	// A 5-digit postal with a Swiss city keeps CH: the city token is the
	// stronger signal.
	loc := DetectLocale(models.InputRecord{City: "Genève", PostalCode: "12345"})
	assert.Equal(t, "CH", loc.Country)
}

func TestDetectLocale_Fields(t *testing.T) {
	loc := DetectLocale(models.InputRecord{City: "Zürich"})
	assert.Equal(t, "+41", loc.PhonePrefix)
	assert.Equal(t, "Europe/Zurich", loc.Timezone)
	assert.Equal(t, "ch", loc.Region)
	assert.NotEmpty(t, loc.UserAgent)
}
