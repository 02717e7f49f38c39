package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/reperio/internal/models"
)

func TestBuildStrategies_FullRecord(t *testing.T) {
	rec := models.InputRecord{Name: "Café Sprüngli", Address: "Bahnhofstrasse 21", City: "Zürich"}
	strategies := BuildStrategies(rec)

	require.Len(t, strategies, 5)
	assert.Equal(t, "name+address+city", strategies[0].Name)
	assert.Equal(t, "Café Sprüngli, Bahnhofstrasse 21, Zürich", strategies[0].Query)
	assert.Equal(t, "name+city", strategies[1].Name)
	assert.Equal(t, "Café Sprüngli Zürich", strategies[1].Query)
	assert.Equal(t, "name+address", strategies[2].Name)
	assert.Equal(t, "address+city", strategies[3].Name)
	assert.Equal(t, "quoted-name+city", strategies[4].Name)
	assert.Equal(t, `"Café Sprüngli" Zürich`, strategies[4].Query)
}

func TestBuildStrategies_SkipsInapplicable(t *testing.T) {
	tests := []struct {
		name      string
		rec       models.InputRecord
		wantNames []string
	}{
		{
			"name only",
			models.InputRecord{Name: "Acme"},
			nil,
		},
		{
			"name and city",
			models.InputRecord{Name: "Acme", City: "Bern"},
			[]string{"name+city", "quoted-name+city"},
		},
		{
			"address and city",
			models.InputRecord{Address: "Marktgasse 1", City: "Bern"},
			[]string{"address+city"},
		},
		{
			"name and address",
			models.InputRecord{Name: "Acme", Address: "Marktgasse 1"},
			[]string{"name+address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategies := BuildStrategies(tt.rec)
			var names []string
			for _, s := range strategies {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestSearchURL(t *testing.T) {
	loc := DetectLocale(models.InputRecord{City: "Zürich"})
	u := SearchURL("Café Sprüngli Zürich", loc, "Zürich")

	assert.True(t, strings.HasPrefix(u, "https://www.google.com/maps/search/"))
	assert.Contains(t, u, "hl=en")
	assert.Contains(t, u, "gl=ch")
	assert.Contains(t, u, "zoom=13")
	assert.Contains(t, u, "center=47.3769%2C8.5417")
	assert.NotContains(t, u, " ", "query must be path-escaped")
}

func TestSearchURL_UnknownCityOmitsCenter(t *testing.T) {
	loc := DetectLocale(models.InputRecord{})
	u := SearchURL("Acme Corp", loc, "Nowhereville")

	assert.NotContains(t, u, "center=")
	assert.NotContains(t, u, "zoom=")
}
