package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCoordsFromURL(t *testing.T) {
	lat, lng, ok := ParseCoordsFromURL("https://www.google.com/maps/place/Foo/@47.3768866,8.5416940,17z/data=x")
	assert.True(t, ok)
	assert.Equal(t, "47.3768866", lat)
	assert.Equal(t, "8.5416940", lng)

	_, _, ok = ParseCoordsFromURL("https://www.google.com/maps/search/foo")
	assert.False(t, ok)

	// Out-of-range pairs are rejected.
	_, _, ok = ParseCoordsFromURL("@123.5,8.5")
	assert.False(t, ok)
}

func TestParseBangCoords(t *testing.T) {
	url := "https://www.google.com/maps/place/Foo/@47.37,8.54,17z/data=!3m1!4b1!4m6!3m5!3d47.3768866!4d8.5416940"
	lat, lng, ok := ParseBangCoords(url)
	assert.True(t, ok)
	assert.Equal(t, "47.3768866", lat)
	assert.Equal(t, "8.5416940", lng)

	_, _, ok = ParseBangCoords("https://example.com/no-markers")
	assert.False(t, ok)
}

func TestScanHTMLForCoords_InitState(t *testing.T) {
	// The bootstrap blob stores longitude before latitude.
	html := `<html><script>window.APP_INITIALIZATION_STATE = [[[14.5,8.5416940,47.3768866]]];</script></html>`
	lat, lng, ok := ScanHTMLForCoords(html)
	assert.True(t, ok)
	assert.Equal(t, "47.3768866", lat)
	assert.Equal(t, "8.5416940", lng)
}

func TestScanHTMLForCoords_GeoMeta(t *testing.T) {
	html := `<html><head><meta property="geo.position" content="47.3769; 8.5417"></head></html>`
	lat, lng, ok := ScanHTMLForCoords(html)
	assert.True(t, ok)
	assert.Equal(t, "47.3769", lat)
	assert.Equal(t, "8.5417", lng)

	_, _, ok = ScanHTMLForCoords("<html><body>nothing</body></html>")
	assert.False(t, ok)
}

func TestExtractSocialLinks(t *testing.T) {
	html := `<html><body>
		<a href="https://www.facebook.com/spruengli">fb</a>
		<a href="https://www.instagram.com/spruengli/">ig</a>
		<a href="https://www.facebook.com/other">fb2</a>
		<a href="https://x.com/spruengli">x</a>
	</body></html>`

	links := ExtractSocialLinks(html)
	assert.Equal(t, "https://www.facebook.com/spruengli", links["facebook"], "first occurrence wins")
	assert.Equal(t, "https://www.instagram.com/spruengli/", links["instagram"])
	assert.Equal(t, "https://x.com/spruengli", links["twitter"], "x.com counts as twitter")
	assert.NotContains(t, links, "linkedin")
	assert.NotContains(t, links, "youtube")
}
