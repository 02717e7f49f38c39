package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/reperio/internal/models"
)

const detailFixture = `<html><body>
<div role="main">
	<h1 class="DUwDvf">Café Sprüngli</h1>
	<div class="F7nice">
		<span aria-hidden="true">4.5</span>
		<span aria-label="1,234 reviews">(1,234)</span>
	</div>
	<button class="DkEaL">Café</button>
	<button data-item-id="address" aria-label="Address: Bahnhofstrasse 21, 8001 Zürich">
		<div class="fontBodyMedium">Bahnhofstrasse 21, 8001 Zürich</div>
	</button>
	<button data-item-id="phone:tel:+41442244646" aria-label="Phone: +41 44 224 46 46">
		<div class="fontBodyMedium">044 224 46 46</div>
	</button>
	<a data-item-id="authority" href="https://www.spruengli.ch">spruengli.ch</a>
	<table class="eK4R0e">
		<tr><td>Sonntag</td><td>Geschlossen</td></tr>
		<tr><td>Montag</td><td>07:30 - 18:30</td></tr>
		<tr><td>Dienstag</td><td>9 am - 6:30 pm</td></tr>
	</table>
	<a href="https://www.facebook.com/spruengli">Facebook</a>
	<a href="https://www.instagram.com/spruengli/">Instagram</a>
</div>
</body></html>`

const resultsFixture = `<html><body>
<h1>Ergebnisse für Café Sprüngli</h1>
<div role="feed">
	<a class="hfpxzc" href="https://www.google.com/maps/place/Caf%C3%A9+Spr%C3%BCngli/@47.3768866,8.5416940,17z">Café Sprüngli</a>
	<a class="hfpxzc" href="https://www.google.com/maps/place/Other/@47.37,8.54,17z">Other</a>
</div>
</body></html>`

func parseFixture(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestIsDetailHTML(t *testing.T) {
	assert.True(t, IsDetailHTML(parseFixture(t, detailFixture)))

	// Result-list vocabulary in a heading disqualifies the page outright.
	assert.False(t, IsDetailHTML(parseFixture(t, resultsFixture)))

	// A title alone is not enough without a profile signal.
	assert.False(t, IsDetailHTML(parseFixture(t, `<html><body><h1 class="DUwDvf">Acme</h1></body></html>`)))
}

func TestFirstResultHref(t *testing.T) {
	href, selector, ok := FirstResultHref(parseFixture(t, resultsFixture))
	require.True(t, ok)
	assert.Contains(t, href, "/maps/place/Caf%C3%A9+Spr%C3%BCngli")
	assert.NotEmpty(t, selector)

	_, _, ok = FirstResultHref(parseFixture(t, "<html><body><p>empty</p></body></html>"))
	assert.False(t, ok)
}

func TestExtractFields_FullDetailPage(t *testing.T) {
	doc := parseFixture(t, detailFixture)
	loc := DetectLocale(models.InputRecord{City: "Zürich"})

	result, fieldErrors := ExtractFields(doc, loc)

	assert.Empty(t, fieldErrors)
	assert.Equal(t, "Café Sprüngli", result.FullName)
	assert.Equal(t, "Bahnhofstrasse 21, 8001 Zürich", result.FullAddress)
	assert.Equal(t, "+41 44 224 46 46", result.Phone)
	assert.Equal(t, "4.5", result.Rating)
	assert.Equal(t, "1234", result.ReviewsCount)
	assert.Equal(t, "https://www.spruengli.ch", result.Website)
	assert.Equal(t, "Café", result.Category)

	assert.Equal(t, "Closed", result.OpeningHours["Sunday"])
	assert.Equal(t, "07:30 - 18:30", result.OpeningHours["Monday"])
	assert.Equal(t, "09:00 - 18:30", result.OpeningHours["Tuesday"])
	assert.Equal(t, "", result.OpeningHours["Wednesday"], "unlisted days stay empty")

	assert.Equal(t, "https://www.facebook.com/spruengli", result.SocialMedia["facebook"])
	assert.Equal(t, "https://www.instagram.com/spruengli/", result.SocialMedia["instagram"])
}

func TestExtractFields_PartialPage(t *testing.T) {
	html := `<html><body><div role="main">
		<h1 class="DUwDvf">Acme Corp</h1>
		<button data-item-id="address"><div class="fontBodyMedium">Marktgasse 1, Bern</div></button>
	</div></body></html>`
	doc := parseFixture(t, html)

	result, fieldErrors := ExtractFields(doc, locales["CH"])

	assert.Equal(t, "Acme Corp", result.FullName)
	assert.Equal(t, "Marktgasse 1, Bern", result.FullAddress)
	assert.Empty(t, result.Phone)
	assert.Empty(t, result.Website)

	assert.NotContains(t, fieldErrors, "name")
	assert.NotContains(t, fieldErrors, "address")
	assert.Contains(t, fieldErrors, "phone")
	assert.Contains(t, fieldErrors, "rating")
	assert.Contains(t, fieldErrors, "reviews")
	assert.Contains(t, fieldErrors, "website")
	assert.Contains(t, fieldErrors, "category")
}

func TestExtractHours_LabelDecidesBucket(t *testing.T) {
	// Row order on the page never decides the bucket; the day label does.
	html := `<html><body><table class="eK4R0e">
		<tr><td>Friday</td><td>8 am - 10 pm</td></tr>
		<tr><td>Monday</td><td>Closed</td></tr>
		<tr><td></td><td>9 am - 5 pm</td></tr>
	</table></body></html>`
	doc := parseFixture(t, html)

	hours := ExtractHours(doc)
	assert.Equal(t, "08:00 - 22:00", hours["Friday"])
	assert.Equal(t, "Closed", hours["Monday"])
	assert.Len(t, hours, 2, "unlabeled rows are dropped")
}
