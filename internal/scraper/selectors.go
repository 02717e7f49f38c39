package scraper

// Ordered selector lists per field. The first selector yielding text that
// passes the field's validator wins; later entries are fallbacks for older
// page layouts. These are immutable constants, safe to share across workers.

var nameSelectors = []string{
	`h1.DUwDvf`,
	`h1[class*="fontHeadlineLarge"]`,
	`div[role="main"] h1`,
	`h1`,
}

var addressSelectors = []string{
	`button[data-item-id="address"] div.fontBodyMedium`,
	`button[data-item-id="address"]`,
	`div[data-tooltip="Copy address"]`,
	`button[aria-label^="Address"]`,
}

var phoneSelectors = []string{
	`button[data-item-id^="phone:tel:"] div.fontBodyMedium`,
	`button[data-item-id^="phone"]`,
	`a[href^="tel:"]`,
	`button[aria-label^="Phone"]`,
}

var ratingSelectors = []string{
	`div.F7nice span[aria-hidden="true"]`,
	`span.ceNzKf`,
	`div[jsaction*="pane.rating"] span[aria-hidden="true"]`,
	`span[role="img"][aria-label*="star"]`,
}

var reviewsSelectors = []string{
	`div.F7nice span[aria-label*="review"]`,
	`span[aria-label*="reviews"]`,
	`button[jsaction*="reviewChart"]`,
	`div.F7nice`,
}

var websiteSelectors = []string{
	`a[data-item-id="authority"]`,
	`button[data-item-id="authority"]`,
	`a[aria-label^="Website"]`,
}

var categorySelectors = []string{
	`button.DkEaL`,
	`button[jsaction*="category"]`,
	`span.mgr77e button`,
}

// resultLinkSelectors locate clickable entries on a results list. Reading
// the href for direct navigation is preferred over clicking.
var resultLinkSelectors = []string{
	`a[href*="/maps/place/"]`,
	`div[role="feed"] a.hfpxzc`,
	`div[role="article"] a`,
	`div.Nv2PK a`,
}

// hoursExpandSelectors open a collapsed opening-hours section. Localized
// aria-labels cover en/de/fr/it/es.
var hoursExpandSelectors = []string{
	`button[data-item-id="oh"]`,
	`div[jsaction*="openhours"]`,
	`button[aria-label*="hours"]`,
	`button[aria-label*="Öffnungszeiten"]`,
	`button[aria-label*="horaires"]`,
	`button[aria-label*="orari"]`,
	`button[aria-label*="horario"]`,
}

// hoursRowSelectors read the per-day rows of the expanded hours table.
var hoursRowSelectors = []string{
	`table.eK4R0e tr`,
	`div[aria-label*="Monday"] table tr`,
	`table[class*="fontBodyMedium"] tr`,
}

// detailTitleSelectors and detailSignalSelectors drive the detail-page
// heuristic: a valid business title plus at least one profile signal.
var detailTitleSelectors = []string{
	`h1.DUwDvf`,
	`h1[class*="fontHeadlineLarge"]`,
	`div[role="main"] h1`,
}

var detailSignalSelectors = []string{
	`button[data-item-id="address"]`,
	`button[data-item-id^="phone"]`,
	`div.F7nice`,
	`span[role="img"][aria-label*="star"]`,
}

// shareButtonSelectors open the share dialog for the coordinate fallback.
var shareButtonSelectors = []string{
	`button[data-value="Share"]`,
	`button[aria-label^="Share"]`,
	`button[jsaction*="share"]`,
}

var shareURLSelectors = []string{
	`input.vrsrZe`,
	`input[jsaction*="shareurl"]`,
	`div[role="dialog"] input[readonly]`,
}
