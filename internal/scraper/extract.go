package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/reperio/internal/models"
)

// Extraction runs against a captured DOM snapshot. Navigation and clicking
// stay in the engine; everything here is pure and fixture-testable.

// IsDetailHTML applies the detail-page heuristic to a DOM snapshot:
// a business title that is not a search-result heading, plus at least one of
// {address node, phone node, rating container}. A heading carrying
// search-result vocabulary fails the check immediately.
func IsDetailHTML(doc *goquery.Document) bool {
	sentinel := false
	doc.Find("h1, h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		folded := strings.ToLower(strings.TrimSpace(sel.Text()))
		for _, w := range searchResultWords {
			if strings.Contains(folded, w) {
				sentinel = true
				return false
			}
		}
		return true
	})
	if sentinel {
		return false
	}

	title := textFromSelectors(doc, detailTitleSelectors, ValidName)
	if title == "" {
		return false
	}

	for _, sel := range detailSignalSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// FirstResultHref returns the href of the first results-list entry together
// with the selector that matched, so the engine can fall back to clicking
// the same node when the href is not a direct place link.
func FirstResultHref(doc *goquery.Document) (href string, selector string, ok bool) {
	for _, sel := range resultLinkSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		href, _ = node.Attr("href")
		return href, sel, true
	}
	return "", "", false
}

// ExtractFields populates a result from a detail-page snapshot. Per-field
// failures are swallowed and collected; they never fail the whole job.
func ExtractFields(doc *goquery.Document, loc Locale) (*models.ScrapeResult, []string) {
	result := models.NewScrapeResult()
	var fieldErrors []string

	miss := func(field string) {
		fieldErrors = append(fieldErrors, field)
	}

	if name := textFromSelectors(doc, nameSelectors, ValidName); name != "" {
		result.FullName = name
	} else {
		miss("name")
	}

	if address := textFromSelectors(doc, addressSelectors, ValidAddress); address != "" {
		result.FullAddress = cleanAddress(address)
	} else {
		miss("address")
	}

	if phone := extractPhone(doc); phone != "" {
		result.Phone = NormalizePhone(phone, loc)
	} else {
		miss("phone")
	}

	if rating := extractParsed(doc, ratingSelectors, ParseRating); rating != "" {
		result.Rating = rating
	} else {
		miss("rating")
	}

	if reviews := extractParsed(doc, reviewsSelectors, ParseReviews); reviews != "" {
		result.ReviewsCount = reviews
	} else {
		miss("reviews")
	}

	if website := attrFromSelectors(doc, websiteSelectors, "href", ValidWebsite); website != "" {
		result.Website = website
	} else if website := attrFromSelectors(doc, websiteSelectors, "data-href", ValidWebsite); website != "" {
		result.Website = website
	} else if text := textFromSelectors(doc, websiteSelectors, ValidWebsite); text != "" {
		result.Website = text
	} else {
		miss("website")
	}

	if category := textFromSelectors(doc, categorySelectors, ValidCategory); category != "" {
		result.Category = category
	} else {
		miss("category")
	}

	for day, value := range ExtractHours(doc) {
		result.OpeningHours[day] = value
	}

	html, err := doc.Html()
	if err == nil {
		result.SocialMedia = ExtractSocialLinks(html)
	}

	return result, fieldErrors
}

// ExtractHours reads the hours table rows. The day label inside each row's
// text decides the bucket; row order on the page is never trusted.
// Unlabeled rows are dropped, unassigned days stay empty.
func ExtractHours(doc *goquery.Document) map[string]string {
	hours := make(map[string]string)

	for _, rowSel := range hoursRowSelectors {
		rows := doc.Find(rowSel)
		if rows.Length() == 0 {
			continue
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			text := normalizeRowText(row)
			day, rest, ok := DetectDay(text)
			if !ok {
				return
			}
			if _, taken := hours[day]; taken {
				return
			}
			if normalized := NormalizeHours(rest); normalized != "" && ValidHours(normalized) {
				hours[day] = normalized
			}
		})
		if len(hours) > 0 {
			break
		}
	}

	return hours
}

func extractPhone(doc *goquery.Document) string {
	// tel: hrefs are the most reliable carrier.
	if href := attrFromSelectors(doc, phoneSelectors, "href", func(s string) bool {
		return strings.HasPrefix(s, "tel:")
	}); href != "" {
		if candidate := strings.TrimPrefix(href, "tel:"); ValidPhoneCandidate(candidate) {
			return candidate
		}
	}

	if text := textFromSelectors(doc, phoneSelectors, ValidPhoneCandidate); text != "" {
		return text
	}

	// Last resort: scan the whole page text with phone regexes.
	return ScanForPhone(doc.Text())
}

func extractParsed(doc *goquery.Document, selectors []string, parse func(string) (string, bool)) string {
	for _, sel := range selectors {
		found := ""
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			candidates := []string{strings.TrimSpace(node.Text())}
			if label, ok := node.Attr("aria-label"); ok {
				candidates = append(candidates, label)
			}
			for _, c := range candidates {
				if parsed, ok := parse(c); ok {
					found = parsed
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func textFromSelectors(doc *goquery.Document, selectors []string, valid func(string) bool) string {
	for _, sel := range selectors {
		found := ""
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			text := strings.TrimSpace(node.Text())
			if text != "" && valid(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func attrFromSelectors(doc *goquery.Document, selectors []string, attr string, valid func(string) bool) string {
	for _, sel := range selectors {
		found := ""
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			value, ok := node.Attr(attr)
			if ok && valid(value) {
				found = value
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// normalizeRowText flattens a table row into "label rest" text with cell
// boundaries preserved as spaces.
func normalizeRowText(row *goquery.Selection) string {
	var parts []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		if t := strings.TrimSpace(cell.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(row.Text())
	}
	return strings.Join(parts, " ")
}

// cleanAddress strips icon glyphs the address button sometimes carries.
func cleanAddress(s string) string {
	s = strings.TrimLeft(s, "- ")
	return strings.TrimSpace(s)
}
