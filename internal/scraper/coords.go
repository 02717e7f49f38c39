package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	atCoords   = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)(?:,(\d+(?:\.\d+)?)z)?`)
	bangCoords = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
	initState  = regexp.MustCompile(`window\.APP_INITIALIZATION_STATE\s*=\s*\[\[\[\d+(?:\.\d+)?,(-?\d+\.\d+),(-?\d+\.\d+)`)
	geoMeta    = regexp.MustCompile(`(-?\d+\.\d+)[;,]\s*(-?\d+\.\d+)`)
)

// ParseCoordsFromURL extracts "@lat,lng,zoomz" coordinates from a place URL.
func ParseCoordsFromURL(pageURL string) (lat, lng string, ok bool) {
	m := atCoords.FindStringSubmatch(pageURL)
	if m == nil {
		return "", "", false
	}
	return checkedPair(m[1], m[2])
}

// ParseBangCoords extracts "!3d<lat>!4d<lng>" markers from a place URL.
// These mark the pinned place rather than the viewport, so they are
// preferred when both are present.
func ParseBangCoords(pageURL string) (lat, lng string, ok bool) {
	m := bangCoords.FindStringSubmatch(pageURL)
	if m == nil {
		return "", "", false
	}
	return checkedPair(m[1], m[2])
}

// ScanHTMLForCoords searches page scripts and meta tags for coordinates:
// the APP_INITIALIZATION_STATE bootstrap blob and geo.position-style metas.
func ScanHTMLForCoords(html string) (lat, lng string, ok bool) {
	// Note: the init-state blob stores lng before lat.
	if m := initState.FindStringSubmatch(html); m != nil {
		if lat, lng, ok = checkedPair(m[2], m[1]); ok {
			return lat, lng, true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", false
	}

	found := false
	doc.Find(`meta[property^="geo"], meta[name^="geo"], meta[property="place:location:latitude"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content, _ := sel.Attr("content")
		if m := geoMeta.FindStringSubmatch(content); m != nil {
			if lat, lng, ok = checkedPair(m[1], m[2]); ok {
				found = true
				return false
			}
		}
		return true
	})
	if found {
		return lat, lng, true
	}
	return "", "", false
}

// ExtractSocialLinks enumerates anchors whose href contains one of the five
// platform domain stems; first occurrence per platform wins.
func ExtractSocialLinks(html string) map[string]string {
	stems := map[string]string{
		"facebook":  "facebook.com",
		"instagram": "instagram.com",
		"twitter":   "twitter.com",
		"linkedin":  "linkedin.com",
		"youtube":   "youtube.com",
	}

	links := make(map[string]string)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return links
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		folded := strings.ToLower(href)
		for platform, stem := range stems {
			if _, taken := links[platform]; taken {
				continue
			}
			if strings.Contains(folded, stem) {
				links[platform] = href
			}
		}
	})

	// x.com counts as twitter when no twitter.com link was present.
	if _, ok := links["twitter"]; !ok {
		doc.Find(`a[href*="x.com"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if strings.Contains(strings.ToLower(href), "//x.com/") {
				links["twitter"] = href
				return false
			}
			return true
		})
	}

	return links
}

func checkedPair(latStr, lngStr string) (string, string, bool) {
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	if err1 != nil || err2 != nil || !ValidCoordinates(lat, lng) {
		return "", "", false
	}
	return latStr, lngStr, true
}
