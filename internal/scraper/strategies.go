package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/reperio/internal/models"
)

const searchBaseURL = "https://www.google.com/maps/search/"

// Strategy is one query-construction attempt. Strategies are tried in order
// until one reaches a detail page; strategies whose required fields are
// missing are skipped.
type Strategy struct {
	Name  string
	Query string
}

// BuildStrategies builds the ordered strategy list for a record, most
// specific first. Up to five queries are produced.
func BuildStrategies(rec models.InputRecord) []Strategy {
	name := strings.TrimSpace(rec.Name)
	address := strings.TrimSpace(rec.Address)
	city := strings.TrimSpace(rec.City)

	var strategies []Strategy
	add := func(strategyName, query string) {
		strategies = append(strategies, Strategy{Name: strategyName, Query: query})
	}

	if name != "" && address != "" && city != "" {
		add("name+address+city", fmt.Sprintf("%s, %s, %s", name, address, city))
	}
	if name != "" && city != "" {
		add("name+city", fmt.Sprintf("%s %s", name, city))
	}
	if name != "" && address != "" {
		add("name+address", fmt.Sprintf("%s %s", name, address))
	}
	if address != "" && city != "" {
		add("address+city", fmt.Sprintf("%s, %s", address, city))
	}
	if name != "" && city != "" {
		add("quoted-name+city", fmt.Sprintf("%q %s", name, city))
	}

	return strategies
}

// SearchURL encodes a query into a search URL. hl is pinned to English for
// stable extraction; gl carries the detected region. When the city maps to a
// known center coordinate the URL carries a center and zoom hint.
func SearchURL(query string, loc Locale, city string) string {
	params := url.Values{}
	params.Set("hl", "en")
	if loc.Region != "" {
		params.Set("gl", loc.Region)
	}
	if center, ok := CityCenter(city); ok {
		params.Set("center", fmt.Sprintf("%.4f,%.4f", center.Lat, center.Lng))
		params.Set("zoom", "13")
	}
	return searchBaseURL + url.PathEscape(query) + "?" + params.Encode()
}
