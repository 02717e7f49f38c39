package scraper

import "strings"

// LatLng is a static map-center coordinate for a known city.
type LatLng struct {
	Lat float64
	Lng float64
}

// cityCenters is a static lookup keyed by case-folded city name. Used to add
// a center/zoom hint to search URLs; never involves a network call.
var cityCenters = map[string]LatLng{
	"zürich":     {47.3769, 8.5417},
	"zurich":     {47.3769, 8.5417},
	"geneva":     {46.2044, 6.1432},
	"genève":     {46.2044, 6.1432},
	"basel":      {47.5596, 7.5886},
	"bern":       {46.9480, 7.4474},
	"lausanne":   {46.5197, 6.6323},
	"lucerne":    {47.0502, 8.3093},
	"luzern":     {47.0502, 8.3093},
	"lugano":     {46.0037, 8.9511},
	"st. gallen": {47.4245, 9.3767},
	"st gallen":  {47.4245, 9.3767},
	"winterthur": {47.5001, 8.7501},
	"biel":       {47.1368, 7.2468},
	"berlin":     {52.5200, 13.4050},
	"hamburg":    {53.5511, 9.9937},
	"münchen":    {48.1351, 11.5820},
	"munich":     {48.1351, 11.5820},
	"köln":       {50.9375, 6.9603},
	"frankfurt":  {50.1109, 8.6821},
	"stuttgart":  {48.7758, 9.1829},
	"paris":      {48.8566, 2.3522},
	"lyon":       {45.7640, 4.8357},
	"marseille":  {43.2965, 5.3698},
	"roma":       {41.9028, 12.4964},
	"rome":       {41.9028, 12.4964},
	"milano":     {45.4642, 9.1900},
	"milan":      {45.4642, 9.1900},
	"madrid":     {40.4168, -3.7038},
	"barcelona":  {41.3874, 2.1686},
	"valencia":   {39.4699, -0.3763},
	"bogotá":     {4.7110, -74.0721},
	"bogota":     {4.7110, -74.0721},
	"cartagena":  {10.3910, -75.4794},
	"medellín":   {6.2442, -75.5812},
	"medellin":   {6.2442, -75.5812},
}

// CityCenter returns the static center coordinate for a city, if known.
func CityCenter(city string) (LatLng, bool) {
	center, ok := cityCenters[strings.ToLower(strings.TrimSpace(city))]
	return center, ok
}
