package models

import "time"

// ScrapeStatus classifies how much of a business profile was extracted.
type ScrapeStatus string

const (
	ScrapeStatusSuccess ScrapeStatus = "success"
	ScrapeStatusPartial ScrapeStatus = "partial"
	ScrapeStatusFailed  ScrapeStatus = "failed"
)

// Days in export/report order. Opening hours are keyed by these literals
// regardless of the language or row order observed on the page.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// SocialPlatforms in stable enumeration order.
var SocialPlatforms = []string{"facebook", "instagram", "twitter", "linkedin", "youtube"}

// ScrapeResult is the canonical business profile returned by the scrape
// engine. Field values are never null: unknown fields are empty strings.
type ScrapeResult struct {
	Status ScrapeStatus `json:"status"`

	FullName     string `json:"fullName"`
	FullAddress  string `json:"fullAddress"`
	Phone        string `json:"phone"`
	Rating       string `json:"rating"`
	ReviewsCount string `json:"reviewsCount"`
	Website      string `json:"website"`
	Category     string `json:"category"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`

	// OpeningHours maps Monday..Sunday to a normalized string:
	// "HH:MM - HH:MM" (multiple ranges joined by " & "), "Closed",
	// "Open 24 hours", or "" when unknown.
	OpeningHours map[string]string `json:"openingHours"`

	// SocialMedia maps platform name to profile URL; absent when not found.
	SocialMedia map[string]string `json:"socialMedia,omitempty"`

	ScrapedAt time.Time `json:"scrapedAt"`
	Error     string    `json:"error,omitempty"`
}

// NewScrapeResult returns a result with all day buckets present and empty.
func NewScrapeResult() *ScrapeResult {
	hours := make(map[string]string, len(Days))
	for _, d := range Days {
		hours[d] = ""
	}
	return &ScrapeResult{
		OpeningHours: hours,
		SocialMedia:  make(map[string]string),
		ScrapedAt:    time.Now().UTC(),
	}
}

// HasHours reports whether at least one day has a non-empty value.
func (r *ScrapeResult) HasHours() bool {
	for _, v := range r.OpeningHours {
		if v != "" {
			return true
		}
	}
	return false
}
