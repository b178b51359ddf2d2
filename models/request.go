package models

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is free text that embeds the product URL (e.g. a shared message).
	// Required.
	URL string `json:"url" binding:"required"`
}
