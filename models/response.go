package models

// SourceName tags every successful response.
const SourceName = "render-scraper"

// ScrapeResponse is the success response for POST /scrape.
type ScrapeResponse struct {
	Title  string `json:"title"`
	Price  int    `json:"price"`
	Image  string `json:"image"`
	Source string `json:"source"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	InFlight      int    `json:"in_flight"`
	MaxConcurrent int    `json:"max_concurrent"`
	Version       string `json:"version"`
}
