package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/renderscraper/models"
	"github.com/use-agent/renderscraper/runner"
	"github.com/use-agent/renderscraper/target"
)

// Scrape returns a handler for POST /scrape.
//
// Flow:
//  1. Bind the request and pull the first product URL out of its free text.
//  2. Run the scraper core (bounded, with a hard timeout).
//  3. Map core errors, block titles and missing prices to 422.
//  4. Return the product tagged with its source.
func Scrape(r runner.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		url, ok := target.Resolve(req.URL)
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "Valid Coupang URL required", nil))
			return
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		result, err := r.Run(c.Request.Context(), url)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Validate ─────────────────────────────────────────────
		if result.Failed() {
			respondError(c, models.NewScrapeError(models.ClassifyCoreError(result.Error), result.Error, nil))
			return
		}
		if models.IsBlockTitle(result.Title) {
			respondError(c, models.NewScrapeError(models.ErrCodeBlockDetected, models.MsgBlockedByOrigin, nil))
			return
		}
		if result.Price <= 0 {
			respondError(c, models.NewScrapeError(models.ErrCodeExtractionIncomplete, "Failed to extract valid price", nil))
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, models.ScrapeResponse{
			Title:  result.Title,
			Price:  result.Price,
			Image:  result.Image,
			Source: models.SourceName,
		})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	status := mapErrorToStatus(scrapeErr)
	if status >= http.StatusInternalServerError {
		slog.Error("scrape failed", "code", scrapeErr.Code, "error", scrapeErr)
	} else {
		slog.Info("scrape rejected", "code", scrapeErr.Code, "message", scrapeErr.Message)
	}
	c.JSON(status, models.ErrorResponse{Error: scrapeErr.ToDetail()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeBlockDetected,
		models.ErrCodeLaunchFailed,
		models.ErrCodeExtractionFailed,
		models.ErrCodeExtractionIncomplete:
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
