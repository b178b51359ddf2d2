package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/renderscraper/models"
)

// Load reports how many scrape invocations are running.
type Load interface {
	InFlight() int
	MaxConcurrent() int
}

// Health returns a handler for GET /health.
func Health(load Load, startTime time.Time, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        "ok",
			Uptime:        time.Since(startTime).Round(time.Second).String(),
			InFlight:      load.InFlight(),
			MaxConcurrent: load.MaxConcurrent(),
			Version:       version,
		})
	}
}
