package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/renderscraper/api/handler"
	"github.com/use-agent/renderscraper/api/middleware"
	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/runner"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics
//	Scrape:  Auth (if a token is set) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
func NewRouter(r runner.Runner, load handler.Load, cfg *config.Config, startTime time.Time, version string) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(middleware.Metrics())

	engine.GET("/health", handler.Health(load, startTime, version))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := engine.Group("")
	protected.Use(middleware.Auth(cfg.Auth.Token))
	protected.Use(middleware.RateLimit(cfg.RateLimit))
	protected.POST("/scrape", handler.Scrape(r))

	return engine
}
