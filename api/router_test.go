package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/models"
	"github.com/use-agent/renderscraper/runner"
)

type okRunner struct{}

func (okRunner) Run(context.Context, string) (models.ProductResult, error) {
	return models.ProductResult{Title: "Widget", Price: 15000}, nil
}

func testRouter() *gin.Engine {
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Token = "s3cret"
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	bounded := runner.NewBounded(okRunner{}, 2)
	return NewRouter(bounded, bounded, cfg, time.Now(), "test")
}

func TestRouterRoutes(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "renderscraper_http_requests_total")

	body := `{"url":"https://www.coupang.com/vp/products/1"}`
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body))
	req.Header.Set("X-Internal-Token", "s3cret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"render-scraper"`)
}
