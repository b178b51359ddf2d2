package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/renderscraper/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRunner returns a canned result and records the URL it was given.
type stubRunner struct {
	result models.ProductResult
	err    error
	gotURL string
	calls  int
}

func (s *stubRunner) Run(_ context.Context, url string) (models.ProductResult, error) {
	s.calls++
	s.gotURL = url
	return s.result, s.err
}

func postScrape(t *testing.T, r *stubRunner, body string) *httptest.ResponseRecorder {
	t.Helper()
	engine := gin.New()
	engine.POST("/scrape", Scrape(r))

	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *models.ErrorDetail {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestScrapeSuccess(t *testing.T) {
	r := &stubRunner{result: models.ProductResult{Title: "Widget", Price: 15000, Image: "https://img.example/w.jpg"}}
	w := postScrape(t, r, `{"url":"이거 봐 https://www.coupang.com/vp/products/123?itemId=1)!"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://www.coupang.com/vp/products/123?itemId=1", r.gotURL)

	var resp models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ScrapeResponse{
		Title:  "Widget",
		Price:  15000,
		Image:  "https://img.example/w.jpg",
		Source: "render-scraper",
	}, resp)
}

func TestScrapeRejectsInput(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`not json`,
		`{"url":"no link"}`,
		`{"url":"http://www.coupang.com/vp/products/1"}`,
		`{"url":"https://www.example.com/vp/products/1"}`,
	} {
		r := &stubRunner{}
		w := postScrape(t, r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, models.ErrCodeInvalidInput, decodeError(t, w).Code, body)
		assert.Zero(t, r.calls, body)
	}
}

func TestScrapeMapsOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		runner *stubRunner
		status int
		code   string
		msg    string
	}{
		{
			name:   "core block",
			runner: &stubRunner{result: models.Failure("Access Denied (Detection)")},
			status: http.StatusUnprocessableEntity,
			code:   models.ErrCodeBlockDetected,
			msg:    "Access Denied (Detection)",
		},
		{
			name:   "launch failure",
			runner: &stubRunner{result: models.Failure("Chrome launch failed: x; Access Denied (blocked by Coupang)")},
			status: http.StatusUnprocessableEntity,
			code:   models.ErrCodeLaunchFailed,
		},
		{
			name:   "other core error",
			runner: &stubRunner{result: models.Failure("navigation failed")},
			status: http.StatusUnprocessableEntity,
			code:   models.ErrCodeExtractionFailed,
		},
		{
			name:   "block title",
			runner: &stubRunner{result: models.ProductResult{Title: "ACCESS DENIED", Price: 100}},
			status: http.StatusUnprocessableEntity,
			code:   models.ErrCodeBlockDetected,
			msg:    "Access Denied (blocked by Coupang)",
		},
		{
			name:   "zero price",
			runner: &stubRunner{result: models.ProductResult{Title: "Widget"}},
			status: http.StatusUnprocessableEntity,
			code:   models.ErrCodeExtractionIncomplete,
			msg:    "Failed to extract valid price",
		},
		{
			name:   "timeout",
			runner: &stubRunner{err: models.NewScrapeError(models.ErrCodeTimeout, "Scraper timeout", context.DeadlineExceeded)},
			status: http.StatusGatewayTimeout,
			code:   models.ErrCodeTimeout,
		},
		{
			name:   "invalid output",
			runner: &stubRunner{err: models.NewScrapeError(models.ErrCodeInvalidOutput, "Invalid scraper output", nil)},
			status: http.StatusInternalServerError,
			code:   models.ErrCodeInvalidOutput,
		},
		{
			name:   "untyped error",
			runner: &stubRunner{err: context.Canceled},
			status: http.StatusInternalServerError,
			code:   models.ErrCodeInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postScrape(t, tt.runner, `{"url":"https://www.coupang.com/vp/products/1"}`)
			assert.Equal(t, tt.status, w.Code)
			detail := decodeError(t, w)
			assert.Equal(t, tt.code, detail.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, detail.Message)
			}
		})
	}
}

type fixedLoad struct{ inFlight, max int }

func (f fixedLoad) InFlight() int      { return f.inFlight }
func (f fixedLoad) MaxConcurrent() int { return f.max }

func TestHealth(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", Health(fixedLoad{inFlight: 1, max: 2}, time.Now(), "1.2.3"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.InFlight)
	assert.Equal(t, 2, resp.MaxConcurrent)
	assert.Equal(t, "1.2.3", resp.Version)
}
