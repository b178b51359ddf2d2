package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/renderscraper/engine"
	"github.com/use-agent/renderscraper/extractor"
	"github.com/use-agent/renderscraper/models"
)

const productURL = "https://www.coupang.com/vp/products/123"

const productHTML = `<html><head>
<meta property="og:title" content="Widget | 쿠팡">
<meta property="og:image" content="//img.example.com/w.jpg">
</head><body><script>{"salePrice": 15000}</script></body></html>`

// stubEngine returns a canned acquisition and counts calls and releases.
type stubEngine struct {
	name     string
	outcome  engine.Outcome
	page     extractor.Page
	err      error
	calls    int
	released int
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Acquire(context.Context, string) *engine.Acquisition {
	e.calls++
	acq := &engine.Acquisition{Outcome: e.outcome, Engine: e.name, Page: e.page, Err: e.err}
	return acq.OnRelease(func() { e.released++ })
}

func TestScrapeBrowserReady(t *testing.T) {
	browser := &stubEngine{name: "rod", outcome: engine.Ready, page: extractor.StaticPage(productHTML)}
	fallback := &stubEngine{name: "http"}

	got := New(browser, fallback).Scrape(context.Background(), productURL)

	assert.Equal(t, models.ProductResult{Title: "Widget", Price: 15000, Image: "https://img.example.com/w.jpg"}, got)
	assert.Equal(t, 1, browser.released)
	assert.Zero(t, fallback.calls)
}

func TestScrapeBrowserBlocked(t *testing.T) {
	browser := &stubEngine{name: "rod", outcome: engine.Blocked, err: errors.New(models.MsgBlockDetected)}
	fallback := &stubEngine{name: "http"}

	got := New(browser, fallback).Scrape(context.Background(), productURL)

	assert.Equal(t, models.Failure("Access Denied (Detection)"), got)
	assert.Equal(t, 1, browser.released)
	assert.Zero(t, fallback.calls)
}

func TestScrapeBrowserFailed(t *testing.T) {
	browser := &stubEngine{name: "rod", outcome: engine.Failed, err: errors.New("navigation timeout")}
	fallback := &stubEngine{name: "http"}

	got := New(browser, fallback).Scrape(context.Background(), productURL)

	assert.Equal(t, models.Failure("navigation timeout"), got)
	assert.Zero(t, fallback.calls)
}

func TestScrapeFallbackSuccess(t *testing.T) {
	browser := &stubEngine{name: "rod", outcome: engine.Unavailable, err: errors.New("no chrome")}
	fallback := &stubEngine{name: "http", outcome: engine.Ready, page: extractor.StaticPage(productHTML)}

	got := New(browser, fallback).Scrape(context.Background(), productURL)

	assert.Equal(t, 15000, got.Price)
	assert.Equal(t, "Widget", got.Title)
	assert.Equal(t, 1, browser.released)
	assert.Equal(t, 1, fallback.released)
}

func TestScrapeFallbackFailures(t *testing.T) {
	tests := []struct {
		name     string
		fallback *stubEngine
		want     string
	}{
		{
			name:     "fetch error",
			fallback: &stubEngine{name: "http", outcome: engine.Failed, err: errors.New("Fallback HTTP fetch failed: dial tcp: refused")},
			want:     "Chrome launch failed: no chrome; Fallback HTTP fetch failed: dial tcp: refused",
		},
		{
			name:     "blocked body",
			fallback: &stubEngine{name: "http", outcome: engine.Blocked, err: errors.New(models.MsgBlockedByOrigin)},
			want:     "Chrome launch failed: no chrome; Access Denied (blocked by Coupang)",
		},
		{
			name:     "block title",
			fallback: &stubEngine{name: "http", outcome: engine.Ready, page: extractor.StaticPage(`<title>Access Denied</title>`)},
			want:     "Chrome launch failed: no chrome; Access Denied (blocked by Coupang)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := &stubEngine{name: "rod", outcome: engine.Unavailable, err: errors.New("no chrome")}
			got := New(browser, tt.fallback).Scrape(context.Background(), productURL)

			assert.Equal(t, models.Failure(tt.want), got)
			assert.Equal(t, models.ErrCodeLaunchFailed, models.ClassifyCoreError(got.Error))
			assert.Equal(t, 1, tt.fallback.released)
		})
	}
}
