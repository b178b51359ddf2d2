// Package scraper drives one product scrape: browser acquisition first,
// plain HTTP when the browser cannot start, then field extraction.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/engine"
	"github.com/use-agent/renderscraper/extractor"
	"github.com/use-agent/renderscraper/metrics"
	"github.com/use-agent/renderscraper/models"
)

// Scraper is the acquisition controller. It holds no per-scrape state and
// is safe for concurrent use.
type Scraper struct {
	browser  engine.Engine
	fallback engine.Engine
	logger   *slog.Logger
}

// New creates a Scraper that tries browser first and fallback only when the
// browser is unavailable.
func New(browser, fallback engine.Engine) *Scraper {
	return &Scraper{
		browser:  browser,
		fallback: fallback,
		logger:   slog.With("component", "scraper"),
	}
}

// NewFromConfig wires the rod and HTTP engines from cfg.
func NewFromConfig(cfg *config.Config) *Scraper {
	return New(
		engine.NewRodEngine(cfg.Browser, cfg.Scraper),
		engine.NewHTTPEngine(cfg.Scraper.HTTPTimeout),
	)
}

// Scrape acquires url and extracts the product. Every failure is reported
// through the Error field of the result; the session is always released.
func (s *Scraper) Scrape(ctx context.Context, url string) models.ProductResult {
	start := time.Now()
	result, engineName := s.scrape(ctx, url)

	metrics.ScrapesTotal.WithLabelValues(engineName, resultStatus(result)).Inc()
	metrics.ScrapeDuration.WithLabelValues(engineName).Observe(time.Since(start).Seconds())
	s.logger.Info("scrape finished",
		"url", url,
		"engine", engineName,
		"price", result.Price,
		"error", result.Error,
		"duration", time.Since(start),
	)
	return result
}

func (s *Scraper) scrape(ctx context.Context, url string) (models.ProductResult, string) {
	acq := s.browser.Acquire(ctx, url)
	defer acq.Release()

	switch acq.Outcome {
	case engine.Ready:
		return extractor.Extract(acq.Page), acq.Engine
	case engine.Unavailable:
		s.logger.Warn("browser unavailable, falling back to plain HTTP", "error", acq.Err)
		return s.scrapeFallback(ctx, url, acq.Reason()), s.fallback.Name()
	default:
		return models.Failure(acq.Reason()), acq.Engine
	}
}

// scrapeFallback runs the plain-HTTP path. Any failure on this path is
// reported together with the launch error that caused it.
func (s *Scraper) scrapeFallback(ctx context.Context, url, launchErr string) models.ProductResult {
	metrics.FallbacksTotal.Inc()

	acq := s.fallback.Acquire(ctx, url)
	defer acq.Release()

	if acq.Outcome != engine.Ready {
		return models.Failure(launchFailed(launchErr, acq.Reason()))
	}
	result := extractor.Extract(acq.Page)
	if result.Failed() {
		return models.Failure(launchFailed(launchErr, result.Error))
	}
	return result
}

func launchFailed(launchErr, reason string) string {
	return fmt.Sprintf("%s: %s; %s", models.MsgLaunchFailedPrefix, launchErr, reason)
}

func resultStatus(r models.ProductResult) string {
	switch {
	case r.Failed():
		return "error"
	case r.Price <= 0:
		return "no_price"
	default:
		return "success"
	}
}
