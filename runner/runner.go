// Package runner invokes the scraper core on behalf of the HTTP front door,
// either in-process or as a child process, under a wall-clock limit.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/models"
)

const (
	ModeInProcess = "inprocess"
	ModeProcess   = "process"
)

// Runner performs one scrape invocation. Core failures come back in the
// result's Error field; the error return is reserved for invocation
// failures (timeout, unparsable output, launch failure) as *models.ScrapeError.
type Runner interface {
	Run(ctx context.Context, url string) (models.ProductResult, error)
}

// Scraper is the in-process scraper core.
type Scraper interface {
	Scrape(ctx context.Context, url string) models.ProductResult
}

// New builds the runner selected by cfg.Mode.
func New(cfg config.RunnerConfig, core Scraper) (Runner, error) {
	switch cfg.Mode {
	case ModeInProcess, "":
		return NewInProcess(core, cfg.Timeout), nil
	case ModeProcess:
		return NewProcess(cfg.Binary, cfg.Timeout)
	default:
		return nil, fmt.Errorf("runner: unknown mode %q", cfg.Mode)
	}
}

// InProcess runs the scraper core in a goroutine of the server process.
type InProcess struct {
	core    Scraper
	timeout time.Duration
}

func NewInProcess(core Scraper, timeout time.Duration) *InProcess {
	return &InProcess{core: core, timeout: timeout}
}

func (r *InProcess) Run(ctx context.Context, url string) (models.ProductResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan models.ProductResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("scraper core panicked", "url", url, "panic", p)
				done <- models.Failure(fmt.Sprint(p))
			}
		}()
		done <- r.core.Scrape(ctx, url)
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return models.ProductResult{}, timeoutError(ctx.Err())
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func timeoutError(err error) *models.ScrapeError {
	if errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	}
	return models.NewScrapeError(models.ErrCodeTimeout, "Scraper timeout", err)
}
