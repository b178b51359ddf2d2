package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/renderscraper/api"
	"github.com/use-agent/renderscraper/cache"
	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/runner"
	"github.com/use-agent/renderscraper/scraper"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front door (POST /scrape, GET /health, GET /metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log, os.Stdout)
	slog.Info("renderscraper starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"runner", cfg.Runner.Mode,
		"maxConcurrent", cfg.Runner.MaxConcurrent,
		"auth", cfg.Auth.Token != "",
	)

	// ── 3. Initialise the scraper core and its runner ───────────────
	inner, err := runner.New(cfg.Runner, scraper.NewFromConfig(cfg))
	if err != nil {
		return err
	}
	bounded := runner.NewBounded(inner, cfg.Runner.MaxConcurrent)

	// ── 3b. Optional result cache ───────────────────────────────────
	var front runner.Runner = bounded
	if cfg.Cache.TTL > 0 {
		front = runner.NewCached(bounded, cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL))
		slog.Info("result cache enabled", "ttl", cfg.Cache.TTL, "maxEntries", cfg.Cache.MaxEntries)
	}

	// ── 4. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(front, bounded, cfg, time.Now(), version)

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	// In-flight scrapes get their full timeout to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Runner.Timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("renderscraper stopped")
	return nil
}
