package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/models"
	"github.com/use-agent/renderscraper/scraper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// errReported means the failure was already written to stdout as JSON.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "renderscraper <url>",
		Short: "Scrape title, price and image from a Coupang product page",
		Long: `renderscraper loads a Coupang product page in a stealth Chromium session
(falling back to a plain HTTPS fetch when no browser can start) and prints the
product as one line of JSON:

  {"title":"...","price":15000,"image":"https://..."}
  {"error":"..."}

Run "renderscraper serve" to expose the same scraper over HTTP.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context(), stdout, args)
		},
	}

	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd(stdout))
	return root
}

// runScrape is the one-shot process boundary: exactly one JSON line on
// stdout, logs on stderr. Core failures are data (exit 0); a missing URL or
// a crash exits non-zero after still emitting a JSON error line.
func runScrape(ctx context.Context, stdout io.Writer, args []string) (err error) {
	if len(args) < 1 {
		_ = writeResult(stdout, models.Failure(models.MsgURLRequired))
		return errReported
	}

	cfg := config.Load()
	initLogger(cfg.Log, os.Stderr)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("scrape panicked", "panic", p)
			_ = writeResult(stdout, models.Failure(fmt.Sprint(p)))
			err = errReported
		}
	}()

	result := scraper.NewFromConfig(cfg).Scrape(ctx, args[0])
	return writeResult(stdout, result)
}

// writeResult prints r as compact JSON without HTML escaping, so titles
// keep their literal characters.
func writeResult(w io.Writer, r models.ProductResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func versionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, "renderscraper", version)
		},
	}
}
