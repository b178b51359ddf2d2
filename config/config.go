package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Runner    RunnerConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP front door.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser session launched per scrape.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in containers).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// CandidateBins are probed in order when BrowserBin is empty.
	CandidateBins []string

	// DownloadBrowser lets rod download its own Chromium when no binary
	// resolves. Off, a missing binary fails the launch immediately.
	DownloadBrowser bool // default: false

	// WindowWidth and WindowHeight fix the window size of every session.
	WindowWidth  int // default: 1920
	WindowHeight int // default: 1080

	// Offscreen moves the window out of the visible desktop area.
	Offscreen bool // default: true
}

// ScraperConfig controls the acquisition timings.
type ScraperConfig struct {
	// TitleWait bounds the wait for a <title> element after navigation.
	TitleWait time.Duration // default: 15s

	// BlockRetryPause is slept before reloading a blocked page.
	BlockRetryPause time.Duration // default: 2s

	// ReloadSettle is slept after the reload before re-checking the title.
	ReloadSettle time.Duration // default: 3s

	// ScrollOffset is the vertical offset scrolled to before extraction.
	ScrollOffset int // default: 500

	// ScrollSettle is slept after scrolling so lazy price widgets render.
	ScrollSettle time.Duration // default: 1.5s

	// HTTPTimeout is the deadline of the plain-HTTP fallback request.
	HTTPTimeout time.Duration // default: 20s
}

// RunnerConfig controls how the front door invokes the scraper core.
type RunnerConfig struct {
	// Mode is "inprocess" or "process".
	Mode string // default: "inprocess"

	// Timeout is the hard wall-clock limit of one invocation.
	Timeout time.Duration // default: 50s

	// MaxConcurrent bounds simultaneous invocations.
	MaxConcurrent int // default: 2

	// Binary is the executable used in process mode; empty means self.
	Binary string
}

// CacheConfig controls the short-lived cache of successful scrapes.
type CacheConfig struct {
	// TTL is how long a successful result is served from memory. Zero
	// disables the cache.
	TTL time.Duration // default: 0

	// MaxEntries bounds the number of cached results.
	MaxEntries int // default: 1000
}

// AuthConfig controls the shared-secret header check.
type AuthConfig struct {
	// Token is the expected X-Internal-Token. Empty disables the check.
	Token string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultBrowserBins lists well-known Chromium install locations.
var DefaultBrowserBins = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/opt/google/chrome/chrome",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("RENDER_HOST", "0.0.0.0"),
			Port: envIntOr("RENDER_PORT", envIntOr("PORT", 8080)),
			Mode: envOr("RENDER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:        envBoolOr("RENDER_HEADLESS", legacyHeadless()),
			NoSandbox:       envBoolOr("RENDER_NO_SANDBOX", true),
			BrowserBin:      firstEnv("RENDER_BROWSER_BIN", "CHROME_BIN", "CHROME_BINARY"),
			CandidateBins:   envSliceOr("RENDER_BROWSER_CANDIDATES", DefaultBrowserBins),
			DownloadBrowser: envBoolOr("RENDER_BROWSER_DOWNLOAD", false),
			WindowWidth:     envIntOr("RENDER_WINDOW_WIDTH", 1920),
			WindowHeight:    envIntOr("RENDER_WINDOW_HEIGHT", 1080),
			Offscreen:       envBoolOr("RENDER_OFFSCREEN", true),
		},
		Scraper: ScraperConfig{
			TitleWait:       envDurationOr("RENDER_TITLE_WAIT", 15*time.Second),
			BlockRetryPause: envDurationOr("RENDER_BLOCK_RETRY_PAUSE", 2*time.Second),
			ReloadSettle:    envDurationOr("RENDER_RELOAD_SETTLE", 3*time.Second),
			ScrollOffset:    envIntOr("RENDER_SCROLL_OFFSET", 500),
			ScrollSettle:    envDurationOr("RENDER_SCROLL_SETTLE", 1500*time.Millisecond),
			HTTPTimeout:     envDurationOr("RENDER_HTTP_TIMEOUT", 20*time.Second),
		},
		Runner: RunnerConfig{
			Mode:          envOr("RENDER_RUNNER", "inprocess"),
			Timeout:       envDurationOr("RENDER_SCRAPE_TIMEOUT", 50*time.Second),
			MaxConcurrent: envIntOr("RENDER_MAX_CONCURRENT", 2),
			Binary:        os.Getenv("RENDER_RUNNER_BIN"),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("RENDER_CACHE_TTL", 0),
			MaxEntries: envIntOr("RENDER_CACHE_MAX_ENTRIES", 1000),
		},
		Auth: AuthConfig{
			Token: strings.TrimSpace(firstEnv("RENDER_SERVICE_TOKEN", "SCRAPER_SERVICE_TOKEN")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RENDER_RATE_RPS", 1.0),
			Burst:             envIntOr("RENDER_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("RENDER_LOG_LEVEL", "info"),
			Format: envOr("RENDER_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// legacyHeadless reads SCRAPER_HEADLESS, where only "1" means headless.
// Unset keeps the headless default.
func legacyHeadless() bool {
	v, ok := os.LookupEnv("SCRAPER_HEADLESS")
	if !ok {
		return true
	}
	return v == "1"
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
