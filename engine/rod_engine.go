package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/renderscraper/config"
	"github.com/use-agent/renderscraper/extractor"
	"github.com/use-agent/renderscraper/models"
	"github.com/ysmood/gson"
)

// koreanAcceptLanguage is sent by both engines so the origin serves the
// Korean storefront.
const koreanAcceptLanguage = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"

// offscreenX is the window offset used to keep a headful window out of view.
const offscreenX = -10000

// Session is one exclusively owned browser tab. It doubles as the live DOM
// handed to the extractors.
type Session interface {
	extractor.LiveDOM

	Navigate(url string) error

	// WaitTitle blocks until a <title> element exists or timeout elapses.
	WaitTitle(timeout time.Duration) error

	Reload() error
	ScrollTo(y int) error
	HTML() (string, error)

	// Close ends the session and terminates the browser process.
	Close() error
}

// SessionLauncher starts a fresh browser session bound to ctx.
type SessionLauncher func(ctx context.Context) (Session, error)

// RodEngine acquires pages by rendering them in a stealth-configured
// Chromium session. One session is launched per Acquire.
type RodEngine struct {
	cfg    config.ScraperConfig
	launch SessionLauncher
	logger *slog.Logger
}

// ErrNoBrowser is returned by the launcher when no Chromium binary resolves
// and downloading one is not enabled.
var ErrNoBrowser = errors.New("no browser binary found")

// NewRodEngine creates a RodEngine that launches real Chromium sessions.
func NewRodEngine(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *RodEngine {
	return NewRodEngineWithLauncher(scraperCfg, rodLauncher(browserCfg, func() string {
		return ResolveBrowserBin(browserCfg)
	}))
}

// rodLauncher resolves the binary once. An unresolved binary fails fast
// unless cfg.DownloadBrowser lets rod fetch its own revision.
func rodLauncher(cfg config.BrowserConfig, resolve func() string) SessionLauncher {
	var (
		once sync.Once
		bin  string
	)
	return func(ctx context.Context) (Session, error) {
		once.Do(func() { bin = resolve() })
		if bin == "" && !cfg.DownloadBrowser {
			return nil, ErrNoBrowser
		}
		return launchRodSession(ctx, cfg, bin)
	}
}

// NewRodEngineWithLauncher creates a RodEngine on top of a custom launcher.
func NewRodEngineWithLauncher(scraperCfg config.ScraperConfig, launch SessionLauncher) *RodEngine {
	return &RodEngine{
		cfg:    scraperCfg,
		launch: launch,
		logger: slog.With("component", "rod_engine"),
	}
}

func (e *RodEngine) Name() string { return "rod" }

// Acquire walks Launching → Loaded → BlockCheck → Scrolled. The session is
// owned by the returned acquisition and closed by its Release.
func (e *RodEngine) Acquire(ctx context.Context, url string) *Acquisition {
	sess, err := e.launch(ctx)
	if err != nil {
		e.logger.Warn("browser launch failed", "error", err)
		return &Acquisition{Outcome: Unavailable, Engine: e.Name(), Err: err}
	}

	acq := &Acquisition{
		Engine: e.Name(),
		release: func() {
			if err := sess.Close(); err != nil {
				e.logger.Debug("session close failed", "error", err)
			}
		},
	}
	fail := func(err error) *Acquisition {
		acq.Outcome = Failed
		acq.Err = err
		return acq
	}

	if err := sess.Navigate(url); err != nil {
		return fail(err)
	}
	if err := sess.WaitTitle(e.cfg.TitleWait); err != nil {
		e.logger.Debug("title did not appear, continuing", "error", err)
	}

	if e.blocked(sess) {
		e.logger.Warn("block page on first load, reloading", "url", url)
		if err := sleepCtx(ctx, e.cfg.BlockRetryPause); err != nil {
			return fail(err)
		}
		if err := sess.Reload(); err != nil {
			return fail(err)
		}
		if err := sleepCtx(ctx, e.cfg.ReloadSettle); err != nil {
			return fail(err)
		}
		if e.blocked(sess) {
			acq.Outcome = Blocked
			acq.Err = errors.New(models.MsgBlockDetected)
			return acq
		}
	}

	if err := sess.ScrollTo(e.cfg.ScrollOffset); err != nil {
		e.logger.Debug("scroll failed", "error", err)
	}
	if err := sleepCtx(ctx, e.cfg.ScrollSettle); err != nil {
		return fail(err)
	}

	acq.Outcome = Ready
	acq.Page = livePage{sess}
	return acq
}

func (e *RodEngine) blocked(sess Session) bool {
	title, err := sess.Title()
	if err != nil {
		return false
	}
	return strings.Contains(title, models.BlockMarker)
}

// livePage exposes a session as a rendered extractor.Page.
type livePage struct {
	sess Session
}

func (p livePage) HTML() (string, error) { return p.sess.HTML() }

func (p livePage) Live() (extractor.LiveDOM, bool) { return p.sess, true }

// ResolveBrowserBin returns the configured browser binary, else the first
// existing candidate, else whatever rod finds on the system. "" means none.
func ResolveBrowserBin(cfg config.BrowserConfig) string {
	if cfg.BrowserBin != "" {
		return cfg.BrowserBin
	}
	for _, candidate := range cfg.CandidateBins {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	if found, ok := launcher.LookPath(); ok {
		return found
	}
	return ""
}

// rodSession is a Session backed by a dedicated Chromium process.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func launchRodSession(ctx context.Context, cfg config.BrowserConfig, bin string) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)
	if bin != "" {
		l = l.Bin(bin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "ko-KR")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}
	s := &rodSession{launcher: l}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page.Context(ctx)

	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": koreanAcceptLanguage}),
	}.Call(s.page)

	if cfg.Offscreen {
		left, top := offscreenX, 0
		if err := s.page.SetWindow(&proto.BrowserBounds{Left: &left, Top: &top}); err != nil {
			slog.Debug("moving window offscreen failed", "error", err)
		}
	}
	return s, nil
}

func (s *rodSession) Navigate(url string) error {
	return s.page.Navigate(url)
}

func (s *rodSession) WaitTitle(timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()
	_, err := p.Element("title")
	return err
}

func (s *rodSession) Title() (string, error) {
	res, err := s.page.Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (s *rodSession) Reload() error {
	return s.page.Reload()
}

func (s *rodSession) ScrollTo(y int) error {
	_, err := s.page.Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

func (s *rodSession) QueryText(selector string) (string, error) {
	res, err := s.page.Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? el.innerText : "";
	}`, selector)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Close shuts the browser down and kills the process, removing its user
// data directory.
func (s *rodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
