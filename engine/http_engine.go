package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/renderscraper/extractor"
	"github.com/use-agent/renderscraper/models"
)

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxRedirects = 10
	maxBody      = 10 << 20
)

// HTTPEngine fetches the page markup without rendering. It presents a
// Chrome TLS fingerprint and browser-like headers.
type HTTPEngine struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint
// and the given per-request timeout.
func NewHTTPEngine(timeout time.Duration) *HTTPEngine {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return NewHTTPEngineWithClient(&http.Client{Transport: transport}, timeout)
}

// NewHTTPEngineWithClient creates an HTTPEngine on top of client. The
// redirect policy is always replaced.
func NewHTTPEngineWithClient(client *http.Client, timeout time.Duration) *HTTPEngine {
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &HTTPEngine{
		client:  &c,
		timeout: timeout,
		logger:  slog.With("component", "http_engine"),
	}
}

func (e *HTTPEngine) Name() string { return "http" }

// Acquire fetches url once. Any status code is accepted; only a network
// error or a block marker in the body stops extraction.
func (e *HTTPEngine) Acquire(ctx context.Context, url string) *Acquisition {
	acq := &Acquisition{Engine: e.Name()}

	body, err := e.fetch(ctx, url)
	if err != nil {
		acq.Outcome = Failed
		acq.Err = fmt.Errorf("%s: %w", models.MsgFallbackFetchFailed, err)
		return acq
	}
	if IsBlockedBody(body) {
		e.logger.Warn("origin refused plain fetch", "url", url)
		acq.Outcome = Blocked
		acq.Err = errors.New(models.MsgBlockedByOrigin)
		return acq
	}

	acq.Outcome = Ready
	acq.Page = extractor.StaticPage(body)
	return acq
}

func (e *HTTPEngine) fetch(ctx context.Context, url string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", koreanAcceptLanguage)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}
	e.logger.Debug("fetched", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return string(body), nil
}

// IsBlockedBody reports whether a plain-HTTP response is the origin's
// refusal page rather than product markup.
func IsBlockedBody(body string) bool {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "access denied") {
		return true
	}
	return strings.Contains(lower, "blocked") && strings.Contains(lower, "coupang")
}
