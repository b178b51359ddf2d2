package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/use-agent/renderscraper/extractor"
	"github.com/use-agent/renderscraper/models"
)

// stderrLimit bounds the stderr excerpt carried in failure messages.
const stderrLimit = 300

var errInvalidOutput = errors.New("invalid scraper output")

// Process runs the scraper core as a child process: `<binary> [args...] <url>`.
type Process struct {
	binary  string
	args    []string
	env     []string
	timeout time.Duration
}

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithArgs sets arguments placed before the URL.
func WithArgs(args ...string) ProcessOption {
	return func(p *Process) { p.args = args }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) ProcessOption {
	return func(p *Process) { p.env = append(p.env, env...) }
}

// NewProcess creates a Process runner. An empty binary re-executes the
// running executable.
func NewProcess(binary string, timeout time.Duration, opts ...ProcessOption) (*Process, error) {
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("runner: resolve executable: %w", err)
		}
		binary = self
	}
	p := &Process{binary: binary, timeout: timeout}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Process) Run(ctx context.Context, url string) (models.ProductResult, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string(nil), p.args...), url)
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Env = append(os.Environ(), p.env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return models.ProductResult{}, timeoutError(ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return models.ProductResult{}, models.NewScrapeError(models.ErrCodeInternal,
				fmt.Sprintf("Scraper launch failed: %v", err), err)
		}
		if strings.TrimSpace(stdout.String()) == "" {
			return models.ProductResult{}, models.NewScrapeError(models.ErrCodeInternal,
				"Scraper failed: "+truncate(stderr.String(), stderrLimit), err)
		}
		slog.Debug("scraper exited non-zero with output", "exit_code", exitErr.ExitCode())
	}

	res, err := ParseOutput(stdout.String())
	if err != nil {
		return models.ProductResult{}, models.NewScrapeError(models.ErrCodeInvalidOutput,
			"Invalid scraper output", err)
	}
	return res, nil
}

// ParseOutput reads the result emitted by the core: the last line that is
// a JSON object wins; otherwise the span from the first '{' to the last '}'
// is decoded.
func ParseOutput(stdout string) (models.ProductResult, error) {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		if payload, err := decodeObject(line); err == nil {
			return payloadResult(payload), nil
		}
	}

	start, end := strings.Index(stdout, "{"), strings.LastIndex(stdout, "}")
	if start == -1 || end == -1 || end < start {
		return models.ProductResult{}, errInvalidOutput
	}
	payload, err := decodeObject(stdout[start : end+1])
	if err != nil {
		return models.ProductResult{}, fmt.Errorf("%w: %v", errInvalidOutput, err)
	}
	return payloadResult(payload), nil
}

func decodeObject(s string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errInvalidOutput
	}
	return payload, nil
}

// payloadResult coerces a loosely typed payload: non-string title/image
// become "", price accepts numbers and digit-bearing strings.
func payloadResult(payload map[string]any) models.ProductResult {
	if msg, ok := payload["error"].(string); ok && msg != "" {
		return models.Failure(msg)
	}
	title, _ := payload["title"].(string)
	image, _ := payload["image"].(string)

	var price int
	switch v := payload["price"].(type) {
	case float64:
		price = int(v)
	case string:
		price = extractor.ParseDigits(v)
	}
	return models.ProductResult{Title: title, Price: price, Image: image}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
