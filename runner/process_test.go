package runner

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/renderscraper/models"
)

// TestHelperProcess is not a real test. It stands in for the scraper binary
// when re-executed by helperProcess.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	url := os.Args[len(os.Args)-1]
	switch os.Getenv("HELPER_MODE") {
	case "success":
		fmt.Fprintln(os.Stderr, `{"level":"INFO","msg":"scrape finished"}`)
		fmt.Println(`{"title":"Widget","price":15000,"image":"https://img.example/w.jpg"}`)
	case "echo":
		fmt.Printf(`{"title":%q,"price":1}`+"\n", url)
	case "core-error":
		fmt.Println(`{"error":"Access Denied (Detection)"}`)
		os.Exit(1)
	case "crash":
		fmt.Fprintln(os.Stderr, "panic: chrome exploded")
		os.Exit(2)
	case "garbage":
		fmt.Println("not json at all")
	case "sleep":
		time.Sleep(5 * time.Second)
	}
	os.Exit(0)
}

func helperProcess(t *testing.T, mode string, timeout time.Duration) *Process {
	t.Helper()
	p, err := NewProcess(os.Args[0], timeout,
		WithArgs("-test.run=TestHelperProcess", "--"),
		WithEnv("GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode),
	)
	require.NoError(t, err)
	return p
}

func TestProcessSuccess(t *testing.T) {
	res, err := helperProcess(t, "success", 10*time.Second).Run(context.Background(), "https://www.coupang.com/vp/products/1")
	require.NoError(t, err)
	assert.Equal(t, models.ProductResult{Title: "Widget", Price: 15000, Image: "https://img.example/w.jpg"}, res)
}

func TestProcessPassesURLLast(t *testing.T) {
	res, err := helperProcess(t, "echo", 10*time.Second).Run(context.Background(), "https://www.coupang.com/vp/products/7")
	require.NoError(t, err)
	assert.Equal(t, "https://www.coupang.com/vp/products/7", res.Title)
}

func TestProcessCoreErrorWithNonZeroExit(t *testing.T) {
	res, err := helperProcess(t, "core-error", 10*time.Second).Run(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, models.Failure("Access Denied (Detection)"), res)
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		mode    string
		timeout time.Duration
		code    string
		msg     string
	}{
		{"crash", 10 * time.Second, models.ErrCodeInternal, "Scraper failed: panic: chrome exploded"},
		{"garbage", 10 * time.Second, models.ErrCodeInvalidOutput, "Invalid scraper output"},
		{"sleep", 200 * time.Millisecond, models.ErrCodeTimeout, "Scraper timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			_, err := helperProcess(t, tt.mode, tt.timeout).Run(context.Background(), "u")
			var se *models.ScrapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Contains(t, se.Message, tt.msg)
		})
	}
}

func TestProcessLaunchFailure(t *testing.T) {
	p, err := NewProcess("/nonexistent/renderscraper", time.Second)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "u")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeInternal, se.Code)
	assert.Contains(t, se.Message, "Scraper launch failed")
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   models.ProductResult
	}{
		{
			name:   "last object line wins",
			stdout: "{\"title\":\"old\",\"price\":1}\nnoise\n{\"title\":\"new\",\"price\":2}\n",
			want:   models.ProductResult{Title: "new", Price: 2},
		},
		{
			name:   "skips broken trailing object",
			stdout: "{\"title\":\"ok\",\"price\":3}\n{broken}\n",
			want:   models.ProductResult{Title: "ok", Price: 3},
		},
		{
			name:   "brace span fallback",
			stdout: "result: {\"title\": \"multi\",\n \"price\": 4} done",
			want:   models.ProductResult{Title: "multi", Price: 4},
		},
		{
			name:   "string price coerced",
			stdout: `{"title":"t","price":"15,000원","image":7}`,
			want:   models.ProductResult{Title: "t", Price: 15000},
		},
		{
			name:   "float price truncated",
			stdout: `{"price":1999.9}`,
			want:   models.ProductResult{Price: 1999},
		},
		{
			name:   "error wins",
			stdout: `{"error":"Chrome launch failed: x; y","title":"ignored"}`,
			want:   models.Failure("Chrome launch failed: x; y"),
		},
		{
			name:   "empty error is not a failure",
			stdout: `{"error":"","title":"t","price":5}`,
			want:   models.ProductResult{Title: "t", Price: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutput(tt.stdout)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOutputInvalid(t *testing.T) {
	for _, stdout := range []string{"", "no json", "} backwards {", "[1,2]", "{not json}"} {
		_, err := ParseOutput(stdout)
		assert.Error(t, err, stdout)
	}
}
