package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// defaultURLs cover the common product page variants.
var defaultURLs = []struct {
	Label string
	URL   string
}{
	{"Desktop", "https://www.coupang.com/vp/products/7335597976"},
	{"Desktop+item", "https://www.coupang.com/vp/products/7335597976?itemId=18775553346"},
	{"Mobile", "https://m.coupang.com/vm/products/7335597976"},
}

var (
	apiURL string
	token  string
	runs   int
	output string
)

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Title  string       `json:"title"`
	Price  int          `json:"price"`
	Image  string       `json:"image"`
	Source string       `json:"source"`
	Error  *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	StatusCode int    `json:"status_code"`
	Price      int    `json:"price"`
	HasTitle   bool   `json:"has_title"`
	HasImage   bool   `json:"has_image"`
	Success    bool   `json:"success"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type urlResult struct {
	URL         string      `json:"url"`
	Label       string      `json:"label"`
	Runs        []runResult `json:"runs"`
	AvgMs       float64     `json:"avg_ms"`
	SuccessRate float64     `json:"success_rate"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	cmd := &cobra.Command{
		Use:   "benchmark [url...]",
		Short: "Measure latency and success rate of a running renderscraper front door",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "http://localhost:8080", "renderscraper base URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("RENDER_API_TOKEN"), "shared secret sent as X-Internal-Token")
	cmd.Flags().IntVar(&runs, "runs", 3, "number of runs per URL")
	cmd.Flags().StringVar(&output, "output", "benchmark-results.json", "JSON output file path")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(args []string) error {
	targets := defaultURLs
	if len(args) > 0 {
		targets = targets[:0:0]
		for i, u := range args {
			targets = append(targets, struct {
				Label string
				URL   string
			}{fmt.Sprintf("arg%d", i+1), u})
		}
	}

	fmt.Println("=== renderscraper benchmark ===")
	fmt.Printf("API URL:   %s\n", apiURL)
	fmt.Printf("Runs/URL:  %d\n", runs)
	fmt.Printf("Output:    %s\n", output)
	fmt.Println()

	if err := checkAPI(apiURL); err != nil {
		return fmt.Errorf("cannot reach API at %s (is `renderscraper serve` running?): %w", apiURL, err)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     apiURL,
		RunsPerURL: runs,
	}

	for _, t := range targets {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d원\n", rr.TotalMs, rr.Price)
			} else {
				fmt.Printf("FAILED (%d %s): %s\n", rr.StatusCode, rr.ErrorCode, rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.AvgMs, ur.SuccessRate = summarize(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(output, report); err != nil {
		return fmt.Errorf("write JSON output: %w", err)
	}
	fmt.Printf("\nDetailed results written to %s\n", output)
	return nil
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(scrapeRequest{URL: url})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, apiURL+"/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Internal-Token", token)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.TotalMs = time.Since(start).Milliseconds()
	rr.StatusCode = resp.StatusCode

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = resp.StatusCode == http.StatusOK
	rr.Price = sr.Price
	rr.HasTitle = sr.Title != ""
	rr.HasImage = sr.Image != ""
	if sr.Error != nil {
		rr.ErrorCode = sr.Error.Code
		rr.Error = sr.Error.Message
	}
	return rr
}

// summarize returns the mean latency of successful runs and the share of
// runs that succeeded.
func summarize(runs []runResult) (avgMs, successRate float64) {
	var ok int
	for _, r := range runs {
		if !r.Success {
			continue
		}
		ok++
		avgMs += float64(r.TotalMs)
	}
	if ok > 0 {
		avgMs /= float64(ok)
	}
	if len(runs) > 0 {
		successRate = float64(ok) / float64(len(runs))
	}
	return avgMs, successRate
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tSuccess\tLast Price\n")
	fmt.Fprintf(w, "───\t───────────\t───────\t──────────\n")

	for _, r := range results {
		if r.SuccessRate == 0 {
			fmt.Fprintf(w, "%s\tFAILED\t0%%\t-\n", truncateURL(r.URL, 50))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.0f%%\t%d원\n",
			truncateURL(r.URL, 50),
			int64(r.AvgMs),
			r.SuccessRate*100,
			lastPrice(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func lastPrice(runs []runResult) int {
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success {
			return runs[i].Price
		}
	}
	return 0
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
