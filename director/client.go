// Package director talks to the director's plain http endpoints. Live events arrive through a driver, this is only
// used for on-demand debug reads.
package director

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected director status")

type Health struct {
	Status      string `json:"status"`
	ServerReady bool   `json:"server_ready"`
}

type ThreadStats struct {
	TotalThreads    int     `json:"total_threads"`
	ActiveThreads   int     `json:"active_threads"`
	PendingThreads  int     `json:"pending_threads"`
	ResolvedThreads int     `json:"resolved_threads"`
	CurrentThread   *string `json:"current_thread"`
}

type PromptDebug struct {
	FormattedContext string      `json:"formatted_context"`
	DetailMode       string      `json:"detail_mode"`
	ThreadStats      ThreadStats `json:"thread_stats"`
	Scene            string      `json:"scene"`
	MemoryCount      int         `json:"memory_count"`
}

type PromptSize struct {
	CharCount       int `json:"char_count"`
	EstimatedTokens int `json:"estimated_tokens"`
	Lines           int `json:"lines"`
	Sections        int `json:"sections"`
}

type LockStates struct {
	StreamerLocked bool `json:"streamer_locked"`
	ContextLocked  bool `json:"context_locked"`
}

type TestResult struct {
	Name     string  `json:"name"`
	Result   string  `json:"result"`
	Details  string  `json:"details"`
	Metric   float64 `json:"metric"`
	Expected float64 `json:"expected"`
}

// Passed reports whether the director marked the case as a pass. Results carry a decorated label such as "✅ PASS".
func (t TestResult) Passed() bool {
	return strings.Contains(t.Result, "PASS")
}

type TestReport struct {
	Total    int          `json:"total"`
	Passed   int          `json:"passed"`
	Failed   int          `json:"failed"`
	Warned   int          `json:"warned"`
	PassRate float64      `json:"pass_rate"`
	Results  []TestResult `json:"results"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	return &health, c.get(ctx, "/health", &health)
}

func (c *Client) ThreadStats(ctx context.Context) (*ThreadStats, error) {
	var stats ThreadStats
	return &stats, c.get(ctx, "/thread_stats", &stats)
}

func (c *Client) PromptDebug(ctx context.Context) (*PromptDebug, error) {
	var debug PromptDebug
	return &debug, c.get(ctx, "/prompt_debug", &debug)
}

func (c *Client) PromptSize(ctx context.Context) (*PromptSize, error) {
	var size PromptSize
	return &size, c.get(ctx, "/prompt_size", &size)
}

func (c *Client) LockStates(ctx context.Context) (*LockStates, error) {
	var locks LockStates
	return &locks, c.get(ctx, "/lock_states", &locks)
}

func (c *Client) RunTests(ctx context.Context) (*TestReport, error) {
	var report TestReport
	return &report, c.get(ctx, "/run_tests", &report)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("director %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUnexpectedStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
