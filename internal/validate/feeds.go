// Package validate checks that configured news feeds are reachable and parse.
package validate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/ingest"
)

const validateMaxRetries = 3

// validateSleepFunc is the sleep function used between retries (injectable for tests)
var validateSleepFunc = time.Sleep

// FeedStatus is the health of one feed
type FeedStatus struct {
	URL          string        `json:"url"`
	Title        string        `json:"title,omitempty"`
	Accessible   bool          `json:"accessible"`
	Dead         bool          `json:"dead"`
	StatusCode   int           `json:"status_code,omitempty"`
	RedirectURL  string        `json:"redirect_url,omitempty"`
	Entries      int           `json:"entries"`
	Newest       *time.Time    `json:"newest,omitempty"`
	Stale        bool          `json:"stale"` // newest entry older than the lookback window
	LastModified *time.Time    `json:"last_modified,omitempty"`
	Latency      time.Duration `json:"latency"`
	Error        string        `json:"error,omitempty"`
}

// Healthy reports whether the feed can feed a run
func (s FeedStatus) Healthy() bool {
	return s.Accessible && s.Error == "" && s.Entries > 0
}

// FeedValidator checks feeds concurrently
type FeedValidator struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxWorkers int
	lookback   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewFeedValidator creates a validator. A zero lookback disables staleness checks.
func NewFeedValidator(client *http.Client, userAgent string, maxBytes int64, maxWorkers int, lookback time.Duration, logger *zap.Logger) *FeedValidator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedValidator{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		maxWorkers: maxWorkers,
		lookback:   lookback,
		now:        time.Now,
		logger:     logger.Named("validate"),
	}
}

// Validate checks every feed and returns statuses in input order
func (v *FeedValidator) Validate(ctx context.Context, urls []string) []FeedStatus {
	results := make([]FeedStatus, len(urls))
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent requests
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, feedURL string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = FeedStatus{URL: feedURL, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.validateWithRetry(ctx, feedURL)
		}(i, u)
	}

	wg.Wait()

	healthy := 0
	for _, r := range results {
		if r.Healthy() {
			healthy++
		}
	}
	v.logger.Info("Checked feeds", zap.Int("feeds", len(urls)), zap.Int("healthy", healthy))
	return results
}

// validateSingle fetches and parses one feed
func (v *FeedValidator) validateSingle(ctx context.Context, feedURL string) FeedStatus {
	result := FeedStatus{URL: feedURL}
	started := v.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.Dead = true
		return result
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Dead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Latency = v.now().Sub(started)

	if resp.Request.URL.String() != feedURL {
		result.RedirectURL = resp.Request.URL.String()
	}
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := time.Parse(time.RFC1123, lastModified); err == nil {
			result.LastModified = &t
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
		return result
	default:
		return result
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, v.maxBytes))
	if err != nil {
		result.Error = fmt.Sprintf("read body: %v", err)
		return result
	}

	feed, err := ingest.ParseFeed(data)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Title = feed.Title
	result.Entries = len(feed.Entries)
	for _, e := range feed.Entries {
		if e.Published != nil && (result.Newest == nil || e.Published.After(*result.Newest)) {
			result.Newest = e.Published
		}
	}
	if v.lookback > 0 && result.Newest != nil {
		result.Stale = v.now().Sub(*result.Newest) > v.lookback
	}
	return result
}

// validateWithRetry retries transient failures with exponential backoff
func (v *FeedValidator) validateWithRetry(ctx context.Context, feedURL string) FeedStatus {
	var result FeedStatus
	for attempt := 0; attempt < validateMaxRetries; attempt++ {
		result = v.validateSingle(ctx, feedURL)
		if !isRetryableStatus(result) || ctx.Err() != nil {
			return result
		}
		if attempt < validateMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			validateSleepFunc(backoff)
		}
	}
	return result
}

// isRetryableStatus returns true for results that indicate transient failures
func isRetryableStatus(result FeedStatus) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if result.Error != "" && result.StatusCode == 0 {
		return isRetryableNetworkError(result.Error)
	}
	return false
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
