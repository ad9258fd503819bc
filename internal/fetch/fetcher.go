// Package fetch downloads feeds and article pages politely: robots.txt is
// honoured, requests are rate limited per host and bodies are cached.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/cache"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/util"
	"github.com/ppiankov/decode/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids the URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// errTransport marks failures below HTTP: DNS, dial, TLS, resets
var errTransport = errors.New("fetch")

// StatusError is returned for a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected status: " + e.Status
}

const maxAttempts = 3

// fetchSleepFunc is replaced in tests to skip backoff
var fetchSleepFunc = time.Sleep

// Options wires a Fetcher's collaborators; every field except Client is optional
type Options struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
	Cache     cache.Cache
	CacheTTL  time.Duration
	Limiter   *worker.Limiter
	Robots    *util.RobotsChecker
	Logger    *zap.Logger
}

// Fetcher fetches documents over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	logger     *zap.Logger
}

// Result is a fetched document
type Result struct {
	Body         string
	ContentType  string
	LastModified string
	StatusCode   int
	FinalURL     string
	FromCache    bool
}

// New creates a Fetcher from options
func New(opts Options) *Fetcher {
	f := &Fetcher{
		httpClient: opts.Client,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBytes,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		limiter:    opts.Limiter,
		robots:     opts.Robots,
		logger:     opts.Logger,
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 2_000_000
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.logger = f.logger.Named("fetch")
	return f
}

// FromConfig builds a Fetcher with cache, limiter and robots checker per cfg
func FromConfig(cfg *model.Config, logger *zap.Logger) *Fetcher {
	client := util.NewHTTPClient(cfg.HTTP)

	opts := Options{
		Client:    client,
		UserAgent: cfg.HTTP.UserAgent,
		MaxBytes:  cfg.HTTP.MaxBodyBytes,
		Cache:     cache.New(cfg.Cache),
		CacheTTL:  cfg.Cache.DiskTTL,
		Logger:    logger,
	}
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		opts.Limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}
	if cfg.HTTP.RespectRobots {
		opts.Robots = util.NewRobotsChecker(client, cfg.HTTP.UserAgent)
	}
	return New(opts)
}

// Fetch performs a single GET. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Result{
		Body:         string(body),
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		StatusCode:   resp.StatusCode,
		FinalURL:     resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry serves from cache when possible, otherwise checks robots.txt,
// waits for the host's rate limit and fetches with up to three attempts.
// Only network errors, 429 and 5xx are retried.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	key := cache.CacheKey(rawURL)
	if f.cache != nil {
		if body, found := f.cache.Get(key); found {
			f.logger.Debug("Cache hit", zap.String("url", rawURL))
			return &Result{Body: string(body), StatusCode: http.StatusOK, FinalURL: rawURL, FromCache: true}, nil
		}
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		crawlDelay = delay
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			f.logger.Debug("Retrying fetch",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			fetchSleepFunc(backoff)
		}

		if f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			if f.cache != nil {
				if err := f.cache.Set(key, []byte(result.Body), f.cacheTTL); err != nil {
					f.logger.Warn("Failed to cache response", zap.String("url", rawURL), zap.Error(err))
				}
			}
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryableFetchError(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// isRetryableFetchError reports whether an error from Fetch is transient
func isRetryableFetchError(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	return errors.Is(err, errTransport)
}
