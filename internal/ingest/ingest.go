// Package ingest collects fresh, de-duplicated article links from news feeds.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/decode/internal/fetch"
	"github.com/ppiankov/decode/internal/model"
)

// Fetcher retrieves a feed document
type Fetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Entry is a feed item selected for analysis
type Entry struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
	Source    string     `json:"source"`
}

// Ingestor fetches feeds concurrently and merges their entries
type Ingestor struct {
	fetcher Fetcher
	cfg     model.FeedsConfig
	workers int
	clock   func() time.Time
	logger  *zap.Logger
}

// New creates an Ingestor
func New(fetcher Fetcher, cfg model.FeedsConfig, workers int, logger *zap.Logger) *Ingestor {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		fetcher: fetcher,
		cfg:     cfg,
		workers: workers,
		clock:   time.Now,
		logger:  logger.Named("ingest"),
	}
}

// Entries fetches every configured feed and returns entries in feed order.
// Links are normalized and de-duplicated across feeds; short titles, entries
// older than the lookback window and anything past MaxArticles are dropped.
// A feed that fails is logged and skipped.
func (i *Ingestor) Entries(ctx context.Context) ([]Entry, error) {
	feeds := make([]*Feed, len(i.cfg.URLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for n, feedURL := range i.cfg.URLs {
		n, feedURL := n, feedURL
		g.Go(func() error {
			feed, err := i.fetchFeed(gctx, feedURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				i.logger.Warn("Skipping feed", zap.String("feed", feedURL), zap.Error(err))
				return nil
			}
			feeds[n] = feed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var cutoff time.Time
	if i.cfg.LookbackDays > 0 {
		cutoff = i.clock().UTC().Add(-time.Duration(i.cfg.LookbackDays) * 24 * time.Hour)
	}

	var entries []Entry
	seen := make(map[string]bool)
	for n, feed := range feeds {
		if feed == nil {
			continue
		}
		source := feed.Title
		if source == "" {
			source = i.cfg.URLs[n]
		}

		for _, fe := range feed.Entries {
			link := NormalizeLink(fe.Link)
			if link == "" || seen[link] {
				continue
			}
			if utf8.RuneCountInString(fe.Title) < i.cfg.MinTitleLength {
				continue
			}
			if fe.Published != nil && !cutoff.IsZero() && fe.Published.Before(cutoff) {
				continue
			}

			seen[link] = true
			entries = append(entries, Entry{
				Title:     fe.Title,
				Link:      link,
				Published: fe.Published,
				Source:    source,
			})
		}
	}

	if i.cfg.MaxArticles > 0 && len(entries) > i.cfg.MaxArticles {
		entries = entries[:i.cfg.MaxArticles]
	}

	i.logger.Info("Collected feed entries",
		zap.Int("feeds", len(i.cfg.URLs)),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

func (i *Ingestor) fetchFeed(ctx context.Context, feedURL string) (*Feed, error) {
	result, err := i.fetcher.FetchWithRetry(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := ParseFeed([]byte(result.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", feedURL, err)
	}
	return feed, nil
}

// trackingParams are query keys stripped from article links
var trackingParams = map[string]bool{
	"ocid":  true,
	"cmpid": true,
	"ito":   true,
	"CMP":   true,
	"ref":   true,
}

func isTrackingParam(key string) bool {
	return trackingParams[key] || strings.HasPrefix(key, "utm_")
}

// NormalizeLink strips tracking query parameters and the fragment
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.Fragment = ""

	if u.RawQuery == "" {
		return u.String()
	}

	// Rebuild by hand to keep the remaining parameters in their original order
	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}
