package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/fetch"
)

// ErrNoContent is returned when a page has neither a title nor body text
var ErrNoContent = errors.New("no article content")

// Article is the readable part of a news page
type Article struct {
	URL       string
	Title     string
	Authors   []string
	Published *time.Time
	Text      string
}

// Fetcher retrieves a document by URL
type Fetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// ArticleParser downloads and parses article pages
type ArticleParser struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewArticleParser creates a parser that fetches through f
func NewArticleParser(f Fetcher, logger *zap.Logger) *ArticleParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleParser{fetcher: f, logger: logger.Named("article")}
}

// Parse fetches rawURL and extracts the article
func (p *ArticleParser) Parse(ctx context.Context, rawURL string) (*Article, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}

	article, err := ParseHTML(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	article.URL = rawURL

	p.logger.Debug("Parsed article",
		zap.String("url", rawURL),
		zap.String("title", article.Title),
		zap.Int("chars", len(article.Text)),
		zap.Bool("cached", result.FromCache),
	)
	return article, nil
}

// ParseHTML extracts title, authors, publish time and paragraph text from a page
func ParseHTML(htmlContent string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	article := &Article{
		Title:     articleTitle(doc),
		Authors:   articleAuthors(doc),
		Published: articlePublished(doc),
	}

	doc.Find("script, style, noscript, iframe, template").Remove()
	article.Text = articleText(doc)

	if article.Text == "" {
		// Pages without <p> markup still carry readable text
		if body, err := doc.Find("body").Html(); err == nil {
			if text, err := VisibleText(body); err == nil {
				article.Text = text
			}
		}
	}

	if article.Title == "" && article.Text == "" {
		return nil, ErrNoContent
	}
	return article, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = CollapseSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}

func articleTitle(doc *goquery.Document) string {
	if title := metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`); title != "" {
		return title
	}
	if title := CollapseSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return CollapseSpace(doc.Find("h1").First().Text())
}

func articleAuthors(doc *goquery.Document) []string {
	var authors []string
	seen := make(map[string]bool)

	add := func(name string) {
		name = CollapseSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		// article:author is often a profile URL
		if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
			return
		}
		seen[key] = true
		authors = append(authors, name)
	}

	doc.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		add(content)
	})
	doc.Find(`[rel="author"], [itemprop="author"] [itemprop="name"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})

	return authors
}

func articlePublished(doc *goquery.Document) *time.Time {
	raw := metaContent(doc,
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
	)
	if raw == "" {
		raw, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}

	t, err := ParseDateTime(raw)
	if err != nil {
		return nil
	}
	return &t
}

func articleText(doc *goquery.Document) string {
	scope := doc.Find("article").First()
	if scope.Length() == 0 || scope.Find("p").Length() == 0 {
		scope = doc.Selection
	}

	var paragraphs []string
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := CollapseSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n")
}
