package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/decode/internal/fetch"
	"github.com/ppiankov/decode/internal/model"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
<channel>
  <title>World News</title>
  <atom:link href="https://news.example/rss" rel="self"/>
  <item>
    <title>Disaster kills 33 in 911 blast</title>
    <link>https://news.example/a?utm_source=rss&amp;id=7</link>
    <pubDate>Wed, 11 Sep 2024 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Short</title>
    <link>https://news.example/short</link>
    <pubDate>Wed, 11 Sep 2024 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Last week's flood report</title>
    <link>https://news.example/old</link>
    <pubDate>Mon, 02 Sep 2024 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Undated but kept story</title>
    <link>https://news.example/undated</link>
  </item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Science Daily</title>
  <entry>
    <title>Same story via another feed</title>
    <link rel="alternate" href="https://news.example/a?id=7&amp;ocid=feed"/>
    <updated>2024-09-11T09:00:00Z</updated>
  </entry>
  <entry>
    <title>Eclipse seen over Madrid</title>
    <link rel="self" href="https://science.example/self"/>
    <link href="https://science.example/eclipse#top"/>
    <published>2024-09-11T10:00:00Z</published>
  </entry>
</feed>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss":
			_, _ = fmt.Fprint(w, rssFeed)
		case "/atom":
			_, _ = fmt.Fprint(w, atomFeed)
		case "/html":
			_, _ = fmt.Fprint(w, "<html><body>not a feed</body></html>")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newIngestor(server *httptest.Server, cfg model.FeedsConfig) *Ingestor {
	ing := New(fetch.New(fetch.Options{Client: server.Client()}), cfg, 2, nil)
	ing.clock = func() time.Time { return time.Date(2024, 9, 11, 12, 0, 0, 0, time.UTC) }
	return ing
}

func TestEntries(t *testing.T) {
	server := newServer(t)
	ing := newIngestor(server, model.FeedsConfig{
		URLs:           []string{server.URL + "/rss", server.URL + "/missing", server.URL + "/html", server.URL + "/atom"},
		LookbackDays:   1,
		MinTitleLength: 6,
	})

	entries, err := ing.Entries(context.Background())
	require.NoError(t, err)

	var links, sources []string
	for _, e := range entries {
		links = append(links, e.Link)
		sources = append(sources, e.Source)
	}
	assert.Equal(t, []string{
		"https://news.example/a?id=7",
		"https://news.example/undated",
		"https://science.example/eclipse",
	}, links)
	assert.Equal(t, []string{"World News", "World News", "Science Daily"}, sources)

	require.NotNil(t, entries[0].Published)
	assert.Equal(t, time.Date(2024, 9, 11, 8, 0, 0, 0, time.UTC), *entries[0].Published)
	assert.Nil(t, entries[1].Published)
}

func TestEntries_MaxArticles(t *testing.T) {
	server := newServer(t)
	ing := newIngestor(server, model.FeedsConfig{
		URLs:        []string{server.URL + "/rss", server.URL + "/atom"},
		MaxArticles: 2,
	})

	entries, err := ing.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Disaster kills 33 in 911 blast", entries[0].Title)
}

func TestEntries_NoLookback(t *testing.T) {
	server := newServer(t)
	ing := newIngestor(server, model.FeedsConfig{URLs: []string{server.URL + "/rss"}})

	entries, err := ing.Entries(context.Background())
	require.NoError(t, err)
	// Without a minimum title length or lookback every linked item is kept
	assert.Len(t, entries, 4)
}

func TestEntries_Cancelled(t *testing.T) {
	server := newServer(t)
	ing := newIngestor(server, model.FeedsConfig{URLs: []string{server.URL + "/rss"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ing.Entries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFeed_RDF(t *testing.T) {
	feed, err := ParseFeed([]byte(`<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel><title>Old School</title></channel>
  <item><title>Item one</title><link>https://rdf.example/1</link><dc:date>2024-09-11T00:00:00Z</dc:date></item>
</rdf:RDF>`))
	require.NoError(t, err)
	assert.Equal(t, "Old School", feed.Title)
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, "https://rdf.example/1", feed.Entries[0].Link)
	require.NotNil(t, feed.Entries[0].Published)
}

func TestParseFeed_Errors(t *testing.T) {
	_, err := ParseFeed([]byte(`<html><body/></html>`))
	assert.ErrorIs(t, err, ErrNotFeed)

	_, err = ParseFeed([]byte(`not xml at all`))
	assert.Error(t, err)
}

func TestNormalizeLink(t *testing.T) {
	tests := map[string]string{
		"https://x.example/a?utm_source=rss&utm_medium=feed": "https://x.example/a",
		"https://x.example/a?id=1&utm_campaign=z&page=2":     "https://x.example/a?id=1&page=2",
		"https://x.example/a?CMP=share&cmpid=1&ito=2&ocid=3": "https://x.example/a",
		"https://x.example/a?ref=home&referrer=kept":         "https://x.example/a?referrer=kept",
		"https://x.example/a#comments":                       "https://x.example/a",
		"  https://x.example/plain  ":                        "https://x.example/plain",
		"":                                                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLink(in), in)
	}
}
