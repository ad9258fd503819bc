package ingest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/ppiankov/decode/internal/extract"
)

// ErrNotFeed is returned for XML that is neither RSS nor Atom
var ErrNotFeed = errors.New("not an RSS or Atom feed")

// Feed is a parsed RSS 2.0, RSS 1.0 or Atom document
type Feed struct {
	Title   string
	Entries []FeedEntry
}

// FeedEntry is one item of a feed, before filtering
type FeedEntry struct {
	Title     string
	Link      string
	Published *time.Time
}

type xmlLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Text string `xml:",chardata"`
}

type xmlItem struct {
	Title     string    `xml:"title"`
	Links     []xmlLink `xml:"link"`
	GUID      string    `xml:"guid"`
	PubDate   string    `xml:"pubDate"`
	Published string    `xml:"published"`
	Updated   string    `xml:"updated"`
	Date      string    `xml:"date"`
}

// xmlDoc covers <rss>, <rdf:RDF> and <feed> roots
type xmlDoc struct {
	XMLName xml.Name
	Title   string    `xml:"title"`
	Entries []xmlItem `xml:"entry"`
	Items   []xmlItem `xml:"item"`
	Channel struct {
		Title string    `xml:"title"`
		Items []xmlItem `xml:"item"`
	} `xml:"channel"`
}

// ParseFeed decodes an RSS or Atom document, honouring its declared encoding
func ParseFeed(data []byte) (*Feed, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc xmlDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	feed := &Feed{}
	var items []xmlItem

	switch strings.ToLower(doc.XMLName.Local) {
	case "rss":
		feed.Title = doc.Channel.Title
		items = doc.Channel.Items
	case "rdf":
		feed.Title = doc.Channel.Title
		items = doc.Items
	case "feed":
		feed.Title = doc.Title
		items = doc.Entries
	default:
		return nil, fmt.Errorf("%w: root <%s>", ErrNotFeed, doc.XMLName.Local)
	}

	feed.Title = extract.CollapseSpace(feed.Title)
	for _, it := range items {
		feed.Entries = append(feed.Entries, FeedEntry{
			Title:     extract.CollapseSpace(it.Title),
			Link:      strings.TrimSpace(it.link()),
			Published: it.published(),
		})
	}
	return feed, nil
}

// link prefers RSS chardata, then Atom alternate links, then a permalink guid
func (it xmlItem) link() string {
	for _, l := range it.Links {
		if t := strings.TrimSpace(l.Text); t != "" {
			return t
		}
	}
	for _, l := range it.Links {
		if l.Href != "" && (l.Rel == "" || l.Rel == "alternate") {
			return l.Href
		}
	}
	if strings.HasPrefix(it.GUID, "http://") || strings.HasPrefix(it.GUID, "https://") {
		return it.GUID
	}
	return ""
}

// published falls back to the update time like most feed readers
func (it xmlItem) published() *time.Time {
	for _, raw := range []string{it.PubDate, it.Published, it.Date, it.Updated} {
		if raw == "" {
			continue
		}
		if t, err := extract.ParseDateTime(raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
