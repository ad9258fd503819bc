package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/engine"
	"github.com/ppiankov/decode/internal/extract"
	"github.com/ppiankov/decode/internal/ingest"
	"github.com/ppiankov/decode/internal/model"
)

type fakeFeeds struct {
	entries []ingest.Entry
	err     error
}

func (f *fakeFeeds) Entries(context.Context) ([]ingest.Entry, error) {
	return f.entries, f.err
}

type fakeArticles map[string]*extract.Article

func (f fakeArticles) Parse(_ context.Context, rawURL string) (*extract.Article, error) {
	a, ok := f[rawURL]
	if !ok {
		return nil, errors.New("unexpected status: 404 Not Found")
	}
	return a, nil
}

type fakeExtractor struct {
	name    string
	phrases map[string][]string
	err     error
	closed  bool
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Phrases(_ context.Context, title, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.phrases[title], nil
}

func (f *fakeExtractor) FiveW(_ context.Context, title, _ string) (model.FiveW, error) {
	if f.err != nil {
		return model.FiveW{}, f.err
	}
	return model.FiveW{Who: []string{"Red Cross"}, What: []string{title}}, nil
}

func (f *fakeExtractor) Close() error {
	f.closed = true
	return nil
}

func writeReference(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()

	phrases := filepath.Join(dir, "phrases.json")
	require.NoError(t, os.WriteFile(phrases, []byte(`{"Disaster": {"tag": "event"}, "Moon": {}}`), 0o644))
	archetypes := filepath.Join(dir, "archetypes.json")
	require.NoError(t, os.WriteFile(archetypes, []byte(`["disaster", "blast"]`), 0o644))

	cfg := model.DefaultConfig()
	cfg.Reference.PhrasesPath = phrases
	cfg.Reference.ArchetypesPath = archetypes
	cfg.Output.Dir = filepath.Join(dir, "out")
	return cfg
}

func buildEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := BuildEngine(context.Background(), writeReference(t), nil)
	require.NoError(t, err)
	return e
}

var fixedClock = func() time.Time { return time.Date(2024, 9, 11, 12, 0, 0, 0, time.UTC) }

func newTestPipeline(t *testing.T, feeds FeedSource, x, fallback PhraseExtractor) *Pipeline {
	t.Helper()
	published := time.Date(2024, 9, 11, 8, 0, 0, 0, time.UTC)
	articles := fakeArticles{
		"https://news.example/a": {
			Title:     "Disaster kills 33 in 911 blast",
			Authors:   []string{"Jane Roe"},
			Published: &published,
			Text:      "Rescue crews arrived after the blast. More text follows here.",
		},
		"https://news.example/c": {
			Title: "Quiet afternoon in the park",
			Text:  "Nothing happened.",
		},
	}

	p, err := New(Options{
		Feeds:       feeds,
		Articles:    articles,
		Extractor:   x,
		Fallback:    fallback,
		Engine:      buildEngine(t),
		Workers:     2,
		TextPreview: 12,
		Clock:       fixedClock,
	})
	require.NoError(t, err)
	return p
}

func testEntries() []ingest.Entry {
	return []ingest.Entry{
		{Title: "Disaster kills 33 in 911 blast", Link: "https://news.example/a", Source: "World News"},
		{Title: "Broken link story", Link: "https://news.example/b", Source: "World News"},
		{Title: "Quiet afternoon in the park", Link: "https://news.example/c", Source: "Local"},
	}
}

func testExtractor() *fakeExtractor {
	return &fakeExtractor{name: "fake", phrases: map[string][]string{
		"Disaster kills 33 in 911 blast": {"Disaster"},
		"Quiet afternoon in the park":    {"Quiet"},
	}}
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newTestPipeline(t, &fakeFeeds{entries: testEntries()}, testExtractor(), nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, fixedClock(), report.GeneratedAt)
	require.Len(t, report.Items, 2)

	first := report.Items[0]
	assert.Equal(t, "Disaster kills 33 in 911 blast", first.Title)
	assert.Equal(t, "https://news.example/a", first.Link)
	assert.Equal(t, "World News", first.Source)
	assert.Equal(t, []string{"Jane Roe"}, first.Authors)
	assert.Equal(t, "2024-09-11T08:00:00Z", first.Published)
	assert.Equal(t, "Rescue crews", first.Text)
	assert.Equal(t, []string{"Red Cross"}, first.FiveW.Who)
	assert.Len(t, first.Analysis.Matches, cipher.Default().Len())
	assert.Equal(t, []string{"disaster", "blast"}, first.Analysis.Archetypes)
	// 2*1 headline (33) + 5 matches + 1 master day
	assert.Equal(t, 8, first.Analysis.Signature.Score)

	second := report.Items[1]
	assert.Equal(t, "Local", second.Source)
	assert.Empty(t, second.Published)
	assert.Equal(t, "2024-09-11", second.Analysis.Date, "undated articles use the run clock")
	assert.Empty(t, second.Analysis.Matches)

	assert.Equal(t, 2, report.Summary.Articles)
	assert.Equal(t, 1, report.Summary.WithMatches)
	want := float64(first.Analysis.Signature.Score+second.Analysis.Signature.Score) / 2
	assert.InDelta(t, want, report.Summary.AverageScore, 1e-9)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestProcessEntryPrefersArticleTitle(t *testing.T) {
	p := newTestPipeline(t, nil, testExtractor(), nil)

	entry := ingest.Entry{Title: "Breaking: crews respond", Link: "https://news.example/a", Source: "World News"}
	item, err := p.ProcessEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "Disaster kills 33 in 911 blast", item.Title)
	assert.Equal(t, []string{"Disaster"}, item.Analysis.Phrases)
	assert.NotEmpty(t, item.Analysis.Matches)
}

func TestProcessEntryFallsBackToFeedTitle(t *testing.T) {
	p := newTestPipeline(t, nil, testExtractor(), nil)
	p.articles = fakeArticles{"https://news.example/d": {Text: "No title on the page."}}

	entry := ingest.Entry{Title: "Quiet afternoon in the park", Link: "https://news.example/d"}
	item, err := p.ProcessEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "Quiet afternoon in the park", item.Title)
	assert.Equal(t, []string{"Quiet"}, item.Analysis.Phrases)
}

func TestRunNoEntries(t *testing.T) {
	p := newTestPipeline(t, &fakeFeeds{}, testExtractor(), nil)
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestRunFeedError(t *testing.T) {
	p := newTestPipeline(t, &fakeFeeds{err: context.DeadlineExceeded}, testExtractor(), nil)
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunExtractorFallback(t *testing.T) {
	broken := &fakeExtractor{name: "broken", err: errors.New("quota exceeded")}

	p := newTestPipeline(t, &fakeFeeds{entries: testEntries()}, broken, testExtractor())
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.NotEmpty(t, report.Items[0].Analysis.Matches)

	// Without a fallback every article is skipped
	p = newTestPipeline(t, &fakeFeeds{entries: testEntries()}, broken, nil)
	report, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Equal(t, 0, report.Summary.Articles)
}

func TestRunCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newTestPipeline(t, &fakeFeeds{entries: testEntries()}, testExtractor(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeTextMaxPhrases(t *testing.T) {
	x := &fakeExtractor{name: "fake", phrases: map[string][]string{"Title": {"Moon", "Disaster", "Sun"}}}
	p := newTestPipeline(t, nil, x, nil)
	p.maxPhrases = 1

	item, err := p.AnalyzeText(context.Background(), "Title", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Moon"}, item.Analysis.Phrases)
}

func TestClose(t *testing.T) {
	x, fb := testExtractor(), testExtractor()
	p := newTestPipeline(t, nil, x, fb)
	require.NoError(t, p.Close())
	assert.True(t, x.closed)
	assert.True(t, fb.closed)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{Extractor: testExtractor()})
	assert.Error(t, err)
	_, err = New(Options{Engine: buildEngine(t)})
	assert.Error(t, err)

	p, err := New(Options{Engine: buildEngine(t), Extractor: testExtractor()})
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	assert.Error(t, err, "running without feeds must fail")
}

func TestBuildEngine(t *testing.T) {
	cfg := writeReference(t)
	cfg.Engine.Calculators = []string{cipher.EnglishOrdinal}

	e, err := BuildEngine(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{cipher.EnglishOrdinal}, e.Calculators().Names())
	assert.Equal(t, 2, e.Index().Size())

	cfg.Engine.Calculators = []string{"klingon"}
	_, err = BuildEngine(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = writeReference(t)
	cfg.Reference.PhrasesPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = BuildEngine(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewExtractor(t *testing.T) {
	cfg := model.DefaultConfig()

	x, err := NewExtractor(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &extract.Heuristic{}, x)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = server.URL
	x, err = NewExtractor(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &extract.Heuristic{}, x, "unreachable providers fall back to heuristics")

	cfg.LLM.Provider = "unknown"
	_, err = NewExtractor(context.Background(), cfg, nil)
	assert.Error(t, err)
}
