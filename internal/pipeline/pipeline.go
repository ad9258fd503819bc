package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/engine"
	"github.com/ppiankov/decode/internal/extract"
	"github.com/ppiankov/decode/internal/ingest"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/numerology"
	"github.com/ppiankov/decode/internal/worker"
)

// ErrNoEntries is returned when no feed produced a usable entry
var ErrNoEntries = errors.New("no feed entries to analyze")

// PhraseExtractor turns article text into cipher phrases and a 5W digest
type PhraseExtractor interface {
	Name() string
	Phrases(ctx context.Context, title, text string) ([]string, error)
	FiveW(ctx context.Context, title, text string) (model.FiveW, error)
	Close() error
}

// FeedSource yields the entries of a run
type FeedSource interface {
	Entries(ctx context.Context) ([]ingest.Entry, error)
}

// ArticleSource fetches and parses one article
type ArticleSource interface {
	Parse(ctx context.Context, rawURL string) (*extract.Article, error)
}

// Options wires a pipeline
type Options struct {
	Feeds     FeedSource
	Articles  ArticleSource
	Extractor PhraseExtractor
	Fallback  PhraseExtractor // used when Extractor fails; nil disables
	Engine    *engine.Engine
	Workers   int
	// MaxPhrases caps phrases per article; 0 keeps the extractor's limit
	MaxPhrases  int
	TextPreview int
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Pipeline orchestrates the complete run: feeds, articles, extraction, analysis
type Pipeline struct {
	feeds       FeedSource
	articles    ArticleSource
	extractor   PhraseExtractor
	fallback    PhraseExtractor
	engine      *engine.Engine
	workers     int
	maxPhrases  int
	textPreview int
	clock       func() time.Time
	logger      *zap.Logger
}

// New creates a pipeline. Extractor and Engine are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Engine == nil {
		return nil, errors.New("pipeline: engine is required")
	}
	if opts.Extractor == nil {
		return nil, errors.New("pipeline: phrase extractor is required")
	}

	p := &Pipeline{
		feeds:       opts.Feeds,
		articles:    opts.Articles,
		extractor:   opts.Extractor,
		fallback:    opts.Fallback,
		engine:      opts.Engine,
		workers:     opts.Workers,
		maxPhrases:  opts.MaxPhrases,
		textPreview: opts.TextPreview,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
	if p.workers <= 0 {
		p.workers = 4
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.Named("pipeline")
	return p, nil
}

// Run collects feed entries, parses every article and analyzes it.
// Articles that fail to fetch, parse or analyze are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (*model.Report, error) {
	if p.feeds == nil || p.articles == nil {
		return nil, errors.New("pipeline: feeds and article source are required to run")
	}

	started := p.clock()
	entries, err := p.feeds.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	p.logger.Info("Processing articles", zap.Int("entries", len(entries)), zap.Int("workers", p.workers))

	jobs := make([]worker.Job, len(entries))
	for i, entry := range entries {
		jobs[i] = &articleJob{index: i, entry: entry, pipeline: p}
	}
	results := worker.Run(ctx, p.workers, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].(*articleResult).index < results[j].(*articleResult).index
	})

	items := make([]model.Item, 0, len(results))
	for _, r := range results {
		res := r.(*articleResult)
		if res.err != nil {
			p.logger.Warn("Skipping article", zap.String("link", res.entry.Link), zap.Error(res.err))
			continue
		}
		items = append(items, *res.item)
	}

	report := p.NewReport(items)
	p.logger.Info("Run complete",
		zap.String("run_id", report.RunID),
		zap.Int("articles", report.Summary.Articles),
		zap.Int("with_matches", report.Summary.WithMatches),
		zap.Duration("elapsed", p.clock().Sub(started)),
	)
	return report, nil
}

// NewReport wraps analyzed items in a report with a fresh run ID
func (p *Pipeline) NewReport(items []model.Item) *model.Report {
	if items == nil {
		items = []model.Item{}
	}
	return &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: p.clock().UTC(),
		Items:       items,
		Summary:     Summarize(items),
	}
}

// ProcessEntry fetches, extracts and analyzes one feed entry
func (p *Pipeline) ProcessEntry(ctx context.Context, entry ingest.Entry) (*model.Item, error) {
	article, err := p.articles.Parse(ctx, entry.Link)
	if err != nil {
		return nil, err
	}

	// The parsed page title is usually more complete than the feed's
	title := article.Title
	if title == "" {
		title = entry.Title
	}

	published := article.Published
	if published == nil {
		published = entry.Published
	}

	item, err := p.AnalyzeText(ctx, title, article.Text, published)
	if err != nil {
		return nil, err
	}
	item.Link = entry.Link
	item.Source = entry.Source
	item.Authors = article.Authors
	return item, nil
}

// AnalyzeText extracts phrases and 5W from text and runs the engine.
// A nil published time analyzes the run date.
func (p *Pipeline) AnalyzeText(ctx context.Context, title, text string, published *time.Time) (*model.Item, error) {
	phrases, fiveW, err := p.extract(ctx, title, text)
	if err != nil {
		return nil, err
	}
	if p.maxPhrases > 0 && len(phrases) > p.maxPhrases {
		phrases = phrases[:p.maxPhrases]
	}

	date := numerology.FromTime(p.clock())
	item := &model.Item{
		ID:    uuid.NewString(),
		Title: title,
		FiveW: fiveW,
	}
	if published != nil {
		date = numerology.FromTime(*published)
		item.Published = published.Format(time.RFC3339)
	}
	if p.textPreview > 0 {
		item.Text = extract.Truncate(text, p.textPreview)
	}

	analysis, err := p.engine.Analyze(engine.Item{Title: title, Body: text, Phrases: phrases, Date: &date})
	if err != nil {
		return nil, err
	}
	item.Analysis = analysis
	return item, nil
}

func (p *Pipeline) extract(ctx context.Context, title, text string) ([]string, model.FiveW, error) {
	phrases, fiveW, err := runExtractor(ctx, p.extractor, title, text)
	if err == nil || p.fallback == nil || ctx.Err() != nil {
		return phrases, fiveW, err
	}

	p.logger.Warn("Extractor failed, using fallback",
		zap.String("extractor", p.extractor.Name()),
		zap.String("fallback", p.fallback.Name()),
		zap.Error(err),
	)
	return runExtractor(ctx, p.fallback, title, text)
}

func runExtractor(ctx context.Context, x PhraseExtractor, title, text string) ([]string, model.FiveW, error) {
	phrases, err := x.Phrases(ctx, title, text)
	if err != nil {
		return nil, model.FiveW{}, fmt.Errorf("%s phrases: %w", x.Name(), err)
	}
	fiveW, err := x.FiveW(ctx, title, text)
	if err != nil {
		return nil, model.FiveW{}, fmt.Errorf("%s 5W: %w", x.Name(), err)
	}
	return phrases, fiveW, nil
}

// Close releases the extractors
func (p *Pipeline) Close() error {
	err := p.extractor.Close()
	if p.fallback != nil {
		err = errors.Join(err, p.fallback.Close())
	}
	return err
}

// Summarize counts items, items with matches and the mean score
func Summarize(items []model.Item) model.Summary {
	s := model.Summary{Articles: len(items)}
	if len(items) == 0 {
		return s
	}
	total := 0
	for _, it := range items {
		if len(it.Analysis.Matches) > 0 {
			s.WithMatches++
		}
		total += it.Analysis.Signature.Score
	}
	s.AverageScore = float64(total) / float64(len(items))
	return s
}

type articleJob struct {
	index    int
	entry    ingest.Entry
	pipeline *Pipeline
}

func (j *articleJob) Execute(ctx context.Context) worker.Result {
	item, err := j.pipeline.ProcessEntry(ctx, j.entry)
	return &articleResult{index: j.index, entry: j.entry, item: item, err: err}
}

type articleResult struct {
	index int
	entry ingest.Entry
	item  *model.Item
	err   error
}

func (r *articleResult) GetError() error {
	return r.err
}
