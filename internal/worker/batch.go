package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/engine"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/numerology"
)

// Analyzer analyzes one item; *engine.Engine satisfies it
type Analyzer interface {
	Analyze(item engine.Item) (model.Analysis, error)
}

// AnalyzeJob analyzes one item of a batch
type AnalyzeJob struct {
	Index    int
	Item     engine.Item
	Analyzer Analyzer
}

// Execute runs the analysis unless the batch was cancelled
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &AnalyzeResult{Index: j.Index, Item: j.Item, Error: err}
	}
	analysis, err := j.Analyzer.Analyze(j.Item)
	if err != nil {
		return &AnalyzeResult{Index: j.Index, Item: j.Item, Error: err}
	}
	return &AnalyzeResult{Index: j.Index, Item: j.Item, Analysis: &analysis}
}

// AnalyzeResult is the outcome of one AnalyzeJob
type AnalyzeResult struct {
	Index    int
	Item     engine.Item
	Analysis *model.Analysis
	Error    error
}

// GetError returns the analysis error
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many items concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		logger:      logger.Named("batch"),
	}
}

// ProcessItems analyzes items concurrently and returns results in input order
func (b *BatchProcessor) ProcessItems(ctx context.Context, items []engine.Item) []*AnalyzeResult {
	if len(items) == 0 {
		return []*AnalyzeResult{}
	}

	jobs := make([]Job, len(items))
	for i, item := range items {
		jobs[i] = &AnalyzeJob{Index: i, Item: item, Analyzer: b.analyzer}
	}
	results := Run(ctx, b.concurrency, jobs)

	out := make([]*AnalyzeResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*AnalyzeResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	failed := 0
	for _, r := range out {
		if r.Error != nil {
			failed++
			b.logger.Warn("Item analysis failed", zap.String("title", r.Item.Title), zap.Error(r.Error))
		}
	}
	b.logger.Info("Batch complete", zap.Int("items", len(items)), zap.Int("failed", failed))

	return out
}

// itemRecord is the on-disk form of an engine item
type itemRecord struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Text    string   `json:"text"`
	Phrases []string `json:"phrases"`
	Date    string   `json:"date"`
}

// ReadItemsFromFile reads one JSON object per line. Blank lines and lines
// starting with # are skipped; "text" is accepted as an alias for "body".
func ReadItemsFromFile(filePath string) ([]engine.Item, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var items []engine.Item

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item, err := ParseItem([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return items, nil
}

// ParseItem decodes one JSON item
func ParseItem(data []byte) (engine.Item, error) {
	var rec itemRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return engine.Item{}, fmt.Errorf("decode item: %w", err)
	}

	item := engine.Item{
		Title:   rec.Title,
		Body:    rec.Body,
		Phrases: rec.Phrases,
	}
	if item.Body == "" {
		item.Body = rec.Text
	}
	if rec.Date != "" {
		d, err := numerology.ParseDate(rec.Date)
		if err != nil {
			return engine.Item{}, err
		}
		item.Date = &d
	}
	return item, nil
}
