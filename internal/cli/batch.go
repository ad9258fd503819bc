package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/engine"
	"github.com/ppiankov/decode/internal/extract"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/pipeline"
	"github.com/ppiankov/decode/internal/worker"
)

var (
	batchTimeout time.Duration
	batchFormat  string
	batchWrite   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze items from a JSON-lines file in parallel",
	Long: `Batch analyzes offline items concurrently:
- Read items from the input file, one JSON object per line:
    {"title": "...", "text": "...", "date": "2024-09-11", "phrases": ["..."]}
- Items without phrases get them extracted from title and text
- Results keep input order; failed items are reported and skipped

Example:
  decode batch items.jsonl
  decode batch items.jsonl --workers 8 --write
  decode batch items.jsonl --only-matches --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("workers", 0, "number of concurrent workers")
	batchCmd.Flags().String("output-dir", "", "report output directory (with --write)")
	batchCmd.Flags().String("phrases", "", "reference phrase database (.json, .yaml, .db)")
	batchCmd.Flags().String("archetypes", "", "archetype word list (.json, .yaml)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "stdout format (json, markdown)")
	batchCmd.Flags().BoolVar(&batchWrite, "write", false, "also write report files to the output directory")
	addFilterFlags(batchCmd)
}

var batchFlagKeys = map[string]string{
	"workers":    "concurrency.workers",
	"output-dir": "output.dir",
	"phrases":    "reference.phrases_path",
	"archetypes": "reference.archetypes_path",
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, err := setup(cmd, batchFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	eng, err := pipeline.BuildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	items, err := worker.ReadItemsFromFile(file)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	if err := fillPhrases(ctx, extract.NewHeuristic(), items, cfg.Engine.MaxPhrases); err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(eng, cfg.Concurrency.Workers, logger)
	results := processor.ProcessItems(ctx, items)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	report := batchReport(results, cfg.Output.TextPreview)
	failed := len(results) - len(report.Items)
	report = runFilter.ApplyReport(report)

	if batchWrite {
		paths, err := pipeline.NewRenderer(cfg.Output, cfg.Engine.TopMatches).Write(report)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		for _, path := range paths {
			logger.Info("Wrote report", zap.String("path", path))
		}
	}

	if err := writeItems(cmd.OutOrStdout(), report, batchFormat, cfg.Engine.TopMatches); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Batch complete: %d items, %d failed, %d reported\n", len(results), failed, len(report.Items))
	return nil
}

// fillPhrases extracts phrases for items that carry none
func fillPhrases(ctx context.Context, x pipeline.PhraseExtractor, items []engine.Item, limit int) error {
	for i := range items {
		if len(items[i].Phrases) > 0 {
			continue
		}
		phrases, err := x.Phrases(ctx, items[i].Title, items[i].Body)
		if err != nil {
			return fmt.Errorf("extract phrases for %q: %w", items[i].Title, err)
		}
		if limit > 0 && len(phrases) > limit {
			phrases = phrases[:limit]
		}
		items[i].Phrases = phrases
	}
	return nil
}

// batchReport keeps the successful results in input order
func batchReport(results []*worker.AnalyzeResult, preview int) *model.Report {
	items := []model.Item{}
	for _, r := range results {
		if r.Error != nil || r.Analysis == nil {
			continue
		}
		items = append(items, model.Item{
			ID:       uuid.NewString(),
			Title:    r.Item.Title,
			Text:     extract.Truncate(r.Item.Body, preview),
			Analysis: *r.Analysis,
		})
	}
	return &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: timeNow().UTC(),
		Items:       items,
		Summary:     pipeline.Summarize(items),
	}
}
