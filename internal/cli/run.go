package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/pipeline"
)

var (
	runTimeout time.Duration
	runFilter  pipeline.Filter
	noCache    bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode today's headlines from the configured feeds",
	Long: `Run fetches the configured RSS/Atom feeds, parses every fresh article,
extracts phrases and a who/what/when/where/why digest, and analyzes each
article with the gematria and numerology engine.

Reports are written as report-<UTC stamp>.json and .md into the output
directory; a one-line-per-article summary goes to stdout.

Example:
  decode run
  decode run --feed https://feeds.bbci.co.uk/news/world/rss.xml --max-articles 10
  decode run --min-score 3 --only-matches
  decode run --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Feed flags
	runCmd.Flags().StringSlice("feed", nil, "feed URL (repeatable, replaces the configured feeds)")
	runCmd.Flags().Int("max-articles", 0, "maximum articles per run")
	runCmd.Flags().Int("lookback-days", 0, "ignore entries older than this many days")
	runCmd.Flags().Int("workers", 0, "concurrent article workers")

	// Reference flags
	runCmd.Flags().String("phrases", "", "reference phrase database (.json, .yaml, .db)")
	runCmd.Flags().String("archetypes", "", "archetype word list (.json, .yaml)")

	// Output flags
	runCmd.Flags().String("output-dir", "", "report output directory")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")

	// LLM flags
	runCmd.Flags().String("llm", "", "LLM provider for phrase extraction (openai); empty uses heuristics")
	runCmd.Flags().String("llm-model", "", "LLM model name")

	// Filters
	addFilterFlags(runCmd)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&runFilter.MinScore, "min-score", 0, "only report articles scoring at least this much")
	cmd.Flags().BoolVar(&runFilter.OnlyMatches, "only-matches", false, "only report articles with cipher matches")
	cmd.Flags().IntVar(&runFilter.Number, "number", 0, "only report articles with a match of this value")
	cmd.Flags().StringVar(&runFilter.Query, "query", "", "only report articles whose title, source or 5W contain this text")
}

var runFlagKeys = map[string]string{
	"feed":          "feeds.urls",
	"max-articles":  "feeds.max_articles",
	"lookback-days": "feeds.lookback_days",
	"workers":       "concurrency.workers",
	"phrases":       "reference.phrases_path",
	"archetypes":    "reference.archetypes_path",
	"output-dir":    "output.dir",
	"llm":           "llm.provider",
	"llm-model":     "llm.model",
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, runFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if noCache {
		cfg.Cache.Enabled = false
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	p, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	report, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	report = runFilter.ApplyReport(report)

	renderer := pipeline.NewRenderer(cfg.Output, cfg.Engine.TopMatches)
	paths, err := renderer.Write(report)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	for _, path := range paths {
		logger.Info("Wrote report", zap.String("path", path))
	}

	pipeline.RenderSummary(cmd.OutOrStdout(), report)
	if len(report.Items) == 0 {
		fmt.Fprintln(os.Stderr, "No articles passed the filters.")
	}
	return nil
}
