package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/pipeline"
)

var analyzeOpts struct {
	title    string
	text     string
	textFile string
	date     string
	phrases  []string
	format   string
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single headline offline",
	Long: `Analyze runs the engine over one item without touching the network
(unless an LLM provider is configured for phrase extraction).

Phrases given with --phrase are used as-is; otherwise they are extracted
from the title and text.

Example:
  decode analyze --title "Disaster kills 33 in 911 blast" --date 2024-09-11
  decode analyze --title "Eclipse over Madrid" --text-file article.txt --format markdown
  decode analyze --title "Moon" --phrase "Moon" --phrase "Solar Eclipse"`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeOpts.title, "title", "", "headline to analyze (required)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.text, "text", "", "article body")
	analyzeCmd.Flags().StringVar(&analyzeOpts.textFile, "text-file", "", "read the article body from a file (- for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.date, "date", "", "publication date YYYY-MM-DD (default: today)")
	analyzeCmd.Flags().StringArrayVar(&analyzeOpts.phrases, "phrase", nil, "phrase to decode (repeatable, skips extraction)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.format, "format", "json", "output format (json, markdown)")
	analyzeCmd.Flags().String("phrases", "", "reference phrase database (.json, .yaml, .db)")
	analyzeCmd.Flags().String("archetypes", "", "archetype word list (.json, .yaml)")
	analyzeCmd.Flags().String("llm", "", "LLM provider for phrase extraction (openai)")
	_ = analyzeCmd.MarkFlagRequired("title")
}

var analyzeFlagKeys = map[string]string{
	"phrases":    "reference.phrases_path",
	"archetypes": "reference.archetypes_path",
	"llm":        "llm.provider",
}

// givenPhrases replaces extraction with a fixed phrase list but keeps the 5W digest
type givenPhrases struct {
	pipeline.PhraseExtractor
	phrases []string
}

func (g givenPhrases) Phrases(context.Context, string, string) ([]string, error) {
	return g.phrases, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, analyzeFlagKeys)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	text, err := readText(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var published *time.Time
	if analyzeOpts.date != "" {
		t, err := time.Parse("2006-01-02", analyzeOpts.date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", analyzeOpts.date)
		}
		published = &t
	}

	ctx := cmd.Context()
	eng, err := pipeline.BuildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	extractor, err := pipeline.NewExtractor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if len(analyzeOpts.phrases) > 0 {
		extractor = givenPhrases{PhraseExtractor: extractor, phrases: analyzeOpts.phrases}
	}

	p, err := pipeline.New(pipeline.Options{
		Extractor:   extractor,
		Engine:      eng,
		MaxPhrases:  cfg.Engine.MaxPhrases,
		TextPreview: cfg.Output.TextPreview,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	item, err := p.AnalyzeText(ctx, analyzeOpts.title, text, published)
	if err != nil {
		return err
	}

	return writeItems(cmd.OutOrStdout(), p.NewReport([]model.Item{*item}), analyzeOpts.format, cfg.Engine.TopMatches)
}

func readText(stdin io.Reader) (string, error) {
	switch analyzeOpts.textFile {
	case "":
		return analyzeOpts.text, nil
	case "-":
		data, err := io.ReadAll(stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(analyzeOpts.textFile)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	}
}

// writeItems prints a report's items as JSON or Markdown
func writeItems(w io.Writer, report *model.Report, format string, topMatches int) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(report.Items) == 1 {
			return enc.Encode(report.Items[0])
		}
		return enc.Encode(report)
	case "markdown", "md":
		r := pipeline.NewRenderer(model.OutputConfig{}, topMatches)
		_, err := io.WriteString(w, r.Markdown(report))
		return err
	default:
		return fmt.Errorf("unknown format %q (supported: json, markdown)", format)
	}
}
