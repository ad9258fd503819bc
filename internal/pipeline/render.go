package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/decode/internal/match"
	"github.com/ppiankov/decode/internal/model"
)

// StampLayout is the UTC timestamp in report file names
const StampLayout = "20060102-150405"

// DefaultTopMatches is how many matches an item shows in Markdown
const DefaultTopMatches = 10

// Renderer writes reports as JSON and Markdown files
type Renderer struct {
	dir        string
	json       bool
	markdown   bool
	topMatches int
}

// NewRenderer creates a renderer for the configured output directory and formats
func NewRenderer(cfg model.OutputConfig, topMatches int) *Renderer {
	if topMatches <= 0 {
		topMatches = DefaultTopMatches
	}
	return &Renderer{
		dir:        cfg.Dir,
		json:       cfg.JSON,
		markdown:   cfg.Markdown,
		topMatches: topMatches,
	}
}

// BaseName is report-<UTC stamp> for the report's generation time
func BaseName(report *model.Report) string {
	return "report-" + report.GeneratedAt.UTC().Format(StampLayout)
}

// Write renders every enabled format into the output directory and returns the paths written
func (r *Renderer) Write(report *model.Report) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	base := filepath.Join(r.dir, BaseName(report))
	var paths []string

	if r.json {
		path := base + ".json"
		if err := r.RenderJSON(report, path); err != nil {
			return paths, fmt.Errorf("render JSON: %w", err)
		}
		paths = append(paths, path)
	}
	if r.markdown {
		path := base + ".md"
		if err := r.RenderMarkdown(report, path); err != nil {
			return paths, fmt.Errorf("render markdown: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// RenderMarkdown writes the human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(report)), 0644)
}

// Markdown renders the report body
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Decode report %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Articles: %d\n", report.Summary.Articles)
	fmt.Fprintf(&b, "- With matches: %d\n", report.Summary.WithMatches)
	fmt.Fprintf(&b, "- Average score: %.2f\n\n", report.Summary.AverageScore)

	for i, it := range report.Items {
		r.writeItem(&b, i+1, it)
	}
	return b.String()
}

func (r *Renderer) writeItem(b *strings.Builder, n int, it model.Item) {
	a := it.Analysis

	if it.Link != "" {
		fmt.Fprintf(b, "## %d. [%s](%s)\n\n", n, escapeMarkdown(it.Title), it.Link)
	} else {
		fmt.Fprintf(b, "## %d. %s\n\n", n, escapeMarkdown(it.Title))
	}

	if it.Source != "" {
		fmt.Fprintf(b, "- Source: %s\n", it.Source)
	}
	if len(it.Authors) > 0 {
		fmt.Fprintf(b, "- Authors: %s\n", strings.Join(it.Authors, ", "))
	}
	fmt.Fprintf(b, "- Date: %s", a.Date)
	if a.SunSign != "" {
		fmt.Fprintf(b, " (%s)", a.SunSign)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "- Score: **%d**\n", a.Signature.Score)
	fmt.Fprintf(b, "- Numerology: life path %d, date sum %d, master day %s, palindrome %s\n",
		a.Numerology.LifePath, a.Numerology.DateSum, yesNo(a.Numerology.MasterDay), yesNo(a.Numerology.Palindrome))
	if len(a.Signature.HeadlineNumbers) > 0 {
		fmt.Fprintf(b, "- Headline numbers: %s\n", joinInts(a.Signature.HeadlineNumbers))
	}
	if len(a.Archetypes) > 0 {
		fmt.Fprintf(b, "- Archetypes: %s\n", strings.Join(a.Archetypes, ", "))
	}
	b.WriteString("\n")

	fw := it.FiveW
	if len(fw.Who)+len(fw.What)+len(fw.WhenMentions)+len(fw.Where) > 0 || fw.Why != "" {
		b.WriteString("**5W**\n\n")
		writeList(b, "Who", fw.Who)
		writeList(b, "What", fw.What)
		writeList(b, "When", fw.WhenMentions)
		writeList(b, "Where", fw.Where)
		if fw.Why != "" {
			fmt.Fprintf(b, "- Why: %s\n", escapeMarkdown(fw.Why))
		}
		b.WriteString("\n")
	}

	if len(a.Matches) == 0 {
		b.WriteString("_No cipher matches._\n\n")
		return
	}

	top := match.Top(a.Matches, r.topMatches)
	fmt.Fprintf(b, "**Matches** (%d of %d)\n\n", len(top), len(a.Matches))
	b.WriteString("| Phrase | Reference | Cipher | Value |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, m := range top {
		fmt.Fprintf(b, "| %s | %s | %s | %d |\n",
			escapeTable(m.Phrase), escapeTable(m.DBPhrase), m.Calculator, m.Value)
	}
	b.WriteString("\n")
}

// RenderSummary prints a one-line-per-item overview
func RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "Run %s: %d articles, %d with matches, average score %.2f\n",
		report.RunID, report.Summary.Articles, report.Summary.WithMatches, report.Summary.AverageScore)
	for _, it := range report.Items {
		a := it.Analysis
		fmt.Fprintf(w, "  [%2d] %s  %s  (matches: %d, life path: %d)\n",
			a.Signature.Score, a.Date, it.Title, len(a.Matches), a.Numerology.LifePath)
	}
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(values, ", "))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

var markdownEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeTable(s string) string {
	return strings.ReplaceAll(escapeMarkdown(s), "|", `\|`)
}
