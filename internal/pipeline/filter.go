package pipeline

import (
	"strings"

	"github.com/ppiankov/decode/internal/match"
	"github.com/ppiankov/decode/internal/model"
)

// Filter selects report items for display
type Filter struct {
	MinScore    int
	OnlyMatches bool
	Number      int // keep items with a match of this value; 0 disables
	Query       string
}

// IsZero reports whether the filter keeps everything
func (f Filter) IsZero() bool {
	return f.MinScore <= 0 && !f.OnlyMatches && f.Number == 0 && strings.TrimSpace(f.Query) == ""
}

// Keep reports whether item passes every active condition
func (f Filter) Keep(item model.Item) bool {
	if item.Analysis.Signature.Score < f.MinScore {
		return false
	}
	if f.OnlyMatches && len(item.Analysis.Matches) == 0 {
		return false
	}
	if f.Number != 0 && !match.HasValue(item.Analysis.Matches, f.Number) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(searchText(item), q)
	}
	return true
}

// Apply returns the items that pass the filter, in order
func (f Filter) Apply(items []model.Item) []model.Item {
	out := []model.Item{}
	for _, it := range items {
		if f.Keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// ApplyReport returns a copy of report holding only matching items, with the summary recomputed
func (f Filter) ApplyReport(report *model.Report) *model.Report {
	if f.IsZero() {
		return report
	}
	filtered := *report
	filtered.Items = f.Apply(report.Items)
	filtered.Summary = Summarize(filtered.Items)
	return &filtered
}

// searchText is the lowercased title, source and 5W digest of an item
func searchText(item model.Item) string {
	parts := []string{item.Title, item.Source, item.FiveW.Why}
	parts = append(parts, item.FiveW.Who...)
	parts = append(parts, item.FiveW.What...)
	parts = append(parts, item.FiveW.Where...)
	return strings.ToLower(strings.Join(parts, "\n"))
}
