package model

import "time"

// Report is the output of one decode run
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Items       []Item    `json:"items"`
	Summary     Summary   `json:"summary"`
}

// Item is a single analyzed article together with its source metadata
type Item struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Link      string   `json:"link,omitempty"`
	Source    string   `json:"source,omitempty"`
	Published string   `json:"published,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	FiveW     FiveW    `json:"five_w"`
	Text      string   `json:"text,omitempty"` // Preview only, truncated
	Analysis  Analysis `json:"analysis"`
}

// FiveW is the who/what/when/where/why digest of an article
type FiveW struct {
	Who          []string `json:"who"`
	What         []string `json:"what"`
	WhenMentions []string `json:"when_mentions"`
	WhenParsed   []string `json:"when_parsed"`
	Where        []string `json:"where"`
	Why          string   `json:"why,omitempty"`
}

// Summary aggregates a report's items
type Summary struct {
	Articles     int     `json:"articles"`
	WithMatches  int     `json:"with_matches"`
	AverageScore float64 `json:"average_score"`
}

// Signal describes one term of the ritual score with its raw inputs
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formula and inputs
}

// SignalType classifies a scoring signal
type SignalType string

const (
	SignalHeadlineNumbers SignalType = "headline_numbers"
	SignalCipherMatches   SignalType = "cipher_matches"
	SignalMasterDay       SignalType = "master_day"
	SignalLifePath        SignalType = "life_path"
	SignalPalindromeDate  SignalType = "palindrome_date"
)

// SignalSeverity indicates how much a signal contributed
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityNotable  SignalSeverity = "notable"
	SeverityStriking SignalSeverity = "striking"
)
