package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/decode/internal/extract"
	"github.com/ppiankov/decode/internal/model"
)

// Provider extracts cipher phrases and a 5W digest from article text
type Provider interface {
	// Name returns the provider name
	Name() string

	// Phrases returns the named entities and title keywords worth decoding
	Phrases(ctx context.Context, title, text string) ([]string, error)

	// FiveW returns the who/what/when/where/why digest
	FiveW(ctx context.Context, title, text string) (model.FiveW, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool

	// Close releases the provider's resources
	Close() error
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for the OpenAI-compatible endpoint
	APIKey string

	// BaseURL for custom endpoints (local gateways, proxies)
	BaseURL string

	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// TextWindow caps the article text sent per request
	TextWindow int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:   "", // Disabled by default
		Timeout:    30 * time.Second,
		MaxTokens:  800,
		TextWindow: extract.PhraseWindow,
	}
}

const systemPrompt = "You extract structured facts from news articles. Reply with a single JSON object and nothing else."

// BuildPhrasesPrompt asks for proper nouns and key title words
func BuildPhrasesPrompt(title, text string) string {
	return fmt.Sprintf(`List the named entities (people, organizations, places, events) and the key words of the headline in this article.

Return JSON: {"phrases": ["..."]}
- Use the spelling found in the article.
- At most %d phrases, most important first.
- No explanations.

Title: %s

Text:
%s`, extract.MaxPhrases, title, text)
}

// BuildFiveWPrompt asks for the who/what/when/where/why digest
func BuildFiveWPrompt(title, text string) string {
	return fmt.Sprintf(`Summarize this article as who/what/when/where/why.

Return JSON: {"who": [], "what": [], "when": [], "where": [], "why": ""}
- "who": up to %d people or organizations
- "what": up to %d keywords describing the event
- "when": up to %d date or time expressions as written in the text
- "where": up to %d places
- "why": one sentence from the text giving the cause, or ""

Title: %s

Text:
%s`, extract.MaxFiveW, extract.MaxWhat, extract.MaxFiveW, extract.MaxFiveW, title, text)
}

type phrasesResponse struct {
	Phrases []string `json:"phrases"`
}

type fiveWResponse struct {
	Who   []string `json:"who"`
	What  []string `json:"what"`
	When  []string `json:"when"`
	Where []string `json:"where"`
	Why   string   `json:"why"`
}

// ParsePhrases decodes a phrases reply, trimming, de-duplicating and capping it
func ParsePhrases(content string) ([]string, error) {
	var resp phrasesResponse
	if err := json.Unmarshal([]byte(stripFence(content)), &resp); err != nil {
		return nil, fmt.Errorf("decode phrases response: %w", err)
	}
	return clean(resp.Phrases, extract.MaxPhrases), nil
}

// ParseFiveW decodes a 5W reply and normalizes the "when" mentions to dates
func ParseFiveW(content string) (model.FiveW, error) {
	var resp fiveWResponse
	if err := json.Unmarshal([]byte(stripFence(content)), &resp); err != nil {
		return model.FiveW{}, fmt.Errorf("decode 5W response: %w", err)
	}

	when := clean(resp.When, extract.MaxFiveW)
	parsed := []string{}
	for _, w := range when {
		if t, err := extract.ParseDateTime(w); err == nil {
			parsed = append(parsed, t.Format("2006-01-02"))
		}
	}

	return model.FiveW{
		Who:          clean(resp.Who, extract.MaxFiveW),
		What:         clean(resp.What, extract.MaxWhat),
		WhenMentions: when,
		WhenParsed:   parsed,
		Where:        clean(resp.Where, extract.MaxFiveW),
		Why:          strings.TrimSpace(resp.Why),
	}, nil
}

// stripFence removes a markdown code fence some models wrap JSON in
func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(content), "```"))
}

func clean(values []string, limit int) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, v := range values {
		v = extract.CollapseSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
