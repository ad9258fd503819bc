package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/decode/internal/extract"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/util"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible chat APIs
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
		clientConfig.HTTPClient = &http.Client{Transport: transport}
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Close is a no-op; the HTTP client holds no per-provider state
func (p *OpenAIProvider) Close() error {
	return nil
}

// Phrases asks the model for decodable phrases
func (p *OpenAIProvider) Phrases(ctx context.Context, title, text string) ([]string, error) {
	content, err := p.complete(ctx, BuildPhrasesPrompt(title, p.window(text)))
	if err != nil {
		return nil, err
	}
	return ParsePhrases(content)
}

// FiveW asks the model for a who/what/when/where/why digest
func (p *OpenAIProvider) FiveW(ctx context.Context, title, text string) (model.FiveW, error) {
	content, err := p.complete(ctx, BuildFiveWPrompt(title, p.window(text)))
	if err != nil {
		return model.FiveW{}, err
	}
	return ParseFiveW(content)
}

func (p *OpenAIProvider) window(text string) string {
	n := p.config.TextWindow
	if n <= 0 {
		n = extract.PhraseWindow
	}
	return extract.Truncate(text, n)
}

// complete runs one JSON-mode chat completion
func (p *OpenAIProvider) complete(ctx context.Context, prompt string) (string, error) {
	modelName := p.config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}

	timeout := p.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2, // Low temperature for stable extraction
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
