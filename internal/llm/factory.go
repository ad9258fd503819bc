package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/decode/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", config.Provider)
	}
}

// ConfigFromModel converts the application config to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	c := DefaultConfig()
	c.Provider = cfg.LLM.Provider
	c.Model = cfg.LLM.Model
	c.APIKey = cfg.LLM.APIKey
	c.BaseURL = cfg.LLM.BaseURL
	if cfg.LLM.Timeout > 0 {
		c.Timeout = cfg.LLM.Timeout
	}
	if cfg.LLM.MaxTokens > 0 {
		c.MaxTokens = cfg.LLM.MaxTokens
	}
	c.HTTPProxy = cfg.HTTP.HTTPProxy
	c.HTTPSProxy = cfg.HTTP.HTTPSProxy
	c.NoProxy = cfg.HTTP.NoProxy
	return c
}
