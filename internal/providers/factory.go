package providers

import (
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/coopco/toolchat/internal/config"
)

// DefaultModel returns the model the named provider uses when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openai", "openai-compat":
		return openai.GPT4oMini
	case "anthropic":
		return defaultAnthropicModel
	default:
		return DefaultOllamaModel
	}
}

// New builds the provider selected by cfg.Provider.
func New(cfg config.InferenceConfig) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, timeout), nil
	case "openai", "openai-compat":
		return NewOpenAICompatProviderWithTimeout(cfg.APIKey, cfg.BaseURL, cfg.Model, timeout), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q (want ollama, openai or anthropic)", cfg.Provider)
	}
}
