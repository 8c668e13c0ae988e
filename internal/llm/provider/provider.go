// Package provider builds the configured language model gateway.
package provider

import (
	"context"
	"fmt"

	"investai/internal/config"
	"investai/internal/llm"
	"investai/internal/llm/gemini"
	"investai/internal/llm/openai"
)

// New returns the llm.Client selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (llm.Client, error) {
	if err := cfg.CheckCredential(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.OpenRouterBaseURL
		}
		return openai.NewClient(cfg.ResolveAPIKey(), cfg.ModelName(), baseURL), nil
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.ResolveAPIKey(), cfg.ModelName(), cfg.BaseURL), nil
	case config.ProviderGemini:
		return gemini.NewClient(ctx, cfg.ResolveAPIKey(), cfg.ModelName())
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
