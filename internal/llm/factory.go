package llm

import (
	"context"
	"fmt"

	"github.com/idem-lexis/lexis-api/config"
)

// NewFromConfig builds the client for the configured provider.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	var p Provider
	switch cfg.Provider {
	case "gemini":
		g, err := NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		p = g
	case "deepseek":
		p = NewDeepseekProvider(cfg.DeepseekBaseURL, cfg.DeepseekAPIKey, cfg.DeepseekModel, cfg.Timeout)
	case "openrouter":
		p = NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterSiteURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return NewClient(p, WithRateLimit(cfg.RequestsPerSecond, cfg.Burst)), nil
}
