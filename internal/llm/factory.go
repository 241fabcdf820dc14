package llm

import (
	"context"
	"fmt"

	"github.com/truenorth/chartsql/internal/config"
)

// New builds the model client selected by cfg.Provider.
func New(ctx context.Context, cfg config.ModelConfig) (Model, error) {
	switch cfg.Provider {
	case config.ProviderHTTP, "":
		return NewHTTPModel(HTTPConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			JSONMode:    cfg.JSONMode,
		})
	case config.ProviderOpenAI:
		return NewOpenAIModel(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			JSONMode:    cfg.JSONMode,
		})
	case config.ProviderEino:
		return NewEinoModel(ctx, EinoConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			JSONMode:    cfg.JSONMode,
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
