// Package llmprovider builds the configured generative model client.
package llmprovider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/config"
	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/infrastructure/llmprovider/gemini"
	"github.com/janhq/reno-server/internal/infrastructure/llmprovider/openai"
)

// Provider bundles the guarded chat client with the provider's embedder.
type Provider struct {
	Client   *Guarded
	Embedder llm.Embedder
}

// New builds the provider selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Provider, error) {
	var (
		client   llm.Client
		embedder llm.Embedder
	)
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
		})
		if err != nil {
			return nil, err
		}
		client, embedder = c, c
	case config.ProviderOpenAI:
		c, err := openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, err
		}
		client, embedder = c, c
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}

	log.Info().Str("provider", cfg.LLMProvider).Str("model", client.Model()).Msg("model client ready")
	return &Provider{
		Client: NewGuarded(client, GuardOptions{
			Name:        cfg.LLMProvider,
			MaxFailures: cfg.BreakerMaxFailures,
			Cooldown:    cfg.BreakerCooldown,
			Timeout:     cfg.ModelTimeout,
		}, log),
		Embedder: embedder,
	}, nil
}
