// Package registry assembles the concrete provider set from configuration.
// The set is chosen once at process start; there is no runtime switching.
package registry

import (
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/config"
	"github.com/upb/knowledge-engine/services/providers"
	"github.com/upb/knowledge-engine/services/providers/bing"
	"github.com/upb/knowledge-engine/services/providers/openai"
	"github.com/upb/knowledge-engine/services/providers/serper"
)

// Set holds the providers the engine runs with. Search is nil when web search
// is disabled.
type Set struct {
	Embedding  providers.EmbeddingProvider
	Generation providers.GenerationProvider
	Search     providers.SearchProvider
}

// New builds the provider set from configuration. When the configured search
// provider is serper but no API key is present, it falls back to the keyless
// bing scraper rather than failing startup.
func New(cfg *config.Config, logger *zap.Logger) *Set {
	set := &Set{
		Embedding: openai.NewEmbeddingAdapter(openai.Config{
			APIKey:     cfg.Providers.Embedding.APIKey,
			BaseURL:    cfg.Providers.Embedding.BaseURL,
			Model:      cfg.Providers.Embedding.Model,
			Dimension:  cfg.Providers.Embedding.Dimension,
			Timeout:    cfg.Providers.Embedding.Timeout,
			MaxRetries: cfg.Providers.Embedding.MaxRetries,
			RetryDelay: cfg.Providers.Embedding.RetryDelay,
		}),
		Generation: openai.NewGenerationAdapter(openai.Config{
			APIKey:     cfg.Providers.Generation.APIKey,
			BaseURL:    cfg.Providers.Generation.BaseURL,
			Model:      cfg.Providers.Generation.Model,
			Timeout:    cfg.Providers.Generation.Timeout,
			MaxRetries: cfg.Providers.Generation.MaxRetries,
			RetryDelay: cfg.Providers.Generation.RetryDelay,
		}),
	}

	switch cfg.Providers.Search.Provider {
	case "serper":
		if cfg.Providers.Search.SerperAPIKey == "" {
			logger.Warn("serper selected but SERPER_API_KEY is empty, falling back to bing")
			set.Search = newBing(cfg)
			break
		}
		set.Search = serper.NewAdapter(serper.Config{
			APIKey:      cfg.Providers.Search.SerperAPIKey,
			ResultCount: cfg.Providers.Search.ResultCount,
			Timeout:     cfg.Providers.Search.Timeout,
		})
	case "bing":
		set.Search = newBing(cfg)
	default:
		logger.Info("web search disabled")
	}

	logger.Info("providers configured",
		zap.String("embedding_model", cfg.Providers.Embedding.Model),
		zap.Int("embedding_dimension", cfg.Providers.Embedding.Dimension),
		zap.String("generation_model", cfg.Providers.Generation.Model),
		zap.Bool("search_enabled", set.Search != nil))

	return set
}

func newBing(cfg *config.Config) providers.SearchProvider {
	return bing.NewAdapter(bing.Config{
		ResultCount: cfg.Providers.Search.ResultCount,
		Timeout:     cfg.Providers.Search.Timeout,
	})
}
