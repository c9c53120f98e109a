// Package providers builds the completion and embedding clients selected by configuration.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tablebite/ordering/internal/config"
	"github.com/tablebite/ordering/internal/embeddings"
	"github.com/tablebite/ordering/internal/googleai"
	"github.com/tablebite/ordering/internal/openai"
	"github.com/tablebite/ordering/internal/service"
	"github.com/tablebite/ordering/internal/vectorstore"
)

// NewCompletionClient returns the chat client for cfg.LLMProvider, or nil when no usable
// credential is configured. Callers treat nil as "LLM features disabled".
func NewCompletionClient(ctx context.Context, cfg *config.Config) (service.CompletionClient, error) {
	key := cfg.LLMAPIKey()
	if !config.HasUsableCredential(key) {
		slog.WarnContext(ctx, "LLM disabled: no usable API key", "provider", cfg.LLMProvider)

		return nil, nil
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return openai.NewClient(key, openai.WithChatModel(cfg.ChatModel)), nil
	case config.ProviderGoogle:
		client, err := googleai.NewClient(ctx, key, googleai.WithChatModel(cfg.ChatModel))
		if err != nil {
			return nil, fmt.Errorf("create google completion client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}

// NewEmbedder returns the embedding client for cfg.EmbeddingProvider. The hashing provider
// runs locally and needs no credential; the others return nil without one.
func NewEmbedder(ctx context.Context, cfg *config.Config) (vectorstore.Embedder, error) {
	if cfg.EmbeddingProvider == config.ProviderHashing {
		return embeddings.NewHashingClient(cfg.EmbeddingDimensions), nil
	}

	key := cfg.EmbeddingAPIKey()
	if !config.HasUsableCredential(key) {
		slog.WarnContext(ctx, "Embeddings disabled: no usable API key", "provider", cfg.EmbeddingProvider)

		return nil, nil
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		return openai.NewClient(key,
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case config.ProviderGoogle:
		client, err := googleai.NewClient(ctx, key,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}
