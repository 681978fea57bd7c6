package embeddings

import (
	"pythia/internal/adapters/config"
	"pythia/pkg/errors"
)

// ProviderType defines supported embedding providers
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
)

// NewFromConfig creates an embedding provider from the application config
func NewFromConfig(cfg config.EmbeddingsConfig) (Provider, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Timeout)

	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"unsupported embedding provider: %s", cfg.Provider)
	}
}
