package ai

import (
	"pythia/internal/adapters/config"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

const (
	openaiBaseURL   = "https://api.openai.com/v1"
	deepseekBaseURL = "https://api.deepseek.com/v1"
)

// NewFromConfig builds the chat provider selected by AI_PROVIDER.
// All supported providers speak the OpenAI chat completions format, so
// the switch only picks the base URL, the key and the session header.
func NewFromConfig(cfg config.AIConfig, log *logger.Logger) (*Client, error) {
	clientCfg := ClientConfig{
		Name:      cfg.Provider,
		Model:     cfg.Model,
		Timeout:   cfg.Timeout,
		RateLimit: float64(cfg.RateLimitRPM),
	}

	switch cfg.Provider {
	case config.AIProviderASI:
		clientCfg.BaseURL = cfg.ASIBaseURL
		clientCfg.APIKey = cfg.ASIKey
		clientCfg.SessionHeader = true
	case config.AIProviderOpenAI:
		clientCfg.BaseURL = openaiBaseURL
		clientCfg.APIKey = cfg.OpenAIKey
	case config.AIProviderDeepSeek:
		clientCfg.BaseURL = deepseekBaseURL
		clientCfg.APIKey = cfg.DeepSeekKey
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported AI provider: %s", cfg.Provider)
	}

	if clientCfg.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "API key for provider %s is not set", cfg.Provider)
	}

	return NewClient(clientCfg, log), nil
}
