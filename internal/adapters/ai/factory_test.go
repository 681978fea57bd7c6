package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythia/internal/adapters/config"
	"pythia/pkg/errors"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.AIConfig
		wantBaseURL string
		wantErr     bool
	}{
		{
			name: "asi provider",
			cfg: config.AIConfig{
				Provider:   config.AIProviderASI,
				Model:      "asi1-fast",
				ASIKey:     "key",
				ASIBaseURL: "https://api.asi1.ai/v1",
				Timeout:    60 * time.Second,
			},
			wantBaseURL: "https://api.asi1.ai/v1",
		},
		{
			name: "openai provider",
			cfg: config.AIConfig{
				Provider:  config.AIProviderOpenAI,
				Model:     "gpt-4o-mini",
				OpenAIKey: "key",
			},
			wantBaseURL: openaiBaseURL,
		},
		{
			name: "deepseek provider",
			cfg: config.AIConfig{
				Provider:    config.AIProviderDeepSeek,
				Model:       "deepseek-chat",
				DeepSeekKey: "key",
			},
			wantBaseURL: deepseekBaseURL,
		},
		{
			name:    "unknown provider",
			cfg:     config.AIConfig{Provider: "mystery", ASIKey: "key"},
			wantErr: true,
		},
		{
			name:    "missing key",
			cfg:     config.AIConfig{Provider: config.AIProviderASI},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewFromConfig(tt.cfg, newTestLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Provider, client.Name())
			assert.Equal(t, tt.cfg.Model, client.Model())
			assert.Equal(t, tt.wantBaseURL, client.baseURL)
		})
	}
}

func TestNewFromConfig_SessionHeaderOnlyForASI(t *testing.T) {
	asi, err := NewFromConfig(config.AIConfig{
		Provider:   config.AIProviderASI,
		ASIKey:     "key",
		ASIBaseURL: "https://api.asi1.ai/v1",
	}, newTestLogger())
	require.NoError(t, err)
	assert.True(t, asi.sessionHeader)

	openai, err := NewFromConfig(config.AIConfig{
		Provider:  config.AIProviderOpenAI,
		OpenAIKey: "key",
	}, newTestLogger())
	require.NoError(t, err)
	assert.False(t, openai.sessionHeader)
}
