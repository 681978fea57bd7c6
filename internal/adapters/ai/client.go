package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// defaultMaxTokens bounds completions when the request leaves MaxTokens unset.
const defaultMaxTokens = 800

// ClientConfig configures a chat completion client.
type ClientConfig struct {
	// Name is the provider identifier ("asi", "openai", "deepseek").
	Name string

	// Model is the default model when ChatRequest.Model is empty.
	Model string

	// BaseURL is the API root, e.g. "https://api.asi1.ai/v1".
	BaseURL string

	// APIKey is the bearer token. Chat fails when empty.
	APIKey string

	// Timeout bounds a single request end to end.
	Timeout time.Duration

	// SessionHeader sends a fresh x-session-id UUID with each request.
	// ASI uses it to correlate calls server-side.
	SessionHeader bool

	// RateLimit is the request budget per minute. Zero disables limiting.
	RateLimit float64
}

// Client talks to any OpenAI-compatible chat completions API. ASI, OpenAI
// and DeepSeek all speak the same wire format, so one implementation
// serves all three.
type Client struct {
	name          string
	model         string
	baseURL       string
	apiKey        string
	sessionHeader bool
	limiter       RateLimiter
	httpClient    *http.Client
	log           *logger.Logger
}

// NewClient creates a chat completion client for an OpenAI-compatible API.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var limiter RateLimiter = NewNoOpLimiter()
	if cfg.RateLimit > 0 {
		limiter = NewTokenBucketLimiter(cfg.Name, cfg.RateLimit, 0)
	}

	return &Client{
		name:          cfg.Name,
		model:         cfg.Model,
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		sessionHeader: cfg.SessionHeader,
		limiter:       limiter,
		httpClient:    &http.Client{Timeout: timeout},
		log:           log.With("component", "ai_client", "provider", cfg.Name),
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return c.name }

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// wire request/response types for the OpenAI chat completions format.

type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type wireErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Chat sends a completion request and returns the parsed response.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s API key is not configured", c.name)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{Provider: c.name, Limit: c.limiter.Limit(), Err: err}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(wireRequest{
		Model:       model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.sessionHeader {
		httpReq.Header.Set("x-session-id", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s chat request failed", c.name)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chat response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr wireErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, errors.Wrapf(errors.ErrExternal, "%s API error (%d): %s - %s",
				c.name, resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, errors.Wrapf(errors.ErrExternal, "%s API error (%d): %s",
			c.name, resp.StatusCode, truncate(string(respBody), 200))
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s chat response", c.name)
	}

	out := &ChatResponse{
		ID:      wire.ID,
		Model:   wire.Model,
		Choices: make([]Choice, 0, len(wire.Choices)),
		Usage:   wire.Usage,
	}
	for _, ch := range wire.Choices {
		out.Choices = append(out.Choices, Choice{
			Index:        ch.Index,
			Message:      ch.Message,
			FinishReason: mapFinishReason(ch.FinishReason),
		})
	}

	c.log.Debugf("Chat completed: model=%s tokens=%d latency=%s",
		model, wire.Usage.TotalTokens, time.Since(start).Round(time.Millisecond))

	return out, nil
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop":
		return FinishReasonStop
	case "length", "max_tokens":
		return FinishReasonLength
	case "tool_calls", "function_call":
		return FinishReasonToolCalls
	default:
		return FinishReason(reason)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
