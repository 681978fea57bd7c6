package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

func newTestLogger() *logger.Logger {
	zapLog, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLog.Sugar()}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, sessionHeader bool) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		Name:          "asi",
		Model:         "asi1-fast",
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		Timeout:       5 * time.Second,
		SessionHeader: sessionHeader,
	}, newTestLogger())

	return client, srv
}

func TestClientChat_ToolCallResponse(t *testing.T) {
	var gotPath, gotAuth, gotSession string
	var gotBody map[string]interface{}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotSession = r.Header.Get("x-session-id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "asi1-fast",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "get_markets", "arguments": "{\"limit\": 5}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 18, "total_tokens": 138}
		}`))
	}, true)

	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a helpful assistant."},
			{Role: RoleUser, Content: "show me the top markets"},
		},
		Tools: []ToolDefinition{{
			Type: "function",
			Function: FunctionDefinition{
				Name:        "get_markets",
				Description: "Fetch a list of markets",
				Parameters:  map[string]interface{}{"type": "object"},
			},
		}},
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.NotEmpty(t, gotSession, "ASI requests should carry an x-session-id header")

	assert.Equal(t, "asi1-fast", gotBody["model"], "empty request model should fall back to client default")
	assert.Equal(t, 0.2, gotBody["temperature"])
	assert.Equal(t, float64(defaultMaxTokens), gotBody["max_tokens"])
	require.Len(t, gotBody["tools"], 1)

	call := resp.FirstToolCall()
	require.NotNil(t, call)
	assert.Equal(t, "get_markets", call.Function.Name)
	assert.JSONEq(t, `{"limit": 5}`, call.Function.Arguments)
	assert.Equal(t, FinishReasonToolCalls, resp.Choices[0].FinishReason)
	assert.Equal(t, 138, resp.Usage.TotalTokens)
}

func TestClientChat_TextResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"model": "asi1-fast",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "A prolific trader with positive PNL."},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 9, "total_tokens": 49}
		}`))
	}, false)

	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "summarize"}},
	})
	require.NoError(t, err)

	assert.Nil(t, resp.FirstToolCall())
	assert.Equal(t, "A prolific trader with positive PNL.", resp.Text())
	assert.Equal(t, FinishReasonStop, resp.Choices[0].FinishReason)
}

func TestClientChat_APIErrorEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}, false)

	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExternal))
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Contains(t, err.Error(), "401")
}

func TestClientChat_NonJSONError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}, false)

	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExternal))
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestClientChat_MissingKey(t *testing.T) {
	client := NewClient(ClientConfig{
		Name:    "asi",
		Model:   "asi1-fast",
		BaseURL: "http://localhost:0",
	}, newTestLogger())

	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestClientChat_NoSessionHeaderForOpenAI(t *testing.T) {
	var gotSession string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get("x-session-id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "model": "m", "choices": [], "usage": {}}`))
	}, false)

	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, gotSession)
}

func TestMapFinishReason(t *testing.T) {
	assert.Equal(t, FinishReasonStop, mapFinishReason("stop"))
	assert.Equal(t, FinishReasonLength, mapFinishReason("length"))
	assert.Equal(t, FinishReasonLength, mapFinishReason("max_tokens"))
	assert.Equal(t, FinishReasonToolCalls, mapFinishReason("tool_calls"))
	assert.Equal(t, FinishReasonToolCalls, mapFinishReason("function_call"))
	assert.Equal(t, FinishReason("content_filter"), mapFinishReason("content_filter"))
}
