package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pythia/internal/adapters/ai"
	"pythia/internal/domain/market"
	"pythia/internal/domain/session"
	"pythia/internal/domain/usage"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

func newTestLogger() *logger.Logger {
	zapLog, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLog.Sugar()}
}

type stubProvider struct {
	model string
	resp  *ai.ChatResponse
	err   error

	calls  int
	gotReq ai.ChatRequest
}

func (s *stubProvider) Name() string  { return "asi" }
func (s *stubProvider) Model() string { return s.model }

func (s *stubProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	s.calls++
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubUsage struct {
	rows     []*usage.ModelUsage
	storeErr error
}

func (s *stubUsage) Store(_ context.Context, u *usage.ModelUsage) error {
	s.rows = append(s.rows, u)
	return s.storeErr
}

func (s *stubUsage) DailyTokens(context.Context, time.Time) (uint64, error) {
	return 0, nil
}

func (s *stubUsage) ComponentTotals(context.Context, time.Time, time.Time) (map[string]uint64, error) {
	return nil, nil
}

func toolCallResponse(name, args string) *ai.ChatResponse {
	return &ai.ChatResponse{
		ID: "evt-1",
		Choices: []ai.Choice{{
			Message: ai.Message{
				Role: ai.RoleAssistant,
				ToolCalls: []ai.ToolCall{{
					ID:       "call-1",
					Type:     "function",
					Function: ai.FunctionCall{Name: name, Arguments: args},
				}},
			},
			FinishReason: ai.FinishReasonToolCalls,
		}},
		Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func textResponse(text string) *ai.ChatResponse {
	return &ai.ChatResponse{
		ID: "evt-2",
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: text},
			FinishReason: ai.FinishReasonStop,
		}},
		Usage: ai.Usage{PromptTokens: 20, CompletionTokens: 30, TotalTokens: 50},
	}
}

func TestPlan_SelectsToolCall(t *testing.T) {
	provider := &stubProvider{model: "asi1-fast", resp: toolCallResponse("get_markets", `{"limit": 3}`)}
	svc := NewService(provider, nil, 0, newTestLogger())

	plan, err := svc.Plan(context.Background(), "top markets", "s1", session.Context{})
	require.NoError(t, err)
	assert.Equal(t, "get_markets", plan.Tool)
	assert.Equal(t, map[string]interface{}{"limit": float64(3)}, plan.Arguments)

	req := provider.gotReq
	require.Len(t, req.Messages, 2)
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, systemPrompt, req.Messages[0].Content)
	assert.Equal(t, ai.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "top markets", req.Messages[1].Content)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 800, req.MaxTokens)
	assert.Len(t, req.Tools, 7)
}

func TestPlan_FirstToolCallWins(t *testing.T) {
	resp := toolCallResponse("get_markets", `{}`)
	resp.Choices[0].Message.ToolCalls = append(resp.Choices[0].Message.ToolCalls, ai.ToolCall{
		Function: ai.FunctionCall{Name: "get_top_traders_by_pnl", Arguments: `{}`},
	})
	svc := NewService(&stubProvider{model: "asi1-fast", resp: resp}, nil, 0, newTestLogger())

	plan, err := svc.Plan(context.Background(), "markets", "", session.Context{})
	require.NoError(t, err)
	assert.Equal(t, "get_markets", plan.Tool)
}

func TestPlan_ContextHints(t *testing.T) {
	provider := &stubProvider{model: "asi1-fast", resp: toolCallResponse("get_trades_for_condition", `{}`)}
	svc := NewService(provider, nil, 0, newTestLogger())

	sctx := session.Context{LastConditionID: "0xc1", LastTraderAddress: "0xabc"}
	_, err := svc.Plan(context.Background(), "get trades for that market", "s1", sctx)
	require.NoError(t, err)

	want := "get trades for that market" +
		" The user's last-viewed market has conditionId '0xc1'." +
		" The user's last-viewed trader has address '0xabc'."
	assert.Equal(t, want, provider.gotReq.Messages[1].Content)
}

func TestPlan_NoToolCallIsUnsupported(t *testing.T) {
	svc := NewService(&stubProvider{model: "asi1-fast", resp: textResponse("I cannot help with that.")}, nil, 0, newTestLogger())

	plan, err := svc.Plan(context.Background(), "what is love", "", session.Context{})
	require.NoError(t, err)
	assert.Equal(t, ToolUnsupported, plan.Tool)
	assert.NotNil(t, plan.Arguments)
	assert.Empty(t, plan.Arguments)
}

func TestPlan_ArgumentParsing(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    map[string]interface{}
		wantErr bool
	}{
		{name: "object", args: `{"condition_id": "0xc1"}`, want: map[string]interface{}{"condition_id": "0xc1"}},
		{name: "blank is empty map", args: "", want: map[string]interface{}{}},
		{name: "null is empty map", args: "null", want: map[string]interface{}{}},
		{name: "garbage fails", args: "{not json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubProvider{model: "asi1-fast", resp: toolCallResponse("get_markets", tt.args)}, nil, 0, newTestLogger())
			plan, err := svc.Plan(context.Background(), "q", "", session.Context{})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrArgumentParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Arguments)
		})
	}
}

func TestPlan_TransportErrorPropagates(t *testing.T) {
	wantErr := errors.Wrap(errors.ErrExternal, "asi chat request failed")
	svc := NewService(&stubProvider{model: "asi1-fast", err: wantErr}, nil, 0, newTestLogger())

	plan, err := svc.Plan(context.Background(), "q", "", session.Context{})
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, errors.ErrExternal)
}

func TestPlan_RecordsUsage(t *testing.T) {
	usageRepo := &stubUsage{}
	svc := NewService(&stubProvider{model: "asi1-fast", resp: toolCallResponse("get_markets", `{}`)}, usageRepo, 0, newTestLogger())

	_, err := svc.Plan(context.Background(), "q", "sess-9", session.Context{})
	require.NoError(t, err)

	require.Len(t, usageRepo.rows, 1)
	row := usageRepo.rows[0]
	assert.Equal(t, "evt-1", row.EventID)
	assert.Equal(t, "sess-9", row.SessionID)
	assert.Equal(t, "planner", row.Component)
	assert.Equal(t, "asi", row.Provider)
	assert.Equal(t, "asi1-fast", row.Model)
	assert.Equal(t, uint32(10), row.PromptTokens)
	assert.Equal(t, uint32(5), row.CompletionTokens)
	assert.Equal(t, uint32(15), row.TotalTokens)
	assert.Equal(t, uint16(1), row.ToolCalls)
}

func TestPlan_UsageStoreFailureIsIgnored(t *testing.T) {
	usageRepo := &stubUsage{storeErr: errors.New("clickhouse down")}
	svc := NewService(&stubProvider{model: "asi1-fast", resp: toolCallResponse("get_markets", `{}`)}, usageRepo, 0, newTestLogger())

	plan, err := svc.Plan(context.Background(), "q", "", session.Context{})
	require.NoError(t, err)
	assert.Equal(t, "get_markets", plan.Tool)
}

func TestTraderNarrative(t *testing.T) {
	summary := &market.TraderSummary{
		Address:     "0xabc",
		TotalVolume: 1234.5,
		Pnl:         market.PnlBreakdown{AllTime: 88},
		Positions: []market.PositionSummary{
			{MarketTitle: "First", Pnl: 10},
			{MarketTitle: "Second", Pnl: 20},
			{MarketTitle: "Third", Pnl: 30},
			{MarketTitle: "Fourth", Pnl: 40},
		},
		Trades: []map[string]interface{}{
			{"title": "First", "outcome": "Yes", "side": "buy", "size": 5.0},
		},
	}

	provider := &stubProvider{model: "asi1-fast", resp: textResponse("An active, profitable trader.")}
	usageRepo := &stubUsage{}
	svc := NewService(provider, usageRepo, 0, newTestLogger())

	got := svc.TraderNarrative(context.Background(), "s1", summary)
	assert.Equal(t, "An active, profitable trader.", got)

	require.Len(t, provider.gotReq.Messages, 1)
	content := provider.gotReq.Messages[0].Content
	assert.Contains(t, content, "crypto market analyst")
	assert.Contains(t, content, `"address": "0xabc"`)
	assert.Contains(t, content, "Third")
	// Only the top three positions make it into the prompt.
	assert.NotContains(t, content, "Fourth")

	require.Len(t, usageRepo.rows, 1)
	assert.Equal(t, "trader_summary", usageRepo.rows[0].Component)
}

func TestTraderNarrative_Fallbacks(t *testing.T) {
	t.Run("empty summary skips the model", func(t *testing.T) {
		provider := &stubProvider{model: "asi1-fast"}
		svc := NewService(provider, nil, 0, newTestLogger())

		got := svc.TraderNarrative(context.Background(), "s1", &market.TraderSummary{Address: "0xabc"})
		assert.Equal(t, "Not enough data to generate a summary.", got)
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("model failure", func(t *testing.T) {
		svc := NewService(&stubProvider{model: "asi1-fast", err: errors.New("boom")}, nil, 0, newTestLogger())

		got := svc.TraderNarrative(context.Background(), "s1", &market.TraderSummary{TotalVolume: 10})
		assert.Equal(t, "Could not generate AI summary due to an error.", got)
	})

	t.Run("empty model answer", func(t *testing.T) {
		svc := NewService(&stubProvider{model: "asi1-fast", resp: textResponse("")}, nil, 0, newTestLogger())

		got := svc.TraderNarrative(context.Background(), "s1", &market.TraderSummary{TotalVolume: 10})
		assert.Equal(t, "Could not generate summary.", got)
	})
}
