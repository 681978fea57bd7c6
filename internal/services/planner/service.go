package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pythia/internal/adapters/ai"
	"pythia/internal/domain/market"
	"pythia/internal/domain/session"
	"pythia/internal/domain/usage"
	"pythia/internal/metrics"
	"pythia/internal/tools"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// ToolUnsupported is the sentinel plan when the model answers without
// calling a tool. The executor turns it into a polite refusal instead of
// surfacing a failure.
const ToolUnsupported = "unsupported"

const systemPrompt = "You are a helpful assistant for Polymarket data retrieval. " +
	"You MUST respond by calling one of the available tools. " +
	"Do not respond conversationally."

const (
	planTemperature = 0.2
	planMaxTokens   = 800
	defaultTimeout  = 60 * time.Second

	componentPlanner       = "planner"
	componentTraderSummary = "trader_summary"
)

// Plan is the single action the model chose for a query. Arguments are the
// parsed tool-call arguments, ready for executor validation.
type Plan struct {
	Tool      string                 `json:"action"`
	Arguments map[string]interface{} `json:"params"`
}

// Service turns natural-language queries into tool plans and runs the
// enrichment chat calls. All model traffic goes through here, so token
// accounting and planner metrics have a single home.
type Service struct {
	provider ai.ChatProvider
	usage    usage.Repository // nil disables accounting
	timeout  time.Duration
	log      *logger.Logger
}

// NewService creates a planner on top of a chat provider. usageRepo may be
// nil when accounting is not wired.
func NewService(provider ai.ChatProvider, usageRepo usage.Repository, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		provider: provider,
		usage:    usageRepo,
		timeout:  timeout,
		log:      log.With("service", "planner"),
	}
}

// Plan asks the model to pick exactly one tool for the query. Session
// context is injected as plain-text hints so follow-ups like "trades for
// that market" resolve. A conversational answer (no tool call) maps to the
// unsupported sentinel; a transport failure propagates to the caller.
func (s *Service) Plan(ctx context.Context, query, sessionID string, sctx session.Context) (*Plan, error) {
	userMsg := query
	if sctx.LastConditionID != "" {
		userMsg += fmt.Sprintf(" The user's last-viewed market has conditionId '%s'.", sctx.LastConditionID)
	}
	if sctx.LastTraderAddress != "" {
		userMsg += fmt.Sprintf(" The user's last-viewed trader has address '%s'.", sctx.LastTraderAddress)
	}

	req := ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: systemPrompt},
			{Role: ai.RoleUser, Content: userMsg},
		},
		Tools:       tools.ChatTools(),
		Temperature: planTemperature,
		MaxTokens:   planMaxTokens,
	}

	resp, err := s.chat(ctx, componentPlanner, sessionID, req)
	if err != nil {
		return nil, err
	}

	call := resp.FirstToolCall()
	if call == nil {
		s.log.Debugf("No tool call in model response, treating query as unsupported")
		return &Plan{Tool: ToolUnsupported, Arguments: map[string]interface{}{}}, nil
	}

	args, err := parseArguments(call.Function.Arguments)
	if err != nil {
		return nil, err
	}
	return &Plan{Tool: call.Function.Name, Arguments: args}, nil
}

// TraderNarrative asks the model for a short narrative over a condensed
// trader summary. It never fails: any problem collapses to a fixed
// fallback sentence, because the narrative only decorates data the caller
// already has.
func (s *Service) TraderNarrative(ctx context.Context, sessionID string, summary *market.TraderSummary) string {
	if summary.Empty() {
		return "Not enough data to generate a summary."
	}

	data, err := json.MarshalIndent(condense(summary), "", "  ")
	if err != nil {
		s.log.Warnf("Failed to encode trader projection: %v", err)
		return "Could not generate AI summary due to an error."
	}

	prompt := "You are a crypto market analyst. " +
		"Summarize the trading activity of the following Polymarket user in a few sentences. " +
		"Mention their profitability (PNL), total volume, and the types of markets they trade in based on their recent activity. " +
		"Trader Data: " + string(data)

	resp, err := s.chat(ctx, componentTraderSummary, sessionID, ai.ChatRequest{
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: prompt}},
		Temperature: planTemperature,
		MaxTokens:   planMaxTokens,
	})
	if err != nil {
		s.log.Errorf("Trader narrative generation failed: %v", err)
		return "Could not generate AI summary due to an error."
	}
	if text := resp.Text(); text != "" {
		return text
	}
	return "Could not generate summary."
}

// chat runs one model call under the service timeout and records it.
func (s *Service) chat(ctx context.Context, component, sessionID string, req ai.ChatRequest) (*ai.ChatResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.provider.Model()
	start := time.Now()
	resp, err := s.provider.Chat(cctx, req)
	latency := time.Since(start)

	metrics.RecordPlannerCall(model, latency, tokensOf(resp), completionTokensOf(resp), err)
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, component, sessionID, model, resp, latency)
	return resp, nil
}

// recordUsage buffers a usage row; accounting is best-effort and never
// fails the call it measures.
func (s *Service) recordUsage(ctx context.Context, component, sessionID, model string, resp *ai.ChatResponse, latency time.Duration) {
	if s.usage == nil {
		return
	}

	eventID := resp.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	toolCalls := 0
	if len(resp.Choices) > 0 {
		toolCalls = len(resp.Choices[0].Message.ToolCalls)
	}

	row := &usage.ModelUsage{
		Timestamp:        time.Now().UTC(),
		EventID:          eventID,
		SessionID:        sessionID,
		Component:        component,
		Provider:         s.provider.Name(),
		Model:            model,
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
		ToolCalls:        uint16(toolCalls),
		LatencyMs:        uint32(latency.Milliseconds()),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.usage.Store(ctx, row); err != nil {
		s.log.Warnf("Failed to record model usage: %v", err)
	}
}

// parseArguments decodes the tool-call argument string. Models omit the
// object entirely for no-argument tools, so blank input is an empty map;
// anything else must be valid JSON.
func parseArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.Wrapf(errors.ErrArgumentParse, "invalid tool arguments %q", raw)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// projection types keep the enrichment prompt small: top three positions
// and trades, one line each.

type traderProjection struct {
	Address         string               `json:"address"`
	TotalVolume     float64              `json:"total_volume"`
	Pnl             float64              `json:"pnl"`
	RecentPositions []positionProjection `json:"recent_positions"`
	RecentTrades    []tradeProjection    `json:"recent_trades"`
}

type positionProjection struct {
	Market string  `json:"market"`
	Pnl    float64 `json:"pnl"`
}

type tradeProjection struct {
	Market  string  `json:"market"`
	Outcome string  `json:"outcome"`
	Side    string  `json:"side"`
	Size    float64 `json:"size"`
}

func condense(s *market.TraderSummary) traderProjection {
	p := traderProjection{
		Address:         s.Address,
		TotalVolume:     s.TotalVolume,
		Pnl:             s.Pnl.AllTime,
		RecentPositions: []positionProjection{},
		RecentTrades:    []tradeProjection{},
	}
	for i, pos := range s.Positions {
		if i == 3 {
			break
		}
		p.RecentPositions = append(p.RecentPositions, positionProjection{
			Market: pos.MarketTitle,
			Pnl:    pos.Pnl,
		})
	}
	for i, t := range s.Trades {
		if i == 3 {
			break
		}
		p.RecentTrades = append(p.RecentTrades, tradeProjection{
			Market:  mapString(t, "title"),
			Outcome: mapString(t, "outcome"),
			Side:    mapString(t, "side"),
			Size:    mapFloat(t, "size"),
		})
	}
	return p
}

func mapString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func mapFloat(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func tokensOf(resp *ai.ChatResponse) int {
	if resp == nil {
		return 0
	}
	return resp.Usage.PromptTokens
}

func completionTokensOf(resp *ai.ChatResponse) int {
	if resp == nil {
		return 0
	}
	return resp.Usage.CompletionTokens
}
