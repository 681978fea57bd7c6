// Package agent is the tool executor: it turns a planned action into an
// upstream call, keeps the conversational session context current, and
// renders the result for the requested output format.
package agent

import (
	"context"
	"fmt"
	"time"

	"pythia/internal/domain/market"
	"pythia/internal/domain/session"
	"pythia/internal/format"
	"pythia/internal/metrics"
	"pythia/internal/services/planner"
	"pythia/internal/tools"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// Output formats accepted by AskRequest.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	// enrichTimeout bounds the secondary AI-summary call independently of
	// the request deadline, so a slow narrative cannot starve the response
	// the caller already earned.
	enrichTimeout = 60 * time.Second

	unsupportedText   = "Sorry, I can't answer that question."
	unsupportedResult = "Query not supported by available tools."

	argumentParseText = "Failed to parse tool arguments from AI."
)

// Planner resolves a free-form query to exactly one planned action and
// generates the optional trader narrative.
type Planner interface {
	Plan(ctx context.Context, query, sessionID string, sctx session.Context) (*planner.Plan, error)
	TraderNarrative(ctx context.Context, sessionID string, summary *market.TraderSummary) string
}

// Upstream is the read-only Polymarket data surface the executor dispatches
// against.
type Upstream interface {
	Markets(ctx context.Context, q market.Query) ([]market.Market, error)
	TradesForCondition(ctx context.Context, conditionID string, limit int) ([]map[string]interface{}, error)
	OrderBook(ctx context.Context, marketID string) (market.OrderBook, string)
	TopHolders(ctx context.Context, conditionID string) (market.HolderBoard, error)
	TopTradersByPnl(ctx context.Context) ([]market.TraderPnlAggregate, error)
	TraderSummary(ctx context.Context, address string) *market.TraderSummary
	ClosedPositions(ctx context.Context, address string) ([]map[string]interface{}, error)
}

// Sessions is the conversational memory the executor reads before planning
// and writes back after successful execution.
type Sessions interface {
	Context(ctx context.Context, sessionID string) (session.Context, error)
	RememberMarkets(ctx context.Context, sessionID string, markets []market.Market) error
	RememberCondition(ctx context.Context, sessionID, conditionID string) error
	RememberTrader(ctx context.Context, sessionID, address string) error
	Clear(ctx context.Context, sessionID string) error
}

// AskRequest is one conversational query. An empty SessionID makes the
// request stateless: no context is read or written.
type AskRequest struct {
	Query     string
	SessionID string
	Execute   bool
	Format    string
}

// AskResponse is the in-band outcome of a query. Exactly one of Result,
// Error or Plan is set; failures the user can act on (bad arguments,
// unsupported queries) are carried in Error rather than as Go errors.
type AskResponse struct {
	Result interface{}
	Error  string
	Plan   *planner.Plan
}

// Service executes planned actions against the upstream client.
type Service struct {
	planner  Planner
	upstream Upstream
	sessions Sessions
	log      *logger.Logger
}

// NewService creates the tool executor.
func NewService(p Planner, u Upstream, s Sessions, log *logger.Logger) *Service {
	return &Service{
		planner:  p,
		upstream: u,
		sessions: s,
		log:      log.With("service", "agent"),
	}
}

// Ask runs the full pipeline: session lookup, planning, validation,
// execution, context write-back and formatting. A Go error return means
// the planner transport or a fail-hard upstream call failed; every other
// failure is reported in-band.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	sctx := session.Context{}
	if req.SessionID != "" {
		loaded, err := s.sessions.Context(ctx, req.SessionID)
		if err != nil {
			s.log.Warnf("Session lookup failed for %s: %v", req.SessionID, err)
		} else {
			sctx = loaded
		}
	}

	plan, err := s.planner.Plan(ctx, req.Query, req.SessionID, sctx)
	if err != nil {
		if errors.Is(err, errors.ErrArgumentParse) {
			s.log.Warnf("Tool argument parse failed: %v", err)
			return &AskResponse{Error: argumentParseText}, nil
		}
		return nil, errors.Wrap(err, "planner call failed")
	}

	if !req.Execute {
		return &AskResponse{Plan: plan}, nil
	}

	start := time.Now()
	resp, execErr := s.execute(ctx, req, plan)
	metrics.RecordAgentRequest(plan.Tool, time.Since(start), execErr)
	if execErr != nil {
		return nil, execErr
	}
	return resp, nil
}

// ClearSession drops the stored context for a session id.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}

// execute validates and dispatches one planned action. Validation failures
// and unknown tools come back in-band; upstream failures of fail-hard tools
// (markets, trades, holders, traders) propagate as Go errors.
func (s *Service) execute(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	if plan.Tool == planner.ToolUnsupported {
		if req.Format == FormatJSON {
			return &AskResponse{Result: map[string]interface{}{"error": unsupportedResult}}, nil
		}
		return &AskResponse{Result: unsupportedText}, nil
	}

	if _, ok := tools.Lookup(plan.Tool); !ok {
		return &AskResponse{Error: fmt.Sprintf("Unknown tool: %s", plan.Tool)}, nil
	}
	for _, field := range tools.Required(plan.Tool) {
		if argString(plan.Arguments, field) == "" {
			return &AskResponse{Error: fmt.Sprintf("%s is required for %s.", field, plan.Tool)}, nil
		}
	}

	switch plan.Tool {
	case tools.ToolGetMarkets:
		return s.runGetMarkets(ctx, req, plan)
	case tools.ToolGetTrades:
		return s.runGetTrades(ctx, req, plan)
	case tools.ToolGetTraderDetails:
		return s.runTraderDetails(ctx, req, plan)
	case tools.ToolGetOrderBook:
		return s.runOrderBook(ctx, req, plan)
	case tools.ToolGetTopHolders:
		return s.runTopHolders(ctx, req, plan)
	case tools.ToolGetTopTraders:
		return s.runTopTraders(ctx, req)
	case tools.ToolGetClosedPositions:
		return s.runClosedPositions(ctx, req, plan)
	}
	// Unreachable while the catalog and this switch stay in step.
	return &AskResponse{Error: fmt.Sprintf("Unknown tool: %s", plan.Tool)}, nil
}

func (s *Service) runGetMarkets(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	limit := argInt(plan.Arguments, "limit", 5)
	markets, err := s.upstream.Markets(ctx, market.Query{Limit: limit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch markets")
	}

	if req.SessionID != "" && len(markets) > 0 {
		if err := s.sessions.RememberMarkets(ctx, req.SessionID, markets); err != nil {
			s.log.Warnf("Session write-back failed: %v", err)
		}
	}
	return s.render(req, markets, format.Markets(markets)), nil
}

func (s *Service) runGetTrades(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	conditionID := argString(plan.Arguments, "condition_id")
	limit := argInt(plan.Arguments, "limit", 100)

	trades, err := s.upstream.TradesForCondition(ctx, conditionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch trades")
	}

	s.rememberCondition(ctx, req.SessionID, conditionID)
	return s.render(req, trades, format.Trades(trades)), nil
}

func (s *Service) runTraderDetails(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	address := argString(plan.Arguments, "address")

	summary := s.upstream.TraderSummary(ctx, address)
	s.rememberTrader(ctx, req.SessionID, address)

	if req.Format == FormatJSON {
		return &AskResponse{Result: summary}, nil
	}

	text := format.TraderDetails(summary)
	nctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()
	narrative := s.planner.TraderNarrative(nctx, req.SessionID, summary)
	return &AskResponse{Result: text + "\n\nAI Summary:\n" + narrative}, nil
}

func (s *Service) runOrderBook(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	marketID := argString(plan.Arguments, "market_id")

	book, conditionID := s.upstream.OrderBook(ctx, marketID)
	s.rememberCondition(ctx, req.SessionID, conditionID)
	return s.render(req, book, format.OrderBook(book)), nil
}

func (s *Service) runTopHolders(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	conditionID := argString(plan.Arguments, "condition_id")

	board, err := s.upstream.TopHolders(ctx, conditionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch top holders")
	}

	s.rememberCondition(ctx, req.SessionID, conditionID)
	return s.render(req, board, format.TopHolders(board)), nil
}

func (s *Service) runTopTraders(ctx context.Context, req AskRequest) (*AskResponse, error) {
	traders, err := s.upstream.TopTradersByPnl(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch top traders")
	}
	return s.render(req, traders, format.TopTraders(traders)), nil
}

func (s *Service) runClosedPositions(ctx context.Context, req AskRequest, plan *planner.Plan) (*AskResponse, error) {
	address := argString(plan.Arguments, "address")

	positions, err := s.upstream.ClosedPositions(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch closed positions")
	}

	s.rememberTrader(ctx, req.SessionID, address)
	return s.render(req, positions, format.ClosedPositions(positions)), nil
}

func (s *Service) render(req AskRequest, structured interface{}, text string) *AskResponse {
	if req.Format == FormatJSON {
		return &AskResponse{Result: structured}
	}
	return &AskResponse{Result: text}
}

func (s *Service) rememberCondition(ctx context.Context, sessionID, conditionID string) {
	if sessionID == "" || conditionID == "" {
		return
	}
	if err := s.sessions.RememberCondition(ctx, sessionID, conditionID); err != nil {
		s.log.Warnf("Session write-back failed: %v", err)
	}
}

func (s *Service) rememberTrader(ctx context.Context, sessionID, address string) {
	if sessionID == "" || address == "" {
		return
	}
	if err := s.sessions.RememberTrader(ctx, sessionID, address); err != nil {
		s.log.Warnf("Session write-back failed: %v", err)
	}
}

// argString reads a string argument; non-strings read as absent.
func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// argInt reads a numeric argument. JSON numbers decode as float64 but some
// models quote them, so numeric strings count too.
func argInt(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return def
}
