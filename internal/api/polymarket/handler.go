// Package polymarket exposes the normalized upstream data surface as thin
// GET routes, useful for dashboards and debugging without going through
// the conversational agent.
package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	upstream "pythia/internal/adapters/polymarket"
	"pythia/internal/domain/market"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// Client is the upstream data surface these routes mirror.
type Client interface {
	Markets(ctx context.Context, q market.Query) ([]market.Market, error)
	Events(ctx context.Context, q market.Query) ([]market.Event, error)
	MarketsAboveVolume(ctx context.Context, minVolume float64) ([]market.Market, error)
	TradesForCondition(ctx context.Context, conditionID string, limit int) ([]map[string]interface{}, error)
	OrderBook(ctx context.Context, marketID string) (market.OrderBook, string)
	TopHolders(ctx context.Context, conditionID string) (market.HolderBoard, error)
	TopTradersByPnl(ctx context.Context) ([]market.TraderPnlAggregate, error)
	TraderSummary(ctx context.Context, address string) *market.TraderSummary
	ClosedPositions(ctx context.Context, address string) ([]map[string]interface{}, error)
}

// Intelligence produces market analysis reports.
type Intelligence interface {
	Analyze(ctx context.Context, conditionID string) (market.IntelligenceReport, error)
}

// Handler serves /polymarket/*.
type Handler struct {
	client       Client
	intelligence Intelligence // nil disables /polymarket/intelligence
	log          *logger.Logger
}

// New creates the passthrough handler.
func New(client Client, intelligence Intelligence, log *logger.Logger) *Handler {
	return &Handler{client: client, intelligence: intelligence, log: log}
}

// Register mounts the passthrough routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /polymarket/markets", h.HandleMarkets)
	mux.HandleFunc("GET /polymarket/events", h.HandleEvents)
	mux.HandleFunc("GET /polymarket/markets/above-volume", h.HandleMarketsAboveVolume)
	mux.HandleFunc("GET /polymarket/trades", h.HandleTrades)
	mux.HandleFunc("GET /polymarket/orderbook", h.HandleOrderBook)
	mux.HandleFunc("GET /polymarket/holders", h.HandleHolders)
	mux.HandleFunc("GET /polymarket/top-traders", h.HandleTopTraders)
	mux.HandleFunc("GET /polymarket/trader/{address}", h.HandleTrader)
	mux.HandleFunc("GET /polymarket/closed-positions", h.HandleClosedPositions)
	mux.HandleFunc("GET /polymarket/intelligence", h.HandleIntelligence)
}

func (h *Handler) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.client.Markets(r.Context(), queryFromParams(r))
	if err != nil {
		h.fail(w, "markets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"markets": markets, "count": len(markets)})
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.client.Events(r.Context(), queryFromParams(r))
	if err != nil {
		h.fail(w, "events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events, "count": len(events)})
}

func (h *Handler) HandleMarketsAboveVolume(w http.ResponseWriter, r *http.Request) {
	minVolume, err := strconv.ParseFloat(r.URL.Query().Get("min_volume"), 64)
	if err != nil {
		badRequest(w, "min_volume must be a number")
		return
	}
	markets, err := h.client.MarketsAboveVolume(r.Context(), minVolume)
	if err != nil {
		h.fail(w, "markets above volume", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"markets": markets, "count": len(markets)})
}

func (h *Handler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	conditionID := r.URL.Query().Get("condition_id")
	if conditionID == "" {
		badRequest(w, "condition_id is required")
		return
	}
	limit := intParam(r, "limit", 10)
	trades, err := h.client.TradesForCondition(r.Context(), conditionID, limit)
	if err != nil {
		h.fail(w, "trades", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades, "count": len(trades)})
}

func (h *Handler) HandleOrderBook(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market_id")
	if marketID == "" {
		badRequest(w, "market_id is required")
		return
	}
	book, conditionID := h.client.OrderBook(r.Context(), marketID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"book": book, "condition_id": conditionID})
}

func (h *Handler) HandleHolders(w http.ResponseWriter, r *http.Request) {
	conditionID := r.URL.Query().Get("condition_id")
	if conditionID == "" {
		badRequest(w, "condition_id is required")
		return
	}
	board, err := h.client.TopHolders(r.Context(), conditionID)
	if err != nil {
		h.fail(w, "holders", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) HandleTopTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := h.client.TopTradersByPnl(r.Context())
	if err != nil {
		h.fail(w, "top traders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"traders": traders, "count": len(traders)})
}

func (h *Handler) HandleTrader(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		badRequest(w, "address is required")
		return
	}
	writeJSON(w, http.StatusOK, h.client.TraderSummary(r.Context(), address))
}

func (h *Handler) HandleClosedPositions(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		badRequest(w, "address is required")
		return
	}
	positions, err := h.client.ClosedPositions(r.Context(), address)
	if err != nil {
		h.fail(w, "closed positions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"positions": positions, "count": len(positions)})
}

func (h *Handler) HandleIntelligence(w http.ResponseWriter, r *http.Request) {
	if h.intelligence == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Intelligence reports are not enabled."})
		return
	}
	conditionID := r.URL.Query().Get("condition_id")
	if conditionID == "" {
		badRequest(w, "condition_id is required")
		return
	}
	report, err := h.intelligence.Analyze(r.Context(), conditionID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Market not found."})
			return
		}
		h.fail(w, "intelligence", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.log.Errorw("Passthrough request failed", "route", what, "error", err)
	status := http.StatusInternalServerError
	var ue *upstream.UpstreamError
	if errors.As(err, &ue) || errors.Is(err, errors.ErrExternal) {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": "Failed to fetch " + what + "."})
}

// queryFromParams maps listing query params onto a market query. Absent
// booleans stay nil so the upstream defaults apply.
func queryFromParams(r *http.Request) market.Query {
	q := market.Query{
		Limit:    intParam(r, "limit", 10),
		Category: r.URL.Query().Get("category"),
		SortBy:   r.URL.Query().Get("sort"),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		b := v == "true"
		q.Active = &b
	}
	if v := r.URL.Query().Get("closed"); v != "" {
		b := v == "true"
		q.Closed = &b
	}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("min_volume"), 64); err == nil {
		q.VolumeMin = v
	}
	return q
}

func intParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
