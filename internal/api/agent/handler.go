// Package agent exposes the conversational entry points over HTTP.
package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"pythia/internal/adapters/polymarket"
	"pythia/internal/domain/market"
	agentsvc "pythia/internal/services/agent"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

const (
	missingQueryText       = "Missing 'query' in body"
	plannerUnavailableText = "AI planner is unavailable."
	upstreamFailedText     = "Polymarket request failed."
)

// Service answers conversational queries.
type Service interface {
	Ask(ctx context.Context, req agentsvc.AskRequest) (*agentsvc.AskResponse, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Dispatcher answers keyword queries without a model.
type Dispatcher interface {
	Handle(ctx context.Context, text string) (string, error)
}

// Handler serves /agent/* and /ai/yesno.
type Handler struct {
	svc        Service    // nil when no AI provider is configured
	dispatcher Dispatcher // nil disables /agent/quick
	log        *logger.Logger
}

// New creates the agent HTTP handler. svc and dispatcher may each be nil;
// the corresponding routes then answer with their unavailable response.
func New(svc Service, dispatcher Dispatcher, log *logger.Logger) *Handler {
	return &Handler{svc: svc, dispatcher: dispatcher, log: log}
}

// Register mounts the agent routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /agent/ask", h.HandleAsk)
	mux.HandleFunc("POST /agent/quick", h.HandleQuick)
	mux.HandleFunc("DELETE /agent/session/{id}", h.HandleClearSession)
	mux.HandleFunc("GET /ai/yesno", h.HandleYesNo)
}

type askBody struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// HandleAsk is the conversational endpoint. User-actionable failures come
// back as 200 with an in-band "error" field; only transport-level failures
// map to HTTP error codes.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": plannerUnavailableText})
		return
	}
	var body askBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": missingQueryText})
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": missingQueryText})
		return
	}

	req := agentsvc.AskRequest{
		Query:     body.Query,
		SessionID: body.SessionID,
		Execute:   r.URL.Query().Get("execute") != "false",
		Format:    agentsvc.FormatText,
	}
	if r.URL.Query().Get("fmt") == agentsvc.FormatJSON {
		req.Format = agentsvc.FormatJSON
	}

	resp, err := h.svc.Ask(r.Context(), req)
	if err != nil {
		h.log.Errorw("Ask failed", "session_id", body.SessionID, "error", err)
		var upstream *polymarket.UpstreamError
		if errors.As(err, &upstream) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": upstreamFailedText})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": plannerUnavailableText})
		return
	}

	switch {
	case resp.Error != "":
		writeJSON(w, http.StatusOK, map[string]string{"error": resp.Error})
	case resp.Plan != nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"plan": resp.Plan})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"result": resp.Result})
	}
}

// HandleQuick routes a query through the keyword dispatcher, skipping the
// model entirely.
func (h *Handler) HandleQuick(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Quick queries are not enabled."})
		return
	}
	var body askBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": missingQueryText})
		return
	}
	out, err := h.dispatcher.Handle(r.Context(), body.Query)
	if err != nil {
		h.log.Errorw("Quick query failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": upstreamFailedText})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": out})
}

// HandleClearSession drops the stored context for one session.
func (h *Handler) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": plannerUnavailableText})
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing session id"})
		return
	}
	if err := h.svc.ClearSession(r.Context(), id); err != nil {
		h.log.Errorw("Session clear failed", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to clear session."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "session_id": id})
}

// HandleYesNo maps an outcome price to a YES/NO call. Unparsable prices
// answer UNKNOWN rather than erroring.
func (h *Handler) HandleYesNo(w http.ResponseWriter, r *http.Request) {
	answer := "UNKNOWN"
	if price, err := strconv.ParseFloat(r.URL.Query().Get("price"), 64); err == nil {
		answer = market.InferYesNo(price)
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
