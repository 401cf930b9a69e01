// Package handlers exposes the call engine over HTTP for the telephony
// gateway.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/engine"
	"github.com/wolfman30/tradeline-ai-platform/internal/tenancy"
	"github.com/wolfman30/tradeline-ai-platform/internal/trace"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// CallsHandler handles the per-call lifecycle endpoints.
type CallsHandler struct {
	engine *engine.Engine
	logger *logging.Logger
}

// NewCallsHandler creates a calls handler.
func NewCallsHandler(eng *engine.Engine, logger *logging.Logger) *CallsHandler {
	if eng == nil {
		panic("handlers: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CallsHandler{engine: eng, logger: logger}
}

// InitCallRequest starts a call session.
type InitCallRequest struct {
	CallID    string `json:"call_id"`
	CompanyID string `json:"company_id"`
	Trade     string `json:"trade,omitempty"`
}

// InitCallResponse carries the opening line the gateway should speak.
type InitCallResponse struct {
	CallID   string `json:"call_id"`
	Greeting string `json:"greeting"`
}

// InitCall handles POST /calls/init.
func (h *CallsHandler) InitCall(w http.ResponseWriter, r *http.Request) {
	var req InitCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode init request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CallID == "" || req.CompanyID == "" {
		http.Error(w, "call_id and company_id are required", http.StatusBadRequest)
		return
	}

	ctx := tenancy.WithCompanyID(r.Context(), req.CompanyID)
	_, greeting := h.engine.InitCallContext(ctx, req.CallID, req.CompanyID, req.Trade, "")

	h.logger.Info("call initialized", "call_id", req.CallID, "company_id", req.CompanyID)
	writeJSON(w, http.StatusCreated, InitCallResponse{CallID: req.CallID, Greeting: greeting})
}

// TurnRequest is one caller utterance.
type TurnRequest struct {
	CallID    string `json:"call_id"`
	CompanyID string `json:"company_id"`
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text"`
}

// ProcessTurn handles POST /calls/turn. The engine guarantees a usable
// reply, so this endpoint only fails on malformed input.
func (h *CallsHandler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode turn request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CallID == "" || req.CompanyID == "" {
		http.Error(w, "call_id and company_id are required", http.StatusBadRequest)
		return
	}

	ctx := tenancy.WithCompanyID(r.Context(), req.CompanyID)
	result := h.engine.ProcessCallerTurn(ctx, req.CompanyID, req.CallID, req.Speaker, req.Text)

	writeJSON(w, http.StatusOK, result)
}

// FinalizeRequest closes out a call.
type FinalizeRequest struct {
	CallID       string    `json:"call_id"`
	CompanyID    string    `json:"company_id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Turns        int       `json:"turns"`
	InputTokens  int32     `json:"input_tokens"`
	OutputTokens int32     `json:"output_tokens"`
	Outcome      string    `json:"outcome,omitempty"`
}

// FinalizeCall handles POST /calls/finalize.
func (h *CallsHandler) FinalizeCall(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode finalize request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CallID == "" {
		http.Error(w, "call_id is required", http.StatusBadRequest)
		return
	}

	ctx := tenancy.WithCompanyID(r.Context(), req.CompanyID)
	usage := trace.UsageSummary{
		CompanyID:    req.CompanyID,
		Turns:        req.Turns,
		InputTokens:  req.InputTokens,
		OutputTokens: req.OutputTokens,
		Outcome:      req.Outcome,
	}
	if err := h.engine.FinalizeCall(ctx, req.CallID, req.StartedAt, req.EndedAt, usage); err != nil {
		h.logger.Error("call finalize failed", "call_id", req.CallID, "error", err)
		http.Error(w, "finalize failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("call finalized", "call_id", req.CallID)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (h *CallsHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
