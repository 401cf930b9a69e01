package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/engine"
)

func newTestHandler(t *testing.T) *CallsHandler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	contexts := callcontext.NewStore(rdb, time.Hour, nil)
	configs := company.NewStore(rdb)
	eng := engine.NewEngine(contexts, configs, engine.NewClassifier(nil), nil, "", nil)
	return NewCallsHandler(eng, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestInitCall(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.InitCall, InitCallRequest{CallID: "call-1", CompanyID: "co-1", Trade: "hvac"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp InitCallResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "call-1", resp.CallID)
	assert.NotEmpty(t, resp.Greeting)
}

func TestInitCallRejectsMissingIDs(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.InitCall, InitCallRequest{CallID: "call-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessTurnAlwaysReplies(t *testing.T) {
	h := newTestHandler(t)
	postJSON(t, h.InitCall, InitCallRequest{CallID: "call-2", CompanyID: "co-1"})

	rec := postJSON(t, h.ProcessTurn, TurnRequest{
		CallID:    "call-2",
		CompanyID: "co-1",
		Speaker:   "caller",
		Text:      "my water heater is leaking",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.TurnResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.NotEmpty(t, result.NextPrompt)
	require.NotNil(t, result.Decision)
	assert.NotEmpty(t, result.Decision.Action)
}

func TestProcessTurnRejectsBadJSON(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ProcessTurn(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinalizeCall(t *testing.T) {
	h := newTestHandler(t)
	postJSON(t, h.InitCall, InitCallRequest{CallID: "call-3", CompanyID: "co-1"})

	rec := postJSON(t, h.FinalizeCall, FinalizeRequest{
		CallID:    "call-3",
		CompanyID: "co-1",
		StartedAt: time.Now().Add(-3 * time.Minute),
		EndedAt:   time.Now(),
		Turns:     4,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Finalizing an unknown call is a no-op.
	rec = postJSON(t, h.FinalizeCall, FinalizeRequest{CallID: "call-3", CompanyID: "co-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
