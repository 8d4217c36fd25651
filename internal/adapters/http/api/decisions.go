package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/vigil/internal/domain/model"
)

// DecisionsHandler handles decision requests.
type DecisionsHandler struct {
	deps Dependencies
}

// NewDecisionsHandler creates a new decisions handler.
func NewDecisionsHandler(deps Dependencies) *DecisionsHandler {
	return &DecisionsHandler{deps: deps}
}

// decisionRequest mirrors the OpenAPI schema for POST /decisions.
type decisionRequest struct {
	TransactionID string             `json:"transaction_id" validate:"required"`
	AccountID     string             `json:"account_id" validate:"required"`
	DeviceID      string             `json:"device_id"`
	CardID        string             `json:"card_id"`
	Amount        float64            `json:"amount" validate:"gte=0"`
	Currency      string             `json:"currency" validate:"required,len=3"`
	TS            string             `json:"ts"`
	RiskTags      []string           `json:"risk_tags"`
	Features      map[string]float64 `json:"features"`
}

type decisionResponse struct {
	model.Decision
	// Replayed is set when the transaction was already decided and the
	// stored decision was returned unchanged.
	Replayed bool `json:"replayed,omitempty"`
}

// HandleCreate handles POST /decisions. Replays are 200, fresh decisions
// are 201.
func (h *DecisionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := bind(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	ts := time.Now().UTC()
	if req.TS != "" {
		parsed, err := time.Parse(time.RFC3339, req.TS)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errInvalidTS)
			return
		}
		ts = parsed
	}

	txn := model.Transaction{
		ID:        req.TransactionID,
		AccountID: req.AccountID,
		DeviceID:  req.DeviceID,
		CardID:    req.CardID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Timestamp: ts,
		RiskTags:  req.RiskTags,
		Features:  req.Features,
	}

	d, created := h.deps.Decide(r.Context(), txn)
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, decisionResponse{Decision: d, Replayed: !created})
}

// HandleGet handles GET /decisions/{transactionID}.
func (h *DecisionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	txnID := chi.URLParam(r, "transactionID")
	d, ok := h.deps.GetDecision(r.Context(), txnID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
