package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/vigil/internal/domain/model"
)

// defaultQueueLimit applies when GET /cases/queue omits ?limit.
const defaultQueueLimit = 20

// CasesHandler handles case requests.
type CasesHandler struct {
	deps Dependencies
}

// NewCasesHandler creates a new cases handler.
func NewCasesHandler(deps Dependencies) *CasesHandler {
	return &CasesHandler{deps: deps}
}

// HandleGet handles GET /cases/{caseID}.
func (h *CasesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.GetCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleQueue handles GET /cases/queue?limit=N, returning the most urgent
// open cases.
func (h *CasesHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	limit := defaultQueueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errInvalidLimit)
			return
		}
		limit = parsed
	}
	if max := h.deps.MaxQueueLimit(); max > 0 && limit > max {
		limit = max
	}

	entries, err := h.deps.QueueTop(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

type assignRequest struct {
	Assignee string `json:"assignee" validate:"required"`
}

// HandleAssign handles POST /cases/{caseID}/assign.
func (h *CasesHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := bind(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.deps.AssignCase(r.Context(), chi.URLParam(r, "caseID"), req.Assignee)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type reviewRequest struct {
	Analyst string `json:"analyst" validate:"required"`
	Note    string `json:"note"`
}

// HandleReview handles POST /cases/{caseID}/review.
func (h *CasesHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := bind(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.deps.StartReview(r.Context(), chi.URLParam(r, "caseID"), req.Analyst, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type resolveRequest struct {
	Label      string `json:"label" validate:"required,oneof=fraud legitimate"`
	ResolvedBy string `json:"resolved_by" validate:"required"`
	Note       string `json:"note"`
}

// HandleResolve handles POST /cases/{caseID}/resolve.
func (h *CasesHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := bind(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	label := model.LabelLegitimate
	if req.Label == "fraud" {
		label = model.LabelFraud
	}

	c, err := h.deps.ResolveCase(r.Context(), chi.URLParam(r, "caseID"), label, req.ResolvedBy, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type escalateRequest struct {
	By     string `json:"by" validate:"required"`
	Reason string `json:"reason"`
}

// HandleEscalate handles POST /cases/{caseID}/escalate.
func (h *CasesHandler) HandleEscalate(w http.ResponseWriter, r *http.Request) {
	var req escalateRequest
	if err := bind(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.deps.EscalateCase(r.Context(), chi.URLParam(r, "caseID"), req.By, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
