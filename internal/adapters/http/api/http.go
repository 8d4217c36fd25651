// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/caseflow"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/monitor"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Decide scores a transaction synchronously. The second return is false
	// when the transaction was already decided and the stored decision was
	// replayed.
	Decide(ctx context.Context, txn model.Transaction) (model.Decision, bool)

	// GetDecision returns the recorded decision for a transaction id.
	GetDecision(ctx context.Context, txnID string) (model.Decision, bool)

	// GetCase returns an open or archived case.
	GetCase(ctx context.Context, caseID string) (model.Case, error)

	// QueueTop returns the most urgent open cases.
	QueueTop(ctx context.Context, limit int) ([]repository.QueueEntry, error)

	// Case lifecycle actions.
	AssignCase(ctx context.Context, caseID, assignee string) (model.Case, error)
	StartReview(ctx context.Context, caseID, analyst, note string) (model.Case, error)
	ResolveCase(ctx context.Context, caseID string, label model.Label, resolvedBy, note string) (model.Case, error)
	EscalateCase(ctx context.Context, caseID, by, reason string) (model.Case, error)

	// RecentAlerts returns the newest alerts, newest first.
	RecentAlerts(limit int) []model.Alert

	// MonitorWindows returns completed monitoring windows, oldest first.
	MonitorWindows() []monitor.WindowStats

	// MaxQueueLimit caps the queue page size.
	MaxQueueLimit() int
}

// validate checks request payload constraints declared on bind structs.
var validate = validator.New()

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	decisionsHandler *DecisionsHandler
	casesHandler     *CasesHandler
	alertsHandler    *AlertsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		decisionsHandler: NewDecisionsHandler(deps),
		casesHandler:     NewCasesHandler(deps),
		alertsHandler:    NewAlertsHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/decisions", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.decisionsHandler.HandleCreate, "decisions"))
		r.Get("/{transactionID}", MetricsMiddleware(s.decisionsHandler.HandleGet, "decisions"))
	})

	r.Route("/cases", func(r chi.Router) {
		r.Get("/queue", MetricsMiddleware(s.casesHandler.HandleQueue, "cases_queue"))
		r.Get("/{caseID}", MetricsMiddleware(s.casesHandler.HandleGet, "cases"))
		r.Post("/{caseID}/assign", MetricsMiddleware(s.casesHandler.HandleAssign, "cases_assign"))
		r.Post("/{caseID}/review", MetricsMiddleware(s.casesHandler.HandleReview, "cases_review"))
		r.Post("/{caseID}/resolve", MetricsMiddleware(s.casesHandler.HandleResolve, "cases_resolve"))
		r.Post("/{caseID}/escalate", MetricsMiddleware(s.casesHandler.HandleEscalate, "cases_escalate"))
	})

	r.Get("/alerts/recent", MetricsMiddleware(s.alertsHandler.HandleRecent, "alerts"))
	r.Get("/monitor/windows", MetricsMiddleware(s.alertsHandler.HandleWindows, "monitor_windows"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// bind decodes and validates a JSON request body.
func bind(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", ErrBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// writeDomainError translates domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, caseflow.ErrInvalidTransition), errors.Is(err, caseflow.ErrCaseClosed),
		errors.Is(err, repository.ErrCaseArchived), errors.Is(err, repository.ErrDuplicateCase):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
