// Package dispatch turns review decisions into cases.
//
// The dispatcher is the only producer of cases. It consumes decision events
// from the bus, drops everything that is not a review outcome, enforces the
// one-open-case-per-transaction rule and hands the new case to the
// lifecycle machine.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/caseflow"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

// highRiskTags bump case priority by one tier when present on the
// transaction.
var highRiskTags = []string{"stolen_card_ring", "synthetic_identity", "high_risk_geo", "watchlist"}

// Dispatcher routes review decisions into the case lifecycle.
type Dispatcher struct {
	cfg     *config.Store
	store   repository.CaseStore
	machine *caseflow.Machine
	lg      logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg *config.Store, store repository.CaseStore, machine *caseflow.Machine, lg logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		store:   store,
		machine: machine,
		lg:      lg,
	}
}

// Dispatch opens a case for a review decision. The second return is false
// when no case was opened: the outcome did not need review, or an open case
// for the transaction already exists.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.DecisionEvent) (model.Case, bool, error) {
	if ev.Decision.Outcome != model.OutcomeReview {
		return model.Case{}, false, nil
	}

	if existing, ok := d.store.OpenByTransaction(ctx, ev.Decision.TransactionID); ok {
		return existing, false, nil
	}

	cfg := d.cfg.Snapshot()
	now := time.Now().UTC()
	priority := bandPriority(cfg, ev)

	c := model.Case{
		CaseID:        uuid.NewString(),
		TransactionID: ev.Decision.TransactionID,
		Decision:      ev.Decision,
		Status:        model.StatusIntake,
		OpenedAt:      now,
		Priority:      priority,
		SLADeadline:   now.Add(cfg.PrioritySLA(priority)),
	}

	opened, err := d.machine.Open(ctx, c)
	if err != nil {
		// A concurrent dispatch for the same transaction won the race; its
		// case stands.
		if errors.Is(err, repository.ErrDuplicateCase) {
			if existing, ok := d.store.OpenByTransaction(ctx, ev.Decision.TransactionID); ok {
				return existing, false, nil
			}
			return model.Case{}, false, nil
		}
		return model.Case{}, false, err
	}

	// Enrichment runs inline: the decision context travels with the event,
	// so no external lookup gates intake.
	enriched, err := d.machine.Apply(ctx, opened.CaseID, caseflow.Enrich{})
	if err != nil {
		d.lg.Warn(ctx, "case enrichment failed",
			logger.String("case_id", opened.CaseID),
			logger.Error(err),
		)
		return opened, true, nil
	}
	return enriched, true, nil
}

// bandPriority maps the decision score's position inside the review band to
// a priority tier, quartile by quartile, with a one-tier bump for known
// high-risk entity tags. Degraded and fallback decisions also bump: low
// confidence means a human should look sooner, not later.
func bandPriority(cfg *config.Config, ev model.DecisionEvent) model.Priority {
	low, high := cfg.LowThreshold, cfg.HighThreshold
	width := high - low
	pos := 0.0
	if width > 0 {
		pos = (ev.Decision.Score - low) / width
	}

	var p model.Priority
	switch {
	case pos >= 0.75:
		p = model.PriorityP1
	case pos >= 0.5:
		p = model.PriorityP2
	case pos >= 0.25:
		p = model.PriorityP3
	default:
		p = model.PriorityP4
	}

	if ev.Decision.Fallback || ev.Decision.Error {
		p = p.Elevate()
	}
	for _, tag := range highRiskTags {
		if ev.Transaction.HasRiskTag(tag) {
			p = p.Elevate()
			break
		}
	}
	return p
}
