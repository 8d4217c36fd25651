// Package repository defines the case storage interfaces and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// QueueEntry is one row of the urgency-ordered review queue.
type QueueEntry struct {
	Rank          int              `json:"rank"`
	CaseID        string           `json:"case_id"`
	TransactionID string           `json:"transaction_id"`
	Priority      model.Priority   `json:"priority"`
	SLADeadline   time.Time        `json:"sla_deadline"`
	Score         float64          `json:"score"`
	Status        model.CaseStatus `json:"status"`
}

// CaseStore provides access to case records. Open cases are mutated only by
// the case lifecycle machine; resolved cases are archived, never deleted.
type CaseStore interface {
	// Create persists a new open case. Returns ErrDuplicateCase when an
	// open case already exists for the same transaction id.
	Create(ctx context.Context, c model.Case) error

	// Get returns an open or archived case by id.
	Get(ctx context.Context, caseID string) (model.Case, error)

	// OpenByTransaction returns the open case for a transaction id, if any.
	OpenByTransaction(ctx context.Context, txnID string) (model.Case, bool)

	// Update replaces the snapshot of an open case.
	Update(ctx context.Context, c model.Case) error

	// Archive moves a terminal case out of the open set. The open-case
	// index entry for its transaction id is released.
	Archive(ctx context.Context, c model.Case) error

	// OpenCount returns the number of open cases.
	OpenCount(ctx context.Context) int

	// ArchivedCount returns the number of archived cases.
	ArchivedCount(ctx context.Context) int
}

// DecisionLog is the append-only audit log of emitted decisions. It also
// backs idempotent replay: recording an already-logged transaction returns
// the original decision unchanged.
type DecisionLog interface {
	// Record appends d unless a decision for the same transaction id
	// already exists. Returns the stored decision and whether d was newly
	// recorded.
	Record(ctx context.Context, d model.Decision) (model.Decision, bool)

	// Get returns the recorded decision for a transaction id, if any.
	Get(ctx context.Context, txnID string) (model.Decision, bool)

	// Count returns the number of recorded decisions.
	Count(ctx context.Context) int
}
