package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CaseStatus is the lifecycle state of a review case.
type CaseStatus uint8

// Case lifecycle states. Resolved states are terminal; Escalated loops back
// to Assigned with elevated priority.
const (
	StatusIntake CaseStatus = iota + 1
	StatusEnriched
	StatusAssigned
	StatusInReview
	StatusEscalated
	StatusResolvedFraud
	StatusResolvedLegitimate
)

// Terminal reports whether the status admits no further transitions.
func (s CaseStatus) Terminal() bool {
	return s == StatusResolvedFraud || s == StatusResolvedLegitimate
}

// String returns the wire representation of the status.
func (s CaseStatus) String() string {
	switch s {
	case StatusIntake:
		return "intake"
	case StatusEnriched:
		return "enriched"
	case StatusAssigned:
		return "assigned"
	case StatusInReview:
		return "in_review"
	case StatusEscalated:
		return "escalated"
	case StatusResolvedFraud:
		return "resolved_fraud"
	case StatusResolvedLegitimate:
		return "resolved_legitimate"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its wire string.
func (s CaseStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its wire string.
func (s *CaseStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("decode case status: %w", err)
	}
	for _, cand := range []CaseStatus{
		StatusIntake, StatusEnriched, StatusAssigned, StatusInReview,
		StatusEscalated, StatusResolvedFraud, StatusResolvedLegitimate,
	} {
		if cand.String() == str {
			*s = cand
			return nil
		}
	}
	return fmt.Errorf("unknown case status %q", str)
}

// Priority is the review urgency tier of a case. P1 is the most urgent.
type Priority uint8

// Priority tiers.
const (
	PriorityP1 Priority = iota + 1
	PriorityP2
	PriorityP3
	PriorityP4
)

// String returns the wire representation of the priority tier.
func (p Priority) String() string {
	switch p {
	case PriorityP1:
		return "p1"
	case PriorityP2:
		return "p2"
	case PriorityP3:
		return "p3"
	case PriorityP4:
		return "p4"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the priority as its wire string.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a priority from its wire string.
func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode priority: %w", err)
	}
	for _, cand := range []Priority{PriorityP1, PriorityP2, PriorityP3, PriorityP4} {
		if cand.String() == s {
			*p = cand
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", s)
}

// Elevate returns the next more urgent tier, saturating at P1.
func (p Priority) Elevate() Priority {
	if p <= PriorityP1 {
		return PriorityP1
	}
	return p - 1
}

// Note is an annotation attached to a case during review.
type Note struct {
	Author string    `json:"author"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Resolution records the analyst verdict that closed a case.
type Resolution struct {
	Label      Label     `json:"label"`
	ResolvedBy string    `json:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Case is a unit of human-review work opened for an ambiguous decision.
// Mutated only by the case lifecycle machine; snapshots published on the
// case topic are value copies.
type Case struct {
	CaseID        string     `json:"case_id"`
	TransactionID string     `json:"transaction_id"`
	Decision      Decision   `json:"decision"`
	Status        CaseStatus `json:"status"`
	Assignee      string     `json:"assignee,omitempty"`
	OpenedAt      time.Time  `json:"opened_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SLADeadline   time.Time  `json:"sla_deadline"`
	Priority      Priority   `json:"priority"`

	// Generation counts timer-owning transitions. An SLA timer captures the
	// generation at schedule time; a fired timer whose generation no longer
	// matches is stale and discarded.
	Generation uint64 `json:"generation"`

	// Escalations counts how many times the case has breached or been
	// escalated manually.
	Escalations int `json:"escalations"`

	// SeniorRouted is set once the escalation ceiling is exceeded and the
	// case has been force-routed to the senior queue.
	SeniorRouted bool `json:"senior_routed,omitempty"`

	Notes      []Note      `json:"notes,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

// Open reports whether the case is still in review flow.
func (c Case) Open() bool {
	return !c.Status.Terminal()
}
