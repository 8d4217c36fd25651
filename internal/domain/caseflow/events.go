package caseflow

import "github.com/okian/vigil/internal/domain/model"

// Event is a case lifecycle input. Events are applied strictly in order per
// case; concurrent events on one case serialize through its shard actor.
type Event interface {
	kind() string
}

// Enrich attaches decision context to a freshly opened case.
type Enrich struct{}

func (Enrich) kind() string { return "enrich" }

// Assign hands the case to an analyst. Reassignment of an already assigned
// case is allowed.
type Assign struct {
	Assignee string
}

func (Assign) kind() string { return "assign" }

// OpenReview marks the assignee as actively working the case.
type OpenReview struct {
	Analyst string
	Note    string
}

func (OpenReview) kind() string { return "open_review" }

// Resolve closes the case with a verdict.
type Resolve struct {
	Label      model.Label
	ResolvedBy string
	Note       string
}

func (Resolve) kind() string { return "resolve" }

// Escalate raises the case's urgency. Manual escalations and SLA breaches
// take the same path: priority up one tier, tighter deadline, back to the
// assignment pool.
type Escalate struct {
	By     string
	Reason string
}

func (Escalate) kind() string { return "escalate" }

// slaExpired is the internal event delivered by a fired SLA timer. It
// carries the generation captured at schedule time so a stale fire can be
// discarded.
type slaExpired struct {
	generation uint64
}

func (slaExpired) kind() string { return "sla_expired" }
