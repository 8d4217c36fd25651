// Package model contains domain records passed between pipeline stages.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the automated decision for one transaction.
type Outcome uint8

// Decision outcomes. Review routes the transaction to a human case.
const (
	OutcomeApprove Outcome = iota + 1
	OutcomeDeny
	OutcomeReview
)

// String returns the wire representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeApprove:
		return "approve"
	case OutcomeDeny:
		return "deny"
	case OutcomeReview:
		return "review"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the outcome as its wire string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes an outcome from its wire string.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode outcome: %w", err)
	}
	switch s {
	case "approve":
		*o = OutcomeApprove
	case "deny":
		*o = OutcomeDeny
	case "review":
		*o = OutcomeReview
	default:
		return fmt.Errorf("unknown outcome %q", s)
	}
	return nil
}

// Label is the confirmed classification of a resolved case.
type Label uint8

// Resolution labels.
const (
	LabelFraud Label = iota + 1
	LabelLegitimate
)

// String returns the wire representation of the label.
func (l Label) String() string {
	switch l {
	case LabelFraud:
		return "fraud"
	case LabelLegitimate:
		return "legitimate"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the label as its wire string.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a label from its wire string.
func (l *Label) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode label: %w", err)
	}
	switch s {
	case "fraud":
		*l = LabelFraud
	case "legitimate":
		*l = LabelLegitimate
	default:
		return fmt.Errorf("unknown label %q", s)
	}
	return nil
}

// Transaction is the immutable input record scored by the decision service.
// It is created upstream and read-only inside the pipeline.
type Transaction struct {
	ID        string             `json:"transaction_id"`
	AccountID string             `json:"account_id"`
	DeviceID  string             `json:"device_id,omitempty"`
	CardID    string             `json:"card_id,omitempty"`
	Amount    float64            `json:"amount"`
	Currency  string             `json:"currency"`
	Timestamp time.Time          `json:"ts"`
	RiskTags  []string           `json:"risk_tags,omitempty"`
	Features  map[string]float64 `json:"features,omitempty"`
}

// HasRiskTag reports whether the transaction carries the given entity risk tag.
func (t Transaction) HasRiskTag(tag string) bool {
	for _, rt := range t.RiskTags {
		if rt == tag {
			return true
		}
	}
	return false
}

// FeatureVector is a named mapping of precomputed features for a
// transaction's entities. A fresh fetch produces a new vector; vectors are
// never mutated after fetch.
type FeatureVector struct {
	Values          map[string]float64 `json:"values"`
	SnapshotVersion string             `json:"snapshot_version"`
	AsOf            time.Time          `json:"as_of"`
	// Partial is set when one or more entity snapshots were missing and the
	// vector was filled with defaults.
	Partial bool `json:"partial,omitempty"`
}

// Get returns the named feature value, or def when absent.
func (v FeatureVector) Get(name string, def float64) float64 {
	if val, ok := v.Values[name]; ok {
		return val
	}
	return def
}

// Decision is the automated outcome for one transaction. Created exactly
// once per transaction id and immutable thereafter.
type Decision struct {
	TransactionID string    `json:"transaction_id"`
	Score         float64   `json:"score"`
	Confidence    float64   `json:"confidence"`
	Outcome       Outcome   `json:"outcome"`
	DecidedAt     time.Time `json:"decided_at"`
	LatencyMS     int64     `json:"latency_ms"`
	ModelVersion  string    `json:"model_version"`

	// Degraded marks a decision made from a partial/default feature vector.
	Degraded bool `json:"degraded,omitempty"`
	// Fallback marks a decision scored by the rule-based fallback after an
	// oracle timeout or error.
	Fallback bool `json:"fallback,omitempty"`
	// Error marks a decision emitted on an unrecoverable failure; such
	// decisions always fail open to Review.
	Error bool `json:"error,omitempty"`
}

// DecisionEvent pairs a decision with its source transaction. Published on
// the decision bus so the dispatcher can read entity risk context without a
// second lookup.
type DecisionEvent struct {
	Decision    Decision    `json:"decision"`
	Transaction Transaction `json:"transaction"`
}

// FeedbackRecord is the labeled outcome of a resolved case, consumed by the
// retraining pipeline. Idempotent on TransactionID under redelivery.
type FeedbackRecord struct {
	TransactionID   string    `json:"transaction_id"`
	Label           Label     `json:"label"`
	ResolvedAt      time.Time `json:"resolved_at"`
	ResolvingCaseID string    `json:"resolving_case_id"`
}

// AlertKind classifies monitor and supervisory alerts.
type AlertKind string

// Alert kinds published on the alert channel.
const (
	AlertDrift      AlertKind = "drift"
	AlertLatency    AlertKind = "latency"
	AlertKPI        AlertKind = "kpi"
	AlertEscalation AlertKind = "escalation"
	AlertPublish    AlertKind = "publish"
)

// Severity orders alerts for the notification collaborator.
type Severity string

// Alert severities, lowest to highest.
const (
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a structured message for the external notification collaborator.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Window   string    `json:"window,omitempty"`
	Detail   string    `json:"detail"`
	At       time.Time `json:"at"`
}
