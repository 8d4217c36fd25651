// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with documented defaults.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
// - Runtime readers take snapshots through Store; a snapshot is never
//   partially updated.
package config

import (
	"runtime"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Config contains process configuration. A Config value is immutable once
// published through a Store; hot reload swaps the whole object.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// LowThreshold and HighThreshold bound the review band:
	// score < low -> approve, score > high -> deny, otherwise review.
	LowThreshold  float64 `koanf:"low_threshold"`
	HighThreshold float64 `koanf:"high_threshold"`

	// FeatureTimeoutMS bounds the feature snapshot fetch.
	FeatureTimeoutMS int `koanf:"feature_timeout_ms"`

	// ScoringTimeoutMS is the hard timeout on the scoring oracle call.
	ScoringTimeoutMS int `koanf:"scoring_timeout_ms"`

	// DecisionBudgetMS is the end-to-end latency budget for one decision.
	DecisionBudgetMS int `koanf:"decision_budget_ms"`

	// DecisionBusSize bounds the in-memory decision bus.
	DecisionBusSize int `koanf:"decision_bus_size"`

	// CaseTopicSize bounds the case snapshot topic.
	CaseTopicSize int `koanf:"case_topic_size"`

	// FeedbackTopicSize bounds the feedback topic consumed by retraining.
	FeedbackTopicSize int `koanf:"feedback_topic_size"`

	// AlertChannelSize bounds the alert channel.
	AlertChannelSize int `koanf:"alert_channel_size"`

	// DeadLetterSize bounds the feedback dead-letter queue.
	DeadLetterSize int `koanf:"dead_letter_size"`

	// DispatchWorkerCount sets the number of dispatch workers draining the
	// decision bus.
	DispatchWorkerCount int `koanf:"dispatch_worker_count"`

	// CaseShardCount sets the number of single-writer case actors.
	CaseShardCount int `koanf:"case_shard_count"`

	// DedupeSize sets the size of the idempotency caches.
	DedupeSize int `koanf:"dedupe_size"`

	// PrioritySLAMinutes maps priority tiers (p1..p4) to the budget between
	// case open and assignment.
	PrioritySLAMinutes map[string]int `koanf:"priority_sla_minutes"`

	// FirstActionSLAMinutes maps priority tiers to the budget between
	// assignment and the analyst's first action.
	FirstActionSLAMinutes map[string]int `koanf:"first_action_sla_minutes"`

	// ResolutionSLAMinutes maps priority tiers to the budget between review
	// start and resolution.
	ResolutionSLAMinutes map[string]int `koanf:"resolution_sla_minutes"`

	// EscalationCeiling caps escalations per case before force-routing to
	// the senior queue.
	EscalationCeiling int `koanf:"escalation_ceiling"`

	// EscalationSLAFactor tightens the deadline on each escalation.
	EscalationSLAFactor float64 `koanf:"escalation_sla_factor"`

	// PublishRetryLimit and PublishBackoffMS bound feedback publish retries
	// before the record goes to the dead-letter queue.
	PublishRetryLimit int `koanf:"publish_retry_limit"`
	PublishBackoffMS  int `koanf:"publish_backoff_ms"`

	// MonitorWindowSeconds sets the rolling monitoring window length.
	MonitorWindowSeconds int `koanf:"monitor_window_seconds"`

	// MonitorBaselineWindows sets how many trailing windows form the drift
	// baseline.
	MonitorBaselineWindows int `koanf:"monitor_baseline_windows"`

	// MonitorHorizonWindows sets how many completed windows are retained
	// for trend queries.
	MonitorHorizonWindows int `koanf:"monitor_horizon_windows"`

	// PSIThreshold is the population stability index above which a drift
	// alert is raised.
	PSIThreshold float64 `koanf:"psi_threshold"`

	// LatencyP95CeilingMS and LatencyP99CeilingMS are per-window latency
	// alert ceilings.
	LatencyP95CeilingMS float64 `koanf:"latency_p95_ceiling_ms"`
	LatencyP99CeilingMS float64 `koanf:"latency_p99_ceiling_ms"`

	// SustainedBreachWindows is the consecutive-window count after which a
	// latency alert escalates severity.
	SustainedBreachWindows int `koanf:"sustained_breach_windows"`

	// KPITarget is the acceptable false-positive proxy rate; KPIWindows is
	// the longer horizon (in monitoring windows) it is computed over.
	KPITarget  float64 `koanf:"kpi_target"`
	KPIWindows int     `koanf:"kpi_windows"`

	// OracleLatencyMinMS and OracleLatencyMaxMS bound the simulated scoring
	// oracle latency; OracleFailureRate injects timeouts/errors.
	OracleLatencyMinMS int     `koanf:"oracle_latency_min_ms"`
	OracleLatencyMaxMS int     `koanf:"oracle_latency_max_ms"`
	OracleFailureRate  float64 `koanf:"oracle_failure_rate"`

	// ModelVersion tags decisions produced by the scoring oracle.
	ModelVersion string `koanf:"model_version"`

	// FeatureWeights maps feature names to oracle scoring weights.
	FeatureWeights map[string]float64 `koanf:"feature_weights"`

	// DefaultFeatureWeight is used for unknown features.
	DefaultFeatureWeight float64 `koanf:"default_feature_weight"`

	// Analysts lists reviewer ids for round-robin auto-assignment. Empty
	// disables auto-assignment.
	Analysts []string `koanf:"analysts"`

	// MaxQueueLimit caps GET /cases/queue?limit.
	MaxQueueLimit int `koanf:"max_queue_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		LowThreshold:           0.3,
		HighThreshold:          0.8,
		FeatureTimeoutMS:       50,
		ScoringTimeoutMS:       150,
		DecisionBudgetMS:       300,
		DecisionBusSize:        100_000,
		CaseTopicSize:          50_000,
		FeedbackTopicSize:      50_000,
		AlertChannelSize:       10_000,
		DeadLetterSize:         10_000,
		DispatchWorkerCount:    runtime.NumCPU() * 2,
		CaseShardCount:         16,
		DedupeSize:             500_000,
		PrioritySLAMinutes:     map[string]int{"p1": 30, "p2": 120, "p3": 480, "p4": 1440},
		FirstActionSLAMinutes:  map[string]int{"p1": 10, "p2": 30, "p3": 120, "p4": 240},
		ResolutionSLAMinutes:   map[string]int{"p1": 30, "p2": 120, "p3": 480, "p4": 1440},
		EscalationCeiling:      3,
		EscalationSLAFactor:    0.5,
		PublishRetryLimit:      3,
		PublishBackoffMS:       50,
		MonitorWindowSeconds:   60,
		MonitorBaselineWindows: 5,
		MonitorHorizonWindows:  120,
		PSIThreshold:           0.2,
		LatencyP95CeilingMS:    250,
		LatencyP99CeilingMS:    300,
		SustainedBreachWindows: 3,
		KPITarget:              0.40,
		KPIWindows:             60,
		OracleLatencyMinMS:     20,
		OracleLatencyMaxMS:     80,
		OracleFailureRate:      0,
		ModelVersion:           "fraud-gbm-7",
		FeatureWeights: map[string]float64{
			"txn_velocity_1h":   0.25,
			"amount_zscore":     0.25,
			"device_reputation": 0.20,
			"geo_mismatch":      0.15,
			"account_age_days":  0.10,
			"card_decline_rate": 0.05,
		},
		DefaultFeatureWeight: 0.05,
		Analysts:             nil,
		MaxQueueLimit:        100,
	}
}

// Validate checks invariants that must hold for any published snapshot.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return wrapInvalid("addr must not be empty")
	case c.LowThreshold < 0 || c.LowThreshold > 1:
		return wrapInvalid("low_threshold must be in [0,1]")
	case c.HighThreshold < 0 || c.HighThreshold > 1:
		return wrapInvalid("high_threshold must be in [0,1]")
	case c.LowThreshold >= c.HighThreshold:
		return wrapInvalid("low_threshold must be below high_threshold")
	case c.EscalationCeiling < 0:
		return wrapInvalid("escalation_ceiling must not be negative")
	case c.MonitorWindowSeconds <= 0:
		return wrapInvalid("monitor_window_seconds must be positive")
	case c.CaseShardCount <= 0:
		return wrapInvalid("case_shard_count must be positive")
	}
	return nil
}

// PrioritySLA returns the open-to-assignment SLA budget for a priority tier.
func (c *Config) PrioritySLA(p model.Priority) time.Duration {
	if d, ok := tierBudget(c.PrioritySLAMinutes, p); ok {
		return d
	}
	// Unknown tier falls back to the widest default budget.
	return 24 * time.Hour
}

// FirstActionSLA returns the assignment-to-first-action budget for a tier.
// An unconfigured tier falls back to the tier's full priority budget.
func (c *Config) FirstActionSLA(p model.Priority) time.Duration {
	if d, ok := tierBudget(c.FirstActionSLAMinutes, p); ok {
		return d
	}
	return c.PrioritySLA(p)
}

// ResolutionSLA returns the review-to-resolution budget for a tier.
func (c *Config) ResolutionSLA(p model.Priority) time.Duration {
	if d, ok := tierBudget(c.ResolutionSLAMinutes, p); ok {
		return d
	}
	return c.PrioritySLA(p)
}

// EscalatedSLA returns the tightened open-to-assignment budget after n
// escalations.
func (c *Config) EscalatedSLA(p model.Priority, n int) time.Duration {
	return c.TightenSLA(c.PrioritySLA(p), n)
}

// TightenSLA compresses a budget by the escalation factor n times. The
// result never drops below one minute.
func (c *Config) TightenSLA(d time.Duration, n int) time.Duration {
	factor := c.EscalationSLAFactor
	if factor <= 0 || factor >= 1 {
		factor = 0.5
	}
	for i := 0; i < n; i++ {
		d = time.Duration(float64(d) * factor)
	}
	if d < time.Minute {
		d = time.Minute
	}
	return d
}

func tierBudget(table map[string]int, p model.Priority) (time.Duration, bool) {
	if table == nil {
		return 0, false
	}
	m, ok := table[p.String()]
	if !ok || m <= 0 {
		return 0, false
	}
	return time.Duration(m) * time.Minute, true
}

// FeatureTimeout returns the feature fetch bound.
func (c *Config) FeatureTimeout() time.Duration {
	return time.Duration(c.FeatureTimeoutMS) * time.Millisecond
}

// ScoringTimeout returns the oracle call bound.
func (c *Config) ScoringTimeout() time.Duration {
	return time.Duration(c.ScoringTimeoutMS) * time.Millisecond
}

// MonitorWindow returns the rolling window length.
func (c *Config) MonitorWindow() time.Duration {
	return time.Duration(c.MonitorWindowSeconds) * time.Second
}

// PublishBackoff returns the feedback publish retry backoff.
func (c *Config) PublishBackoff() time.Duration {
	return time.Duration(c.PublishBackoffMS) * time.Millisecond
}
