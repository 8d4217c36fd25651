// Package decision implements the synchronous scoring and thresholding
// pipeline that turns a transaction into an approve, deny or review outcome.
package decision

import (
	"context"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/dedupe"
	"github.com/okian/vigil/internal/domain/features"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/scoring"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Observer receives every newly created decision. The drift and latency
// monitor implements it; a nil observer disables observation.
type Observer interface {
	ObserveDecision(d model.Decision)
}

// Engine owns the decision path for one transaction: feature fetch under a
// soft timeout, oracle scoring under a hard timeout with rule-based
// fallback, thresholding, and append-only recording. Replays of an already
// decided transaction return the original decision unchanged.
type Engine struct {
	cfg      *config.Store
	features features.Store
	oracle   scoring.Oracle
	rules    *scoring.RuleScorer
	log      repository.DecisionLog
	seen     dedupe.Deduper
	bus      queue.Queue[model.DecisionEvent]
	observer Observer
	lg       logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithObserver taps every newly created decision.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithDeduper sets the in-flight duplicate guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(e *Engine) {
		if d != nil {
			e.seen = d
		}
	}
}

// NewEngine creates a decision engine.
func NewEngine(
	cfg *config.Store,
	featureStore features.Store,
	oracle scoring.Oracle,
	decisionLog repository.DecisionLog,
	bus queue.Queue[model.DecisionEvent],
	lg logger.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		cfg:      cfg,
		features: featureStore,
		oracle:   oracle,
		rules:    scoring.NewRuleScorer(),
		log:      decisionLog,
		bus:      bus,
		seen:     dedupe.NewInMemoryDeduper(),
		lg:       lg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide produces the decision for a transaction. The second return is
// false when the transaction was already decided and the stored decision
// was replayed.
func (e *Engine) Decide(ctx context.Context, txn model.Transaction) (model.Decision, bool) {
	start := time.Now()
	cfg := e.cfg.Snapshot()

	// Fast replay path. The log is authoritative; the deduper only spares
	// the log lookup for recently seen ids.
	if e.seen.SeenAndRecord(ctx, txn.ID) {
		if d, ok := e.log.Get(ctx, txn.ID); ok {
			metrics.RecordDecisionDuplicate()
			return d, false
		}
		// Seen but not yet logged: a concurrent first call is still in
		// flight. Fall through; Record resolves the race below.
	}

	if budget := time.Duration(cfg.DecisionBudgetMS) * time.Millisecond; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	d := e.decide(ctx, cfg, txn)
	d.LatencyMS = time.Since(start).Milliseconds()

	stored, created := e.log.Record(ctx, d)
	if !created {
		metrics.RecordDecisionDuplicate()
		return stored, false
	}

	metrics.RecordDecision(stored.Outcome.String())
	metrics.RecordDecisionLatency(float64(stored.LatencyMS))
	if stored.Degraded {
		metrics.RecordDecisionDegraded()
	}
	if stored.Fallback {
		metrics.RecordDecisionFallback()
	}
	if stored.Error {
		metrics.RecordDecisionError()
	}

	if e.observer != nil {
		e.observer.ObserveDecision(stored)
	}

	if !e.bus.Enqueue(ctx, model.DecisionEvent{Decision: stored, Transaction: txn}) {
		e.lg.Warn(ctx, "decision bus full, dispatch skipped",
			logger.String("transaction_id", stored.TransactionID),
			logger.String("outcome", stored.Outcome.String()),
		)
	}

	return stored, true
}

// decide runs the scoring stages and produces an unrecorded decision.
// Failures never propagate to the caller: an unusable score fails open to
// review so a human always sees the transaction.
func (e *Engine) decide(ctx context.Context, cfg *config.Config, txn model.Transaction) model.Decision {
	d := model.Decision{
		TransactionID: txn.ID,
		DecidedAt:     time.Now().UTC(),
	}

	featureCtx, cancelFeat := withTimeout(ctx, cfg.FeatureTimeout())
	vec, err := e.features.Fetch(featureCtx, txn)
	cancelFeat()
	if err != nil {
		e.lg.Warn(ctx, "feature fetch failed, failing open to review",
			logger.String("transaction_id", txn.ID),
			logger.Error(err),
		)
		d.Outcome = model.OutcomeReview
		d.Degraded = true
		d.Error = true
		return d
	}
	d.Degraded = vec.Partial

	scoreCtx, cancelScore := withTimeout(ctx, cfg.ScoringTimeout())
	score, err := e.oracle.Score(scoreCtx, vec)
	cancelScore()
	if err != nil {
		// Oracle unavailability is expected operation, not an error path:
		// the rule scorer produces a usable low-confidence score.
		e.lg.Debug(ctx, "oracle unavailable, using rule fallback",
			logger.String("transaction_id", txn.ID),
			logger.Error(err),
		)
		score = e.rules.Score(txn, vec)
		d.Fallback = true
	}

	d.Score = score.Probability
	d.Confidence = score.Confidence
	d.ModelVersion = score.ModelVersion
	d.Outcome = threshold(cfg, score.Probability)
	return d
}

// withTimeout bounds ctx only when the configured timeout is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// threshold maps a score to an outcome using the configured review band.
func threshold(cfg *config.Config, score float64) model.Outcome {
	switch {
	case score < cfg.LowThreshold:
		return model.OutcomeApprove
	case score > cfg.HighThreshold:
		return model.OutcomeDeny
	default:
		return model.OutcomeReview
	}
}
