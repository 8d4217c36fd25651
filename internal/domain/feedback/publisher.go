// Package feedback publishes labeled outcomes of resolved cases for the
// retraining pipeline.
//
// Delivery is exactly-once per transaction id: a bounded deduper guards
// against redelivery when a case resolution is replayed, and records that
// cannot be published after bounded retries land in a dead-letter queue
// instead of being lost or duplicated.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/dedupe"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Publisher turns resolved cases into feedback records on the feedback
// topic. It implements the lifecycle machine's FeedbackSink.
type Publisher struct {
	cfg        *config.Store
	topic      queue.Queue[model.FeedbackRecord]
	deadLetter queue.Queue[model.FeedbackRecord]
	alerts     queue.Queue[model.Alert]
	seen       dedupe.Deduper
	lg         logger.Logger
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithAlertQueue publishes delivery-failure alerts on q.
func WithAlertQueue(q queue.Queue[model.Alert]) Option {
	return func(p *Publisher) {
		p.alerts = q
	}
}

// WithDeduper sets the redelivery guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Publisher) {
		if d != nil {
			p.seen = d
		}
	}
}

// NewPublisher creates a feedback publisher.
func NewPublisher(
	cfg *config.Store,
	topic queue.Queue[model.FeedbackRecord],
	deadLetter queue.Queue[model.FeedbackRecord],
	lg logger.Logger,
	opts ...Option,
) *Publisher {
	p := &Publisher{
		cfg:        cfg,
		topic:      topic,
		deadLetter: deadLetter,
		seen:       dedupe.NewInMemoryDeduper(),
		lg:         lg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnResolved publishes the feedback record for a resolved case. Redelivery
// of an already published transaction is a counted noop.
func (p *Publisher) OnResolved(ctx context.Context, c model.Case) {
	if c.Resolution == nil {
		p.lg.Warn(ctx, "resolved case without resolution, feedback skipped",
			logger.String("case_id", c.CaseID),
		)
		return
	}

	if p.seen.SeenAndRecord(ctx, c.TransactionID) {
		metrics.RecordFeedbackDuplicate()
		return
	}

	rec := model.FeedbackRecord{
		TransactionID:   c.TransactionID,
		Label:           c.Resolution.Label,
		ResolvedAt:      c.Resolution.ResolvedAt,
		ResolvingCaseID: c.CaseID,
	}

	if p.publishWithRetry(ctx, rec) {
		metrics.RecordFeedbackPublished()
		return
	}
	p.deadLetterRecord(ctx, rec)
}

// publishWithRetry attempts the enqueue with bounded exponential backoff.
func (p *Publisher) publishWithRetry(ctx context.Context, rec model.FeedbackRecord) bool {
	cfg := p.cfg.Snapshot()
	backoff := cfg.PublishBackoff()

	for attempt := 0; attempt <= cfg.PublishRetryLimit; attempt++ {
		if attempt > 0 {
			metrics.RecordFeedbackRetry()
			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return false
			}
			backoff *= 2
		}
		if p.topic.Enqueue(ctx, rec) {
			return true
		}
	}
	return false
}

// deadLetterRecord parks an undeliverable record and raises an alert. The
// deduper entry is kept: the record is recoverable from the dead-letter
// queue, and re-publishing it live would risk a duplicate.
func (p *Publisher) deadLetterRecord(ctx context.Context, rec model.FeedbackRecord) {
	metrics.RecordFeedbackDeadLettered()

	if p.deadLetter == nil || !p.deadLetter.Enqueue(ctx, rec) {
		p.lg.Error(ctx, "feedback record lost, dead-letter queue unavailable",
			logger.String("transaction_id", rec.TransactionID),
			logger.String("case_id", rec.ResolvingCaseID),
		)
	} else {
		p.lg.Warn(ctx, "feedback record dead-lettered",
			logger.String("transaction_id", rec.TransactionID),
			logger.String("case_id", rec.ResolvingCaseID),
		)
	}

	if p.alerts != nil {
		a := model.Alert{
			Kind:     model.AlertPublish,
			Severity: model.SeverityHigh,
			Detail:   fmt.Sprintf("feedback publish failed for transaction %s, record dead-lettered", rec.TransactionID),
			At:       time.Now().UTC(),
		}
		if p.alerts.Enqueue(ctx, a) {
			metrics.RecordAlert(string(a.Kind), string(a.Severity))
		}
	}
}
