// Package caseflow implements the case lifecycle state machine.
//
// Every open case is owned by exactly one shard actor, selected by hashing
// the case id. All lifecycle events for a case, analyst actions and SLA
// timer fires alike, serialize through that actor, so transitions never
// race and no per-case locking is needed.
package caseflow

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Default machine configuration constants.
const (
	defaultShardCount = 16
	shardBufferSize   = 256
)

// FeedbackSink receives every resolved case exactly once per resolution.
// The feedback publisher implements it.
type FeedbackSink interface {
	OnResolved(ctx context.Context, c model.Case)
}

// Observer receives a snapshot of every case transition. The drift and
// latency monitor implements it; a nil observer disables observation.
type Observer interface {
	ObserveCase(c model.Case)
}

// command is one serialized unit of work for a shard actor.
type command struct {
	caseID string
	ev     Event
	open   *model.Case
	reply  chan result
}

type result struct {
	c   model.Case
	err error
}

// Machine applies lifecycle events to cases and owns their SLA timers.
type Machine struct {
	cfg      *config.Store
	store    repository.CaseStore
	rq       *repository.ReviewQueue
	topic    queue.Queue[model.Case]
	alerts   queue.Queue[model.Alert]
	feedback FeedbackSink
	observer Observer
	timers   *timerRegistry
	shards   []chan command
	lg       logger.Logger

	ctx      context.Context
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithAlertQueue publishes supervisory alerts on q.
func WithAlertQueue(q queue.Queue[model.Alert]) Option {
	return func(m *Machine) {
		m.alerts = q
	}
}

// WithFeedbackSink delivers resolved cases to sink.
func WithFeedbackSink(sink FeedbackSink) Option {
	return func(m *Machine) {
		m.feedback = sink
	}
}

// WithObserver taps every case transition snapshot.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observer = o
	}
}

// NewMachine creates the lifecycle machine and starts its shard actors.
// Actors run until ctx is canceled or Close is called.
func NewMachine(
	ctx context.Context,
	cfg *config.Store,
	store repository.CaseStore,
	rq *repository.ReviewQueue,
	topic queue.Queue[model.Case],
	lg logger.Logger,
	opts ...Option,
) *Machine {
	m := &Machine{
		cfg:      cfg,
		store:    store,
		rq:       rq,
		topic:    topic,
		timers:   newTimerRegistry(),
		lg:       lg,
		ctx:      ctx,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	count := cfg.Snapshot().CaseShardCount
	if count <= 0 {
		count = defaultShardCount
	}
	m.shards = make([]chan command, count)
	for i := range m.shards {
		m.shards[i] = make(chan command, shardBufferSize)
		m.wg.Add(1)
		go m.runShard(m.shards[i])
	}
	return m
}

// Close stops the shard actors and disarms all pending SLA timers.
func (m *Machine) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	m.timers.stopAll()
	return nil
}

func (m *Machine) shardFor(caseID string) chan command {
	h := fnv.New32a()
	_, _ = h.Write([]byte(caseID))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Open creates a case in the intake state, arms its SLA timer and indexes
// it in the review queue.
func (m *Machine) Open(ctx context.Context, c model.Case) (model.Case, error) {
	return m.send(ctx, command{caseID: c.CaseID, open: &c, reply: make(chan result, 1)})
}

// Apply delivers a lifecycle event to a case and returns the resulting
// snapshot.
func (m *Machine) Apply(ctx context.Context, caseID string, ev Event) (model.Case, error) {
	return m.send(ctx, command{caseID: caseID, ev: ev, reply: make(chan result, 1)})
}

func (m *Machine) send(ctx context.Context, cmd command) (model.Case, error) {
	select {
	case m.shardFor(cmd.caseID) <- cmd:
	case <-m.stopChan:
		return model.Case{}, ErrStopped
	case <-ctx.Done():
		return model.Case{}, fmt.Errorf("case %s: %w", cmd.caseID, ctx.Err())
	}
	select {
	case res := <-cmd.reply:
		return res.c, res.err
	case <-ctx.Done():
		return model.Case{}, fmt.Errorf("case %s: %w", cmd.caseID, ctx.Err())
	}
}

func (m *Machine) runShard(ch chan command) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopChan:
			return
		case <-m.ctx.Done():
			return
		case cmd := <-ch:
			var res result
			if cmd.open != nil {
				res.c, res.err = m.doOpen(m.ctx, *cmd.open)
			} else {
				res.c, res.err = m.handle(m.ctx, cmd.caseID, cmd.ev)
			}
			cmd.reply <- res
		}
	}
}

func (m *Machine) doOpen(ctx context.Context, c model.Case) (model.Case, error) {
	now := time.Now().UTC()
	if c.Status == 0 {
		c.Status = model.StatusIntake
	}
	if c.OpenedAt.IsZero() {
		c.OpenedAt = now
	}
	c.UpdatedAt = now

	if err := m.store.Create(ctx, c); err != nil {
		return model.Case{}, err
	}

	metrics.RecordCaseOpened()
	m.scheduleSLA(c)
	m.rq.Upsert(ctx, queueEntry(c))
	m.publish(c)

	m.lg.Info(ctx, "case opened",
		logger.String("case_id", c.CaseID),
		logger.String("transaction_id", c.TransactionID),
		logger.String("priority", c.Priority.String()),
		logger.Float64("score", c.Decision.Score),
	)
	return c, nil
}

func (m *Machine) handle(ctx context.Context, caseID string, ev Event) (model.Case, error) {
	c, err := m.store.Get(ctx, caseID)
	if err != nil {
		return model.Case{}, err
	}

	if c.Status.Terminal() {
		if _, stale := ev.(slaExpired); stale {
			metrics.RecordStaleTimerFire()
			return c, nil
		}
		return c, fmt.Errorf("%w: %s", ErrCaseClosed, caseID)
	}

	from := c.Status
	now := time.Now().UTC()
	cfg := m.cfg.Snapshot()
	rearm := false

	switch ev := ev.(type) {
	case Enrich:
		if c.Status != model.StatusIntake {
			return c, invalid(ev, c)
		}
		c.Status = model.StatusEnriched

	case Assign:
		if c.Status != model.StatusEnriched && c.Status != model.StatusAssigned && c.Status != model.StatusEscalated {
			return c, invalid(ev, c)
		}
		c.Assignee = ev.Assignee
		c.Status = model.StatusAssigned
		// Assignment starts the first-action clock. The generation bump
		// invalidates whichever timer the previous status owned.
		c.Generation++
		c.SLADeadline = now.Add(cfg.TightenSLA(cfg.FirstActionSLA(c.Priority), c.Escalations))
		rearm = true

	case OpenReview:
		if c.Status != model.StatusAssigned {
			return c, invalid(ev, c)
		}
		if ev.Analyst != "" {
			c.Assignee = ev.Analyst
		}
		if ev.Note != "" {
			c.Notes = append(c.Notes, model.Note{Author: c.Assignee, Text: ev.Note, At: now})
		}
		c.Status = model.StatusInReview
		// Review start swaps the first-action clock for the resolution clock.
		c.Generation++
		c.SLADeadline = now.Add(cfg.TightenSLA(cfg.ResolutionSLA(c.Priority), c.Escalations))
		rearm = true

	case Resolve:
		if c.Status != model.StatusInReview {
			return c, invalid(ev, c)
		}
		return m.resolve(ctx, c, ev, now)

	case Escalate:
		if c.Status != model.StatusAssigned && c.Status != model.StatusInReview {
			return c, invalid(ev, c)
		}
		m.escalate(&c, now)

	case slaExpired:
		if ev.generation != c.Generation {
			metrics.RecordStaleTimerFire()
			return c, nil
		}
		metrics.RecordSLABreach()
		m.lg.Warn(ctx, "sla deadline breached",
			logger.String("case_id", c.CaseID),
			logger.String("priority", c.Priority.String()),
			logger.Int("escalations", c.Escalations),
		)
		m.escalate(&c, now)

	default:
		return c, invalid(ev, c)
	}

	c.UpdatedAt = now
	if err := m.store.Update(ctx, c); err != nil {
		return model.Case{}, err
	}
	if rearm {
		m.scheduleSLA(c)
	}

	m.rq.Upsert(ctx, queueEntry(c))
	metrics.RecordCaseTransition(from.String(), c.Status.String())
	m.publish(c)
	return c, nil
}

// resolve closes the case, archives it and hands it to the feedback sink.
func (m *Machine) resolve(ctx context.Context, c model.Case, ev Resolve, now time.Time) (model.Case, error) {
	from := c.Status
	switch ev.Label {
	case model.LabelFraud:
		c.Status = model.StatusResolvedFraud
	case model.LabelLegitimate:
		c.Status = model.StatusResolvedLegitimate
	default:
		return c, fmt.Errorf("%w: unknown resolution label", ErrInvalidTransition)
	}
	c.Resolution = &model.Resolution{Label: ev.Label, ResolvedBy: ev.ResolvedBy, ResolvedAt: now}
	if ev.Note != "" {
		c.Notes = append(c.Notes, model.Note{Author: ev.ResolvedBy, Text: ev.Note, At: now})
	}
	c.UpdatedAt = now

	m.timers.cancel(c.CaseID)
	if err := m.store.Archive(ctx, c); err != nil {
		return model.Case{}, err
	}
	m.rq.Remove(ctx, c.CaseID)

	metrics.RecordCaseTransition(from.String(), c.Status.String())
	metrics.RecordCaseResolved(ev.Label.String())
	m.publish(c)

	if m.feedback != nil {
		m.feedback.OnResolved(ctx, c)
	}

	m.lg.Info(ctx, "case resolved",
		logger.String("case_id", c.CaseID),
		logger.String("label", ev.Label.String()),
		logger.String("resolved_by", ev.ResolvedBy),
	)
	return c, nil
}

// escalate raises urgency and returns the case to the assignment pool with
// a fresh, tighter deadline. The generation bump invalidates the previous
// SLA timer.
func (m *Machine) escalate(c *model.Case, now time.Time) {
	cfg := m.cfg.Snapshot()

	c.Generation++
	c.Status = model.StatusEscalated
	c.Assignee = ""

	// The senior queue already owns a routed case: urgency stops tightening
	// and no breach timer is re-armed for it.
	if c.SeniorRouted {
		m.timers.cancel(c.CaseID)
		return
	}

	c.Escalations++
	c.Priority = c.Priority.Elevate()
	metrics.RecordEscalation()

	if c.Escalations > cfg.EscalationCeiling {
		c.SeniorRouted = true
		m.timers.cancel(c.CaseID)
		metrics.RecordSeniorRouting()
		m.emitAlert(model.Alert{
			Kind:     model.AlertEscalation,
			Severity: model.SeverityCritical,
			Detail: fmt.Sprintf("case %s exceeded escalation ceiling (%d), routed to senior queue",
				c.CaseID, cfg.EscalationCeiling),
			At: now,
		})
		return
	}

	c.SLADeadline = now.Add(cfg.EscalatedSLA(c.Priority, c.Escalations))
	m.scheduleSLA(*c)
}

// scheduleSLA arms the case's deadline timer. The fired timer re-enters the
// machine as an ordinary event, so breaches serialize with analyst actions.
func (m *Machine) scheduleSLA(c model.Case) {
	caseID := c.CaseID
	m.timers.schedule(caseID, c.Generation, c.SLADeadline, func(generation uint64) {
		if _, err := m.Apply(m.ctx, caseID, slaExpired{generation: generation}); err != nil {
			m.lg.Warn(m.ctx, "sla timer apply failed",
				logger.String("case_id", caseID),
				logger.Error(err),
			)
		}
	})
}

func (m *Machine) publish(c model.Case) {
	if m.observer != nil {
		m.observer.ObserveCase(c)
	}
	if m.topic != nil && !m.topic.Enqueue(m.ctx, c) {
		m.lg.Warn(m.ctx, "case topic full, snapshot dropped",
			logger.String("case_id", c.CaseID),
		)
	}
}

func (m *Machine) emitAlert(a model.Alert) {
	if m.alerts == nil {
		return
	}
	if m.alerts.Enqueue(m.ctx, a) {
		metrics.RecordAlert(string(a.Kind), string(a.Severity))
	} else {
		m.lg.Warn(m.ctx, "alert channel full, alert dropped",
			logger.String("kind", string(a.Kind)),
		)
	}
}

func queueEntry(c model.Case) repository.QueueEntry {
	return repository.QueueEntry{
		CaseID:        c.CaseID,
		TransactionID: c.TransactionID,
		Priority:      c.Priority,
		SLADeadline:   c.SLADeadline,
		Score:         c.Decision.Score,
		Status:        c.Status,
	}
}

func invalid(ev Event, c model.Case) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev.kind(), c.Status)
}
