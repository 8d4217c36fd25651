// Package service assembles the fraud decision pipeline and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/caseflow"
	"github.com/okian/vigil/internal/domain/decision"
	"github.com/okian/vigil/internal/domain/dedupe"
	"github.com/okian/vigil/internal/domain/dispatch"
	"github.com/okian/vigil/internal/domain/features"
	"github.com/okian/vigil/internal/domain/feedback"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/monitor"
	"github.com/okian/vigil/internal/domain/scoring"
	"github.com/okian/vigil/pkg/logger"
)

// alertHistoryLimit bounds the in-memory alert log served by the API.
const alertHistoryLimit = 1024

// Service owns every pipeline component and their background loops. It
// implements api.Dependencies and api.StatsProvider.
type Service struct {
	cfg *config.Store
	lg  logger.Logger

	bus           *queue.InMemory[model.DecisionEvent]
	caseTopic     *queue.InMemory[model.Case]
	feedbackTopic *queue.InMemory[model.FeedbackRecord]
	deadLetter    *queue.InMemory[model.FeedbackRecord]
	alertChan     *queue.InMemory[model.Alert]

	caseStore   *repository.MemCaseStore
	decisionLog *repository.MemDecisionLog
	rq          *repository.ReviewQueue

	featureStore features.Store
	oracle       scoring.Oracle

	engine     *decision.Engine
	machine    *caseflow.Machine
	dispatcher *dispatch.Dispatcher
	publisher  *feedback.Publisher
	mon        *monitor.Monitor
	pool       *worker.Pool

	alertMu  sync.RWMutex
	alertLog []model.Alert

	caseEvents    atomic.Int64
	feedbackCount atomic.Int64
	nextAnalyst   atomic.Uint64

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Interface conformance checked at compile time.
var (
	_ api.Dependencies  = (*Service)(nil)
	_ api.StatsProvider = (*Service)(nil)
)

// New assembles the pipeline. Case shard actors start immediately; bus
// workers and the monitor start on Start.
func New(ctx context.Context, cfg *config.Store, opts ...Option) *Service {
	runCtx, cancel := context.WithCancel(ctx)
	snap := cfg.Snapshot()

	s := &Service{
		cfg:    cfg,
		lg:     logger.Get().Named("service"),
		runCtx: runCtx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.bus = queue.NewInMemory[model.DecisionEvent]("decisions",
		queue.WithCapacity[model.DecisionEvent](snap.DecisionBusSize))
	s.caseTopic = queue.NewInMemory[model.Case]("cases",
		queue.WithCapacity[model.Case](snap.CaseTopicSize))
	s.feedbackTopic = queue.NewInMemory[model.FeedbackRecord]("feedback",
		queue.WithCapacity[model.FeedbackRecord](snap.FeedbackTopicSize))
	s.deadLetter = queue.NewInMemory[model.FeedbackRecord]("feedback-dlq",
		queue.WithCapacity[model.FeedbackRecord](snap.DeadLetterSize))
	s.alertChan = queue.NewInMemory[model.Alert]("alerts",
		queue.WithCapacity[model.Alert](snap.AlertChannelSize))

	s.caseStore = repository.NewMemCaseStore(repository.WithShardCount(snap.CaseShardCount))
	s.decisionLog = repository.NewMemDecisionLog()
	s.rq = repository.NewReviewQueue(runCtx)

	if s.featureStore == nil {
		s.featureStore = features.NewInMemoryStore(features.WithSnapshotVersion("v1"))
	}
	if s.oracle == nil {
		s.oracle = scoring.NewInMemoryOracle(
			scoring.WithLatencyRange(
				millis(snap.OracleLatencyMinMS),
				millis(snap.OracleLatencyMaxMS),
			),
			scoring.WithFailureRate(snap.OracleFailureRate),
			scoring.WithModelVersion(snap.ModelVersion),
			scoring.WithFeatureWeights(snap.FeatureWeights, snap.DefaultFeatureWeight),
		)
	}

	s.mon = monitor.NewMonitor(cfg, s.alertChan, s.lg)

	s.publisher = feedback.NewPublisher(cfg, s.feedbackTopic, s.deadLetter, s.lg,
		feedback.WithAlertQueue(s.alertChan),
		feedback.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(snap.DedupeSize))),
	)

	s.machine = caseflow.NewMachine(runCtx, cfg, s.caseStore, s.rq, s.caseTopic, s.lg,
		caseflow.WithAlertQueue(s.alertChan),
		caseflow.WithFeedbackSink(s.publisher),
		caseflow.WithObserver(s.mon),
	)

	s.dispatcher = dispatch.NewDispatcher(cfg, s.caseStore, s.machine, s.lg)

	s.engine = decision.NewEngine(cfg, s.featureStore, s.oracle, s.decisionLog, s.bus, s.lg,
		decision.WithObserver(s.mon),
		decision.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(snap.DedupeSize))),
	)

	s.pool = worker.NewPool(snap.DispatchWorkerCount, s.bus, s.dispatcher,
		worker.WithAutoAssign(s.autoAssign))

	return s
}

// Start launches the dispatch workers, the monitor and the internal
// consumer loops.
func (s *Service) Start() {
	s.pool.Start(s.runCtx)

	s.wg.Add(4)
	go func() {
		defer s.wg.Done()
		s.mon.Run(s.runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.collectAlerts()
	}()
	go func() {
		defer s.wg.Done()
		s.consumeFeedback()
	}()
	go func() {
		defer s.wg.Done()
		s.consumeCaseEvents()
	}()
}

// Stop drains the pipeline: the bus is closed and workers finish in-flight
// events before the lifecycle machine and queues shut down.
func (s *Service) Stop(ctx context.Context) error {
	err := s.pool.Shutdown(ctx)

	_ = s.machine.Close()
	_ = s.rq.Close()
	_ = s.caseTopic.Close()
	_ = s.feedbackTopic.Close()
	_ = s.deadLetter.Close()
	_ = s.alertChan.Close()

	s.cancel()
	s.wg.Wait()
	return err
}

// collectAlerts drains the alert channel into a bounded in-memory log.
func (s *Service) collectAlerts() {
	for a := range s.alertChan.Dequeue(s.runCtx) {
		s.alertMu.Lock()
		s.alertLog = append(s.alertLog, a)
		if len(s.alertLog) > alertHistoryLimit {
			s.alertLog = s.alertLog[len(s.alertLog)-alertHistoryLimit:]
		}
		s.alertMu.Unlock()
	}
}

// consumeCaseEvents drains the case snapshot topic. Downstream systems
// would subscribe here; we count the snapshots so /stats reflects case
// activity.
func (s *Service) consumeCaseEvents() {
	for range s.caseTopic.Dequeue(s.runCtx) {
		s.caseEvents.Add(1)
	}
}

// consumeFeedback stands in for the retraining consumer: it drains the
// feedback topic and feeds label counts to the monitor.
func (s *Service) consumeFeedback() {
	for rec := range s.feedbackTopic.Dequeue(s.runCtx) {
		s.feedbackCount.Add(1)
		s.mon.ObserveFeedback(rec)
	}
}

// autoAssign hands a freshly opened case to the next analyst in the
// configured rotation. With no analysts configured the case stays pooled.
func (s *Service) autoAssign(ctx context.Context, c model.Case) error {
	analysts := s.cfg.Snapshot().Analysts
	if len(analysts) == 0 {
		return nil
	}
	idx := (s.nextAnalyst.Add(1) - 1) % uint64(len(analysts))
	_, err := s.machine.Apply(ctx, c.CaseID, caseflow.Assign{Assignee: analysts[idx]})
	return err
}

// Decide scores a transaction synchronously.
func (s *Service) Decide(ctx context.Context, txn model.Transaction) (model.Decision, bool) {
	return s.engine.Decide(ctx, txn)
}

// GetDecision returns the recorded decision for a transaction id.
func (s *Service) GetDecision(ctx context.Context, txnID string) (model.Decision, bool) {
	return s.decisionLog.Get(ctx, txnID)
}

// GetCase returns an open or archived case.
func (s *Service) GetCase(ctx context.Context, caseID string) (model.Case, error) {
	return s.caseStore.Get(ctx, caseID)
}

// QueueTop returns the most urgent open cases.
func (s *Service) QueueTop(ctx context.Context, limit int) ([]repository.QueueEntry, error) {
	return s.rq.TopN(ctx, limit)
}

// AssignCase hands a case to an analyst.
func (s *Service) AssignCase(ctx context.Context, caseID, assignee string) (model.Case, error) {
	return s.machine.Apply(ctx, caseID, caseflow.Assign{Assignee: assignee})
}

// StartReview marks a case as actively worked by its analyst.
func (s *Service) StartReview(ctx context.Context, caseID, analyst, note string) (model.Case, error) {
	return s.machine.Apply(ctx, caseID, caseflow.OpenReview{Analyst: analyst, Note: note})
}

// ResolveCase closes a case with a verdict.
func (s *Service) ResolveCase(ctx context.Context, caseID string, label model.Label, resolvedBy, note string) (model.Case, error) {
	return s.machine.Apply(ctx, caseID, caseflow.Resolve{Label: label, ResolvedBy: resolvedBy, Note: note})
}

// EscalateCase raises a case's urgency manually.
func (s *Service) EscalateCase(ctx context.Context, caseID, by, reason string) (model.Case, error) {
	return s.machine.Apply(ctx, caseID, caseflow.Escalate{By: by, Reason: reason})
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Service) RecentAlerts(limit int) []model.Alert {
	s.alertMu.RLock()
	defer s.alertMu.RUnlock()

	n := len(s.alertLog)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Alert, 0, n)
	for i := len(s.alertLog) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.alertLog[i])
	}
	return out
}

// MonitorWindows returns completed monitoring windows, oldest first.
func (s *Service) MonitorWindows() []monitor.WindowStats {
	return s.mon.Windows()
}

// MaxQueueLimit caps the queue page size.
func (s *Service) MaxQueueLimit() int {
	return s.cfg.Snapshot().MaxQueueLimit
}

// GetStats returns an operational snapshot for GET /stats.
func (s *Service) GetStats() map[string]interface{} {
	ctx := context.Background()
	s.alertMu.RLock()
	alerts := len(s.alertLog)
	s.alertMu.RUnlock()

	return map[string]interface{}{
		"decisions":          s.decisionLog.Count(ctx),
		"open_cases":         s.caseStore.OpenCount(ctx),
		"archived_cases":     s.caseStore.ArchivedCount(ctx),
		"review_queue_depth": s.rq.Len(ctx),
		"case_events":        s.caseEvents.Load(),
		"decision_bus_depth": s.bus.Len(ctx),
		"feedback_published": s.feedbackCount.Load(),
		"dead_letters":       s.deadLetter.Len(ctx),
		"alerts":             alerts,
		"monitor_windows":    len(s.mon.Windows()),
	}
}

// Machine exposes the lifecycle machine for tooling that injects events
// directly.
func (s *Service) Machine() *caseflow.Machine {
	return s.machine
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
