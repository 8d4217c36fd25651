// Package monitor watches the decision stream for score drift, latency
// regressions and review-quality KPI breaches.
//
// The monitor is a passive tap: the decision engine and case machine hand
// it copies of their outputs, and a ticker rotates fixed-length windows.
// Completed windows feed three detectors, each publishing on the alert
// channel: PSI score drift against a trailing baseline, p95/p99 latency
// ceilings with sustained-breach escalation, and a false-positive proxy
// over a longer horizon.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// WindowStats is the digest of one completed monitoring window.
type WindowStats struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Decisions int `json:"decisions"`
	Approves  int `json:"approves"`
	Denies    int `json:"denies"`
	Reviews   int `json:"reviews"`
	Fallbacks int `json:"fallbacks"`
	Degraded  int `json:"degraded"`
	Errors    int `json:"errors"`

	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms"`
	LatencyP99 float64 `json:"latency_p99_ms"`

	// ScoreDist is the normalized score histogram over ten [0,1] bins.
	ScoreDist [scoreBins]float64 `json:"score_dist"`
	// PSI is the drift index of this window against the trailing baseline.
	// Zero when no baseline existed yet.
	PSI float64 `json:"psi"`

	Resolved          int `json:"resolved"`
	ResolvedFraud     int `json:"resolved_fraud"`
	ResolvedLegit     int `json:"resolved_legitimate"`
	FeedbackPublished int `json:"feedback_published"`
}

// accumulator gathers raw observations for the open window.
type accumulator struct {
	start      time.Time
	scores     [scoreBins]int
	latencies  []float64
	decisions  int
	approves   int
	denies     int
	reviews    int
	fallbacks  int
	degraded   int
	errors     int
	resolved   int
	fraud      int
	legitimate int
	feedback   int
}

// Monitor implements the drift and latency watchdog.
type Monitor struct {
	cfg    *config.Store
	alerts queue.Queue[model.Alert]
	lg     logger.Logger

	mu      sync.Mutex
	current accumulator
	history []WindowStats

	// latencyBreaches counts consecutive windows over a latency ceiling.
	latencyBreaches int
}

// NewMonitor creates a monitor publishing on the given alert queue.
func NewMonitor(cfg *config.Store, alerts queue.Queue[model.Alert], lg logger.Logger) *Monitor {
	return &Monitor{
		cfg:     cfg,
		alerts:  alerts,
		lg:      lg,
		current: accumulator{start: time.Now().UTC()},
	}
}

// ObserveDecision records one newly created decision.
func (m *Monitor) ObserveDecision(d model.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.decisions++
	m.current.scores[binFor(d.Score)]++
	m.current.latencies = append(m.current.latencies, float64(d.LatencyMS))
	switch d.Outcome {
	case model.OutcomeApprove:
		m.current.approves++
	case model.OutcomeDeny:
		m.current.denies++
	case model.OutcomeReview:
		m.current.reviews++
	}
	if d.Fallback {
		m.current.fallbacks++
	}
	if d.Degraded {
		m.current.degraded++
	}
	if d.Error {
		m.current.errors++
	}
}

// ObserveCase records case transitions. Only terminal snapshots move the
// KPI counters.
func (m *Monitor) ObserveCase(c model.Case) {
	if !c.Status.Terminal() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.resolved++
	if c.Status == model.StatusResolvedFraud {
		m.current.fraud++
	} else {
		m.current.legitimate++
	}
}

// ObserveFeedback records one published feedback record.
func (m *Monitor) ObserveFeedback(model.FeedbackRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.feedback++
}

// Run rotates windows until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Snapshot().MonitorWindow())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Rotate(ctx)
		}
	}
}

// Rotate closes the open window, runs the detectors on it and starts a
// fresh one.
func (m *Monitor) Rotate(ctx context.Context) WindowStats {
	cfg := m.cfg.Snapshot()
	now := time.Now().UTC()

	m.mu.Lock()
	acc := m.current
	m.current = accumulator{start: now}

	stats := digest(acc, now)
	stats.PSI = m.drift(cfg, stats)

	m.history = append(m.history, stats)
	if max := cfg.MonitorHorizonWindows; max > 0 && len(m.history) > max {
		m.history = m.history[len(m.history)-max:]
	}
	kpiRate, kpiResolved := m.kpiLocked(cfg)
	m.mu.Unlock()

	metrics.RecordMonitorWindow()
	metrics.UpdateDriftScore(stats.PSI)
	metrics.UpdateWindowLatencyPercentiles(stats.LatencyP95, stats.LatencyP99)

	m.checkDrift(ctx, cfg, stats)
	m.checkLatency(ctx, cfg, stats)
	m.checkKPI(ctx, cfg, kpiRate, kpiResolved)

	return stats
}

// Windows returns the retained completed windows, oldest first.
func (m *Monitor) Windows() []WindowStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WindowStats(nil), m.history...)
}

// LastWindow returns the most recent completed window, if any.
func (m *Monitor) LastWindow() (WindowStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return WindowStats{}, false
	}
	return m.history[len(m.history)-1], true
}

// digest reduces an accumulator to immutable window stats.
func digest(acc accumulator, end time.Time) WindowStats {
	sorted := append([]float64(nil), acc.latencies...)
	sort.Float64s(sorted)

	return WindowStats{
		Start:             acc.start,
		End:               end,
		Decisions:         acc.decisions,
		Approves:          acc.approves,
		Denies:            acc.denies,
		Reviews:           acc.reviews,
		Fallbacks:         acc.fallbacks,
		Degraded:          acc.degraded,
		Errors:            acc.errors,
		LatencyP50:        percentile(sorted, 0.50),
		LatencyP95:        percentile(sorted, 0.95),
		LatencyP99:        percentile(sorted, 0.99),
		ScoreDist:         proportions(acc.scores),
		Resolved:          acc.resolved,
		ResolvedFraud:     acc.fraud,
		ResolvedLegit:     acc.legitimate,
		FeedbackPublished: acc.feedback,
	}
}

// drift computes the PSI of stats against the baseline formed by the
// trailing configured number of windows. Requires m.mu held.
func (m *Monitor) drift(cfg *config.Config, stats WindowStats) float64 {
	n := cfg.MonitorBaselineWindows
	if n <= 0 || len(m.history) == 0 || stats.Decisions == 0 {
		return 0
	}
	if len(m.history) < n {
		n = len(m.history)
	}

	var baseline [scoreBins]float64
	for _, w := range m.history[len(m.history)-n:] {
		for i := range baseline {
			baseline[i] += w.ScoreDist[i]
		}
	}
	for i := range baseline {
		baseline[i] /= float64(n)
	}
	return psi(stats.ScoreDist, baseline)
}

// kpiLocked computes the false-positive proxy over the KPI horizon: the
// share of resolved review cases that turned out legitimate. Requires m.mu
// held.
func (m *Monitor) kpiLocked(cfg *config.Config) (rate float64, resolved int) {
	n := cfg.KPIWindows
	if n <= 0 || n > len(m.history) {
		n = len(m.history)
	}
	legit := 0
	for _, w := range m.history[len(m.history)-n:] {
		resolved += w.Resolved
		legit += w.ResolvedLegit
	}
	if resolved == 0 {
		return 0, 0
	}
	return float64(legit) / float64(resolved), resolved
}

func (m *Monitor) checkDrift(ctx context.Context, cfg *config.Config, stats WindowStats) {
	if cfg.PSIThreshold <= 0 || stats.PSI <= cfg.PSIThreshold {
		return
	}

	severity := model.SeverityWarning
	switch {
	case stats.PSI > 2*cfg.PSIThreshold:
		severity = model.SeverityCritical
	case stats.PSI > 1.5*cfg.PSIThreshold:
		severity = model.SeverityHigh
	}

	m.emit(ctx, model.Alert{
		Kind:     model.AlertDrift,
		Severity: severity,
		Window:   stats.Start.Format(time.RFC3339),
		Detail:   fmt.Sprintf("score distribution PSI %.3f exceeds threshold %.3f", stats.PSI, cfg.PSIThreshold),
		At:       stats.End,
	})
}

func (m *Monitor) checkLatency(ctx context.Context, cfg *config.Config, stats WindowStats) {
	breachP95 := cfg.LatencyP95CeilingMS > 0 && stats.LatencyP95 > cfg.LatencyP95CeilingMS
	breachP99 := cfg.LatencyP99CeilingMS > 0 && stats.LatencyP99 > cfg.LatencyP99CeilingMS
	if !breachP95 && !breachP99 {
		m.latencyBreaches = 0
		return
	}

	m.latencyBreaches++
	severity := model.SeverityHigh
	if cfg.SustainedBreachWindows > 0 && m.latencyBreaches >= cfg.SustainedBreachWindows {
		severity = model.SeverityCritical
	}

	m.emit(ctx, model.Alert{
		Kind:     model.AlertLatency,
		Severity: severity,
		Window:   stats.Start.Format(time.RFC3339),
		Detail: fmt.Sprintf("decision latency p95=%.0fms p99=%.0fms over ceiling (p95<=%.0fms p99<=%.0fms), %d consecutive window(s)",
			stats.LatencyP95, stats.LatencyP99, cfg.LatencyP95CeilingMS, cfg.LatencyP99CeilingMS, m.latencyBreaches),
		At: stats.End,
	})
}

// kpiMinResolutions gates the KPI detector until the sample is meaningful.
const kpiMinResolutions = 10

func (m *Monitor) checkKPI(ctx context.Context, cfg *config.Config, rate float64, resolved int) {
	if cfg.KPITarget <= 0 || resolved < kpiMinResolutions || rate <= cfg.KPITarget {
		return
	}

	m.emit(ctx, model.Alert{
		Kind:     model.AlertKPI,
		Severity: model.SeverityWarning,
		Detail: fmt.Sprintf("false-positive proxy %.2f exceeds target %.2f over %d resolutions",
			rate, cfg.KPITarget, resolved),
		At: time.Now().UTC(),
	})
}

func (m *Monitor) emit(ctx context.Context, a model.Alert) {
	if m.alerts == nil {
		return
	}
	if m.alerts.Enqueue(ctx, a) {
		metrics.RecordAlert(string(a.Kind), string(a.Severity))
	} else {
		m.lg.Warn(ctx, "alert channel full, alert dropped",
			logger.String("kind", string(a.Kind)),
			logger.String("detail", a.Detail),
		)
	}
}
