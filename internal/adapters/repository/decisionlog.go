package repository

import (
	"context"
	"sync"

	"github.com/okian/vigil/internal/domain/model"
)

// MemDecisionLog implements DecisionLog in memory. Entries are append-only;
// a transaction id is recorded at most once and later records for the same
// id return the original.
type MemDecisionLog struct {
	mu    sync.RWMutex
	byTxn map[string]model.Decision
	order []string
}

// NewMemDecisionLog creates an empty decision log.
func NewMemDecisionLog() *MemDecisionLog {
	return &MemDecisionLog{
		byTxn: make(map[string]model.Decision),
	}
}

// Record appends d unless the transaction id was already logged.
func (l *MemDecisionLog) Record(_ context.Context, d model.Decision) (model.Decision, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byTxn[d.TransactionID]; ok {
		return existing, false
	}
	l.byTxn[d.TransactionID] = d
	l.order = append(l.order, d.TransactionID)
	return d, true
}

// Get returns the recorded decision for a transaction id, if any.
func (l *MemDecisionLog) Get(_ context.Context, txnID string) (model.Decision, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.byTxn[txnID]
	return d, ok
}

// Count returns the number of recorded decisions.
func (l *MemDecisionLog) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byTxn)
}

// Recent returns up to n transaction ids in reverse append order. Intended
// for stats and debugging surfaces.
func (l *MemDecisionLog) Recent(_ context.Context, n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.order) {
		n = len(l.order)
	}
	out := make([]string, 0, n)
	for i := len(l.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.order[i])
	}
	return out
}
