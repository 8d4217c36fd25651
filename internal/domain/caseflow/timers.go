package caseflow

import (
	"sync"
	"time"
)

// slaTimer is one pending deadline for a case.
type slaTimer struct {
	timer      *time.Timer
	generation uint64
}

// timerRegistry owns the SLA timers, at most one per case. Rescheduling
// replaces the pending timer; a replaced timer may still fire, which the
// machine discards by generation comparison.
type timerRegistry struct {
	mu     sync.Mutex
	byCase map[string]slaTimer
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{byCase: make(map[string]slaTimer)}
}

// schedule arms a timer firing at deadline, replacing any pending timer for
// the case. fire receives the generation captured here.
func (r *timerRegistry) schedule(caseID string, generation uint64, deadline time.Time, fire func(generation uint64)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byCase[caseID]; ok {
		existing.timer.Stop()
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	r.byCase[caseID] = slaTimer{
		generation: generation,
		timer: time.AfterFunc(d, func() {
			fire(generation)
		}),
	}
}

// cancel stops and removes the pending timer for a case, if any.
func (r *timerRegistry) cancel(caseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byCase[caseID]; ok {
		existing.timer.Stop()
		delete(r.byCase, caseID)
	}
}

// stopAll stops every pending timer. Used on machine shutdown.
func (r *timerRegistry) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.byCase {
		t.timer.Stop()
		delete(r.byCase, id)
	}
}

// pending returns the number of armed timers.
func (r *timerRegistry) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byCase)
}
