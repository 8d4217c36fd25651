package repository

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Treap-based, in-memory review queue.
//
// Ordering: priority tier ASC (P1 first), then SLA deadline ASC, then
// case ID ASC (deterministic). In-order traversal produces the queue
// from most to least urgent, so analysts always pull the case closest
// to breaching its deadline within the highest tier.

// queueKey is the urgency ordering key of a queue node.
type queueKey struct {
	priority model.Priority
	deadline time.Time
	caseID   string
}

// before returns true if a ranks ahead of b in the queue.
func (a queueKey) before(b queueKey) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if !a.deadline.Equal(b.deadline) {
		return a.deadline.Before(b.deadline)
	}
	return a.caseID < b.caseID
}

func (a queueKey) equal(b queueKey) bool {
	return a.priority == b.priority && a.deadline.Equal(b.deadline) && a.caseID == b.caseID
}

// queueNode is a treap node. Heap priorities are random, keeping the
// tree balanced in expectation regardless of insertion order.
type queueNode struct {
	key   queueKey
	prio  uint64
	left  *queueNode
	right *queueNode
	size  int
}

func qsize(n *queueNode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func qfix(n *queueNode) {
	if n != nil {
		n.size = 1 + qsize(n.left) + qsize(n.right)
	}
}

func qrotateRight(y *queueNode) *queueNode {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	qfix(y)
	qfix(x)
	return x
}

func qrotateLeft(x *queueNode) *queueNode {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	qfix(x)
	qfix(y)
	return y
}

func qinsert(n *queueNode, key queueKey) *queueNode {
	if n == nil {
		return &queueNode{key: key, prio: rand.Uint64(), size: 1}
	}
	if key.before(n.key) {
		n.left = qinsert(n.left, key)
		if n.left.prio > n.prio {
			n = qrotateRight(n)
		}
	} else {
		n.right = qinsert(n.right, key)
		if n.right.prio > n.prio {
			n = qrotateLeft(n)
		}
	}
	qfix(n)
	return n
}

func qdelete(n *queueNode, key queueKey) *queueNode {
	if n == nil {
		return nil
	}
	if key.equal(n.key) {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = qrotateRight(n)
			n.right = qdelete(n.right, key)
		} else {
			n = qrotateLeft(n)
			n.left = qdelete(n.left, key)
		}
	} else if key.before(n.key) {
		n.left = qdelete(n.left, key)
	} else {
		n.right = qdelete(n.right, key)
	}
	qfix(n)
	return n
}

// qcollectTopN appends up to limit entries in urgency order.
func qcollectTopN(n *queueNode, limit int, entries map[string]QueueEntry, out *[]QueueEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	qcollectTopN(n.left, limit, entries, out)
	if len(*out) < limit {
		if e, ok := entries[n.key.caseID]; ok {
			e.Rank = len(*out) + 1
			*out = append(*out, e)
		}
	}
	if len(*out) < limit {
		qcollectTopN(n.right, limit, entries, out)
	}
}

// QueueSnapshot is an immutable view of the review queue, rebuilt
// periodically and swapped atomically for lock-free reads.
type QueueSnapshot struct {
	Entries []QueueEntry // urgency order, ranks assigned
	TakenAt time.Time
}

// ReviewQueue is the urgency-ordered index of open cases awaiting
// review. Upsert and Remove run in O(log n) expected time.
type ReviewQueue struct {
	mu   sync.RWMutex
	root *queueNode
	byID map[string]QueueEntry

	snapshotInterval time.Duration
	snapshot         atomic.Pointer[QueueSnapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewReviewQueue constructs a review queue and starts its periodic
// snapshot goroutine.
func NewReviewQueue(ctx context.Context, opts ...QueueOption) *ReviewQueue {
	q := &ReviewQueue{
		byID:             make(map[string]QueueEntry),
		snapshotInterval: defaultSnapshotInterval,
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.snapshot.Store(&QueueSnapshot{TakenAt: time.Now()})
	q.startPeriodicSnapshots(ctx)
	return q
}

func (q *ReviewQueue) startPeriodicSnapshots(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-q.stopChan:
				return
			case <-ticker.C:
				q.publishSnapshot()
			}
		}
	}()
}

func (q *ReviewQueue) publishSnapshot() {
	start := time.Now()

	q.mu.RLock()
	entries := make([]QueueEntry, 0, len(q.byID))
	qcollectTopN(q.root, len(q.byID), q.byID, &entries)
	q.mu.RUnlock()

	q.snapshot.Store(&QueueSnapshot{Entries: entries, TakenAt: time.Now()})

	ms := float64(time.Since(start).Milliseconds())
	metrics.RecordRepositorySnapshotRebuildDuration(ms)
	metrics.UpdateRepositorySnapshotLastDurationMs(ms)
	metrics.UpdateRepositorySnapshotLastUnix(float64(time.Now().Unix()))
	metrics.IncrementRepositorySnapshotCount()
}

// Close stops the snapshot goroutine and waits for it to exit.
func (q *ReviewQueue) Close() error {
	q.stopOnce.Do(func() {
		close(q.stopChan)
	})
	q.wg.Wait()
	return nil
}

func keyOf(e QueueEntry) queueKey {
	return queueKey{priority: e.Priority, deadline: e.SLADeadline, caseID: e.CaseID}
}

// Upsert inserts or re-positions a case in the queue. A case whose
// priority or deadline changed is removed under its old key first.
func (q *ReviewQueue) Upsert(_ context.Context, e QueueEntry) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.Lock()
	if old, ok := q.byID[e.CaseID]; ok {
		q.root = qdelete(q.root, keyOf(old))
	}
	q.byID[e.CaseID] = e
	q.root = qinsert(q.root, keyOf(e))
	depth := len(q.byID)
	q.mu.Unlock()

	metrics.UpdateReviewQueueDepth(depth)
}

// Remove drops a case from the queue. Removing an absent case is a noop.
func (q *ReviewQueue) Remove(_ context.Context, caseID string) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.Lock()
	old, ok := q.byID[caseID]
	if ok {
		q.root = qdelete(q.root, keyOf(old))
		delete(q.byID, caseID)
	}
	depth := len(q.byID)
	q.mu.Unlock()

	if ok {
		metrics.UpdateReviewQueueDepth(depth)
	}
}

// TopN returns up to n entries in urgency order with ranks assigned.
func (q *ReviewQueue) TopN(_ context.Context, n int) ([]QueueEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]QueueEntry, 0, n)
	qcollectTopN(q.root, n, q.byID, &out)
	return out, nil
}

// Peek returns the most urgent entry without removing it.
func (q *ReviewQueue) Peek(ctx context.Context) (QueueEntry, bool) {
	entries, err := q.TopN(ctx, 1)
	if err != nil || len(entries) == 0 {
		return QueueEntry{}, false
	}
	return entries[0], true
}

// Len returns the number of queued cases.
func (q *ReviewQueue) Len(_ context.Context) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.byID)
}

// Snapshot returns the last published immutable queue view.
func (q *ReviewQueue) Snapshot() *QueueSnapshot {
	return q.snapshot.Load()
}
