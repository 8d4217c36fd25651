package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Default case store configuration constants.
const (
	defaultShardCount = 16
)

// caseShard holds one partition of the case records.
type caseShard struct {
	mu       sync.RWMutex
	open     map[string]model.Case
	archived map[string]model.Case
}

// MemCaseStore implements CaseStore over FNV-sharded in-memory maps with a
// global open-case index by transaction id.
type MemCaseStore struct {
	shards []*caseShard

	// idxMu guards the open-case-per-transaction index. The index is the
	// enforcement point for the at-most-one-open-case invariant.
	idxMu     sync.Mutex
	openByTxn map[string]string // transaction id -> case id

	openCount     int64
	archivedCount int64
	countMu       sync.Mutex
}

// CaseStoreOption applies a configuration option to the MemCaseStore.
type CaseStoreOption func(*MemCaseStore)

// WithShardCount sets the number of shards.
func WithShardCount(count int) CaseStoreOption {
	return func(s *MemCaseStore) {
		if count > 0 {
			s.shards = make([]*caseShard, count)
		}
	}
}

// NewMemCaseStore creates an empty sharded case store.
func NewMemCaseStore(opts ...CaseStoreOption) *MemCaseStore {
	s := &MemCaseStore{
		shards:    make([]*caseShard, defaultShardCount),
		openByTxn: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &caseShard{
			open:     make(map[string]model.Case),
			archived: make(map[string]model.Case),
		}
	}
	return s
}

func (s *MemCaseStore) shard(caseID string) *caseShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(caseID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Create persists a new open case, enforcing one open case per transaction.
func (s *MemCaseStore) Create(ctx context.Context, c model.Case) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.idxMu.Lock()
	if existing, ok := s.openByTxn[c.TransactionID]; ok {
		s.idxMu.Unlock()
		return fmt.Errorf("%w: case %s", ErrDuplicateCase, existing)
	}
	s.openByTxn[c.TransactionID] = c.CaseID
	s.idxMu.Unlock()

	sh := s.shard(c.CaseID)
	sh.mu.Lock()
	sh.open[c.CaseID] = c
	sh.mu.Unlock()

	s.countMu.Lock()
	s.openCount++
	open := int(s.openCount)
	s.countMu.Unlock()
	metrics.UpdateOpenCases(open)
	metrics.UpdateRepositoryRecordsTotal(open)

	return nil
}

// Get returns an open or archived case by id.
func (s *MemCaseStore) Get(ctx context.Context, caseID string) (model.Case, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shard(caseID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if c, ok := sh.open[caseID]; ok {
		return c, nil
	}
	if c, ok := sh.archived[caseID]; ok {
		return c, nil
	}
	return model.Case{}, ErrCaseNotFound
}

// OpenByTransaction returns the open case for a transaction id, if any.
func (s *MemCaseStore) OpenByTransaction(ctx context.Context, txnID string) (model.Case, bool) {
	s.idxMu.Lock()
	caseID, ok := s.openByTxn[txnID]
	s.idxMu.Unlock()
	if !ok {
		return model.Case{}, false
	}
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return model.Case{}, false
	}
	return c, true
}

// Update replaces the snapshot of an open case.
func (s *MemCaseStore) Update(ctx context.Context, c model.Case) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shard(c.CaseID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.open[c.CaseID]; !ok {
		if _, archived := sh.archived[c.CaseID]; archived {
			return ErrCaseArchived
		}
		return ErrCaseNotFound
	}
	sh.open[c.CaseID] = c
	return nil
}

// Archive moves a terminal case out of the open set.
func (s *MemCaseStore) Archive(ctx context.Context, c model.Case) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shard(c.CaseID)
	sh.mu.Lock()
	if _, ok := sh.open[c.CaseID]; !ok {
		_, archived := sh.archived[c.CaseID]
		sh.mu.Unlock()
		if archived {
			return ErrCaseArchived
		}
		return ErrCaseNotFound
	}
	delete(sh.open, c.CaseID)
	sh.archived[c.CaseID] = c
	sh.mu.Unlock()

	s.idxMu.Lock()
	if id, ok := s.openByTxn[c.TransactionID]; ok && id == c.CaseID {
		delete(s.openByTxn, c.TransactionID)
	}
	s.idxMu.Unlock()

	s.countMu.Lock()
	s.openCount--
	s.archivedCount++
	open, archived := int(s.openCount), int(s.archivedCount)
	s.countMu.Unlock()
	metrics.UpdateOpenCases(open)
	metrics.UpdateArchivedCases(archived)

	return nil
}

// OpenCount returns the number of open cases.
func (s *MemCaseStore) OpenCount(_ context.Context) int {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	return int(s.openCount)
}

// ArchivedCount returns the number of archived cases.
func (s *MemCaseStore) ArchivedCount(_ context.Context) int {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	return int(s.archivedCount)
}
