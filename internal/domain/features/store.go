// Package features defines the contract for fetching precomputed feature
// snapshots at decision time.
//
// The snapshot store is an external collaborator; the in-memory
// implementation here simulates it with seedable per-entity snapshots and a
// configurable latency band. Misses are not errors: the caller receives a
// partial vector filled with defaults and decides how to degrade.
package features

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultMinLatency = 2 * time.Millisecond
	defaultMaxLatency = 10 * time.Millisecond
)

// Store provides versioned, read-mostly feature lookup for a transaction's
// entities.
type Store interface {
	// Fetch assembles a feature vector for the transaction's entity refs.
	// A vector with Partial=true is returned when one or more entity
	// snapshots are missing; Fetch fails only on context expiry.
	Fetch(ctx context.Context, txn model.Transaction) (model.FeatureVector, error)
}

// defaultFeatures fills gaps left by missing entity snapshots. Neutral
// values keep the oracle input well-formed without biasing the score.
var defaultFeatures = map[string]float64{
	"txn_velocity_1h":   0,
	"amount_zscore":     0,
	"device_reputation": 0.5,
	"geo_mismatch":      0,
	"account_age_days":  0,
	"card_decline_rate": 0,
}

// InMemoryStore implements Store over seedable per-entity snapshots.
type InMemoryStore struct {
	mu         sync.RWMutex
	byEntity   map[string]map[string]float64
	version    string
	minLatency time.Duration
	maxLatency time.Duration
}

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithLatencyRange sets the simulated lookup latency band.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *InMemoryStore) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSnapshotVersion tags vectors with a snapshot version.
func WithSnapshotVersion(version string) Option {
	return func(s *InMemoryStore) {
		if version != "" {
			s.version = version
		}
	}
}

// NewInMemoryStore creates an empty in-memory snapshot store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		byEntity:   make(map[string]map[string]float64),
		version:    "v0",
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed installs or replaces the snapshot for one entity id. Later seeds
// bump the store version so fresh fetches carry the new version tag.
func (s *InMemoryStore) Seed(entityID string, values map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	s.byEntity[entityID] = cp
}

// SetVersion replaces the snapshot version tag.
func (s *InMemoryStore) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

// Fetch merges the snapshots of the transaction's account, device and card
// entities into one vector. Transaction-supplied raw features override
// snapshot values.
func (s *InMemoryStore) Fetch(ctx context.Context, txn model.Transaction) (model.FeatureVector, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFeatureFetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := s.sleep(ctx); err != nil {
		return model.FeatureVector{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]float64, len(defaultFeatures))
	hit := false
	for _, entityID := range []string{txn.AccountID, txn.DeviceID, txn.CardID} {
		if entityID == "" {
			continue
		}
		if snap, ok := s.byEntity[entityID]; ok {
			hit = true
			for k, v := range snap {
				values[k] = v
			}
		}
	}

	// Raw payload features ride along with the transaction itself.
	for k, v := range txn.Features {
		values[k] = v
		hit = true
	}

	partial := false
	for k, def := range defaultFeatures {
		if _, ok := values[k]; !ok {
			values[k] = def
			if !hit {
				partial = true
			}
		}
	}
	if !hit {
		partial = true
	}

	return model.FeatureVector{
		Values:          values,
		SnapshotVersion: s.version,
		AsOf:            time.Now().UTC(),
		Partial:         partial,
	}, nil
}

// sleep simulates lookup latency while honoring the caller's deadline.
func (s *InMemoryStore) sleep(ctx context.Context) error {
	span := s.maxLatency - s.minLatency
	jitter := time.Duration(0)
	if span > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
		if err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	t := time.NewTimer(s.minLatency + jitter)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("feature fetch: %w", ctx.Err())
	}
}
