// Package scoring defines the contract for obtaining fraud scores.
//
// The oracle is an external model-serving endpoint with a bounded latency
// SLA; it is treated as a black box returning a probability and a
// confidence. The in-memory implementation simulates it deterministically
// from feature weights so the pipeline can run self-contained.
package scoring

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Default oracle configuration constants.
const (
	defaultMinLatency     = 20 * time.Millisecond
	defaultMaxLatency     = 80 * time.Millisecond
	defaultModelVersion   = "fraud-gbm-7"
	fullConfidence        = 0.95
	partialConfidence     = 0.60
	failureRateResolution = 1_000_000
)

// Sentinel kinds for oracle errors.
var (
	// ErrUnavailable marks a transient oracle failure; the caller falls
	// back to rule-based scoring.
	ErrUnavailable = errors.New("scoring oracle unavailable")
)

// Score is the oracle's answer for one feature vector.
type Score struct {
	// Probability is the fraud probability in [0,1].
	Probability float64
	// Confidence is the model's self-reported confidence in [0,1].
	Confidence float64
	// ModelVersion tags which model produced the score.
	ModelVersion string
}

// Oracle computes a fraud score for a feature vector.
type Oracle interface {
	Score(ctx context.Context, vec model.FeatureVector) (Score, error)
}

// InMemoryOracle implements Oracle with deterministic weighted scoring and
// a simulated latency band.
type InMemoryOracle struct {
	weights       map[string]float64
	defaultWeight float64
	modelVersion  string
	minLatency    time.Duration
	maxLatency    time.Duration
	failureRate   float64
}

// Option applies a configuration option to the InMemoryOracle.
type Option func(*InMemoryOracle)

// WithLatencyRange sets the simulated scoring latency band.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(o *InMemoryOracle) {
		if minLatency > 0 && maxLatency > minLatency {
			o.minLatency = minLatency
			o.maxLatency = maxLatency
		}
	}
}

// WithFeatureWeights sets feature weights from configuration.
func WithFeatureWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(o *InMemoryOracle) {
		o.weights = make(map[string]float64, len(weights))
		for name, w := range weights {
			if w > 0 {
				o.weights[name] = w
			}
		}
		if defaultWeight > 0 {
			o.defaultWeight = defaultWeight
		}
	}
}

// WithModelVersion tags scores with a model version.
func WithModelVersion(version string) Option {
	return func(o *InMemoryOracle) {
		if version != "" {
			o.modelVersion = version
		}
	}
}

// WithFailureRate injects transient failures with the given probability in
// [0,1]. Failures surface as ErrUnavailable after the simulated latency.
func WithFailureRate(rate float64) Option {
	return func(o *InMemoryOracle) {
		if rate >= 0 && rate <= 1 {
			o.failureRate = rate
		}
	}
}

// NewInMemoryOracle creates an oracle with default configuration.
func NewInMemoryOracle(opts ...Option) *InMemoryOracle {
	o := &InMemoryOracle{
		weights:       map[string]float64{},
		defaultWeight: 0.05,
		modelVersion:  defaultModelVersion,
		minLatency:    defaultMinLatency,
		maxLatency:    defaultMaxLatency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Score computes the weighted fraud probability for the vector. The call
// honors ctx cancellation during the simulated latency, which is how the
// hard scoring timeout manifests.
func (o *InMemoryOracle) Score(ctx context.Context, vec model.FeatureVector) (Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordOracleLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := o.sleep(ctx); err != nil {
		metrics.RecordOracleFailure()
		return Score{}, err
	}

	if o.failureRate > 0 && randomFloat() < o.failureRate {
		metrics.RecordOracleFailure()
		return Score{}, fmt.Errorf("%w: injected failure", ErrUnavailable)
	}

	var sum float64
	for name, value := range vec.Values {
		w, ok := o.weights[name]
		if !ok {
			w = o.defaultWeight
		}
		sum += w * value
	}
	prob := clamp01(sum)

	confidence := fullConfidence
	if vec.Partial {
		confidence = partialConfidence
	}

	return Score{
		Probability:  prob,
		Confidence:   confidence,
		ModelVersion: o.modelVersion,
	}, nil
}

func (o *InMemoryOracle) sleep(ctx context.Context) error {
	span := o.maxLatency - o.minLatency
	jitter := time.Duration(0)
	if span > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
		if err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	t := time.NewTimer(o.minLatency + jitter)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

// randomFloat returns a random float64 in [0,1) using crypto/rand.
func randomFloat() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(failureRateResolution))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / float64(failureRateResolution)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
