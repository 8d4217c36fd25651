package scoring

import (
	"github.com/okian/vigil/internal/domain/model"
)

// Fallback rule thresholds. The rules deliberately use only high-signal
// features so a degraded vector still produces a usable score.
const (
	highAmountZScore     = 2.0
	extremeAmountZScore  = 3.5
	highVelocityPerHour  = 8
	lowDeviceReputation  = 0.3
	highCardDeclineRate  = 0.5
	fallbackConfidence   = 0.35
	fallbackModelVersion = "rules-fallback-1"
)

// Rule deltas, additive and clamped to [0,1].
const (
	deltaHighAmount     = 0.25
	deltaExtremeAmount  = 0.20
	deltaHighVelocity   = 0.25
	deltaBadDevice      = 0.15
	deltaGeoMismatch    = 0.15
	deltaCardDeclines   = 0.10
	deltaRiskTag        = 0.20
	fallbackBaseScore   = 0.10
)

// riskTags that the fallback treats as high-signal.
var fallbackRiskTags = []string{"stolen_card_ring", "synthetic_identity", "high_risk_geo", "watchlist"}

// RuleScorer is the deterministic rule-based fallback used when the oracle
// times out or errors. It is ordinary control flow, not error handling: the
// decision engine calls it whenever the oracle result is unavailable.
type RuleScorer struct{}

// NewRuleScorer creates the fallback scorer.
func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

// Score derives a fraud score from a small set of high-signal features.
// Deltas are additive; the total is clamped to [0,1].
func (r *RuleScorer) Score(txn model.Transaction, vec model.FeatureVector) Score {
	score := fallbackBaseScore

	if z := vec.Get("amount_zscore", 0); z >= highAmountZScore {
		score += deltaHighAmount
		if z >= extremeAmountZScore {
			score += deltaExtremeAmount
		}
	}
	if vec.Get("txn_velocity_1h", 0) >= highVelocityPerHour {
		score += deltaHighVelocity
	}
	if rep := vec.Get("device_reputation", 1); rep <= lowDeviceReputation {
		score += deltaBadDevice
	}
	if vec.Get("geo_mismatch", 0) >= 1 {
		score += deltaGeoMismatch
	}
	if vec.Get("card_decline_rate", 0) >= highCardDeclineRate {
		score += deltaCardDeclines
	}
	for _, tag := range fallbackRiskTags {
		if txn.HasRiskTag(tag) {
			score += deltaRiskTag
			break
		}
	}

	return Score{
		Probability:  clamp01(score),
		Confidence:   fallbackConfidence,
		ModelVersion: fallbackModelVersion,
	}
}
