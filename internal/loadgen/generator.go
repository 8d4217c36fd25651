package loadgen

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 10
)

// Transaction profile cases. Legitimate traffic dominates; the remaining
// profiles produce review-band and high-risk transactions so the pipeline's
// case path gets exercised.
const (
	caseRoutine      = 0 // low-risk everyday purchase
	caseMidBand      = 7 // ambiguous transaction in the review band
	caseHighRisk     = 8 // strong fraud signals
	caseTaggedEntity = 9 // known-bad entity risk tag
)

// Feature value ranges per profile.
const (
	routineAmountMax  = 200.0
	midBandAmountMin  = 800.0
	midBandAmountMax  = 3000.0
	highRiskAmountMin = 4000.0
	highRiskAmountMax = 9000.0
)

// riskTagPool holds the entity tags the dispatcher treats as high-signal.
var riskTagPool = []string{"stolen_card_ring", "synthetic_identity", "high_risk_geo", "watchlist"}

// randomFloat returns a random float64 in [0,1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns a random int in [0,n).
func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateTxns creates the configured number of transactions with unique
// ids across a mix of risk profiles.
func generateTxns(ctx context.Context, config *Config, stats *Stats) ([]Txn, error) {
	logger.Get().Info(ctx, "generating transactions", logger.Int("numTxns", config.NumTxns))

	txns := make([]Txn, config.NumTxns)
	for i := range txns {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		txns[i] = generateSingleTxn()
	}

	stats.TxnsGenerated = len(txns)
	logger.Get().Info(ctx, "generated transactions", logger.Int("count", len(txns)))
	return txns, nil
}

// duplicateEvery controls redelivery injection: one duplicate is appended
// for every duplicateEvery generated transactions.
const duplicateEvery = 20

// injectDuplicates appends copies of existing transactions so the run
// exercises the decision path's idempotent replay. Exactly one submission
// of each duplicated id must come back replayed.
func injectDuplicates(txns []Txn, stats *Stats) []Txn {
	dups := make([]Txn, 0, len(txns)/duplicateEvery)
	for i := duplicateEvery - 1; i < len(txns); i += duplicateEvery {
		dups = append(dups, txns[i])
	}
	stats.DuplicatesInjected = len(dups)
	return append(txns, dups...)
}

// generateSingleTxn creates one transaction according to a randomly drawn
// risk profile.
func generateSingleTxn() Txn {
	txn := Txn{
		TransactionID: "txn_" + uuid.New().String(),
		AccountID:     "acc_" + uuid.New().String(),
		DeviceID:      "dev_" + uuid.New().String(),
		CardID:        "card_" + uuid.New().String(),
		Currency:      "USD",
		TS:            time.Now().UTC().Format(time.RFC3339),
	}

	switch profile := randomInt(profileDivisor); {
	case profile >= caseTaggedEntity:
		txn.Amount = highRiskAmountMin + randomFloat()*(highRiskAmountMax-highRiskAmountMin)
		txn.RiskTags = []string{riskTagPool[randomInt(int64(len(riskTagPool)))]}
		txn.Features = map[string]float64{
			"amount_zscore":     3.0 + randomFloat(),
			"txn_velocity_1h":   8 + randomFloat()*4,
			"device_reputation": randomFloat() * 0.3,
			"geo_mismatch":      1,
		}
	case profile >= caseHighRisk:
		txn.Amount = highRiskAmountMin + randomFloat()*(highRiskAmountMax-highRiskAmountMin)
		txn.Features = map[string]float64{
			"amount_zscore":     2.5 + randomFloat(),
			"txn_velocity_1h":   6 + randomFloat()*4,
			"device_reputation": randomFloat() * 0.4,
			"card_decline_rate": 0.5 + randomFloat()*0.4,
		}
	case profile >= caseMidBand:
		txn.Amount = midBandAmountMin + randomFloat()*(midBandAmountMax-midBandAmountMin)
		txn.Features = map[string]float64{
			"amount_zscore":     1.0 + randomFloat(),
			"txn_velocity_1h":   2 + randomFloat()*4,
			"device_reputation": 0.4 + randomFloat()*0.3,
			"geo_mismatch":      float64(randomInt(2)),
		}
	default:
		txn.Amount = 1 + randomFloat()*routineAmountMax
		txn.Features = map[string]float64{
			"amount_zscore":     randomFloat() * 0.5,
			"txn_velocity_1h":   randomFloat() * 2,
			"device_reputation": 0.7 + randomFloat()*0.3,
			"account_age_days":  365 * randomFloat(),
		}
	}

	return txn
}
