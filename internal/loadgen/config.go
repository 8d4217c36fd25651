package loadgen

import "time"

// Config holds configuration for one load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumTxns    int           // Number of transactions to generate
	QueueTop   int           // Number of queue entries to fetch afterwards
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated transactions
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Txn is the wire form of a transaction submitted to POST /decisions.
type Txn struct {
	TransactionID string             `json:"transaction_id"`
	AccountID     string             `json:"account_id"`
	DeviceID      string             `json:"device_id,omitempty"`
	CardID        string             `json:"card_id,omitempty"`
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	TS            string             `json:"ts"`
	RiskTags      []string           `json:"risk_tags,omitempty"`
	Features      map[string]float64 `json:"features,omitempty"`
}

// DecisionAck is the service's answer to a submitted transaction.
type DecisionAck struct {
	TransactionID string  `json:"transaction_id"`
	Outcome       string  `json:"outcome"`
	Score         float64 `json:"score"`
	Fallback      bool    `json:"fallback"`
	Replayed      bool    `json:"replayed"`
}

// QueueRow is one entry of GET /cases/queue.
type QueueRow struct {
	Rank        int     `json:"rank"`
	CaseID      string  `json:"case_id"`
	Priority    string  `json:"priority"`
	Score       float64 `json:"score"`
	SLADeadline string  `json:"sla_deadline"`
}

// queueResponse is the envelope of GET /cases/queue.
type queueResponse struct {
	Entries []QueueRow `json:"entries"`
	Count   int        `json:"count"`
}

// Stats holds run statistics.
type Stats struct {
	TxnsGenerated      int
	DuplicatesInjected int
	TxnsSubmitted      int
	Approved           int
	Denied             int
	Review             int
	Replayed           int
	Fallbacks          int
	Failed             int
	QueueEntries       int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
