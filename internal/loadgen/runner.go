package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/vigil/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// processingGrace gives the dispatch workers time to open cases before the
// queue is inspected.
const processingGrace = 2 * time.Second

// Run executes one complete load run: health check, generate, submit,
// inspect the review queue, verify ordering, and save the payloads.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting vigil load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("txns", config.NumTxns),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("queueTop", config.QueueTop),
	)

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	txns, err := generateTxns(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("transaction generation failed: %w", err)
	}
	submissions := injectDuplicates(txns, stats)

	if err := submitTxns(ctx, config, submissions, stats); err != nil {
		return fmt.Errorf("transaction submission failed: %w", err)
	}

	if err := verifyIdempotency(ctx, stats); err != nil {
		return fmt.Errorf("idempotency verification failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for dispatch workers to open cases")
	time.Sleep(processingGrace)

	queue, err := fetchQueue(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("queue retrieval failed: %w", err)
	}

	if err := verifyQueue(ctx, queue, stats); err != nil {
		return fmt.Errorf("queue verification failed: %w", err)
	}

	if err := saveTxnsToFile(ctx, config, txns); err != nil {
		logger.Get().Warn(ctx, "failed to save transactions to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "load run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(cerr))
		}
	}()

	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveTxnsToFile saves the generated transactions to a JSON file.
func saveTxnsToFile(ctx context.Context, config *Config, txns []Txn) error {
	if len(txns) == 0 {
		return fmt.Errorf("no transactions to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_txns_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(cerr))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txns); err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}

	logger.Get().Info(ctx, "transactions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var txnsPerSecond float64
	if stats.Duration > 0 {
		txnsPerSecond = float64(stats.TxnsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("txnsGenerated", stats.TxnsGenerated),
		logger.Int("duplicatesInjected", stats.DuplicatesInjected),
		logger.Int("txnsSubmitted", stats.TxnsSubmitted),
		logger.Int("approved", stats.Approved),
		logger.Int("denied", stats.Denied),
		logger.Int("review", stats.Review),
		logger.Int("replayed", stats.Replayed),
		logger.Int("fallbacks", stats.Fallbacks),
		logger.Int("failed", stats.Failed),
		logger.Int("queueEntries", stats.QueueEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("txnsPerSecond", txnsPerSecond),
	)
}
