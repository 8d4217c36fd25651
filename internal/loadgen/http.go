package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/okian/vigil/pkg/logger"
)

// HTTP status codes the submitter distinguishes.
const (
	statusOK      = 200
	statusCreated = 201
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readBody reads and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitTxns submits transactions concurrently and tallies the outcomes.
func submitTxns(ctx context.Context, config *Config, txns []Txn, stats *Stats) error {
	logger.Get().Info(ctx, "submitting transactions",
		logger.Int("count", len(txns)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/decisions"

	var (
		submitted int64
		approved  int64
		denied    int64
		review    int64
		replayed  int64
		fallbacks int64
		failed    int64
	)

	txnChan := make(chan Txn, config.Workers*2)
	done := make(chan struct{})

	for i := 0; i < config.Workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for txn := range txnChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				ack, ok := submitSingleTxn(ctx, client, url, txn)
				atomic.AddInt64(&submitted, 1)
				if !ok {
					atomic.AddInt64(&failed, 1)
					continue
				}
				if ack.Replayed {
					atomic.AddInt64(&replayed, 1)
				}
				if ack.Fallback {
					atomic.AddInt64(&fallbacks, 1)
				}
				switch ack.Outcome {
				case "approve":
					atomic.AddInt64(&approved, 1)
				case "deny":
					atomic.AddInt64(&denied, 1)
				case "review":
					atomic.AddInt64(&review, 1)
				}
			}
		}()
	}

	go func() {
		defer close(txnChan)
		for _, txn := range txns {
			select {
			case <-ctx.Done():
				return
			case txnChan <- txn:
			}
		}
	}()

	for i := 0; i < config.Workers; i++ {
		<-done
	}

	stats.TxnsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.Approved = int(atomic.LoadInt64(&approved))
	stats.Denied = int(atomic.LoadInt64(&denied))
	stats.Review = int(atomic.LoadInt64(&review))
	stats.Replayed = int(atomic.LoadInt64(&replayed))
	stats.Fallbacks = int(atomic.LoadInt64(&fallbacks))
	stats.Failed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "submission completed",
		logger.Int("approved", stats.Approved),
		logger.Int("denied", stats.Denied),
		logger.Int("review", stats.Review),
		logger.Int("replayed", stats.Replayed),
		logger.Int("fallbacks", stats.Fallbacks),
		logger.Int("failed", stats.Failed),
	)
	return nil
}

// submitSingleTxn posts one transaction and parses the decision.
func submitSingleTxn(ctx context.Context, client *HTTPClient, url string, txn Txn) (DecisionAck, bool) {
	resp, err := client.Post(ctx, url, txn)
	if err != nil {
		return DecisionAck{}, false
	}
	body, err := readBody(resp)
	if err != nil {
		return DecisionAck{}, false
	}
	if resp.StatusCode != statusCreated && resp.StatusCode != statusOK {
		return DecisionAck{}, false
	}

	var ack DecisionAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return DecisionAck{}, false
	}
	return ack, true
}

// fetchQueue retrieves the top of the review queue.
func fetchQueue(ctx context.Context, config *Config, stats *Stats) ([]QueueRow, error) {
	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/cases/queue?limit=%d", config.BaseURL, config.QueueTop)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch queue: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read queue response: %w", err)
	}
	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("queue request failed with status %d", resp.StatusCode)
	}

	var qr queueResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("decode queue response: %w", err)
	}

	stats.QueueEntries = qr.Count
	return qr.Entries, nil
}
