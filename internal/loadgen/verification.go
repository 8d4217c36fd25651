package loadgen

import (
	"context"
	"fmt"

	"github.com/okian/vigil/pkg/logger"
)

// priorityOrder maps wire priorities to their urgency rank, most urgent
// first.
var priorityOrder = map[string]int{"p1": 1, "p2": 2, "p3": 3, "p4": 4}

// verifyIdempotency checks that every injected duplicate came back as a
// replay of the stored decision. Skipped when submissions failed, since a
// lost original would make its duplicate the first delivery.
func verifyIdempotency(ctx context.Context, stats *Stats) error {
	if stats.Failed > 0 {
		logger.Get().Warn(ctx, "skipping idempotency verification due to failed submissions",
			logger.Int("failed", stats.Failed))
		return nil
	}
	if stats.Replayed != stats.DuplicatesInjected {
		return fmt.Errorf("injected %d duplicates but %d submissions were replayed",
			stats.DuplicatesInjected, stats.Replayed)
	}
	logger.Get().Info(ctx, "idempotency verified",
		logger.Int("duplicates", stats.DuplicatesInjected))
	return nil
}

// verifyQueue checks that the review queue honors its ordering contract:
// ranks are sequential and priority tiers never regress down the list.
func verifyQueue(ctx context.Context, queue []QueueRow, stats *Stats) error {
	logger.Get().Info(ctx, "verifying review queue", logger.Int("entries", len(queue)))

	if stats.Review > 0 && len(queue) == 0 {
		return fmt.Errorf("%d review decisions were made but the queue is empty", stats.Review)
	}

	for i, row := range queue {
		if row.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d, want %d", i, row.Rank, i+1)
		}
		if i == 0 {
			continue
		}
		prev, ok := priorityOrder[queue[i-1].Priority]
		if !ok {
			return fmt.Errorf("entry %d has unknown priority %q", i-1, queue[i-1].Priority)
		}
		cur, ok := priorityOrder[row.Priority]
		if !ok {
			return fmt.Errorf("entry %d has unknown priority %q", i, row.Priority)
		}
		if cur < prev {
			return fmt.Errorf("queue not ordered: entry %d (%s) outranks entry %d (%s)",
				i, row.Priority, i-1, queue[i-1].Priority)
		}
	}

	displayTopCases(ctx, queue)
	logger.Get().Info(ctx, "queue verification completed")
	return nil
}

// displayTopCases logs the most urgent cases of the run.
func displayTopCases(ctx context.Context, queue []QueueRow) {
	topN := 10
	if len(queue) < topN {
		topN = len(queue)
	}
	for i := 0; i < topN; i++ {
		row := queue[i]
		logger.Get().Info(ctx, "queued case",
			logger.Int("rank", row.Rank),
			logger.String("case_id", row.CaseID),
			logger.String("priority", row.Priority),
			logger.Float64("score", row.Score),
		)
	}
}
