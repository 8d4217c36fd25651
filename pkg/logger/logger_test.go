package logger

import (
	"context"
	"testing"
	"time"
)

func TestInitAndGet(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Init is safe to call again; Get keeps returning a usable logger.
	if err := Init(); err != nil {
		t.Fatalf("failed to re-initialize logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after re-initialization")
	}
}

func TestFieldHelpers(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	lg := Get()

	lg.Info(ctx, "decision emitted",
		String("transaction_id", "txn-1"),
		Float64("score", 0.42),
		Int("latency_ms", 87),
		Bool("fallback", false),
		Duration("budget", 300*time.Millisecond),
	)
	lg.Warn(ctx, "case escalated",
		String("case_id", "case-1"),
		Int64("generation", 2),
	)
	lg.Debug(ctx, "feature vector", Any("partial", true))
}

func TestNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("dispatch")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "worker started", Int("worker_id", 3))

	nested := named.Named("sla")
	if nested == nil {
		t.Fatal("nested named logger is nil")
	}
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("failed to set level %q: %v", level, err)
		}
	}

	if err := SetLevelString("nonsense"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
