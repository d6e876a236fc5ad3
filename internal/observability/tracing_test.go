package observability

import (
	"context"
	"testing"
	"time"

	"github.com/sibylhq/sibyl/internal/log"
)

func TestSetupDefaults(t *testing.T) {
	ctx := context.Background()

	// The OTLP HTTP exporter connects lazily, so setup succeeds without
	// a running collector.
	shutdown, err := Setup(ctx, Config{}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup() returned nil shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	// Flushing against a missing collector may fail; it must not hang.
	_ = shutdown(shutdownCtx)
}

func TestSetupExplicitConfig(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{
		Endpoint:    "localhost:43180",
		ServiceName: "sibyl-test",
	}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = shutdown(shutdownCtx)
}
