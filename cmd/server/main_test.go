package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
)

func TestNewBackend_MemoryDriver(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.StorageMemory}

	b, err := newBackend(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.close()

	if b.txm == nil || b.accounts == nil || b.entries == nil || b.ledger == nil || b.outbox == nil {
		t.Fatalf("memory backend has unset repositories: %+v", b)
	}
	if b.retrier != nil {
		t.Fatal("memory backend should not retry serialization failures")
	}
	if len(b.checks) != 0 {
		t.Fatalf("memory backend should have no readiness checks, got %d", len(b.checks))
	}
	if b.idGen.Generate() >= b.idGen.Generate() {
		t.Fatal("expected increasing ids")
	}
}

func TestNewEventPublisher_DefaultsToLog(t *testing.T) {
	pub, closeFn, err := newEventPublisher(&config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if _, ok := pub.(*eventpublisher.LogPublisher); !ok {
		t.Fatalf("expected log publisher without AMQP_URL, got %T", pub)
	}
}

func TestCleanupLimitersStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		cleanupLimiters(ctx, middleware.NewRateLimiter(1, 1), zerolog.Nop())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop after cancel")
	}
}
