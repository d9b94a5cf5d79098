package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.OutboxBatchSize != 32 {
		t.Fatalf("OutboxBatchSize = %d", cfg.OutboxBatchSize)
	}
	if cfg.SignatureTolerance != 5*time.Minute {
		t.Fatalf("SignatureTolerance = %v", cfg.SignatureTolerance)
	}
	if !cfg.DemoMode() {
		t.Fatal("no secret key configured but DemoMode() = false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHOP_HTTP_ADDR", ":9999")
	t.Setenv("SHOP_PROVIDER_SECRET_KEY", "sk_live_123")
	t.Setenv("SHOP_OUTBOX_INTERVAL", "500ms")
	t.Setenv("SHOP_OUTBOX_BATCH", "7")

	cfg := Load()

	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DemoMode() {
		t.Fatal("secret key configured but DemoMode() = true")
	}
	if cfg.OutboxInterval != 500*time.Millisecond {
		t.Fatalf("OutboxInterval = %v", cfg.OutboxInterval)
	}
	if cfg.OutboxBatchSize != 7 {
		t.Fatalf("OutboxBatchSize = %d", cfg.OutboxBatchSize)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SHOP_OUTBOX_INTERVAL", "not-a-duration")
	t.Setenv("SHOP_OUTBOX_BATCH", "many")

	cfg := Load()

	if cfg.OutboxInterval != 2*time.Second {
		t.Fatalf("OutboxInterval = %v, want default", cfg.OutboxInterval)
	}
	if cfg.OutboxBatchSize != 32 {
		t.Fatalf("OutboxBatchSize = %d, want default", cfg.OutboxBatchSize)
	}
}
