package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.ProofTTL != 5*time.Minute {
		t.Fatalf("expected default proof TTL 5m, got %s", cfg.ProofTTL)
	}
	if cfg.AuditTopic != "vestry.audit" {
		t.Fatalf("expected default audit topic, got %s", cfg.AuditTopic)
	}
	if !cfg.RateLimit.Enabled {
		t.Fatal("expected rate limiting enabled by default")
	}
	if cfg.Redis.PoolSize != 10 {
		t.Fatalf("expected default redis pool size 10, got %d", cfg.Redis.PoolSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VESTRY_ADDR", ":9999")
	t.Setenv("VESTRY_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("VESTRY_RATELIMIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %s", cfg.Addr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("expected two brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.RateLimit.Enabled {
		t.Fatal("expected rate limiting disabled")
	}
}

func TestLoadError(t *testing.T) {
	t.Setenv("VESTRY_PROOF_TTL", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
