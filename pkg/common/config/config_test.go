package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RISK_LOW_CUTOFF", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	if cfg.ModelName != "stroke" {
		t.Fatalf("expected default model name, got %q", cfg.ModelName)
	}
	if cfg.RiskLowCutoff >= 0 {
		t.Fatalf("expected unset low cutoff to be negative, got %v", cfg.RiskLowCutoff)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RISK_LOW_CUTOFF", "0.2")
	t.Setenv("RISK_HIGH_CUTOFF", "not-a-number")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("FEATURE_CACHE_TTL", "90s")

	cfg := Load()
	if cfg.RiskLowCutoff != 0.2 {
		t.Fatalf("expected 0.2, got %v", cfg.RiskLowCutoff)
	}
	if cfg.RiskHighCutoff != -1 {
		t.Fatalf("expected malformed cutoff to keep default, got %v", cfg.RiskHighCutoff)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.FeatureCacheTTL != 90*time.Second {
		t.Fatalf("unexpected ttl %v", cfg.FeatureCacheTTL)
	}
}
