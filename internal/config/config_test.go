package config

import (
	"testing"
	"time"
)

func TestValidateRejectsUnknownSafetyCheck(t *testing.T) {
	cfg := &Config{
		Execution: ExecutionConfig{Demo: true},
		Safety:    SafetyConfig{CheckOrder: []string{"order_too_large", "typo_check"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown check key")
	}
}

func TestValidateAcceptsKnownCheckOrder(t *testing.T) {
	cfg := &Config{
		Execution: ExecutionConfig{Demo: true},
		Safety: SafetyConfig{CheckOrder: []string{
			"spread_too_wide", "order_too_large", "exposure_exceeded",
			"position_too_large", "insufficient_liquidity",
		}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateLiveModeRequiresCredentials(t *testing.T) {
	cfg := &Config{Execution: ExecutionConfig{Demo: false}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("live mode without credentials must fail validation")
	}

	cfg.Execution.PrivateKey = "ab"
	cfg.Execution.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with credentials: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	s := StreamConfig{MinBackoffMs: 1000, MaxBackoffMs: 30000, HeartbeatIntervalMs: 15000}
	if s.MinBackoff() != time.Second {
		t.Fatalf("unexpected min backoff %v", s.MinBackoff())
	}
	if s.MaxBackoff() != 30*time.Second {
		t.Fatalf("unexpected max backoff %v", s.MaxBackoff())
	}
	if s.HeartbeatInterval() != 15*time.Second {
		t.Fatalf("unexpected heartbeat %v", s.HeartbeatInterval())
	}
	d := DispatchConfig{TimeoutMs: 30000}
	if d.Timeout() != 30*time.Second {
		t.Fatalf("unexpected dispatch timeout %v", d.Timeout())
	}
}
