package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvChannelID, "2000001")
	t.Setenv(EnvChannelSecret, "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "10000" {
		t.Errorf("Port = %q, want 10000", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.DeliveryRetention != 90*24*time.Hour {
		t.Errorf("DeliveryRetention = %v, want 2160h", cfg.DeliveryRetention)
	}
	if cfg.Gateway.Plan != PlanStandard {
		t.Errorf("Plan = %q, want standard", cfg.Gateway.Plan)
	}
	if cfg.Gateway.EventTimeout != 10*time.Second {
		t.Errorf("EventTimeout = %v, want 10s", cfg.Gateway.EventTimeout)
	}
	if cfg.Gateway.SendBaseDelay != 500*time.Millisecond {
		t.Errorf("SendBaseDelay = %v, want 500ms", cfg.Gateway.SendBaseDelay)
	}
	if cfg.Gateway.SendMaxAttempts != 5 {
		t.Errorf("SendMaxAttempts = %d, want 5", cfg.Gateway.SendMaxAttempts)
	}
	if cfg.Gateway.MaxMessagesPerReply != 5 {
		t.Errorf("MaxMessagesPerReply = %d, want 5", cfg.Gateway.MaxMessagesPerReply)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv(EnvChannelID, "2000001")
	t.Setenv(EnvChannelSecret, "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without channel secret")
	}
}

func TestLoadMissingChannelID(t *testing.T) {
	t.Setenv(EnvChannelID, "")
	t.Setenv(EnvChannelSecret, "s")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without channel ID")
	}
}

func TestPlanTable(t *testing.T) {
	setRequired(t)

	tests := []struct {
		plan     string
		capacity int
	}{
		{"standard", 500},
		{"business", 1000},
		{"enterprise", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			t.Setenv(EnvPlan, tt.plan)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Gateway.PlanLimits.Capacity != tt.capacity {
				t.Errorf("Capacity = %d, want %d", cfg.Gateway.PlanLimits.Capacity, tt.capacity)
			}
			if cfg.Gateway.PlanLimits.Window != time.Minute {
				t.Errorf("Window = %v, want 1m", cfg.Gateway.PlanLimits.Window)
			}
		})
	}
}

func TestPlanOverride(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvPlan, "business")
	t.Setenv(EnvPlanCapacity, "42")
	t.Setenv(EnvPlanWindow, "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gateway.PlanLimits.Capacity != 42 {
		t.Errorf("Capacity = %d, want 42", cfg.Gateway.PlanLimits.Capacity)
	}
	if cfg.Gateway.PlanLimits.Window != 30*time.Second {
		t.Errorf("Window = %v, want 30s", cfg.Gateway.PlanLimits.Window)
	}
}

func TestUnknownPlanRejected(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvPlan, "platinum")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject unknown plan")
	}
}

func TestInvalidPortRejected(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvPort, "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject non-numeric port")
	}
}

func TestSentryRequiresDSN(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvSentryEnabled, "true")
	t.Setenv(EnvSentryDSN, "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when sentry enabled without DSN")
	}
}

func TestSQLitePath(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvDataDir, "/tmp/cg-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SQLitePath() != "/tmp/cg-test/deliveries.db" {
		t.Errorf("SQLitePath() = %q", cfg.SQLitePath())
	}
}
