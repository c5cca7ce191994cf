package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Monitoring.MinIntervalMinutes != 5 {
		t.Errorf("Monitoring.MinIntervalMinutes = %d, want 5", cfg.Monitoring.MinIntervalMinutes)
	}
	if cfg.Monitoring.ManualCheckCooldown != 30*time.Second {
		t.Errorf("Monitoring.ManualCheckCooldown = %v, want 30s", cfg.Monitoring.ManualCheckCooldown)
	}
	if cfg.Notification.ChannelTimeout != 10*time.Second {
		t.Errorf("Notification.ChannelTimeout = %v, want 10s", cfg.Notification.ChannelTimeout)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	os.Setenv("DB_TYPE", "postgres")
	os.Setenv("WORKER_POOL_SIZE", "25")
	defer os.Unsetenv("DB_TYPE")
	defer os.Unsetenv("WORKER_POOL_SIZE")

	cfg := LoadFromEnv()
	if cfg.Database.Type != "postgres" {
		t.Errorf("Database.Type = %q, want postgres", cfg.Database.Type)
	}
	if cfg.Monitoring.WorkerPoolSize != 25 {
		t.Errorf("Monitoring.WorkerPoolSize = %d, want 25", cfg.Monitoring.WorkerPoolSize)
	}
}

func TestValidateRejectsUnsupportedDatabase(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Database.Type = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for unsupported database type")
	}
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Monitoring.MinIntervalMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for zero MinIntervalMinutes")
	}
}

func TestLoadFromFileFallsBackWhenMissing(t *testing.T) {
	cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite default", cfg.Database.Type)
	}
}
