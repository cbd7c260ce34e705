package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKFLOW_CONFIG", "")
	t.Setenv("REMOTE_MAX_ATTEMPTS", "")
	t.Setenv("REMOTE_BASE_DELAY", "")
	t.Setenv("GOOGLE_TASKLIST", "")

	cfg := Load()
	if cfg.RemoteMaxAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", cfg.RemoteMaxAttempts)
	}
	if cfg.RemoteBaseDelay != 2*time.Second {
		t.Errorf("Expected 2s base delay, got %v", cfg.RemoteBaseDelay)
	}
	if cfg.GoogleTasklist != "Task manager" {
		t.Errorf("Expected default tasklist, got %q", cfg.GoogleTasklist)
	}
	if cfg.SnoozeAdvisory != "every" {
		t.Errorf("Expected snooze advisory 'every', got %q", cfg.SnoozeAdvisory)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKFLOW_CONFIG", "")
	t.Setenv("REMOTE_MAX_ATTEMPTS", "5")
	t.Setenv("REMOTE_BASE_DELAY", "250ms")
	t.Setenv("RECONCILE_INTERVAL", "not-a-duration")
	t.Setenv("DAILY_DIGEST", "true")

	cfg := Load()
	if cfg.RemoteMaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", cfg.RemoteMaxAttempts)
	}
	if cfg.RemoteBaseDelay != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.RemoteBaseDelay)
	}
	if cfg.ReconcileInterval != 24*time.Hour {
		t.Errorf("Expected invalid duration to fall back to 24h, got %v", cfg.ReconcileInterval)
	}
	if !cfg.DailyDigest {
		t.Error("Expected DAILY_DIGEST=true to enable the digest")
	}
}

func TestMergeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskflow.yaml")
	content := []byte("google_tasklist: Work queue\nremote_base_delay: 5s\nslack_webhook_url: https://hooks.example/abc\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{GoogleTasklist: "Task manager", RemoteBaseDelay: time.Second, Port: "8080"}
	if err := cfg.MergeFile(path); err != nil {
		t.Fatalf("MergeFile failed: %v", err)
	}
	if cfg.GoogleTasklist != "Work queue" {
		t.Errorf("Expected tasklist overlay, got %q", cfg.GoogleTasklist)
	}
	if cfg.RemoteBaseDelay != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.RemoteBaseDelay)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port untouched, got %q", cfg.Port)
	}
	if cfg.SlackWebhookURL != "https://hooks.example/abc" {
		t.Errorf("Expected webhook overlay, got %q", cfg.SlackWebhookURL)
	}
}

func TestMergeFileMissing(t *testing.T) {
	cfg := &Config{}
	if err := cfg.MergeFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
