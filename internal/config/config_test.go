package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panelsim/panelsim/internal/testutil"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Backend.URL = "http://panel.internal:9000"
	cfg.Session.FollowUpDelay = 0
	cfg.Setup.Executives = []string{"CEO", "CMO"}

	if err := WriteConfig(tmpDir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.Backend.URL != "http://panel.internal:9000" {
		t.Errorf("Backend.URL: got %q", loaded.Backend.URL)
	}
	if loaded.Session.FollowUpDelay != 0 {
		t.Errorf("FollowUpDelay: got %d, want 0", loaded.Session.FollowUpDelay)
	}
	if len(loaded.Setup.Executives) != 2 || loaded.Setup.Executives[1] != "CMO" {
		t.Errorf("Executives: got %v", loaded.Setup.Executives)
	}
}

func TestDefaultConfigTimings(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Session.FollowUpDelayDuration(); got != time.Second {
		t.Errorf("follow-up delay: got %v, want 1s", got)
	}
	if got := cfg.Session.ClosingMaxWaitDuration(); got != 8*time.Second {
		t.Errorf("closing max wait: got %v, want 8s", got)
	}
	if cfg.Session.WarningSeconds != 60 || cfg.Session.DangerSeconds != 30 {
		t.Errorf("thresholds: got %d/%d, want 60/30", cfg.Session.WarningSeconds, cfg.Session.DangerSeconds)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	partial := `version: 1
backend:
  url: http://other:8080
`
	configPath := filepath.Join(tmpDir, ".panelsim")
	if err := os.MkdirAll(configPath, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, "config.yaml"), []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.Backend.URL != "http://other:8080" {
		t.Errorf("Backend.URL: got %q", cfg.Backend.URL)
	}
	if cfg.Session.ClosingMaxWait != 8000 {
		t.Errorf("ClosingMaxWait: got %d, want default 8000", cfg.Session.ClosingMaxWait)
	}
	if cfg.Backend.TextEndpoint != "/respond_to_executive" {
		t.Errorf("TextEndpoint: got %q", cfg.Backend.TextEndpoint)
	}
}

func TestReadConfigMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".panelsim")
	if err := os.MkdirAll(configPath, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, "config.yaml"), []byte("session: [oops"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := ReadConfig(tmpDir); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(tmpDir); err == nil {
		t.Fatal("Load must surface parse errors")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvBackendURL, "")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://localhost:8080" {
		t.Errorf("Backend.URL: got %q", cfg.Backend.URL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvBackendURL, "http://from-env:1234")
	t.Setenv(EnvEchoTranscription, "false")
	t.Setenv(EnvFollowUpDelay, "0")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://from-env:1234" {
		t.Errorf("Backend.URL: got %q", cfg.Backend.URL)
	}
	if cfg.Session.EchoTranscription {
		t.Error("EchoTranscription should be overridden to false")
	}
	if cfg.Session.FollowUpDelay != 0 {
		t.Errorf("FollowUpDelay: got %d, want 0", cfg.Session.FollowUpDelay)
	}
}

func TestLoadEnvRejectsBadBool(t *testing.T) {
	t.Setenv(EnvEchoTranscription, "sometimes")
	if err := LoadEnv(t.TempDir(), DefaultConfig()); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvBackendURL, "")
	os.Unsetenv(EnvBackendURL)
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(EnvBackendURL+"=http://dotenv:7000\n"), 0644); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvBackendURL) })

	cfg := DefaultConfig()
	if err := LoadEnv(tmpDir, cfg); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.Backend.URL != "http://dotenv:7000" {
		t.Errorf("Backend.URL: got %q", cfg.Backend.URL)
	}
}

func TestLoadConfiguredProject(t *testing.T) {
	dir := testutil.TempProject(t, testutil.ConfiguredProject("http://panel.test:9000"))
	t.Setenv(EnvBackendURL, "")
	t.Setenv(EnvFollowUpDelay, "")
	t.Setenv(EnvEchoTranscription, "")
	os.Unsetenv(EnvEchoTranscription)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://panel.test:9000" {
		t.Errorf("Backend.URL: got %q", cfg.Backend.URL)
	}
	if cfg.Backend.TimeoutDuration() != 5*time.Second {
		t.Errorf("Timeout: got %v", cfg.Backend.TimeoutDuration())
	}
	if cfg.Session.FollowUpDelay != 0 {
		t.Errorf("FollowUpDelay: got %d, want 0", cfg.Session.FollowUpDelay)
	}
	if cfg.Session.EchoTranscription {
		t.Error(".env should turn EchoTranscription off")
	}
	if len(cfg.Setup.Executives) != 2 || cfg.Setup.Executives[1] != "CFO" {
		t.Errorf("Executives: got %v", cfg.Setup.Executives)
	}
	if cfg.Session.ClosingMaxWait != 8000 {
		t.Errorf("ClosingMaxWait should keep its default, got %d", cfg.Session.ClosingMaxWait)
	}
}
