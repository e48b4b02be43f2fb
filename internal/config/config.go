// Package config handles reading and writing .panelsim/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .panelsim/config.yaml.
type Config struct {
	Version int           `yaml:"version"`
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Audio   AudioConfig   `yaml:"audio"`
	Setup   SetupConfig   `yaml:"setup"`
	Cleanup CleanupConfig `yaml:"cleanup"`
}

// BackendConfig locates the panel backend.
type BackendConfig struct {
	URL          string `yaml:"url"`
	TextEndpoint string `yaml:"text_endpoint"`
	Timeout      int    `yaml:"timeout"` // seconds
}

// SessionConfig tunes the turn sequencer.
type SessionConfig struct {
	FollowUpDelay     int  `yaml:"follow_up_delay"`  // ms
	ClosingMaxWait    int  `yaml:"closing_max_wait"` // ms
	EchoTranscription bool `yaml:"echo_transcription"`
	WarningSeconds    int  `yaml:"warning_seconds"`
	DangerSeconds     int  `yaml:"danger_seconds"`
	BreakerThreshold  int  `yaml:"breaker_threshold"`
	SaveTranscript    bool `yaml:"save_transcript"`
}

// AudioConfig controls microphone capture and speech playback.
type AudioConfig struct {
	SampleRate int  `yaml:"sample_rate"`
	Channels   int  `yaml:"channels"`
	Playback   bool `yaml:"playback"`
}

// SetupConfig holds defaults for the session setup request.
type SetupConfig struct {
	Executives        []string `yaml:"executives"`
	Industry          string   `yaml:"industry"`
	ReportType        string   `yaml:"report_type"`
	AllowFollowUps    bool     `yaml:"allow_followups"`
	EnableWebResearch bool     `yaml:"enable_web_research"`
}

// CleanupConfig controls pruning of old run directories.
type CleanupConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

// configDir is the state directory relative to the project root.
const configDir = ".panelsim"
const configFile = "config.yaml"

// Environment overrides applied by LoadEnv.
const (
	EnvBackendURL        = "PANELSIM_BACKEND_URL"
	EnvEchoTranscription = "PANELSIM_ECHO_TRANSCRIPTION"
	EnvFollowUpDelay     = "PANELSIM_FOLLOW_UP_DELAY_MS"
)

// ReadConfig reads .panelsim/config.yaml from the given project directory.
// dir is the project root (not .panelsim/ itself). Fields missing from the
// file keep their defaults.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to .panelsim/config.yaml in the given project directory.
// Creates the .panelsim/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Load reads the project config, falling back to defaults when the file
// does not exist, then applies .env and environment overrides.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	if err := LoadEnv(dir, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads dir/.env into the process environment (existing variables
// win) and applies the PANELSIM_* overrides to cfg.
func LoadEnv(dir string, cfg *Config) error {
	envFile := filepath.Join(dir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv(EnvEchoTranscription); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvEchoTranscription, err)
		}
		cfg.Session.EchoTranscription = b
	}
	if v := os.Getenv(EnvFollowUpDelay); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvFollowUpDelay, err)
		}
		cfg.Session.FollowUpDelay = ms
	}
	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			URL:          "http://localhost:8080",
			TextEndpoint: "/respond_to_executive",
			Timeout:      120,
		},
		Session: SessionConfig{
			FollowUpDelay:     1000,
			ClosingMaxWait:    8000,
			EchoTranscription: true,
			WarningSeconds:    60,
			DangerSeconds:     30,
			BreakerThreshold:  3,
			SaveTranscript:    true,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			Playback:   true,
		},
		Setup: SetupConfig{
			Executives:     []string{"CEO", "CFO", "CTO"},
			ReportType:     "Business Report",
			AllowFollowUps: true,
		},
		Cleanup: CleanupConfig{
			MaxAgeDays: 30,
		},
	}
}

// FollowUpDelayDuration returns the pause before a follow-up is shown.
func (s SessionConfig) FollowUpDelayDuration() time.Duration {
	return time.Duration(s.FollowUpDelay) * time.Millisecond
}

// ClosingMaxWaitDuration returns the cap on closing-message playback.
func (s SessionConfig) ClosingMaxWaitDuration() time.Duration {
	return time.Duration(s.ClosingMaxWait) * time.Millisecond
}

// TimeoutDuration returns the per-request backend timeout.
func (b BackendConfig) TimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

// Dir returns the state directory for a project root.
func Dir(root string) string {
	return filepath.Join(root, configDir)
}

// RunsDir returns the directory holding per-session run folders.
func RunsDir(root string) string {
	return filepath.Join(root, configDir, "runs")
}

// JournalPath returns the SQLite journal location.
func JournalPath(root string) string {
	return filepath.Join(root, configDir, "sessions.db")
}
