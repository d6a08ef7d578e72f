package app

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	coreconfig "github.com/m3rciful/attendobot/core/config"
)

const (
	defaultTimeoutSeconds = 60
	defaultRetries        = 2
)

// BackendConfig points at the Attendo API.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"API_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"API_TIMEOUT_SECONDS"`
	// Retries is nil when unset; 0 turns GET retries off.
	Retries *int `yaml:"retries" envconfig:"API_RETRIES"`
}

// AudioConfig controls where uploaded lesson audio is staged.
type AudioConfig struct {
	TempDir string `yaml:"temp_dir" envconfig:"AUDIO_TEMP_DIR"`
}

// Config is the bot configuration: the shared core plus Attendo settings.
// Telegram fields also accept the TELEGRAM_ prefix, e.g. TELEGRAM_BOT_TOKEN.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Backend BackendConfig `yaml:"backend"`
	Audio   AudioConfig   `yaml:"audio"`
}

// Load reads the YAML file at path, overlays the environment and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if base == "" {
		return fmt.Errorf("backend.base_url (API_BASE_URL) is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("backend.base_url %q must be an absolute http(s) URL", cfg.Backend.BaseURL)
	}
	cfg.Backend.BaseURL = base

	if cfg.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must be >= 0")
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = defaultTimeoutSeconds
	}
	switch {
	case cfg.Backend.Retries == nil:
		retries := defaultRetries
		cfg.Backend.Retries = &retries
	case *cfg.Backend.Retries < 0:
		return fmt.Errorf("backend.retries must be >= 0")
	}

	cfg.Audio.TempDir = strings.TrimSpace(cfg.Audio.TempDir)
	if cfg.Audio.TempDir == "" {
		cfg.Audio.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.Audio.TempDir, 0o700); err != nil {
		return fmt.Errorf("audio.temp_dir: %w", err)
	}
	return nil
}
