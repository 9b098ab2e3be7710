package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// PassphraseEnv overrides crypto.passphrase when set.
const PassphraseEnv = "SETTLEMENT_FIELD_KEY"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Backend    BackendConfig    `yaml:"backend"`
	Crypto     CryptoConfig     `yaml:"crypto"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Forms      FormsConfig      `yaml:"forms"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	UserHeader      string        `yaml:"user_header"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// BackendConfig describes the university REST API that serves reference
// data and accepts submitted agreements.
type BackendConfig struct {
	BaseURL         string            `yaml:"base_url"`
	Headers         map[string]string `yaml:"headers"`
	HTTPProxy       string            `yaml:"http_proxy"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
	Timeout         time.Duration     `yaml:"-"`
	CacheTTLSeconds int               `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration     `yaml:"-"`
}

// CryptoConfig holds the symmetric key used for field-level encryption.
type CryptoConfig struct {
	Passphrase string `yaml:"passphrase"`
	WorkFactor int    `yaml:"work_factor"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// FormsConfig tunes the wizard engine.
type FormsConfig struct {
	Timezone          string        `yaml:"timezone"`
	LandingURL        string        `yaml:"landing_url"`
	SessionTTLMinutes int           `yaml:"session_ttl_minutes"`
	SessionTTL        time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UserHeader == "" {
		cfg.Server.UserHeader = "X-User-ID"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 15
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	if cfg.Backend.CacheTTLSeconds <= 0 {
		cfg.Backend.CacheTTLSeconds = 600
	}
	cfg.Backend.CacheTTL = time.Duration(cfg.Backend.CacheTTLSeconds) * time.Second

	if env := os.Getenv(PassphraseEnv); env != "" {
		cfg.Crypto.Passphrase = env
	}
	if cfg.Crypto.Passphrase == "" {
		return fmt.Errorf("crypto.passphrase (or %s) is required", PassphraseEnv)
	}
	if cfg.Crypto.WorkFactor <= 0 {
		cfg.Crypto.WorkFactor = 12
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Forms.Timezone == "" {
		cfg.Forms.Timezone = "Europe/Kyiv"
	}
	if _, err := time.LoadLocation(cfg.Forms.Timezone); err != nil {
		return fmt.Errorf("forms.timezone %q: %w", cfg.Forms.Timezone, err)
	}
	if cfg.Forms.LandingURL == "" {
		cfg.Forms.LandingURL = "/"
	}
	if cfg.Forms.SessionTTLMinutes <= 0 {
		cfg.Forms.SessionTTLMinutes = 30
	}
	cfg.Forms.SessionTTL = time.Duration(cfg.Forms.SessionTTLMinutes) * time.Minute
	return nil
}

// Location returns the time zone the forms are filled in.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.Forms.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
