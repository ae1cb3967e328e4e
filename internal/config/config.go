package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	LogDir       string

	Vault    VaultConfig
	Auth     AuthConfig
	Platform PlatformConfig

	// CommandRateLimit is the per-actor sustained rate on the command endpoint.
	CommandRateLimit int
}

// VaultConfig controls how the credential vault master key is provisioned.
type VaultConfig struct {
	KeyPath    string
	Passphrase string
	// SweepSchedule is a cron spec for the background secret sweep. Empty disables it.
	SweepSchedule string
}

// AuthConfig holds the bearer token settings for the intake API.
type AuthConfig struct {
	JWTSecret string
}

// PlatformConfig points at the chat platform bridge.
type PlatformConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("WARDEN_ENV", "development"),
		HTTPPort:     getEnv("WARDEN_HTTP_PORT", "8080"),
		DatabasePath: getEnv("WARDEN_DB_PATH", filepath.Join("data", "warden.db")),
		LogDir:       getEnv("WARDEN_LOG_DIR", filepath.Join("data", "logs")),
		Vault: VaultConfig{
			KeyPath:       getEnv("WARDEN_VAULT_KEY_PATH", filepath.Join("data", "vault.key")),
			Passphrase:    os.Getenv("WARDEN_VAULT_PASSPHRASE"),
			SweepSchedule: getEnv("WARDEN_VAULT_SWEEP", "@every 6h"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("WARDEN_JWT_SECRET"),
		},
		Platform: PlatformConfig{
			BaseURL: os.Getenv("WARDEN_PLATFORM_URL"),
		},
	}

	timeout, err := time.ParseDuration(getEnv("WARDEN_PLATFORM_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("invalid WARDEN_PLATFORM_TIMEOUT: %q", os.Getenv("WARDEN_PLATFORM_TIMEOUT"))
	}
	cfg.Platform.Timeout = timeout

	rate, err := strconv.Atoi(getEnv("WARDEN_RATE_LIMIT", "5"))
	if err != nil || rate <= 0 {
		return Config{}, fmt.Errorf("invalid WARDEN_RATE_LIMIT: %q", os.Getenv("WARDEN_RATE_LIMIT"))
	}
	cfg.CommandRateLimit = rate

	if !cfg.IsDevelopment() && cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("WARDEN_JWT_SECRET is required when WARDEN_ENV=%s", cfg.Environment)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}
