// Package secrets resolves named credentials (webhook URLs, API tokens,
// SMTP passwords) for the alert manager's notification channels, backed
// by 1Password Connect with a local-file fallback for development.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Resolver retrieves a named secret's current value.
type Resolver interface {
	// GetSecret returns the value stored under name. It returns an
	// empty string and no error if name is simply unconfigured, so
	// callers can treat an absent credential as "channel disabled"
	// rather than a hard failure.
	GetSecret(ctx context.Context, name string) (string, error)
}

// Config selects and configures a Resolver backend.
type Config struct {
	// Backend is "1password", "local", or "auto" (default: try
	// 1Password, fall back to local).
	Backend string

	OnePasswordHost    string
	OnePasswordToken   string
	OnePasswordVaultID string

	// LocalDir is where the local backend reads <name> files from.
	// Defaults to ~/.siem-pipeline/secrets.
	LocalDir string
}

// ConfigFromEnv builds a Config from the SIEM_SECRETS_BACKEND /
// OP_CONNECT_HOST / OP_CONNECT_TOKEN / OP_VAULT_ID / SIEM_SECRETS_DIR
// environment variables.
func ConfigFromEnv() Config {
	return Config{
		Backend:            getEnv("SIEM_SECRETS_BACKEND", "auto"),
		OnePasswordHost:    os.Getenv("OP_CONNECT_HOST"),
		OnePasswordToken:   os.Getenv("OP_CONNECT_TOKEN"),
		OnePasswordVaultID: os.Getenv("OP_VAULT_ID"),
		LocalDir:           os.Getenv("SIEM_SECRETS_DIR"),
	}
}

// New builds a Resolver from cfg, falling back from 1Password to the
// local backend in "auto" mode the same way the control plane's key
// store factory does.
func New(cfg Config, logger *slog.Logger) (Resolver, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "auto"
	}
	logger = logger.With("component", "secrets")

	switch backend {
	case "1password":
		if cfg.OnePasswordHost == "" || cfg.OnePasswordToken == "" || cfg.OnePasswordVaultID == "" {
			return nil, fmt.Errorf("1password backend requested but OP_CONNECT_HOST/OP_CONNECT_TOKEN/OP_VAULT_ID not fully set")
		}
		return NewOnePasswordResolver(cfg.OnePasswordHost, cfg.OnePasswordToken, cfg.OnePasswordVaultID, logger)

	case "local":
		return NewLocalResolver(cfg.LocalDir, logger)

	case "auto":
		if cfg.OnePasswordToken != "" && cfg.OnePasswordHost != "" && cfg.OnePasswordVaultID != "" {
			r, err := NewOnePasswordResolver(cfg.OnePasswordHost, cfg.OnePasswordToken, cfg.OnePasswordVaultID, logger)
			if err != nil {
				logger.Warn("failed to initialize 1password resolver, falling back to local", "error", err)
				return NewLocalResolver(cfg.LocalDir, logger)
			}
			return r, nil
		}
		logger.Info("1password not configured, using local secrets directory")
		return NewLocalResolver(cfg.LocalDir, logger)

	default:
		return nil, fmt.Errorf("unknown secrets backend: %s", backend)
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
