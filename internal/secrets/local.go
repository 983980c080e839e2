package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalResolver reads secrets from flat files in a directory, one file
// per secret name. Intended for development only.
type LocalResolver struct {
	baseDir string
	logger  *slog.Logger
}

// NewLocalResolver builds a LocalResolver rooted at baseDir. If baseDir
// is empty it defaults to ~/.siem-pipeline/secrets.
func NewLocalResolver(baseDir string, logger *slog.Logger) (*LocalResolver, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".siem-pipeline", "secrets")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("creating secrets directory: %w", err)
	}

	logger.Info("using local secrets directory", "path", baseDir)
	return &LocalResolver{baseDir: baseDir, logger: logger}, nil
}

// GetSecret reads <baseDir>/<name>, trimming surrounding whitespace. A
// missing file is treated as "not configured": empty string, no error.
func (r *LocalResolver) GetSecret(_ context.Context, name string) (string, error) {
	path := filepath.Join(r.baseDir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading secret %q: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
