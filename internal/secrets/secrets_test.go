package secrets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLocalResolverReadsSecretFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "slack-webhook"), []byte("https://hooks.example/abc\n"), 0600))

	r, err := NewLocalResolver(dir, testLogger())
	assert.NoError(t, err)

	v, err := r.GetSecret(context.Background(), "slack-webhook")
	assert.NoError(t, err)
	assert.Equal(t, "https://hooks.example/abc", v)
}

func TestLocalResolverReturnsEmptyForMissingSecret(t *testing.T) {
	dir := t.TempDir()
	r, err := NewLocalResolver(dir, testLogger())
	assert.NoError(t, err)

	v, err := r.GetSecret(context.Background(), "nonexistent")
	assert.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestNewFallsBackToLocalWhenOnePasswordUnconfigured(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{Backend: "auto", LocalDir: dir}, testLogger())
	assert.NoError(t, err)

	_, ok := r.(*LocalResolver)
	assert.True(t, ok)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "bogus"}, testLogger())
	assert.Error(t, err)
}
